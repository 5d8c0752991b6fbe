package postgrest

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// query builds PostgREST query strings: select, horizontal filters, order, limit.
type query url.Values

func selectColumns(cols string) query {
	return query{"select": {cols}}
}

func (q query) eq(col, val string) query {
	url.Values(q).Add(col, "eq."+val)
	return q
}

// ilike adds a case-insensitive pattern filter; "*" is PostgREST's wildcard.
func (q query) ilike(col, pattern string) query {
	url.Values(q).Add(col, "ilike."+pattern)
	return q
}

func (q query) order(col string, desc bool) query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	url.Values(q).Set("order", col+"."+dir)
	return q
}

func (q query) limit(n int) query {
	url.Values(q).Set("limit", strconv.Itoa(n))
	return q
}

func (q query) values() url.Values {
	return url.Values(q)
}

// likeEscaper escapes LIKE metacharacters so user input matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches rows whose column contains s.
func containsPattern(s string) string {
	return "*" + likeEscaper.Replace(s) + "*"
}

// returnRepresentation asks PostgREST to echo the affected rows.
func returnRepresentation() http.Header {
	return http.Header{"Prefer": {"return=representation"}}
}
