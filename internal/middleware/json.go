package middleware

import (
	"mime"
	"net/http"
)

// RequireJSON answers 415 to any state-changing request whose Content-Type
// is not application/json, even when it has no body.
//
// CROSS-SITE REQUESTS:
// The process holds a single session and no cookie ties it to a caller, so
// the browser's same-origin rules are the only thing keeping another site
// from acting as the signed-in user. A page can send a "simple" cross-origin
// POST (form encoded, multipart or text/plain) without asking first, and the
// server would run it. application/json is not a simple content type, which
// makes the browser send a CORS preflight that an unlisted origin fails.
//
// chi's AllowContentType lets empty bodies through, which would leave
// bodiless actions such as POST /logout open, hence this variant.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnsupportedMediaType)
			_, _ = w.Write([]byte(`{"error":"unsupported_media_type","message":"Envie a requisição como application/json."}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
