package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/model"
)

const testKey = "anon-key"

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL, Key: testKey, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func sessionBody(access string, expiresIn int) map[string]any {
	return map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    expiresIn,
		"refresh_token": "refresh-" + access,
		"user": map[string]any{
			"id":            "u1",
			"email":         "mario@example.com",
			"user_metadata": map[string]any{"username": "mario"},
		},
	}
}

// handleSignIn answers the password grant with a session for access token tok.
func handleSignIn(mux *http.ServeMux, tok string, expiresIn int) {
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("grant_type") {
		case "password":
			writeJSON(w, http.StatusOK, sessionBody(tok, expiresIn))
		case "refresh_token":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
			if body["refresh_token"] != "refresh-"+tok {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid Refresh Token"})
				return
			}
			writeJSON(w, http.StatusOK, sessionBody(tok+"-2", 3600))
		}
	})
}

type events struct {
	mu   sync.Mutex
	list []model.AuthEvent
}

func (e *events) listen(ev model.AuthEvent, _ *model.Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append(e.list, ev)
}

func (e *events) get() []model.AuthEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.AuthEvent(nil), e.list...)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing url", Config{Key: "k"}},
		{"missing key", Config{URL: "https://x.supabase.co"}},
		{"bad scheme", Config{URL: "ftp://x", Key: "k"}},
		{"no host", Config{URL: "https://", Key: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}

	c, err := New(Config{URL: "https://x.supabase.co/", Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, "https://x.supabase.co", c.baseURL)
}

func TestSignInAuthorizesLaterRequests(t *testing.T) {
	mux := http.NewServeMux()
	handleSignIn(mux, "access-1", 3600)

	var gotAuth, gotKey string
	mux.HandleFunc("GET /rest/v1/library_items", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		q := r.URL.Query()
		assert.Equal(t, "*,games(title,cover_url,release_date,steam_app_id)", q.Get("select"))
		assert.Equal(t, "eq.u1", q.Get("user_id"))
		assert.Equal(t, "updated_at.desc", q.Get("order"))
		w.Write([]byte(`[{
			"id": "li1", "user_id": "u1", "game_id": "g1",
			"status": "PLAYING", "platform": "PC",
			"playtime_minutes": 90, "rating": null, "review": null,
			"started_at": "2024-03-01", "finished_at": null,
			"updated_at": "2024-03-02T10:00:00.123456+00:00",
			"games": {"title": "Hades", "cover_url": null, "release_date": "2020-09-17", "steam_app_id": 1145360}
		}]`))
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	s, err := c.SignInWithPassword(ctx, "mario@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "mario", s.User.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, time.Minute)

	items, err := c.ListLibrary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer access-1", gotAuth)
	assert.Equal(t, testKey, gotKey)

	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, model.StatusPlaying, it.Status)
	assert.Equal(t, "Hades", it.Game.Title)
	require.NotNil(t, it.Game.SteamAppID)
	assert.Equal(t, int64(1145360), *it.Game.SteamAppID)
	require.NotNil(t, it.StartedAt)
	assert.Equal(t, "2024-03-01", it.StartedAt.String())
	assert.Nil(t, it.Rating)
}

func TestSignedOutRequestsUseProjectKey(t *testing.T) {
	mux := http.NewServeMux()
	var gotAuth string
	mux.HandleFunc("GET /rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})
	c := newTestClient(t, mux)

	p, err := c.GetProfileByUsername(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, "Bearer "+testKey, gotAuth)
}

func TestErrorDecoding(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
		wantIs   error
	}{
		{
			name:     "gotrue oauth style",
			status:   http.StatusBadRequest,
			body:     `{"error":"invalid_grant","error_description":"Invalid login credentials"}`,
			wantCode: "invalid_grant",
			wantMsg:  "Invalid login credentials",
			wantIs:   apperror.ErrBackend,
		},
		{
			name:     "gotrue numeric code",
			status:   http.StatusUnprocessableEntity,
			body:     `{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`,
			wantCode: "user_already_exists",
			wantMsg:  "User already registered",
			wantIs:   apperror.ErrBackend,
		},
		{
			name:     "postgrest unique violation",
			status:   http.StatusConflict,
			body:     `{"code":"23505","message":"duplicate key value violates unique constraint \"library_items_user_id_game_id_key\"","details":"Key exists.","hint":null}`,
			wantCode: "23505",
			wantMsg:  `duplicate key value violates unique constraint "library_items_user_id_game_id_key"`,
			wantIs:   apperror.ErrConflict,
		},
		{
			name:    "plain text body",
			status:  http.StatusBadGateway,
			body:    `upstream down`,
			wantMsg: "upstream down",
			wantIs:  apperror.ErrBackend,
		},
		{
			name:    "empty body",
			status:  http.StatusServiceUnavailable,
			body:    ``,
			wantMsg: "Service Unavailable",
			wantIs:  apperror.ErrBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeError(tt.status, []byte(tt.body))
			var be *apperror.BackendError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.status, be.Status)
			assert.Equal(t, tt.wantCode, be.Code)
			assert.Equal(t, tt.wantMsg, be.Message)
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}
}

func TestInsertDuplicateIsConflict(t *testing.T) {
	mux := http.NewServeMux()
	handleSignIn(mux, "access-1", 3600)
	mux.HandleFunc("POST /rest/v1/library_items", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(0), body["playtime_minutes"])
		assert.Equal(t, "BACKLOG", body["status"])
		writeJSON(w, http.StatusConflict, map[string]any{"code": "23505", "message": "duplicate key value"})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()
	_, err := c.SignInWithPassword(ctx, "mario@example.com", "hunter22")
	require.NoError(t, err)

	err = c.InsertLibraryItem(ctx, model.NewLibraryItem{
		UserID: "u1", GameID: "g1", Status: model.StatusBacklog, Platform: model.PlatformPC,
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestUpdateLibraryItem(t *testing.T) {
	mux := http.NewServeMux()
	var body map[string]any
	mux.HandleFunc("PATCH /rest/v1/library_items", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if r.URL.Query().Get("id") == "eq.missing" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"id":"li1"}]`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	zero, playtime := 0, 30
	require.NoError(t, c.UpdateLibraryItem(ctx, "li1", model.LibraryPatch{Rating: &zero, PlaytimeMinutes: &playtime}))
	assert.Contains(t, body, "rating")
	assert.Nil(t, body["rating"])
	assert.Equal(t, float64(30), body["playtime_minutes"])
	assert.NotContains(t, body, "status")

	err := c.UpdateLibraryItem(ctx, "missing", model.LibraryPatch{Rating: &zero})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteLibraryItemSendsNoBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /rest/v1/library_items", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		assert.Empty(t, data)
		assert.Equal(t, "eq.li1", r.URL.Query().Get("id"))
		w.Write([]byte(`[{"id":"li1"}]`))
	})
	c := newTestClient(t, mux)
	assert.NoError(t, c.DeleteLibraryItem(context.Background(), "li1"))
}

func TestSearchGames(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/v1/games", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "ilike.*mario\\_*", q.Get("title"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "id,title,cover_url,release_date", q.Get("select"))
		w.Write([]byte(`[{"id":"g1","title":"Super Mario_64","cover_url":null,"release_date":"1996-06-23"}]`))
	})
	c := newTestClient(t, mux)

	got, err := c.SearchGames(context.Background(), "mario_", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Super Mario_64", got[0].Title)
}

func TestSearchGamesPreservesCancellation(t *testing.T) {
	mux := http.NewServeMux()
	started := make(chan struct{})
	mux.HandleFunc("GET /rest/v1/games", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	c := newTestClient(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.SearchGames(ctx, "zelda", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestSignUp(t *testing.T) {
	t.Run("session returned", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Email string            `json:"email"`
				Data  map[string]string `json:"data"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "mario", body.Data["username"])
			writeJSON(w, http.StatusOK, sessionBody("access-1", 3600))
		})
		c := newTestClient(t, mux)

		u, s, err := c.SignUp(context.Background(), "mario", "mario@example.com", "hunter22")
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, "mario", u.Username)
	})

	t.Run("confirmation required", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"id": "u2", "email": "luigi@example.com",
				"user_metadata": map[string]any{"username": "luigi"},
			})
		})
		c := newTestClient(t, mux)

		u, s, err := c.SignUp(context.Background(), "luigi", "luigi@example.com", "hunter22")
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.Equal(t, "u2", u.ID)
		assert.Equal(t, "luigi", u.Username)

		current, err := c.GetSession(context.Background())
		require.NoError(t, err)
		assert.Nil(t, current)
	})
}

func TestSignOut(t *testing.T) {
	mux := http.NewServeMux()
	handleSignIn(mux, "access-1", 3600)
	fail := true
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"msg": "boom"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	rec := &events{}
	c.OnAuthStateChange(rec.listen)
	_, err := c.SignInWithPassword(ctx, "mario@example.com", "hunter22")
	require.NoError(t, err)

	err = c.SignOut(ctx)
	require.Error(t, err)
	assert.Equal(t, "boom", apperror.Message(err))
	s, _ := c.GetSession(ctx)
	assert.NotNil(t, s, "failed revoke must keep the session")

	fail = false
	require.NoError(t, c.SignOut(ctx))
	s, _ = c.GetSession(ctx)
	assert.Nil(t, s)

	assert.Equal(t, []model.AuthEvent{model.EventInitialSession, model.EventSignedIn, model.EventSignedOut}, rec.get())
}

func TestTokenRefresh(t *testing.T) {
	mux := http.NewServeMux()
	handleSignIn(mux, "access-1", 1)
	var gotAuth string
	mux.HandleFunc("GET /rest/v1/games", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	rec := &events{}
	sub := c.OnAuthStateChange(rec.listen)
	defer sub.Unsubscribe()

	_, err := c.SignInWithPassword(ctx, "mario@example.com", "hunter22")
	require.NoError(t, err)

	// a token expiring within the oauth2 expiry delta is refreshed before use
	_, err = c.SearchGames(ctx, "hades", 10)
	require.NoError(t, err)
	assert.Equal(t, "Bearer access-1-2", gotAuth)
	assert.Equal(t, []model.AuthEvent{model.EventInitialSession, model.EventSignedIn, model.EventTokenRefreshed}, rec.get())

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1-2", s.AccessToken)
}

func TestRejectedRefreshSignsOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") == "password" {
			writeJSON(w, http.StatusOK, sessionBody("access-1", 1))
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Refresh Token Not Found"})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	rec := &events{}
	c.OnAuthStateChange(rec.listen)
	_, err := c.SignInWithPassword(ctx, "mario@example.com", "hunter22")
	require.NoError(t, err)

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, []model.AuthEvent{model.EventInitialSession, model.EventSignedIn, model.EventSignedOut}, rec.get())
}

func TestUpdateProfile(t *testing.T) {
	mux := http.NewServeMux()
	calls := 0
	mux.HandleFunc("PATCH /rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Nil(t, body["steam_id"])
		assert.Contains(t, body, "steam_id")
		w.Write([]byte(`[{"id":"u1"}]`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	empty := ""
	require.NoError(t, c.UpdateProfile(ctx, "u1", model.ProfilePatch{SteamID: &empty}))
	require.NoError(t, c.UpdateProfile(ctx, "u1", model.ProfilePatch{}))
	assert.Equal(t, 1, calls, "an empty patch is not sent")
}
