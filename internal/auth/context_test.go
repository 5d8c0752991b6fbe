package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/gameshelf/internal/model"
)

type fakeSource struct {
	user    *model.User
	initErr error
	inits   int
}

func (f *fakeSource) Initialize(context.Context) error {
	f.inits++
	return f.initErr
}

func (f *fakeSource) User() *model.User { return f.user }

// echoUser answers with the username found in the request context.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if u, ok := UserFromContext(r.Context()); ok {
		_, _ = w.Write([]byte(u.Username))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
})

func TestRequireSession(t *testing.T) {
	tests := []struct {
		name     string
		src      *fakeSource
		wantCode int
		wantBody string
	}{
		{name: "signed in", src: &fakeSource{user: &testUser}, wantCode: http.StatusOK, wantBody: "ana"},
		{name: "signed out", src: &fakeSource{}, wantCode: http.StatusUnauthorized, wantBody: "unauthorized"},
		{name: "bootstrap aborted", src: &fakeSource{user: &testUser, initErr: context.Canceled}, wantCode: http.StatusUnauthorized, wantBody: "unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RequireSession(tt.src)(echoUser).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/library/stats", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.Equal(t, 1, tt.src.inits)
		})
	}
}

func TestAttachAlwaysContinues(t *testing.T) {
	for _, src := range []*fakeSource{{}, {user: &testUser, initErr: errors.New("boom")}} {
		rec := httptest.NewRecorder()
		Attach(src)(echoUser).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "anonymous", rec.Body.String())
	}

	rec := httptest.NewRecorder()
	Attach(&fakeSource{user: &testUser})(echoUser).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "ana", rec.Body.String())
}
