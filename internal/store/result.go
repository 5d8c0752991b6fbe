// Package store holds the client-side state: the auth session, the signed-in
// user's library and the profile being viewed.
//
// Stores never return Go errors. Every operation returns its own Result so
// overlapping calls cannot overwrite each other's failure message. State is
// guarded by a mutex that is never held across a remote call; remote
// completion always precedes the local mutation it causes.
package store

import (
	"context"

	"github.com/sakif/gameshelf/internal/apperror"
)

// Result is the outcome of one store operation.
type Result struct {
	OK bool `json:"ok"`
	// Message is user-facing text: the failure reason, or a notice on success.
	Message string `json:"message,omitempty"`
	// Redirect is where the operation navigated to, if anywhere.
	Redirect string `json:"redirect,omitempty"`
	// Canceled marks a superseded or aborted operation. Its outcome was discarded.
	Canceled bool `json:"canceled,omitempty"`
	// Err classifies a failure (apperror sentinels, BackendError) for callers
	// that map it, like the HTTP layer. Nil on success.
	Err error `json:"-"`
}

func ok() Result {
	return Result{OK: true}
}

// failed reports err to the user as msg.
func failed(err error, msg string) Result {
	return Result{Message: msg, Err: err}
}

// remote reports a backend failure with the backend's own message.
func remote(err error) Result {
	return failed(err, apperror.Message(err))
}

// invalid reports input rejected before any remote call.
func invalid(msg string) Result {
	return failed(apperror.ValidationFailed("", msg), msg)
}

func canceled() Result {
	return Result{Canceled: true}
}

// Navigator performs guarded programmatic navigation.
type Navigator interface {
	Push(ctx context.Context, path string) error
}
