package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("profile", "ghost"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("steam_id", "invalid"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("library_item", "abc123"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "unique violation is a conflict",
			err:       UniqueViolation("library_items_user_id_game_id_key"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "wrapped unique violation is a conflict",
			err:       fmt.Errorf("inserting item: %w", &BackendError{Code: "23505", Message: "dup"}),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "other backend codes are not conflicts",
			err:       &BackendError{Code: "23503", Message: "fk"},
			target:    ErrConflict,
			wantMatch: false,
		},
		{
			name:      "every backend error matches ErrBackend",
			err:       &BackendError{Status: 500, Message: "boom"},
			target:    ErrBackend,
			wantMatch: true,
		},
		{
			name:      "401 backend error is unauthorized",
			err:       &BackendError{Status: 401, Message: "JWT expired"},
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("profile", "ghost"),
			target:    ErrValidation,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("profile", "ghost"),
			wantMessage: "profile not found with id ghost",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("email", "email is required"),
			wantMessage: "email is required",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("library_item", "abc123"),
			wantMessage: "library_item conflict with id abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "backend message without code", err: fmt.Errorf("wrap: %w", &BackendError{Code: "400", Message: "Invalid login credentials"}), want: "Invalid login credentials"},
		{name: "app error", err: ValidationFailed("email", "email is required"), want: "email is required"},
		{name: "plain error", err: errors.New("dial tcp: refused"), want: "dial tcp: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("profile", "ghost")
	if err.Unwrap() != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
