package auth

// WHY BCRYPT?
// A password hash has to be slow. SHA-256 runs billions of times per second on
// a GPU, so a leaked table of fast hashes falls to a dictionary in minutes.
// bcrypt's cost parameter makes every guess expensive, and each doubling of
// work is one increment of cost.
//
// What a stored hash looks like:
//
//	$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW
//	 │   │  └ 22 chars of salt, then 31 chars of hash
//	 │   └ cost (2^12 rounds)
//	 └ algorithm version
//
// The salt is random per hash and lives inside the string, so two users with
// the same password get different hashes and the users table needs no salt
// column. Verify reads the cost and salt back out of the stored hash, which
// is why raising defaultCost later does not break existing accounts.
//
// The 72-byte limit is bcrypt's: anything past it is silently ignored, so a
// longer password would verify with just its first 72 bytes. Hash rejects it
// instead.

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor, roughly 250ms per hash on current hardware.
const defaultCost = 12

// MinPasswordLength matches GoTrue's default minimum.
const MinPasswordLength = 6

// ErrInvalidCredentials is returned by Verify for a wrong password. It carries
// the same text GoTrue uses so both backends show users the same message.
var ErrInvalidCredentials = errors.New("Invalid login credentials")

// PasswordService provides bcrypt hashing and verification.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

func newPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom (low) cost.
// Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return newPasswordServiceWithCost(cost)
}

// Hash hashes the given plaintext password with bcrypt.
//
// Passwords shorter than MinPasswordLength or longer than 72 bytes (bcrypt
// silently truncates past that) are rejected.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) < MinPasswordLength {
		return "", fmt.Errorf("Password should be at least %d characters.", MinPasswordLength)
	}
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
// Returns ErrInvalidCredentials on mismatch.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
