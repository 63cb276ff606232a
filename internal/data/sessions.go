// internal/data/sessions.go
package data

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Principal types carried by sessions. The two principal populations are
// independent: an admin session never authorizes client routes and vice versa.
const (
	PrincipalAdmin  = "admin"
	PrincipalClient = "client"
)

// Session is one authenticated browser session, stored server-side and
// referenced from the session cookie by its token.
type Session struct {
	Token         string    `json:"token"`
	PrincipalType string    `json:"principal_type"`
	PrincipalID   int64     `json:"principal_id"`
	Expiry        time.Time `json:"expiry"`
}

// SessionModel wraps a *sql.DB connection and provides methods for creating
// and resolving session tokens.
type SessionModel struct {
	DB *sql.DB
}

// New creates a session for the given principal with a fresh random token,
// valid for ttl from now.
func (m SessionModel) New(principalType string, principalID int64, ttl time.Duration) (*Session, error) {
	session := &Session{
		Token:         uuid.NewString(),
		PrincipalType: principalType,
		PrincipalID:   principalID,
		Expiry:        time.Now().Add(ttl),
	}

	query := `
		INSERT INTO sessions (token, principal_type, principal_id, expiry)
		VALUES ($1, $2, $3, $4)`

	_, err := m.DB.Exec(query, session.Token, session.PrincipalType, session.PrincipalID, session.Expiry)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Get resolves a token to its session. Expired or unknown tokens both return
// ErrRecordNotFound; the caller cannot distinguish them, which is intentional.
func (m SessionModel) Get(token string) (*Session, error) {
	query := `
		SELECT token, principal_type, principal_id, expiry
		FROM sessions
		WHERE token = $1 AND expiry > now()`

	var session Session
	err := m.DB.QueryRow(query, token).Scan(
		&session.Token,
		&session.PrincipalType,
		&session.PrincipalID,
		&session.Expiry,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &session, nil
}

// Delete removes a session, logging the holder out. Deleting an unknown
// token is not an error.
func (m SessionModel) Delete(token string) error {
	_, err := m.DB.Exec(`DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// DeleteAllFor removes every session belonging to one principal, for use
// when an account is deleted.
func (m SessionModel) DeleteAllFor(principalType string, principalID int64) error {
	_, err := m.DB.Exec(`DELETE FROM sessions WHERE principal_type = $1 AND principal_id = $2`, principalType, principalID)
	return err
}
