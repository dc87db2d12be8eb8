package data

import (
	"database/sql"
	"time"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
)

// SessionRecord is one server-side session, keyed by an opaque token.
// The browser cookie carries only the token; everything else lives
// here, so concurrent users never collide and a restart invalidates
// nothing silently.
type SessionRecord struct {
	Token     string
	UserID    int64
	Username  string
	Role      core.Role
	ExpiresAt time.Time
}

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(rec *SessionRecord) error {
	_, err := r.db.Exec(`INSERT INTO sessions (token, username, role, user_id, expires_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Token, rec.Username, rec.Role, rec.UserID, rec.ExpiresAt)
	return err
}

// Get returns the session for a token, or nil when it is unknown or
// expired. Expired rows are removed on the way out.
func (r *SessionRepo) Get(token string) (*SessionRecord, error) {
	var rec SessionRecord
	err := r.db.QueryRow(`SELECT token, username, role, user_id, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&rec.Token, &rec.Username, &rec.Role, &rec.UserID, &rec.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(rec.ExpiresAt) {
		_ = r.Delete(token)
		return nil, nil
	}
	return &rec, nil
}

func (r *SessionRepo) Delete(token string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// DeleteExpired clears out sessions past their expiry.
func (r *SessionRepo) DeleteExpired() error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, time.Now())
	return err
}
