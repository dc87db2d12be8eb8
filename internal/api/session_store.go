package api

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
	"github.com/Amine0019/Data-Extraction-Portal/internal/data"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// SQLiteSessionStore is a server-side sessions.Store: the cookie
// carries only a signed opaque token, the session record itself lives
// in the sessions table with an expiry.
type SQLiteSessionStore struct {
	repo    *data.SessionRepo
	codec   *securecookie.SecureCookie
	options sessions.Options
	ttl     time.Duration
}

func NewSQLiteSessionStore(repo *data.SessionRepo, hashKey []byte, ttl time.Duration) *SQLiteSessionStore {
	return &SQLiteSessionStore{
		repo:  repo,
		codec: securecookie.New(hashKey, nil),
		options: sessions.Options{
			Path:     "/",
			MaxAge:   int(ttl.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		ttl: ttl,
	}
}

func (s *SQLiteSessionStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

func (s *SQLiteSessionStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := s.options
	session.Options = &opts
	session.IsNew = true

	cookie, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}

	var token string
	if err := s.codec.Decode(name, cookie.Value, &token); err != nil {
		return session, nil
	}

	rec, err := s.repo.Get(token)
	if err != nil || rec == nil {
		return session, err
	}

	session.ID = token
	session.IsNew = false
	session.Values["user_id"] = rec.UserID
	session.Values["username"] = rec.Username
	session.Values["role"] = string(rec.Role)
	return session, nil
}

func (s *SQLiteSessionStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.repo.Delete(session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		token, err := newSessionToken()
		if err != nil {
			return err
		}
		session.ID = token
	} else {
		// Re-login replaces the record wholesale.
		_ = s.repo.Delete(session.ID)
	}

	rec := &data.SessionRecord{
		Token:     session.ID,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if v, ok := session.Values["user_id"].(int64); ok {
		rec.UserID = v
	}
	if v, ok := session.Values["username"].(string); ok {
		rec.Username = v
	}
	if v, ok := session.Values["role"].(string); ok {
		rec.Role = core.Role(v)
	}
	if err := s.repo.Create(rec); err != nil {
		return err
	}

	encoded, err := s.codec.Encode(session.Name(), session.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
