package data

import (
	"database/sql"
	"time"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(u *core.User) error {
	res, err := r.db.Exec(`INSERT INTO users (username, password_hash, role, is_active, created_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		u.Username, u.PasswordHash, u.Role, boolToInt(u.IsActive))
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	u.ID = id
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	return nil
}

func (r *UserRepo) GetByUsername(username string) (*core.User, error) {
	return r.scanOne(r.db.QueryRow(`SELECT id, username, password_hash, role, is_active, created_at FROM users WHERE username = ?`, username))
}

func (r *UserRepo) GetByID(id int64) (*core.User, error) {
	return r.scanOne(r.db.QueryRow(`SELECT id, username, password_hash, role, is_active, created_at FROM users WHERE id = ?`, id))
}

func (r *UserRepo) scanOne(row *sql.Row) (*core.User, error) {
	var u core.User
	var isActive int
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &isActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.IsActive = isActive == 1
	return &u, nil
}

func (r *UserRepo) GetAll() ([]core.User, error) {
	rows, err := r.db.Query(`SELECT id, username, password_hash, role, is_active, created_at FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		var isActive int
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &isActive, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.IsActive = isActive == 1
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) Update(u *core.User) error {
	_, err := r.db.Exec(`UPDATE users SET username=?, password_hash=?, role=?, is_active=? WHERE id=?`,
		u.Username, u.PasswordHash, u.Role, boolToInt(u.IsActive), u.ID)
	return err
}

func (r *UserRepo) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM users WHERE id=?`, id)
	return err
}

func (r *UserRepo) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// SQLite stores booleans as integers.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
