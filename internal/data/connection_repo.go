package data

import (
	"database/sql"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
)

type ConnectionRepo struct {
	db *sql.DB
}

func NewConnectionRepo(db *sql.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

func (r *ConnectionRepo) Create(conn *core.ConnectionDescriptor) error {
	res, err := r.db.Exec(`INSERT INTO connections (name, engine, host, port, db_service, username, password_enc) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conn.Name, conn.Engine, conn.Host, conn.Port, conn.Database, conn.Username, conn.PasswordEnc)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	conn.ID = id
	return nil
}

func (r *ConnectionRepo) GetAll() ([]core.ConnectionDescriptor, error) {
	rows, err := r.db.Query(`SELECT id, name, engine, host, port, db_service, username, password_enc FROM connections ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var connections []core.ConnectionDescriptor
	for rows.Next() {
		var c core.ConnectionDescriptor
		if err := rows.Scan(&c.ID, &c.Name, &c.Engine, &c.Host, &c.Port, &c.Database, &c.Username, &c.PasswordEnc); err != nil {
			return nil, err
		}
		connections = append(connections, c)
	}
	return connections, rows.Err()
}

func (r *ConnectionRepo) GetByID(id int64) (*core.ConnectionDescriptor, error) {
	var c core.ConnectionDescriptor
	err := r.db.QueryRow(`SELECT id, name, engine, host, port, db_service, username, password_enc FROM connections WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Engine, &c.Host, &c.Port, &c.Database, &c.Username, &c.PasswordEnc)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConnectionRepo) GetByName(name string) (*core.ConnectionDescriptor, error) {
	var c core.ConnectionDescriptor
	err := r.db.QueryRow(`SELECT id, name, engine, host, port, db_service, username, password_enc FROM connections WHERE name = ?`, name).
		Scan(&c.ID, &c.Name, &c.Engine, &c.Host, &c.Port, &c.Database, &c.Username, &c.PasswordEnc)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConnectionRepo) Update(conn *core.ConnectionDescriptor) error {
	_, err := r.db.Exec(`UPDATE connections SET name=?, engine=?, host=?, port=?, db_service=?, username=?, password_enc=? WHERE id=?`,
		conn.Name, conn.Engine, conn.Host, conn.Port, conn.Database, conn.Username, conn.PasswordEnc, conn.ID)
	return err
}

func (r *ConnectionRepo) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM connections WHERE id=?`, id)
	return err
}
