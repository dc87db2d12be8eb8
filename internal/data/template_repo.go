package data

import (
	"database/sql"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
)

type TemplateRepo struct {
	db *sql.DB
}

func NewTemplateRepo(db *sql.DB) *TemplateRepo {
	return &TemplateRepo{db: db}
}

func (r *TemplateRepo) Create(t *core.QueryTemplate) error {
	res, err := r.db.Exec(`INSERT INTO templates (name, sql_text, parameters, roles, connection_id) VALUES (?, ?, ?, ?, ?)`,
		t.Name, t.SQLText, t.Parameters, t.RolesCSV(), t.ConnectionID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

func (r *TemplateRepo) scanRows(rows *sql.Rows) ([]core.QueryTemplate, error) {
	var templates []core.QueryTemplate
	for rows.Next() {
		var t core.QueryTemplate
		var roles string
		if err := rows.Scan(&t.ID, &t.Name, &t.SQLText, &t.Parameters, &roles, &t.ConnectionID); err != nil {
			return nil, err
		}
		t.Roles = core.SplitRoles(roles)
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *TemplateRepo) GetAll() ([]core.QueryTemplate, error) {
	rows, err := r.db.Query(`SELECT id, name, sql_text, parameters, roles, connection_id FROM templates ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanRows(rows)
}

func (r *TemplateRepo) GetByConnection(connectionID int64) ([]core.QueryTemplate, error) {
	rows, err := r.db.Query(`SELECT id, name, sql_text, parameters, roles, connection_id FROM templates WHERE connection_id = ? ORDER BY name ASC`, connectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanRows(rows)
}

func (r *TemplateRepo) GetByID(id int64) (*core.QueryTemplate, error) {
	var t core.QueryTemplate
	var roles string
	err := r.db.QueryRow(`SELECT id, name, sql_text, parameters, roles, connection_id FROM templates WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.SQLText, &t.Parameters, &roles, &t.ConnectionID)
	if err != nil {
		return nil, err
	}
	t.Roles = core.SplitRoles(roles)
	return &t, nil
}

func (r *TemplateRepo) Update(t *core.QueryTemplate) error {
	_, err := r.db.Exec(`UPDATE templates SET name=?, sql_text=?, parameters=?, roles=?, connection_id=? WHERE id=?`,
		t.Name, t.SQLText, t.Parameters, t.RolesCSV(), t.ConnectionID, t.ID)
	return err
}

func (r *TemplateRepo) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM templates WHERE id=?`, id)
	return err
}

func (r *TemplateRepo) CountByConnection(connectionID int64) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM templates WHERE connection_id = ?`, connectionID).Scan(&n)
	return n, err
}
