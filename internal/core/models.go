package core

import (
	"strings"
	"time"
)

// Role is the closed set of portal roles.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleAnalyst Role = "Analyst"
	RoleUser    Role = "User"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleAnalyst, RoleUser:
		return true
	}
	return false
}

// Actor is the authenticated identity supplied by the session layer.
// The core trusts it without re-verifying credentials.
type Actor struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// EngineType identifies the kind of external database engine a
// connection points at. Currently only SQL Server is addressable.
type EngineType string

const EngineSQLServer EngineType = "sqlserver"

// ConnectionDescriptor holds the metadata and encrypted credential for
// one external database engine. PasswordEnc is ciphertext at rest;
// plaintext exists only transiently after vault decryption.
type ConnectionDescriptor struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Engine      EngineType `json:"engine"`
	Host        string     `json:"host"`
	Port        int        `json:"port"`
	Database    string     `json:"database"`
	Username    string     `json:"username"`
	PasswordEnc string     `json:"-"`
}

// QueryTemplate is a stored, named SQL statement with a declared
// parameter schema, an authorized-role set and a target connection.
type QueryTemplate struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	SQLText      string   `json:"sql_text"`
	Parameters   string   `json:"parameters"` // "name1:type1,name2:type2", empty = none
	Roles        []string `json:"roles"`
	ConnectionID int64    `json:"connection_id"`
}

// RolesCSV renders the role set the way it is persisted.
func (t *QueryTemplate) RolesCSV() string {
	return strings.Join(t.Roles, ",")
}

// SplitRoles parses a persisted role list back into a slice.
func SplitRoles(csv string) []string {
	var roles []string
	for _, r := range strings.Split(csv, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// LogStatus is the outcome recorded for one execution attempt.
type LogStatus string

const (
	StatusSuccess LogStatus = "success"
	StatusError   LogStatus = "error"
)

// ExecutionLogEntry is one immutable record of an execution attempt.
type ExecutionLogEntry struct {
	ID         int64     `json:"id"`
	Actor      string    `json:"actor"`
	TemplateID int64     `json:"template_id"` // 0 when unknown
	Timestamp  time.Time `json:"timestamp"`
	Status     LogStatus `json:"status"`
	Message    string    `json:"message"`
}

// Table is a materialized query result: ordered columns and rows.
type Table struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// StatusTable builds the single-row confirmation frame returned for
// statements that produce no result set.
func StatusTable(affected int64) *Table {
	return &Table{
		Columns: []string{"status", "rows_affected"},
		Rows: []map[string]any{
			{"status": "ok", "rows_affected": affected},
		},
	}
}
