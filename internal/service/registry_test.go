package service

import (
	"path/filepath"
	"testing"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
	"github.com/Amine0019/Data-Extraction-Portal/internal/data"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistries(t *testing.T) (*ConnectionRegistry, *TemplateRegistry, *Vault) {
	t.Helper()

	db, err := data.InitDB(filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	vault, err := NewVault(testKey)
	require.NoError(t, err)

	connRepo := data.NewConnectionRepo(db)
	templateRepo := data.NewTemplateRepo(db)
	return NewConnectionRegistry(connRepo, templateRepo, vault),
		NewTemplateRegistry(templateRepo, connRepo),
		vault
}

func validConnection() ConnectionInput {
	return ConnectionInput{
		Name:     "warehouse",
		Engine:   core.EngineSQLServer,
		Host:     "localhost",
		Port:     1433,
		Database: "master",
		Username: "sa",
		Password: "pw",
	}
}

func TestConnectionCreateAndReveal(t *testing.T) {
	connReg, _, _ := newTestRegistries(t)

	conn, err := connReg.Create(validConnection())
	require.NoError(t, err)
	require.NotZero(t, conn.ID)
	// Ciphertext at rest.
	assert.NotEqual(t, "pw", conn.PasswordEnc)

	got, password, err := connReg.Reveal(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "pw", password)
	assert.Equal(t, 1433, got.Port)
	assert.Equal(t, "warehouse", got.Name)
}

func TestConnectionValidation(t *testing.T) {
	connReg, _, _ := newTestRegistries(t)

	cases := []struct {
		mutate func(*ConnectionInput)
		reason string
	}{
		{func(in *ConnectionInput) { in.Name = "ab" }, "name too short"},
		{func(in *ConnectionInput) { in.Name = "bad/name!" }, "name charset"},
		{func(in *ConnectionInput) { in.Host = "" }, "missing host"},
		{func(in *ConnectionInput) { in.Port = 0 }, "port low"},
		{func(in *ConnectionInput) { in.Port = 70000 }, "port high"},
		{func(in *ConnectionInput) { in.Database = "" }, "missing database"},
		{func(in *ConnectionInput) { in.Engine = "oracle" }, "unknown engine"},
	}

	for _, tc := range cases {
		in := validConnection()
		tc.mutate(&in)
		_, err := connReg.Create(in)
		var vErr *core.ValidationError
		assert.ErrorAs(t, err, &vErr, tc.reason)
	}

	conns, err := connReg.List()
	require.NoError(t, err)
	assert.Empty(t, conns, "failed creates must write nothing")
}

func TestConnectionNameUnique(t *testing.T) {
	connReg, _, _ := newTestRegistries(t)

	_, err := connReg.Create(validConnection())
	require.NoError(t, err)

	_, err = connReg.Create(validConnection())
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestConnectionDeleteBlockedWhileReferenced(t *testing.T) {
	connReg, tmplReg, _ := newTestRegistries(t)

	conn, err := connReg.Create(validConnection())
	require.NoError(t, err)

	_, err = tmplReg.Create(TemplateDraft{
		Name:         "active users",
		SQLText:      "SELECT * FROM users WHERE active = 1",
		Roles:        []string{"Analyst"},
		ConnectionID: conn.ID,
	})
	require.NoError(t, err)

	var vErr *core.ValidationError
	assert.ErrorAs(t, connReg.Delete(conn.ID), &vErr)

	// Still present.
	_, err = connReg.Get(conn.ID)
	assert.NoError(t, err)
}

func TestTemplateCreateValidation(t *testing.T) {
	connReg, tmplReg, _ := newTestRegistries(t)
	conn, err := connReg.Create(validConnection())
	require.NoError(t, err)

	valid := TemplateDraft{
		Name:         "user by id",
		SQLText:      "SELECT * FROM users WHERE id = :id",
		Parameters:   "id:int",
		Roles:        []string{"Analyst"},
		ConnectionID: conn.ID,
	}

	cases := []struct {
		mutate func(*TemplateDraft)
		reason string
	}{
		{func(d *TemplateDraft) { d.Name = "   " }, "empty name"},
		{func(d *TemplateDraft) { d.SQLText = "" }, "empty sql"},
		{func(d *TemplateDraft) { d.SQLText = "DROP TABLE users;" }, "unsafe sql"},
		{func(d *TemplateDraft) { d.SQLText = "DELETE FROM users" }, "unqualified delete"},
		{func(d *TemplateDraft) { d.SQLText = "UPDATE users SET x=1" }, "unqualified update"},
		{func(d *TemplateDraft) { d.Parameters = "id" }, "schema missing type"},
		{func(d *TemplateDraft) { d.Parameters = "id:uuid" }, "schema unknown type"},
		{func(d *TemplateDraft) { d.Roles = nil }, "no roles"},
		{func(d *TemplateDraft) { d.ConnectionID = 999 }, "dangling connection"},
	}

	for _, tc := range cases {
		d := valid
		tc.mutate(&d)
		_, err := tmplReg.Create(d)
		var vErr *core.ValidationError
		assert.ErrorAs(t, err, &vErr, tc.reason)
	}

	templates, err := tmplReg.List()
	require.NoError(t, err)
	assert.Empty(t, templates, "failed creates must write nothing")

	created, err := tmplReg.Create(valid)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
}

func TestTemplateAcceptsQualifiedDML(t *testing.T) {
	connReg, tmplReg, _ := newTestRegistries(t)
	conn, err := connReg.Create(validConnection())
	require.NoError(t, err)

	_, err = tmplReg.Create(TemplateDraft{
		Name:         "delete one user",
		SQLText:      "DELETE FROM users WHERE id = :id",
		Parameters:   "id:int",
		Roles:        []string{"Admin"},
		ConnectionID: conn.ID,
	})
	assert.NoError(t, err)
}

func TestTemplateNamesNotUnique(t *testing.T) {
	connReg, tmplReg, _ := newTestRegistries(t)
	conn, err := connReg.Create(validConnection())
	require.NoError(t, err)

	draft := TemplateDraft{
		Name:         "same name",
		SQLText:      "SELECT 1",
		Roles:        []string{"User"},
		ConnectionID: conn.ID,
	}
	_, err = tmplReg.Create(draft)
	require.NoError(t, err)
	_, err = tmplReg.Create(draft)
	assert.NoError(t, err)
}

func TestTemplateUpdateRevalidates(t *testing.T) {
	connReg, tmplReg, _ := newTestRegistries(t)
	conn, err := connReg.Create(validConnection())
	require.NoError(t, err)

	created, err := tmplReg.Create(TemplateDraft{
		Name:         "ok",
		SQLText:      "SELECT 1",
		Roles:        []string{"User"},
		ConnectionID: conn.ID,
	})
	require.NoError(t, err)

	_, err = tmplReg.Update(created.ID, TemplateDraft{
		Name:         "ok",
		SQLText:      "TRUNCATE TABLE users",
		Roles:        []string{"User"},
		ConnectionID: conn.ID,
	})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)

	// The stored SQL is untouched.
	got, err := tmplReg.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", got.SQLText)
}

func TestListForConnectionFiltersByRole(t *testing.T) {
	connReg, tmplReg, _ := newTestRegistries(t)
	conn, err := connReg.Create(validConnection())
	require.NoError(t, err)

	_, err = tmplReg.Create(TemplateDraft{
		Name: "analyst only", SQLText: "SELECT 1",
		Roles: []string{"Analyst"}, ConnectionID: conn.ID,
	})
	require.NoError(t, err)
	_, err = tmplReg.Create(TemplateDraft{
		Name: "everyone", SQLText: "SELECT 2",
		Roles: []string{"Analyst", "User"}, ConnectionID: conn.ID,
	})
	require.NoError(t, err)

	forUser, err := tmplReg.ListForConnection(conn.ID, core.RoleUser)
	require.NoError(t, err)
	assert.Len(t, forUser, 1)

	forAdmin, err := tmplReg.ListForConnection(conn.ID, core.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, forAdmin, 2)
}
