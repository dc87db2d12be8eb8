package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanExecute(t *testing.T) {
	tmpl := &QueryTemplate{Name: "orders", Roles: []string{"Analyst"}}

	assert.True(t, CanExecute(RoleAnalyst, tmpl))
	assert.False(t, CanExecute(RoleUser, tmpl))
	// Admin bypasses the role filter entirely.
	assert.True(t, CanExecute(RoleAdmin, tmpl))
}

func TestCanExecuteCaseInsensitive(t *testing.T) {
	tmpl := &QueryTemplate{Roles: []string{" analyst ", "user"}}
	assert.True(t, CanExecute(RoleAnalyst, tmpl))
	assert.True(t, CanExecute(RoleUser, tmpl))
}

func TestFilterTemplates(t *testing.T) {
	templates := []QueryTemplate{
		{ID: 1, Roles: []string{"Analyst"}},
		{ID: 2, Roles: []string{"User"}},
		{ID: 3, Roles: []string{"Analyst", "User"}},
	}

	visible := FilterTemplates(templates, RoleUser)
	assert.Len(t, visible, 2)

	visible = FilterTemplates(templates, RoleAdmin)
	assert.Len(t, visible, 3)
}

func TestSplitRolesRoundTrip(t *testing.T) {
	tmpl := &QueryTemplate{Roles: []string{"Analyst", "User"}}
	assert.Equal(t, "Analyst,User", tmpl.RolesCSV())
	assert.Equal(t, []string{"Analyst", "User"}, SplitRoles("Analyst, User ,"))
}
