package core

import "strings"

// CanExecute is the single authorization predicate applied at the
// execution boundary. Admins see and execute every template; everyone
// else needs their role in the template's role set (case-insensitive,
// matching how role lists are entered by hand).
func CanExecute(role Role, t *QueryTemplate) bool {
	if role == RoleAdmin {
		return true
	}
	for _, r := range t.Roles {
		if strings.EqualFold(strings.TrimSpace(r), string(role)) {
			return true
		}
	}
	return false
}

// FilterTemplates returns the templates on one connection that the
// given role may execute.
func FilterTemplates(templates []QueryTemplate, role Role) []QueryTemplate {
	var visible []QueryTemplate
	for i := range templates {
		if CanExecute(role, &templates[i]) {
			visible = append(visible, templates[i])
		}
	}
	return visible
}
