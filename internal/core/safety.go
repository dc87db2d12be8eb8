package core

import "regexp"

// The safety validator is a defense-in-depth floor against accidental
// destructive templates, not a SQL parser. Multi-statement SQL, stored
// procedure calls or obfuscated destructive statements can evade it;
// templates are admin-authored trusted content to begin with.

var (
	commentPattern = regexp.MustCompile(`(--[^\n]*)|(/\*[\s\S]*?\*/)`)

	forbiddenPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bDROP\s+TABLE\b`),
		regexp.MustCompile(`(?i)\bDROP\s+DATABASE\b`),
		regexp.MustCompile(`(?i)\bALTER\s+DATABASE\b`),
		regexp.MustCompile(`(?i)\bTRUNCATE\s+TABLE\b`),
	}

	deletePattern = regexp.MustCompile(`(?i)\bDELETE\s+FROM\s+\w+`)
	updatePattern = regexp.MustCompile(`(?i)\bUPDATE\s+\w+\s+SET\b`)
	clausePattern = regexp.MustCompile(`(?i)\b(WHERE|LIMIT|ORDER|GROUP|HAVING)\b`)
)

// IsSafeSQL reports whether sqlText is free of the blocked destructive
// statement shapes. Comments are stripped first so they can neither
// mask nor fake forbidden tokens.
func IsSafeSQL(sqlText string) bool {
	cleaned := commentPattern.ReplaceAllString(sqlText, "")

	for _, p := range forbiddenPatterns {
		if p.MatchString(cleaned) {
			return false
		}
	}

	// DELETE FROM t / UPDATE t SET ... with no qualifying clause
	// anywhere later in the statement wipes the whole table.
	if loc := deletePattern.FindStringIndex(cleaned); loc != nil {
		if !clausePattern.MatchString(cleaned[loc[1]:]) {
			return false
		}
	}
	if loc := updatePattern.FindStringIndex(cleaned); loc != nil {
		if !clausePattern.MatchString(cleaned[loc[1]:]) {
			return false
		}
	}

	return true
}
