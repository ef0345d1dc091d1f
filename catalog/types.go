package catalog

import "regexp"

// DataElement is a rule describing a class of sensitive information (e.g. "email
// address") via include/exclude regex patterns and a sensitivity level.
type DataElement struct {
	ID              string
	Name            string
	Sensitivity     Sensitivity
	Source          Source
	Tags            []string
	IncludePatterns []*regexp.Regexp
	ExcludePatterns []*regexp.Regexp
	IsEnabled       bool
}

// Matches reports whether s matches this element: at least one include pattern
// hits and no exclude pattern hits.
func (e *DataElement) Matches(s string) bool {
	if !e.IsEnabled {
		return false
	}
	matched := false
	for _, inc := range e.IncludePatterns {
		if inc != nil && inc.MatchString(s) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, exc := range e.ExcludePatterns {
		if exc != nil && exc.MatchString(s) {
			return false
		}
	}
	return true
}

// MatchRule is a single optional compiled pattern contributing to a DataSink's
// match predicate; a nil pattern is a declared-but-empty rule and never matches.
type MatchRule struct {
	Pattern *regexp.Regexp
}

// DataSink is a rule describing a call target whose receipt of sensitive
// arguments is considered dangerous (e.g. a logger, an HTTP client, a SQL
// executor).
type DataSink struct {
	ID          string
	Name        string
	Description string
	Language    Language
	CWE         []string
	OWASP       []string
	MatchRules  []MatchRule
	Remediation string
}

// Matches reports whether s matches any non-empty match rule.
func (s *DataSink) Matches(str string) bool {
	for _, r := range s.MatchRules {
		if r.Pattern != nil && r.Pattern.MatchString(str) {
			return true
		}
	}
	return false
}

// SanitizerRole is the typed role of a Sanitizer; present in the model but not
// consulted by the Python/Typescript visitors.
type SanitizerRole int

const (
	SanitizerRoleEncoder SanitizerRole = iota
	SanitizerRoleValidator
	SanitizerRoleRedactor
)

// Sanitizer is a compiled pattern with provenance and a typed role. No visitor
// specified here queries it; it exists so the catalog's shape matches the
// reference model in full.
type Sanitizer struct {
	Description string
	Source      Source
	Role        SanitizerRole
	Pattern     *regexp.Regexp
}
