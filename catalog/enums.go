// Package catalog holds the read-only rule tables (data elements, data sinks,
// sanitizers) that the scan engine matches source text against.
package catalog

// Sensitivity ranks how sensitive a data element is. Declaration order matters:
// the zero value is the most sensitive, and Severity/Sensitivity comparisons use
// this ordinal ordering directly (Critical < Medium < Low).
type Sensitivity int

const (
	Critical Sensitivity = iota
	Medium
	Low
)

func (s Sensitivity) String() string {
	switch s {
	case Critical:
		return "critical"
	case Medium:
		return "medium"
	case Low:
		return "low"
	default:
		return "unknown"
	}
}

// ParseSensitivity parses the lowercase wire representation used by the rule
// catalog JSON files and the remote catalog API.
func ParseSensitivity(s string) (Sensitivity, bool) {
	switch s {
	case "critical":
		return Critical, true
	case "medium":
		return Medium, true
	case "low":
		return Low, true
	default:
		return 0, false
	}
}

// Severity mirrors Sensitivity's ordering; a Vulnerability's severity is derived
// from the sensitivity of its participating elements (see DeriveSeverity).
type Severity int

const (
	SeverityCritical Severity = iota
	SeverityMedium
	SeverityLow
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	default:
		return "unknown"
	}
}

// DeriveSeverity returns the severity corresponding to the minimum sensitivity
// ordinal across the given elements, under the Critical < Medium < Low
// ordering, so a vulnerability's severity tracks its most sensitive
// participant. Mirrors the reference implementation's data_elements.iter().min().
func DeriveSeverity(sensitivities []Sensitivity) Severity {
	min := Low
	for i, s := range sensitivities {
		if i == 0 || s < min {
			min = s
		}
	}
	return Severity(min)
}

// Source identifies who authored a rule: an AI suggestion, a user-authored
// override, or a HoundDog-maintained default.
type Source int

const (
	SourceAI Source = iota
	SourceUser
	SourceHoundDog
)

func (s Source) String() string {
	switch s {
	case SourceAI:
		return "ai"
	case SourceUser:
		return "user"
	case SourceHoundDog:
		return "hounddog"
	default:
		return "unknown"
	}
}

func ParseSource(s string) (Source, bool) {
	switch s {
	case "ai":
		return SourceAI, true
	case "user":
		return SourceUser, true
	case "hounddog":
		return SourceHoundDog, true
	default:
		return 0, false
	}
}

// Language is the set of source-file languages the rule catalog and the
// scanning frontends are aware of. Only Python and Typescript have a wired
// visitor; the rest are recognized so that per-language sink buckets and file
// statistics can still be populated, but no TreeWalker runs over them.
type Language int

const (
	CSharp Language = iota
	GraphQL
	Java
	Kotlin
	Python
	Ruby
	SQL
	Typescript
)

func (l Language) String() string {
	switch l {
	case CSharp:
		return "csharp"
	case GraphQL:
		return "graphql"
	case Java:
		return "java"
	case Kotlin:
		return "kotlin"
	case Python:
		return "python"
	case Ruby:
		return "ruby"
	case SQL:
		return "sql"
	case Typescript:
		return "typescript"
	default:
		return "unknown"
	}
}

func ParseLanguage(s string) (Language, bool) {
	switch s {
	case "csharp":
		return CSharp, true
	case "graphql":
		return GraphQL, true
	case "java":
		return Java, true
	case "kotlin":
		return Kotlin, true
	case "python":
		return Python, true
	case "ruby":
		return Ruby, true
	case "sql":
		return SQL, true
	case "typescript":
		return Typescript, true
	default:
		return 0, false
	}
}

// AllLanguages enumerates every recognized language, used to seed per-language
// file-stat tables with a zero entry for languages that had no matching files.
func AllLanguages() []Language {
	return []Language{CSharp, GraphQL, Java, Kotlin, Python, Ruby, SQL, Typescript}
}

// GitProvider identifies the hosting provider of a repository's remote, used to
// pick the URL format for a finding's source link.
type GitProvider int

const (
	GitHub GitProvider = iota
	GitLab
	Bitbucket
)

func (p GitProvider) String() string {
	switch p {
	case GitHub:
		return "github"
	case GitLab:
		return "gitlab"
	case Bitbucket:
		return "bitbucket"
	default:
		return "unknown"
	}
}
