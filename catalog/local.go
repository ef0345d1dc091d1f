package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/hounddogai/scan-engine/internal/logger"
)

type jsonDataElement struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	IncludePatterns []string `json:"includePatterns"`
	ExcludePatterns []string `json:"excludePatterns"`
	IsEnabled       *bool    `json:"isEnabled"`
	Sensitivity     string   `json:"sensitivity"`
	Source          string   `json:"source"`
	Tags            []string `json:"tags"`
}

type jsonMatchRule struct {
	Regex string `json:"regex"`
}

type jsonDataSink struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Language    string          `json:"language"`
	Name        string          `json:"name"`
	CWE         []string        `json:"cwe"`
	OWASP       []string        `json:"owasp"`
	MatchRules  []jsonMatchRule `json:"matchRules"`
	Remediation string          `json:"remediation"`
}

type jsonSanitizer struct {
	Pattern     string `json:"pattern"`
	Source      string `json:"source"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// LoadLocal populates a RuleCatalog from a directory laid out as:
//
//	dir/data-elements/*.json
//	dir/data-sinks/*.json           (optional sibling dir/remediations/{id}.md)
//	dir/sanitizers/sanitizers.json
//
// matching "rule catalog on disk" contract.
func LoadLocal(dir string) (*RuleCatalog, error) {
	cat := New()

	if err := loadElements(cat, filepath.Join(dir, "data-elements")); err != nil {
		return nil, fmt.Errorf("loading data elements: %w", err)
	}
	if err := loadSinks(cat, filepath.Join(dir, "data-sinks"), filepath.Join(dir, "remediations")); err != nil {
		return nil, fmt.Errorf("loading data sinks: %w", err)
	}
	if err := loadSanitizers(cat, filepath.Join(dir, "sanitizers", "sanitizers.json")); err != nil {
		return nil, fmt.Errorf("loading sanitizers: %w", err)
	}
	return cat, nil
}

func loadElements(cat *RuleCatalog, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		var je jsonDataElement
		if err := json.Unmarshal(raw, &je); err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
		elem, err := toDataElement(je)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
		cat.AddElement(elem)
	}
	return nil
}

func toDataElement(je jsonDataElement) (*DataElement, error) {
	inc, err := compileAll(je.IncludePatterns)
	if err != nil {
		return nil, err
	}
	exc, err := compileAll(je.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	sensitivity, ok := ParseSensitivity(je.Sensitivity)
	if !ok {
		return nil, fmt.Errorf("unknown sensitivity %q", je.Sensitivity)
	}
	source, ok := ParseSource(je.Source)
	if !ok {
		return nil, fmt.Errorf("unknown source %q", je.Source)
	}
	enabled := true
	if je.IsEnabled != nil {
		enabled = *je.IsEnabled
	}
	return &DataElement{
		ID:              je.ID,
		Name:            je.Name,
		Sensitivity:     sensitivity,
		Source:          source,
		Tags:            je.Tags,
		IncludePatterns: inc,
		ExcludePatterns: exc,
		IsEnabled:       enabled,
	}, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func loadSinks(cat *RuleCatalog, dir, remediationsDir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		var js jsonDataSink
		if err := json.Unmarshal(raw, &js); err != nil {
			// Matches the reference loader: a malformed sink file is logged
			// and skipped rather than aborting the whole catalog load.
			logger.Warn(fmt.Sprintf("skipping malformed sink file %s: %v", entry.Name(), err))
			continue
		}
		sink, err := toDataSink(js)
		if err != nil {
			continue
		}
		remediationPath := filepath.Join(remediationsDir, sink.ID+".md")
		if md, err := os.ReadFile(remediationPath); err == nil {
			sink.Remediation = string(md)
		}
		cat.AddSink(sink)
	}
	return nil
}

func toDataSink(js jsonDataSink) (*DataSink, error) {
	lang, ok := ParseLanguage(js.Language)
	if !ok {
		return nil, fmt.Errorf("unknown language %q", js.Language)
	}
	rules := make([]MatchRule, 0, len(js.MatchRules))
	for _, r := range js.MatchRules {
		if r.Regex == "" {
			rules = append(rules, MatchRule{})
			continue
		}
		re, err := regexp.Compile(r.Regex)
		if err != nil {
			return nil, fmt.Errorf("invalid match rule %q: %w", r.Regex, err)
		}
		rules = append(rules, MatchRule{Pattern: re})
	}
	return &DataSink{
		ID:          js.ID,
		Name:        js.Name,
		Description: js.Description,
		Language:    lang,
		CWE:         js.CWE,
		OWASP:       js.OWASP,
		MatchRules:  rules,
		Remediation: js.Remediation,
	}, nil
}

func loadSanitizers(cat *RuleCatalog, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var items []jsonSanitizer
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	for _, js := range items {
		source, ok := ParseSource(js.Source)
		if !ok {
			continue
		}
		re, err := regexp.Compile(js.Pattern)
		if err != nil {
			continue
		}
		role := SanitizerRoleEncoder
		switch js.Type {
		case "validator":
			role = SanitizerRoleValidator
		case "redactor":
			role = SanitizerRoleRedactor
		}
		cat.AddSanitizer(&Sanitizer{
			Description: js.Description,
			Source:      source,
			Role:        role,
			Pattern:     re,
		})
	}
	return nil
}
