package findings

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/hounddogai/scan-engine/catalog"
)

// Store is the append-and-read contract every backing store implements:
// put_occurrence, put_vulnerability, all_occurrences, all_vulnerabilities.
// Implementations must survive concurrent per-file writers and must drop
// findings whose hash is in the configured skip sets before they become
// observable.
type Store interface {
	PutOccurrence(o Occurrence) error
	PutVulnerability(v Vulnerability) error
	AllOccurrences() ([]Occurrence, error)
	AllVulnerabilities() ([]Vulnerability, error)
	Close() error
}

// SQLStore is a transient relational file with two tables, dropped and
// recreated at scan start, matching original_source/src/scanner/database.rs.
// It follows the module's own database/sql idiom (db.Queries wraps *sql.DB;
// this wraps the same handle) rather than inventing a new persistence style,
// swapping in a pure-Go SQLite driver as the closest ecosystem analog of
// rusqlite.
type SQLStore struct {
	db *sql.DB
	mu sync.Mutex

	skipOccurrenceHashes   map[string]struct{}
	skipVulnerabilityHashes map[string]struct{}
}

// OpenSQLStore opens (creating if necessary) a SQLite file at path and
// (re)creates the two finding tables.
func OpenSQLStore(path string, skipOccurrenceHashes, skipVulnerabilityHashes map[string]struct{}) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening finding store %s: %w", path, err)
	}
	// The store serializes its own writers with a mutex; a single
	// open connection avoids SQLite's cross-connection write contention.
	db.SetMaxOpenConns(1)

	s := &SQLStore{
		db:                      db,
		skipOccurrenceHashes:    skipOccurrenceHashes,
		skipVulnerabilityHashes: skipVulnerabilityHashes,
	}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) init() error {
	const schema = `
DROP TABLE IF EXISTS data_element_occurrences;
CREATE TABLE data_element_occurrences(
	data_element_id TEXT,
	data_element_name TEXT,
	hash TEXT,
	sensitivity VARCHAR(10),
	language VARCHAR(10),
	code_segment TEXT,
	absolute_file_path TEXT,
	relative_file_path TEXT,
	line_start INT,
	line_end INT,
	column_start INT,
	column_end INT,
	url_link TEXT,
	source TEXT,
	tags TEXT
);

DROP TABLE IF EXISTS vulnerabilities;
CREATE TABLE vulnerabilities(
	data_sink_id TEXT,
	data_element_ids TEXT,
	data_element_names TEXT,
	hash TEXT,
	description TEXT,
	remediation TEXT,
	severity VARCHAR(10),
	language VARCHAR(10),
	code_segment TEXT,
	absolute_file_path TEXT,
	relative_file_path TEXT,
	line_start INT,
	line_end INT,
	column_start INT,
	column_end INT,
	url_link TEXT,
	cwe TEXT,
	owasp TEXT
);
`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("initializing finding store schema: %w", err)
	}
	return nil
}

// PutOccurrence inserts o unless its hash is in the skip set.
func (s *SQLStore) PutOccurrence(o Occurrence) error {
	if _, skip := s.skipOccurrenceHashes[o.Hash]; skip {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO data_element_occurrences (
			data_element_id, data_element_name, hash, sensitivity, language,
			code_segment, absolute_file_path, relative_file_path,
			line_start, line_end, column_start, column_end, url_link, source, tags
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.DataElementID, o.DataElementName, o.Hash, o.Sensitivity.String(), o.Language.String(),
		o.CodeSegment, o.AbsoluteFilePath, o.RelativeFilePath,
		o.LineStart, o.LineEnd, o.ColumnStart, o.ColumnEnd, o.URLLink, o.Source.String(), strings.Join(o.Tags, ","),
	)
	if err != nil {
		return fmt.Errorf("storing occurrence: %w", err)
	}
	return nil
}

// PutVulnerability inserts v unless its hash is in the skip set.
func (s *SQLStore) PutVulnerability(v Vulnerability) error {
	if _, skip := s.skipVulnerabilityHashes[v.Hash]; skip {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO vulnerabilities (
			data_sink_id, data_element_ids, data_element_names, hash, description, remediation,
			severity, language, code_segment, absolute_file_path, relative_file_path,
			line_start, line_end, column_start, column_end, url_link, cwe, owasp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.DataSinkID, strings.Join(v.DataElementIDs, ","), strings.Join(v.DataElementNames, ","), v.Hash, v.Description, v.Remediation,
		v.Severity.String(), v.Language.String(), v.CodeSegment, v.AbsoluteFilePath, v.RelativeFilePath,
		v.LineStart, v.LineEnd, v.ColumnStart, v.ColumnEnd, v.URLLink, strings.Join(v.CWE, ","), strings.Join(v.OWASP, ","),
	)
	if err != nil {
		return fmt.Errorf("storing vulnerability: %w", err)
	}
	return nil
}

// AllOccurrences reads back every stored occurrence.
func (s *SQLStore) AllOccurrences() ([]Occurrence, error) {
	rows, err := s.db.Query(`SELECT
		data_element_id, data_element_name, hash, sensitivity, language,
		code_segment, absolute_file_path, relative_file_path,
		line_start, line_end, column_start, column_end, url_link, source, tags
		FROM data_element_occurrences`)
	if err != nil {
		return nil, fmt.Errorf("reading occurrences: %w", err)
	}
	defer rows.Close()

	var out []Occurrence
	for rows.Next() {
		var o Occurrence
		var sensitivity, language, source, tags string
		if err := rows.Scan(
			&o.DataElementID, &o.DataElementName, &o.Hash, &sensitivity, &language,
			&o.CodeSegment, &o.AbsoluteFilePath, &o.RelativeFilePath,
			&o.LineStart, &o.LineEnd, &o.ColumnStart, &o.ColumnEnd, &o.URLLink, &source, &tags,
		); err != nil {
			return nil, fmt.Errorf("scanning occurrence row: %w", err)
		}
		o.Sensitivity, _ = catalog.ParseSensitivity(sensitivity)
		o.Language, _ = catalog.ParseLanguage(language)
		o.Source, _ = catalog.ParseSource(source)
		o.Tags = splitCSV(tags)
		out = append(out, o)
	}
	return out, rows.Err()
}

// AllVulnerabilities reads back every stored vulnerability.
func (s *SQLStore) AllVulnerabilities() ([]Vulnerability, error) {
	rows, err := s.db.Query(`SELECT
		data_sink_id, data_element_ids, data_element_names, hash, description, remediation,
		severity, language, code_segment, absolute_file_path, relative_file_path,
		line_start, line_end, column_start, column_end, url_link, cwe, owasp
		FROM vulnerabilities`)
	if err != nil {
		return nil, fmt.Errorf("reading vulnerabilities: %w", err)
	}
	defer rows.Close()

	var out []Vulnerability
	for rows.Next() {
		var v Vulnerability
		var ids, names, severity, language, cwe, owasp string
		if err := rows.Scan(
			&v.DataSinkID, &ids, &names, &v.Hash, &v.Description, &v.Remediation,
			&severity, &language, &v.CodeSegment, &v.AbsoluteFilePath, &v.RelativeFilePath,
			&v.LineStart, &v.LineEnd, &v.ColumnStart, &v.ColumnEnd, &v.URLLink, &cwe, &owasp,
		); err != nil {
			return nil, fmt.Errorf("scanning vulnerability row: %w", err)
		}
		v.DataElementIDs = splitCSV(ids)
		v.DataElementNames = splitCSV(names)
		sev, _ := parseSeverity(severity)
		v.Severity = sev
		v.Language, _ = catalog.ParseLanguage(language)
		v.CWE = splitCSV(cwe)
		v.OWASP = splitCSV(owasp)
		out = append(out, v)
	}
	return out, rows.Err()
}

// Close releases the underlying connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func parseSeverity(s string) (catalog.Severity, bool) {
	switch s {
	case "critical":
		return catalog.SeverityCritical, true
	case "medium":
		return catalog.SeverityMedium, true
	case "low":
		return catalog.SeverityLow, true
	default:
		return 0, false
	}
}
