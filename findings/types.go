// Package findings defines the finding types the scan engine produces
// (occurrences and vulnerabilities), their stable identity hash, and the
// append-and-read store that accumulates them across a scan.
package findings

import "github.com/hounddogai/scan-engine/catalog"

// Occurrence is the event "token T in file F at line L matches data element E".
type Occurrence struct {
	DataElementID   string
	DataElementName string
	Hash            string
	Sensitivity     catalog.Sensitivity
	Language        catalog.Language
	CodeSegment     string
	AbsoluteFilePath string
	RelativeFilePath string
	LineStart   uint
	LineEnd     uint
	ColumnStart uint
	ColumnEnd   uint
	URLLink     string
	Source      catalog.Source
	Tags        []string
}

// Vulnerability is the event "call site C in file F matched sink S with
// participating elements E1..En".
type Vulnerability struct {
	DataSinkID      string
	DataElementIDs  []string
	DataElementNames []string
	Hash            string
	Description     string
	Remediation     string
	Severity        catalog.Severity
	Language        catalog.Language
	CodeSegment     string
	AbsoluteFilePath string
	RelativeFilePath string
	LineStart   uint
	LineEnd     uint
	ColumnStart uint
	ColumnEnd   uint
	URLLink     string
	CWE         []string
	OWASP       []string
}

// Counts tallies vulnerabilities per severity, mirroring the VulnerabilityCounts
// view original_source/src/structs.rs exposes on ScanResults.
type Counts struct {
	Critical int
	Medium   int
	Low      int
}

// CountBySeverity builds a Counts from a vulnerability slice.
func CountBySeverity(vulns []Vulnerability) Counts {
	var c Counts
	for _, v := range vulns {
		switch v.Severity {
		case catalog.SeverityCritical:
			c.Critical++
		case catalog.SeverityMedium:
			c.Medium++
		case catalog.SeverityLow:
			c.Low++
		}
	}
	return c
}
