package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hounddogai/scan-engine/catalog"
	"github.com/hounddogai/scan-engine/findings"
	"github.com/hounddogai/scan-engine/internal/config"
	"github.com/hounddogai/scan-engine/internal/logger"
	"github.com/hounddogai/scan-engine/repoinfo"
	"github.com/hounddogai/scan-engine/scan"
)

// VulnerabilityType classifies a detected vulnerability by its OWASP Top 10
// category, derived from the matched data sink's own OWASP tags rather than
// an AI-assigned label.
type VulnerabilityType string

// OWASP Top 10 (2021) category labels a data sink's OWASP tags may carry.
const (
	BrokenAccessControl        VulnerabilityType = "Broken Access Control"
	CryptographicFailures      VulnerabilityType = "Cryptographic Failures"
	Injection                  VulnerabilityType = "Injection"
	InsecureDesign             VulnerabilityType = "Insecure Design"
	SecurityMisconfiguration   VulnerabilityType = "Security Misconfiguration"
	VulnerableComponents       VulnerabilityType = "Vulnerable Components"
	IdentificationAuthFailures VulnerabilityType = "Identification and Authentication Failures"
	SoftwareIntegrityFailures  VulnerabilityType = "Software and Data Integrity Failures"
	SecurityLoggingFailures    VulnerabilityType = "Security Logging and Monitoring Failures"
	ServerSideRequestForgery   VulnerabilityType = "Server-Side Request Forgery"
)

// Vulnerability represents a detected data-leak vulnerability: a call site
// where sensitive data elements reached a dangerous sink.
type Vulnerability struct {
	ID          string            // Unique identifier for the vulnerability
	Type        VulnerabilityType // OWASP category, taken from the matched sink's tags
	FilePath    string            // Path to the file containing the vulnerability
	LineStart   int               // Starting line number of the vulnerable code
	LineEnd     int               // Ending line number of the vulnerable code
	Severity    string            // "low", "medium", "critical"
	Description string            // Human-readable description of the vulnerability
	Remediation string            // Recommended fix for the vulnerability
	Code        string            // The vulnerable code snippet
}

// ScanResult represents the results of a vulnerability scan.
type ScanResult struct {
	RepositoryID    string           // ID of the repository that was scanned
	Vulnerabilities []*Vulnerability // List of all vulnerabilities found
	Occurrences     []findings.Occurrence
	ScanTime        int64 // Unix timestamp when the scan was performed
}

// ScanOptions contains options for the vulnerability scanner. VulnerabilityTypes,
// MaxFiles and FileExtensions are accepted for interface compatibility with
// existing callers but are not consulted: the rule-based engine does not filter
// by OWASP category, file count or extension list, only by the catalog's own
// skip lists.
type ScanOptions struct {
	VulnerabilityTypes []VulnerabilityType
	MaxFiles           int
	FileExtensions     []string
	SkipDataElementIDs map[string]struct{}
	SkipDataSinkIDs    map[string]struct{}
}

// ScannerService defines the interface for vulnerability scanning.
type ScannerService interface {
	ScanRepository(ctx context.Context, repoDir string, options *ScanOptions) (*ScanResult, error)
	ScanFile(ctx context.Context, filePath string, options *ScanOptions) ([]*Vulnerability, error)
}

// NewScannerService creates a new scanner service instance backed by the
// deterministic tree-sitter scan engine, sharing one rule catalog across
// every scan it runs.
func NewScannerService(githubService GitHubService, cat *catalog.RuleCatalog) ScannerService {
	return &scannerService{
		githubService: githubService,
		catalog:       cat,
	}
}

type scannerService struct {
	githubService GitHubService
	catalog       *catalog.RuleCatalog
}

// ScanRepository drives scan.Driver over repoDir and converts its findings
// into the ScanResult shape the Temporal activity and API handlers consume.
func (s *scannerService) ScanRepository(ctx context.Context, repoDir string, options *ScanOptions) (*ScanResult, error) {
	log := logger.FromContext(ctx)
	scanID := uuid.New().String()
	log.Info(fmt.Sprintf("starting repository scan %s at %s", scanID, repoDir))

	cat := s.catalog
	if options != nil && (len(options.SkipDataElementIDs) > 0 || len(options.SkipDataSinkIDs) > 0) {
		cat = cat.Clone()
		cat.RemoveSkipped(options.SkipDataElementIDs, options.SkipDataSinkIDs)
	}

	store, err := findings.OpenSQLStore(config.FindingStorePath(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("opening finding store: %w", err)
	}
	defer store.Close()

	info, err := repoinfo.Load(repoDir)
	if err != nil {
		return nil, fmt.Errorf("inspecting repository at %s: %w", repoDir, err)
	}

	hasher := findings.IdentityHasher{RepoName: info.Name, Branch: info.Branch}
	driver := scan.NewDriver(cat, store, hasher)

	results, err := driver.Run(ctx, scan.Config{
		RootDir:  repoDir,
		RepoName: info.Name,
		Branch:   info.Branch,
		Lister:   repoinfo.Walker{},
		Linker:   info.Linker(),
	})
	if err != nil {
		return nil, fmt.Errorf("scanning repository: %w", err)
	}

	vulns := make([]*Vulnerability, 0, len(results.Vulnerabilities))
	for _, v := range results.Vulnerabilities {
		vulns = append(vulns, toServiceVulnerability(v))
	}

	log.Info(fmt.Sprintf("scan %s completed: %d vulnerabilities, %d data element occurrences",
		scanID, len(vulns), len(results.Occurrences)))

	return &ScanResult{
		RepositoryID:    repoDir,
		Vulnerabilities: vulns,
		Occurrences:     results.Occurrences,
		ScanTime:        time.Now().Unix(),
	}, nil
}

// ScanFile scans a single file in isolation by running the driver over a
// one-file listing rooted at the file's own directory.
func (s *scannerService) ScanFile(ctx context.Context, filePath string, options *ScanOptions) ([]*Vulnerability, error) {
	store, err := findings.OpenSQLStore(config.FindingStorePath(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("opening finding store: %w", err)
	}
	defer store.Close()

	hasher := findings.IdentityHasher{RepoName: "single-file", Branch: "HEAD"}
	driver := scan.NewDriver(s.catalog, store, hasher)

	results, err := driver.Run(ctx, scan.Config{
		RootDir: filePath,
		Lister:  singleFileLister{path: filePath},
	})
	if err != nil {
		return nil, fmt.Errorf("scanning file %s: %w", filePath, err)
	}

	vulns := make([]*Vulnerability, 0, len(results.Vulnerabilities))
	for _, v := range results.Vulnerabilities {
		vulns = append(vulns, toServiceVulnerability(v))
	}
	return vulns, nil
}

type singleFileLister struct{ path string }

func (l singleFileLister) ListFiles(string) ([]string, error) {
	return []string{l.path}, nil
}

func toServiceVulnerability(v findings.Vulnerability) *Vulnerability {
	vulnType := "Data Leak"
	if len(v.OWASP) > 0 {
		vulnType = v.OWASP[0]
	}
	return &Vulnerability{
		ID:          v.Hash,
		Type:        VulnerabilityType(vulnType),
		FilePath:    v.RelativeFilePath,
		LineStart:   int(v.LineStart),
		LineEnd:     int(v.LineEnd),
		Severity:    v.Severity.String(),
		Description: v.Description,
		Remediation: v.Remediation,
		Code:        v.CodeSegment,
	}
}
