package findings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hounddogai/scan-engine/catalog"
)

func TestIdentityHasherIsStableAndOrderSensitive(t *testing.T) {
	h := IdentityHasher{RepoName: "acme/widgets", Branch: "main"}

	a := h.Hash("email", "src/app.py", "print(user.email)")
	b := h.Hash("email", "src/app.py", "print(user.email)")
	require.Equal(t, a, b, "hashing the same inputs twice must be deterministic")

	c := h.Hash("email", "src/app.py", "print(user.name)")
	require.NotEqual(t, a, c)

	other := IdentityHasher{RepoName: "acme/widgets", Branch: "develop"}
	require.NotEqual(t, a, other.Hash("email", "src/app.py", "print(user.email)"), "branch participates in the hash")
}

func TestSQLStoreRoundTripsOccurrencesAndVulnerabilities(t *testing.T) {
	store, err := OpenSQLStore(":memory:", nil, nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.PutOccurrence(Occurrence{
		DataElementID:   "email",
		DataElementName: "Email Address",
		Hash:            "HASH1",
		Sensitivity:     catalog.Critical,
		Language:        catalog.Python,
		RelativeFilePath: "app.py",
		Tags:            []string{"pii", "contact"},
	}))
	require.NoError(t, store.PutVulnerability(Vulnerability{
		DataSinkID:       "logger",
		DataElementIDs:   []string{"email", "ssn"},
		DataElementNames: []string{"Email Address", "SSN"},
		Hash:             "HASH2",
		Description:      "sensitive data logged",
		Remediation:      "redact the field before logging",
		Severity:         catalog.SeverityCritical,
		Language:         catalog.Python,
		RelativeFilePath: "app.py",
		CWE:              []string{"CWE-532"},
		OWASP:            []string{"Security Logging and Monitoring Failures"},
	}))

	occs, err := store.AllOccurrences()
	require.NoError(t, err)
	require.Len(t, occs, 1)
	require.Equal(t, []string{"pii", "contact"}, occs[0].Tags)
	require.Equal(t, catalog.Critical, occs[0].Sensitivity)

	vulns, err := store.AllVulnerabilities()
	require.NoError(t, err)
	require.Len(t, vulns, 1)
	require.Equal(t, "redact the field before logging", vulns[0].Remediation)
	require.Equal(t, []string{"email", "ssn"}, vulns[0].DataElementIDs)
	require.Equal(t, catalog.SeverityCritical, vulns[0].Severity)
}

func TestSQLStoreDropsSkippedHashes(t *testing.T) {
	store, err := OpenSQLStore(":memory:", map[string]struct{}{"SKIP-ME": {}}, map[string]struct{}{"SKIP-VULN": {}})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.PutOccurrence(Occurrence{Hash: "SKIP-ME", RelativeFilePath: "a.py"}))
	require.NoError(t, store.PutOccurrence(Occurrence{Hash: "KEEP-ME", RelativeFilePath: "a.py"}))
	require.NoError(t, store.PutVulnerability(Vulnerability{Hash: "SKIP-VULN", RelativeFilePath: "a.py"}))

	occs, err := store.AllOccurrences()
	require.NoError(t, err)
	require.Len(t, occs, 1)
	require.Equal(t, "KEEP-ME", occs[0].Hash)

	vulns, err := store.AllVulnerabilities()
	require.NoError(t, err)
	require.Empty(t, vulns)
}

func TestCountBySeverity(t *testing.T) {
	counts := CountBySeverity([]Vulnerability{
		{Severity: catalog.SeverityCritical},
		{Severity: catalog.SeverityCritical},
		{Severity: catalog.SeverityMedium},
		{Severity: catalog.SeverityLow},
	})
	require.Equal(t, Counts{Critical: 2, Medium: 1, Low: 1}, counts)
}
