package catalog

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func elementFixture(id string, pattern string) *DataElement {
	return &DataElement{
		ID:              id,
		Name:            id,
		Sensitivity:     Critical,
		IsEnabled:       true,
		IncludePatterns: []*regexp.Regexp{regexp.MustCompile(pattern)},
	}
}

func sinkFixture(lang Language, id string, pattern string) *DataSink {
	return &DataSink{
		ID:         id,
		Name:       id,
		Language:   lang,
		MatchRules: []MatchRule{{Pattern: regexp.MustCompile(pattern)}},
	}
}

func TestDataElementMatches(t *testing.T) {
	email := elementFixture("email", `(?i)email`)
	assert.True(t, email.Matches("user_email"))
	assert.False(t, email.Matches("username"))

	email.IsEnabled = false
	assert.False(t, email.Matches("user_email"), "a disabled element never matches")
}

func TestDataElementExcludePatternWins(t *testing.T) {
	e := elementFixture("email", `(?i)email`)
	e.ExcludePatterns = []*regexp.Regexp{regexp.MustCompile(`test_email`)}
	assert.True(t, e.Matches("user_email"))
	assert.False(t, e.Matches("test_email"), "exclude patterns override an include match")
}

func TestRuleCatalogOrderingIsStable(t *testing.T) {
	c := New()
	c.AddElement(elementFixture("b", "b"))
	c.AddElement(elementFixture("a", "a"))
	c.AddElement(elementFixture("b", "b-renamed")) // re-adding an existing id must not move it

	ids := make([]string, 0, 2)
	for _, e := range c.OrderedElements() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"b", "a"}, ids)
}

func TestRuleCatalogCloneIsIndependent(t *testing.T) {
	c := New()
	c.AddElement(elementFixture("email", `email`))
	c.AddSink(sinkFixture(Python, "logger", `log\.`))

	clone := c.Clone()
	clone.RemoveSkipped(map[string]struct{}{"email": {}}, map[string]struct{}{"logger": {}})

	assert.Len(t, c.OrderedElements(), 1, "removing from the clone must not mutate the source catalog")
	assert.Len(t, c.OrderedSinks(Python), 1)
	assert.Empty(t, clone.OrderedElements())
	assert.Empty(t, clone.OrderedSinks(Python))
}

func TestRuleCatalogRemoveSkipped(t *testing.T) {
	c := New()
	c.AddElement(elementFixture("email", `email`))
	c.AddElement(elementFixture("ssn", `ssn`))
	c.AddSink(sinkFixture(Python, "logger", `log\.`))
	c.AddSink(sinkFixture(Python, "http", `requests\.`))

	c.RemoveSkipped(map[string]struct{}{"ssn": {}}, map[string]struct{}{"http": {}})

	require.Len(t, c.OrderedElements(), 1)
	assert.Equal(t, "email", c.OrderedElements()[0].ID)
	require.Len(t, c.OrderedSinks(Python), 1)
	assert.Equal(t, "logger", c.OrderedSinks(Python)[0].ID)
}

func TestDeriveSeverityTracksMostSensitiveParticipant(t *testing.T) {
	assert.Equal(t, SeverityCritical, DeriveSeverity([]Sensitivity{Critical}))
	assert.Equal(t, SeverityCritical, DeriveSeverity([]Sensitivity{Critical, Low}))
	assert.Equal(t, SeverityMedium, DeriveSeverity([]Sensitivity{Medium, Low}))
	assert.Equal(t, SeverityLow, DeriveSeverity([]Sensitivity{Low}))
}
