package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/data-elements/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(listResponse[jsonDataElement]{
			Items: []jsonDataElement{{ID: "email", Name: "Email", Sensitivity: "critical", Source: "hounddog"}},
			Count: 1,
		})
	})
	mux.HandleFunc("/data-sinks/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(listResponse[jsonDataSink]{
			Items: []jsonDataSink{{ID: "logger", Name: "Logger", Language: "python", MatchRules: []jsonMatchRule{{Regex: `^log\.`}}}},
			Count: 1,
		})
	})
	mux.HandleFunc("/sanitizers/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(listResponse[jsonSanitizer]{
			Items: []jsonSanitizer{{Pattern: `redact\(`, Source: "hounddog", Type: "redactor"}},
			Count: 1,
		})
	})
	mux.HandleFunc("/users/current/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(OrgInfo{OrgID: "org-1", OrgName: "Acme"})
	})
	return httptest.NewServer(mux)
}

func TestLoadRemoteBuildsCatalogFromAPI(t *testing.T) {
	srv := remoteFixtureServer(t)
	defer srv.Close()

	client := NewRemoteClient(srv.URL, "test-key")
	cat, err := client.LoadRemote()
	require.NoError(t, err)

	require.Len(t, cat.OrderedElements(), 1)
	assert.Equal(t, "email", cat.OrderedElements()[0].ID)

	sinks := cat.OrderedSinks(Python)
	require.Len(t, sinks, 1)
	assert.Equal(t, "logger", sinks[0].ID)

	require.Len(t, cat.Sanitizers, 1)
	assert.Equal(t, SanitizerRoleRedactor, cat.Sanitizers[0].Role)
}

func TestCurrentOrgReturnsAuthenticationErrorOnUnauthorized(t *testing.T) {
	srv := remoteFixtureServer(t)
	defer srv.Close()

	client := NewRemoteClient(srv.URL, "wrong-key")
	_, err := client.CurrentOrg()
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestCurrentOrgSucceedsWithValidKey(t *testing.T) {
	srv := remoteFixtureServer(t)
	defer srv.Close()

	client := NewRemoteClient(srv.URL, "test-key")
	info, err := client.CurrentOrg()
	require.NoError(t, err)
	assert.Equal(t, "org-1", info.OrgID)
	assert.Equal(t, "Acme", info.OrgName)
}
