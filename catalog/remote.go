package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ErrAuthentication is returned when the remote catalog API rejects the
// configured API key (HTTP 401).
var ErrAuthentication = fmt.Errorf("remote catalog: authentication failed")

// OrgInfo is the response shape of GET /users/current/.
type OrgInfo struct {
	OrgID   string `json:"orgId"`
	OrgName string `json:"orgName"`
}

// RemoteClient fetches the rule catalog from the HoundDog-style management API
// when an API key is configured, matching "remote catalog"
// external interface.
type RemoteClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewRemoteClient builds a client with a sane default timeout; callers may
// override HTTP for testing.
func NewRemoteClient(baseURL, apiKey string) *RemoteClient {
	return &RemoteClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *RemoteClient) do(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrAuthentication
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote catalog: upstream error calling %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

// CurrentOrg calls GET /users/current/.
func (c *RemoteClient) CurrentOrg() (*OrgInfo, error) {
	var info OrgInfo
	if err := c.do("/users/current/", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// LoadRemote builds a RuleCatalog from GET /data-elements/, /data-sinks/ and
// /sanitizers/, each returning {items: [...], count: N}.
func (c *RemoteClient) LoadRemote() (*RuleCatalog, error) {
	cat := New()

	var elements listResponse[jsonDataElement]
	if err := c.do("/data-elements/", &elements); err != nil {
		return nil, fmt.Errorf("fetching data elements: %w", err)
	}
	for _, je := range elements.Items {
		elem, err := toDataElement(je)
		if err != nil {
			continue
		}
		cat.AddElement(elem)
	}

	var sinks listResponse[jsonDataSink]
	if err := c.do("/data-sinks/", &sinks); err != nil {
		return nil, fmt.Errorf("fetching data sinks: %w", err)
	}
	for _, js := range sinks.Items {
		sink, err := toDataSink(js)
		if err != nil {
			continue
		}
		cat.AddSink(sink)
	}

	var sanitizers listResponse[jsonSanitizer]
	if err := c.do("/sanitizers/", &sanitizers); err != nil {
		return nil, fmt.Errorf("fetching sanitizers: %w", err)
	}
	for _, js := range sanitizers.Items {
		source, ok := ParseSource(js.Source)
		if !ok {
			continue
		}
		if js.Pattern == "" {
			continue
		}
		re, err := compileAll([]string{js.Pattern})
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
			Pattern:     re[0],
		})
	}

	return cat, nil
}
