package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"statuspage-sync/internal/config"
	"statuspage-sync/internal/webhook"
)

type request struct {
	Method string
	Path   string
	Body   string
}

type fakeCachet struct {
	mu       sync.Mutex
	requests []request
	server   *httptest.Server
}

func newFakeCachet(t *testing.T) *fakeCachet {
	t.Helper()
	fake := &fakeCachet{}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fake.mu.Lock()
		fake.requests = append(fake.requests, request{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		fake.mu.Unlock()
		switch {
		case r.URL.Path == "/api/v1/components" && r.Method == http.MethodGet:
			_, _ = io.WriteString(w, `{"data":[{"id":9,"name":"Echo","status":1},{"id":7,"name":"Drift","status":4}]}`)
		case r.URL.Path == "/api/v1/components/groups":
			_, _ = io.WriteString(w, `{"data":[{"id":1,"name":"Cloud","enabled_components":[{"id":7,"name":"Drift","status":1}]}]}`)
		case r.URL.Path == "/api/v1/components/7":
			_, _ = io.WriteString(w, `{"data":{"id":7,"name":"Drift","status":1}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fake.server.Close)
	return fake
}

func (f *fakeCachet) writes() []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []request
	for _, r := range f.requests {
		if r.Method == http.MethodPut {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeCachet) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// execute runs the root command with a default config so the environment
// of the test process does not leak in.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(&RootOptions{loadConfig: func() (config.Config, error) {
		cfg := config.Default()
		cfg.Journal.Driver = "memory"
		return cfg, nil
	}})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"components", "groups", "set-status", "probe", "poll-once"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		require.Equal(t, name, sub.Name())
	}
}

func TestRootCommandPersistentFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"store-url", "token", "probe-url", "format", "verbose"} {
		require.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	require.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	fake := newFakeCachet(t)
	_, err := execute(t, "components", "--store-url", fake.server.URL+"/api/v1", "--format", "yaml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid format")
	require.Zero(t, fake.count())
}

func TestComponentsTextSortedByName(t *testing.T) {
	fake := newFakeCachet(t)
	out, err := execute(t, "components", "--store-url", fake.server.URL+"/api/v1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "Drift")
	require.Contains(t, lines[1], "major_outage")
	require.Contains(t, lines[2], "Echo")
}

func TestGroupsJSON(t *testing.T) {
	fake := newFakeCachet(t)
	out, err := execute(t, "groups", "--store-url", fake.server.URL+"/api/v1", "--format", "json")
	require.NoError(t, err)
	var groups []struct {
		Name              string `json:"name"`
		EnabledComponents []struct {
			ID int `json:"id"`
		} `json:"enabled_components"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	require.Len(t, groups, 1)
	require.Equal(t, "Cloud", groups[0].Name)
	require.Equal(t, 7, groups[0].EnabledComponents[0].ID)
}

func TestSetStatusCapitalizesName(t *testing.T) {
	fake := newFakeCachet(t)
	out, err := execute(t, "set-status", "drift", "major-outage", "--store-url", fake.server.URL+"/api/v1")
	require.NoError(t, err)
	require.Contains(t, out, "Drift (7)")
	writes := fake.writes()
	require.Len(t, writes, 1)
	require.Equal(t, "/api/v1/components/7", writes[0].Path)
	require.JSONEq(t, `{"status":4}`, writes[0].Body)
}

func TestSetStatusExactNameNotFound(t *testing.T) {
	fake := newFakeCachet(t)
	_, err := execute(t, "set-status", "drift", "1", "--exact", "--store-url", fake.server.URL+"/api/v1")
	require.Error(t, err)
	require.True(t, errors.Is(err, webhook.ErrComponentNotFound))
	require.Empty(t, fake.writes())
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	fake := newFakeCachet(t)
	_, err := execute(t, "set-status", "drift", "sideways", "--store-url", fake.server.URL+"/api/v1")
	require.Error(t, err)
	require.Zero(t, fake.count())
}

func TestSetStatusRequiresStoreURL(t *testing.T) {
	_, err := execute(t, "set-status", "drift", "1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "STORE_URL")
}

func TestProbeReportsMappedStatus(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/echo/v1/" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(target.Close)

	out, err := execute(t, "probe", "echo", "--probe-url", target.URL, "--format", "json")
	require.NoError(t, err)
	var res probeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, 503, res.Code)
	require.Equal(t, "major_outage", res.Status)
	require.Equal(t, target.URL+"/echo/v1/", res.URL)

	out, err = execute(t, "probe", "drift", "--probe-url", target.URL, "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, "operational", res.Status)
}

func TestPollOnceWritesEveryGroupedComponent(t *testing.T) {
	fake := newFakeCachet(t)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(target.Close)

	out, err := execute(t, "poll-once", "--store-url", fake.server.URL+"/api/v1", "--probe-url", target.URL, "--format", "json")
	require.NoError(t, err)
	var summary pollSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Equal(t, 1, summary.Groups)
	require.Zero(t, summary.Failed)
	require.Len(t, summary.Components, 1)
	require.Equal(t, "operational", summary.Components[0].Target)

	writes := fake.writes()
	require.Len(t, writes, 2)
	require.JSONEq(t, `{"status":0}`, writes[0].Body)
	require.JSONEq(t, `{"status":1}`, writes[1].Body)
}
