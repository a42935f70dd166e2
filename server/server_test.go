package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brettbedarf/sandboxfs"
	"github.com/brettbedarf/sandboxfs/config"
	"github.com/brettbedarf/sandboxfs/filesystem"
	"github.com/brettbedarf/sandboxfs/internal/util"
	"github.com/brettbedarf/sandboxfs/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestServer(t *testing.T, override *config.ConfigOverride) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(config.NewConfig(override)).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createSession(t *testing.T, ts *httptest.Server) sessionView {
	t.Helper()
	resp := doRequest(t, http.MethodPost, ts.URL+"/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	view := decode[sessionView](t, resp)
	require.NotEmpty(t, view.ID)
	assert.Equal(t, "/sessions/"+view.ID, resp.Header.Get("Location"))
	return view
}

func submit(t *testing.T, ts *httptest.Server, id, line string) commandResponse {
	t.Helper()
	body, err := json.Marshal(commandRequest{Command: line})
	require.NoError(t, err)
	resp := doRequest(t, http.MethodPost, ts.URL+"/sessions/"+id+"/commands", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[commandResponse](t, resp)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	resp := doRequest(t, http.MethodGet, ts.URL+"/healthz", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestCreateAndGetSession(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	created := createSession(t, ts)
	assert.Equal(t, "/", created.Cwd)
	assert.Empty(t, created.History)

	resp := doRequest(t, http.MethodGet, ts.URL+"/sessions/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[sessionView](t, resp)
	assert.Equal(t, created.ID, got.ID)
}

func TestSubmitCommands(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	id := createSession(t, ts).ID

	tests := []struct {
		line     string
		recorded bool
		cwd      string
		output   sandboxfs.Result
	}{
		{"ls", true, "/", sandboxfs.Listing{Items: []sandboxfs.Entry{
			{Name: "notes.txt", Type: sandboxfs.FileNodeType},
			{Name: "projects", Type: sandboxfs.DirNodeType},
			{Name: "welcome.sh", Type: sandboxfs.FileNodeType},
		}}},
		{"cd projects", true, "/projects", nil},
		{"cat README.md", true, "/projects", sandboxfs.FileContent{Content: filesystem.ReadmeContent}},
		{"cat missing", true, "/projects", sandboxfs.Text("cat: missing: No such file or directory")},
		{"foobar", true, "/projects", sandboxfs.Text("command not found: foobar")},
		{"   ", false, "/projects", nil},
	}

	for _, tt := range tests {
		resp := submit(t, ts, id, tt.line)
		assert.Equal(t, tt.recorded, resp.Recorded, tt.line)
		assert.Equal(t, tt.cwd, resp.Cwd, tt.line)
		if tt.recorded {
			assert.Equal(t, tt.output, resp.Entry.Output, tt.line)
		}
	}

	resp := doRequest(t, http.MethodGet, ts.URL+"/sessions/"+id, "")
	view := decode[sessionView](t, resp)
	assert.Len(t, view.History, 5)
	assert.Equal(t, "/", view.History[0].Path)
	assert.Equal(t, "/projects", view.History[2].Path)
}

func TestSessionsAreIsolated(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	a := createSession(t, ts).ID
	b := createSession(t, ts).ID

	submit(t, ts, a, "echo mine > secret.txt")
	resp := submit(t, ts, b, "cat secret.txt")

	assert.Equal(t, sandboxfs.Text("cat: secret.txt: No such file or directory"), resp.Entry.Output)
}

func TestSubmit_BadRequests(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	id := createSession(t, ts).ID

	resp := doRequest(t, http.MethodPost, ts.URL+"/sessions/"+id+"/commands", "not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, ts.URL+"/sessions/nope/commands", `{"command":"ls"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session not found", decode[errorResponse](t, resp).Error)
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	id := createSession(t, ts).ID

	resp := doRequest(t, http.MethodDelete, ts.URL+"/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, http.MethodDelete, ts.URL+"/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMaxSessions(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &config.ConfigOverride{MaxSessions: util.Pointer(1)})
	createSession(t, ts)

	resp := doRequest(t, http.MethodPost, ts.URL+"/sessions", "")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, session.ErrTooManySessions.Error(), decode[errorResponse](t, resp).Error)
}

func TestRecall(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	id := createSession(t, ts).ID
	submit(t, ts, id, "ls")
	submit(t, ts, id, "pwd")

	recall := func(dir string) recallResponse {
		resp := doRequest(t, http.MethodPost, ts.URL+"/sessions/"+id+"/recall?dir="+dir, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return decode[recallResponse](t, resp)
	}

	assert.Equal(t, recallResponse{Command: "pwd", OK: true}, recall("prev"))
	assert.Equal(t, recallResponse{Command: "ls", OK: true}, recall("prev"))
	assert.Equal(t, recallResponse{Command: "pwd", OK: true}, recall("next"))
	assert.Equal(t, recallResponse{}, recall("next"))

	resp := doRequest(t, http.MethodPost, ts.URL+"/sessions/"+id+"/recall?dir=sideways", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	id := createSession(t, ts).ID
	submit(t, ts, id, "echo hi > hello.txt")

	resp := doRequest(t, http.MethodGet, ts.URL+"/sessions/"+id+"/snapshot", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[*filesystem.SnapshotNode](t, resp)

	node, ok := snap.Lookup("/hello.txt")
	require.True(t, ok)
	assert.Equal(t, "hi", node.Content)
	_, ok = snap.Lookup("/projects/README.md")
	assert.True(t, ok)
}

func TestTranscript(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	id := createSession(t, ts).ID
	submit(t, ts, id, "pwd")
	submit(t, ts, id, "cd projects")

	t.Run("json by default", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, ts.URL+"/sessions/"+id+"/transcript", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		tr := decode[session.Transcript](t, resp)
		assert.Equal(t, id, tr.SessionID)
		assert.Equal(t, "/projects", tr.Cwd)
		require.Len(t, tr.Entries, 2)
		assert.Equal(t, "/", tr.Entries[0].Text)
	})

	t.Run("yaml", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, ts.URL+"/sessions/"+id+"/transcript?format=yaml", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
		var tr session.Transcript
		require.NoError(t, yaml.NewDecoder(resp.Body).Decode(&tr))
		assert.Len(t, tr.Entries, 2)
	})

	t.Run("bad format", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, ts.URL+"/sessions/"+id+"/transcript?format=xml", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	id := createSession(t, ts).ID
	submit(t, ts, id, "ls")
	submit(t, ts, id, "cat nope")
	submit(t, ts, id, "echo a > a.txt")

	resp := doRequest(t, http.MethodGet, ts.URL+config.DefaultMetricsPath, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)

	assert.Contains(t, body, `sandbox_commands_total{command="ls",status="ok"} 1`)
	assert.Contains(t, body, `sandbox_commands_total{command="cat",status="error"} 1`)
	assert.Contains(t, body, `sandbox_file_writes_total{op="create"} 1`)
	assert.Contains(t, body, "sandbox_sessions_created_total 1")
	assert.Contains(t, body, "sandbox_sessions_active 1")
	assert.Contains(t, body, `route="POST /sessions/{id}/commands"`)
}

func TestWithSeed(t *testing.T) {
	t.Parallel()
	seed := &filesystem.SnapshotNode{
		Type: sandboxfs.DirNodeType,
		Children: []*filesystem.SnapshotNode{
			{Name: "motd", Type: sandboxfs.FileNodeType, Content: "hi"},
		},
	}
	ts := httptest.NewServer(New(nil, WithSeed(seed)).Handler())
	t.Cleanup(ts.Close)
	id := createSession(t, ts).ID

	resp := submit(t, ts, id, "ls")

	assert.Equal(t, sandboxfs.Listing{Items: []sandboxfs.Entry{{Name: "motd", Type: sandboxfs.FileNodeType}}}, resp.Entry.Output)
}

func TestMetricsDisabled(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &config.ConfigOverride{MetricsPath: util.Pointer("")})

	resp := doRequest(t, http.MethodGet, ts.URL+config.DefaultMetricsPath, "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
