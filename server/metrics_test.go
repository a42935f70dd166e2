package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/brettbedarf/sandboxfs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Notify(t *testing.T) {
	t.Parallel()

	m := NewMetrics([]string{"ls", "cat", "echo"}, func() int { return 3 })

	m.Notify(sandboxfs.EventSubmitted{Entry: sandboxfs.HistoryEntry{Command: "ls projects"}})
	m.Notify(sandboxfs.EventSubmitted{Entry: sandboxfs.HistoryEntry{Command: "cat x"}, Failed: true})
	m.Notify(sandboxfs.EventSubmitted{Entry: sandboxfs.HistoryEntry{Command: "rm -rf /"}, Failed: true})
	m.Notify(sandboxfs.EventWritten{Change: sandboxfs.Change{Op: sandboxfs.CreateOp, Path: "/a"}})
	m.Notify(sandboxfs.EventWritten{Change: sandboxfs.Change{Op: sandboxfs.OverwriteOp, Path: "/a"}})
	m.Notify(sandboxfs.EventWritten{Change: sandboxfs.Change{Op: sandboxfs.OverwriteOp, Path: "/a"}})
	m.Notify(sandboxfs.EventCleared{})
	m.Notify(sandboxfs.EventMoved{From: "/", To: "/projects"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("ls", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("cat", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues(unknownCommandLabel, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("clear", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fileWritesTotal.WithLabelValues("create")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fileWritesTotal.WithLabelValues("overwrite")))
}

func TestMetrics_SessionsAndRequests(t *testing.T) {
	t.Parallel()

	active := 0
	m := NewMetrics(nil, func() int { return active })

	m.sessionCreated()
	m.sessionCreated()
	active = 2
	m.observeRequest(http.MethodGet, "GET /healthz", http.StatusOK, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsCreated))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
	count, err := testutil.GatherAndCount(m.registry, "sandbox_sessions_active")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
