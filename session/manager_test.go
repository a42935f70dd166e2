package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brettbedarf/sandboxfs"
	"github.com/brettbedarf/sandboxfs/config"
	"github.com/brettbedarf/sandboxfs/filesystem"
	"github.com/brettbedarf/sandboxfs/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateGetDelete(t *testing.T) {
	t.Parallel()

	m := NewManager(config.NewDefaultConfig())

	s, err := m.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	got, ok := m.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)

	assert.True(t, m.Delete(s.ID()))
	assert.False(t, m.Delete(s.ID()))
	_, ok = m.Get(s.ID())
	assert.False(t, ok)
	assert.Zero(t, m.Len())
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	a, err := m.Create()
	require.NoError(t, err)
	b, err := m.Create()
	require.NoError(t, err)

	a.Submit("echo mine > notes.txt")
	a.Submit("cd projects")

	entry, _ := b.Submit("cat notes.txt")
	assert.Equal(t, sandboxfs.FileContent{Content: "My secret notes."}, entry.Output)
	assert.Equal(t, "/", b.Cwd())
	assert.Len(t, b.History(), 1)
}

func TestManager_MaxSessions(t *testing.T) {
	t.Parallel()

	m := NewManager(config.NewConfig(&config.ConfigOverride{MaxSessions: util.Pointer(2)}))

	_, err := m.Create()
	require.NoError(t, err)
	s, err := m.Create()
	require.NoError(t, err)

	_, err = m.Create()
	assert.ErrorIs(t, err, ErrTooManySessions)

	m.Delete(s.ID())
	_, err = m.Create()
	assert.NoError(t, err, "deleting frees capacity")
}

func TestManager_OnCreate(t *testing.T) {
	t.Parallel()

	var seen []string
	m := NewManager(nil, OnCreate(func(s *Session) { seen = append(seen, s.ID()) }))

	s, err := m.Create()
	require.NoError(t, err)

	assert.Equal(t, []string{s.ID()}, seen)
}

func TestManager_WithSeed(t *testing.T) {
	t.Parallel()

	seed := &filesystem.SnapshotNode{
		Type: sandboxfs.DirNodeType,
		Children: []*filesystem.SnapshotNode{
			{Name: "only.txt", Type: sandboxfs.FileNodeType, Content: "custom"},
		},
	}
	m := NewManager(nil, WithSeed(seed))

	a, err := m.Create()
	require.NoError(t, err)
	b, err := m.Create()
	require.NoError(t, err)
	a.Submit("echo changed > only.txt")

	entry, _ := b.Submit("cat only.txt")
	assert.Equal(t, sandboxfs.FileContent{Content: "custom"}, entry.Output, "each session copies the seed")
	assert.Equal(t, seed, b.Snapshot())
}

func TestManager_WithSeed_Invalid(t *testing.T) {
	t.Parallel()

	m := NewManager(nil, WithSeed(&filesystem.SnapshotNode{Type: sandboxfs.FileNodeType}))

	_, err := m.Create()

	assert.ErrorContains(t, err, "invalid seed")
	assert.Equal(t, 0, m.Len())
}

func TestManager_Sweep(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cfg := config.NewConfig(&config.ConfigOverride{SessionIdleTimeout: util.Pointer(10 * time.Minute)})
	m := NewManager(cfg, WithManagerClock(clock))

	idle, err := m.Create()
	require.NoError(t, err)
	active, err := m.Create()
	require.NoError(t, err)

	now = now.Add(8 * time.Minute)
	active.Submit("pwd")
	now = now.Add(5 * time.Minute)

	assert.Equal(t, 1, m.Sweep(now))
	_, ok := m.Get(idle.ID())
	assert.False(t, ok)
	_, ok = m.Get(active.ID())
	assert.True(t, ok)
}

func TestManager_Sweep_ConcurrentSubmit(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var clockNanos atomic.Int64
	clockNanos.Store(start.UnixNano())
	clock := func() time.Time { return time.Unix(0, clockNanos.Load()).UTC() }
	cfg := config.NewConfig(&config.ConfigOverride{SessionIdleTimeout: util.Pointer(10 * time.Minute)})
	m := NewManager(cfg, WithManagerClock(clock))

	var busy, idle []*Session
	for i := range 40 {
		sess, err := m.Create()
		require.NoError(t, err)
		if i%2 == 0 {
			busy = append(busy, sess)
		} else {
			idle = append(idle, sess)
		}
	}

	later := start.Add(time.Hour)
	clockNanos.Store(later.UnixNano())

	var wg sync.WaitGroup
	for _, sess := range busy {
		wg.Go(func() { sess.Submit("pwd") })
	}
	evicted := m.Sweep(later)
	wg.Wait()

	for _, sess := range idle {
		_, ok := m.Get(sess.ID())
		assert.False(t, ok, "idle session %s kept", sess.ID())
	}
	assert.Equal(t, 40-evicted, m.Len())
	assert.GreaterOrEqual(t, evicted, len(idle))

	// every session still present was touched, so a second sweep keeps them all
	assert.Zero(t, m.Sweep(later))
}

func TestManager_Sweep_Disabled(t *testing.T) {
	t.Parallel()

	m := NewManager(config.NewConfig(&config.ConfigOverride{SessionIdleTimeout: util.Pointer(time.Duration(0))}))
	_, err := m.Create()
	require.NoError(t, err)

	assert.Zero(t, m.Sweep(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, m.Len())
}

func TestManager_Run_StopsOnCancel(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
