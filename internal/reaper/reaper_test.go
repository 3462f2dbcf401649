package reaper

import (
	"context"
	"sync"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesselhq/vessel/internal/lifecycle"
)

// stubEngine implements only the engine calls the reaper makes; anything else
// panics through the embedded nil interface.
type stubEngine struct {
	lifecycle.Engine

	mu      sync.Mutex
	running []container.Summary
	stopped []string
	removed []string
}

func (s *stubEngine) StopContainer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = append(s.stopped, id)
	return nil
}

func (s *stubEngine) RemoveContainer(ctx context.Context, id string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, id)
	return nil
}

func (s *stubEngine) ListContainers(ctx context.Context, status string, labels map[string]string, limit int) ([]container.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []container.Summary
	for _, c := range s.running {
		match := true
		for k, v := range labels {
			if c.Labels[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestStopAndRemove(t *testing.T) {
	eng := &stubEngine{}
	r := New(eng)

	require.NoError(t, r.StopAndRemove(context.Background(), "abc123", "redis"))
	assert.Equal(t, []string{"abc123"}, eng.stopped)
	assert.Equal(t, []string{"abc123"}, eng.removed)
}

func TestPruneSessionOnlyRemovesMatchingSession(t *testing.T) {
	eng := &stubEngine{
		running: []container.Summary{
			{ID: "c1", Labels: map[string]string{lifecycle.LabelManaged: "true", lifecycle.LabelSessionID: "s1"}},
			{ID: "c2", Labels: map[string]string{lifecycle.LabelManaged: "true", lifecycle.LabelSessionID: "s2"}},
			{ID: "c3", Labels: map[string]string{lifecycle.LabelManaged: "true"}},
		},
	}
	r := New(eng)

	removed, err := r.PruneSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"c1"}, eng.removed)
}

func TestPruneAllIncludesReusableContainers(t *testing.T) {
	eng := &stubEngine{
		running: []container.Summary{
			{ID: "c1", Labels: map[string]string{lifecycle.LabelManaged: "true", lifecycle.LabelSessionID: "s1"}},
			{ID: "c2", Labels: map[string]string{lifecycle.LabelManaged: "true", lifecycle.LabelHash: "deadbeef"}},
			{ID: "c3", Labels: map[string]string{"com.example.other": "true"}},
		},
	}
	r := New(eng)

	removed, err := r.PruneAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.ElementsMatch(t, []string{"c1", "c2"}, eng.removed)
	assert.NotContains(t, eng.removed, "c3", "unmanaged containers are never touched")
}

func TestPruneEmpty(t *testing.T) {
	r := New(&stubEngine{})
	removed, err := r.PruneAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
