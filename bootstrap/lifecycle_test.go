package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) service(name string, startErr error) Service {
	return Funcs{
		StartFunc: func(context.Context) error {
			j.add("start " + name)
			return startErr
		},
		StopFunc: func(context.Context) error {
			j.add("stop " + name)
			return nil
		},
	}
}

func TestLifecycleOrder(t *testing.T) {
	j := &journal{}
	lm := NewLifecycle(nil)

	require.NoError(t, lm.Register("listener", j.service("listener", nil), "transport", "watcher"))
	require.NoError(t, lm.Register("transport", j.service("transport", nil)))
	require.NoError(t, lm.Register("watcher", j.service("watcher", nil)))

	require.NoError(t, lm.Start(context.Background()))
	assert.Error(t, lm.Start(context.Background()))
	assert.Error(t, lm.Register("late", j.service("late", nil)))

	require.NoError(t, lm.Stop(context.Background()))
	assert.Equal(t, []string{
		"start transport", "start watcher", "start listener",
		"stop listener", "stop watcher", "stop transport",
	}, j.entries)

	// A second stop does nothing.
	require.NoError(t, lm.Stop(context.Background()))
	assert.Len(t, j.entries, 6)
}

func TestLifecycleRollsBackFailedStart(t *testing.T) {
	j := &journal{}
	lm := NewLifecycle(nil)
	cause := errors.New("address in use")

	require.NoError(t, lm.Register("transport", j.service("transport", nil)))
	require.NoError(t, lm.Register("listener", j.service("listener", cause), "transport"))

	err := lm.Start(context.Background())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, []string{"start transport", "start listener", "stop transport"}, j.entries)
}

func TestLifecycleRegistrationErrors(t *testing.T) {
	lm := NewLifecycle(nil)
	assert.Error(t, lm.Register("", Funcs{}))
	assert.Error(t, lm.Register("nil", nil))
	require.NoError(t, lm.Register("a", Funcs{}))
	assert.Error(t, lm.Register("a", Funcs{}))
}

func TestLifecycleDependencyErrors(t *testing.T) {
	lm := NewLifecycle(nil)
	require.NoError(t, lm.Register("a", Funcs{}, "missing"))
	assert.Error(t, lm.Start(context.Background()))

	lm = NewLifecycle(nil)
	require.NoError(t, lm.Register("a", Funcs{}, "b"))
	require.NoError(t, lm.Register("b", Funcs{}, "a"))
	assert.ErrorContains(t, lm.Start(context.Background()), "circular")
}
