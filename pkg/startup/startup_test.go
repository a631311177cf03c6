package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type recorder struct {
	events []string
}

func (r *recorder) dep(name string, needs ...string) Dependency {
	return Dependency{
		Name:  name,
		Needs: needs,
		StartFn: func(context.Context) error {
			r.events = append(r.events, "start "+name)
			return nil
		},
		StopFn: func(context.Context) error {
			r.events = append(r.events, "stop "+name)
			return nil
		},
	}
}

func TestStartOrder(t *testing.T) {
	r := &recorder{}
	s := NewStartup(testLogger(), 1)
	s.AddDependency(r.dep("migrations", "database"))
	s.AddDependency(r.dep("redis"))
	s.AddDependency(r.dep("database"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start database", "start migrations", "start redis"}, r.events)
	assert.Equal(t, StartupStatusStarted, s.Status("migrations"))

	r.events = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop redis", "stop migrations", "stop database"}, r.events)
	assert.Equal(t, StartupStatusStopped, s.Status("database"))
}

func TestRetryWithBackoff(t *testing.T) {
	r := &recorder{}
	failures := 2
	flaky := Dependency{
		Name: "kafka",
		StartFn: func(context.Context) error {
			if failures > 0 {
				failures--
				return errors.New("broker not ready")
			}
			return nil
		},
	}

	s := NewStartup(testLogger(), 5).WithBaseDelay(time.Millisecond)
	s.AddDependency(r.dep("database"))
	s.AddDependency(flaky)

	require.NoError(t, s.Start(context.Background()))
	// database started once and was not restarted on retries
	assert.Equal(t, []string{"start database"}, r.events)
	assert.Equal(t, 0, failures)
}

func TestGivesUp(t *testing.T) {
	s := NewStartup(testLogger(), 2).WithBaseDelay(time.Millisecond)
	s.AddDependency(Dependency{Name: "database", StartFn: func(context.Context) error {
		return errors.New("connection refused")
	}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed after 2 attempts")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, StartupStatusFailed, s.Status("database"))
}

func TestCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStartup(testLogger(), 3).WithBaseDelay(time.Hour)
	s.AddDependency(Dependency{Name: "database", StartFn: func(context.Context) error {
		cancel()
		return errors.New("down")
	}})

	assert.ErrorIs(t, s.Start(ctx), context.Canceled)
}

func TestUnknownAndCyclicDependencies(t *testing.T) {
	s := NewStartup(testLogger(), 1)
	s.AddDependency(Dependency{Name: "migrations", Needs: []string{"database"}})
	assert.ErrorContains(t, s.Start(context.Background()), "unknown startup dependency 'database'")

	s = NewStartup(testLogger(), 1)
	s.AddDependency(Dependency{Name: "a", Needs: []string{"b"}})
	s.AddDependency(Dependency{Name: "b", Needs: []string{"a"}})
	assert.ErrorContains(t, s.Start(context.Background()), "cycle")
}

func TestStopJoinsErrors(t *testing.T) {
	r := &recorder{}
	s := NewStartup(testLogger(), 1)
	s.AddDependency(r.dep("database"))
	s.AddDependency(Dependency{Name: "redis", StopFn: func(context.Context) error {
		return errors.New("already closed")
	}})

	require.NoError(t, s.Start(context.Background()))
	r.events = nil

	err := s.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: already closed")
	assert.Equal(t, []string{"stop database"}, r.events)
}
