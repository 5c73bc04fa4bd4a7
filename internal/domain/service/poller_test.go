package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/ports"
)

type staticSource []ports.Entity

func (s staticSource) Entities() []ports.Entity { return s }

// countingEntity records refreshes and the highest observed concurrency.
type countingEntity struct {
	*LightEntity
	refreshErr error
	active     *atomic.Int32
	peak       *atomic.Int32
	refreshes  atomic.Int32
}

func (e *countingEntity) Refresh(ctx context.Context) error {
	n := e.active.Add(1)
	defer e.active.Add(-1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	e.refreshes.Add(1)
	return e.refreshErr
}

func TestPoller_PollOnce(t *testing.T) {
	var active, peak atomic.Int32
	boom := errors.New("boom")

	var entities []*countingEntity
	var source staticSource
	for i := 0; i < 30; i++ {
		e := &countingEntity{
			LightEntity: newTestEntity(t, model.Device{ID: i, Kind: model.DeviceKindLight}, new(MockHubClient)),
			active:      &active,
			peak:        &peak,
		}
		if i == 0 {
			e.refreshErr = boom
		}
		entities = append(entities, e)
		source = append(source, e)
	}

	host := new(MockEntityHost)
	host.On("PublishState", mock.Anything, mock.Anything).Return(nil)

	p := NewPoller(source, host, time.Minute, 4, zerolog.Nop())
	p.PollOnce(context.Background())

	for _, e := range entities {
		assert.Equal(t, int32(1), e.refreshes.Load())
	}
	assert.LessOrEqual(t, peak.Load(), int32(4))
	// The failing entity is not published
	host.AssertNumberOfCalls(t, "PublishState", 29)
}

func TestPoller_DefaultParallel(t *testing.T) {
	p := NewPoller(staticSource{}, new(MockEntityHost), time.Second, 0, zerolog.Nop())
	assert.Equal(t, DefaultParallelUpdates, p.parallel)
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(staticSource{}, new(MockEntityHost), 10*time.Millisecond, 1, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
