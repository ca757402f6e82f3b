package server

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lyzr/diagflow/common/logger"
)

type fakeDrainer struct {
	active int32
}

func (f *fakeDrainer) ActiveExecutions() int { return int(atomic.LoadInt32(&f.active)) }

func TestDrainReturnsOnceActiveReachesZero(t *testing.T) {
	s := New("test", 0, nil, logger.New("error", "text")).WithDrainer(&fakeDrainer{active: 1})
	d := s.drainer.(*fakeDrainer)

	go func() {
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&d.active, 0)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.drain(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain did not return after active executions reached zero")
	}
	assert.NoError(t, ctx.Err())
}

func TestDrainStopsAtDeadlineWithExecutionsStillActive(t *testing.T) {
	s := New("test", 0, nil, logger.New("error", "text")).WithDrainer(&fakeDrainer{active: 3})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	s.drain(ctx)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDrainNoopWithoutDrainer(t *testing.T) {
	s := New("test", 0, nil, logger.New("error", "text"))
	s.drain(context.Background())
}
