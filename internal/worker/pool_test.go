package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countJob struct {
	counter *atomic.Int64
	fail    bool
}

type countResult struct{ err error }

func (r countResult) GetError() error { return r.err }

func (j countJob) Execute(ctx context.Context) Result {
	j.counter.Add(1)
	if j.fail {
		return countResult{err: errors.New("job failed")}
	}
	return countResult{}
}

func TestPool_RunsAllJobs(t *testing.T) {
	var counter atomic.Int64
	p := NewPool(4)
	p.Start()

	for i := 0; i < 20; i++ {
		p.Submit(countJob{counter: &counter})
	}
	results := p.Wait()

	assert.Equal(t, int64(20), counter.Load())
	assert.Len(t, results, 20)
}

func TestPool_FailuresDoNotStopOthers(t *testing.T) {
	var counter atomic.Int64
	p := NewPool(2)
	p.Start()

	for i := 0; i < 10; i++ {
		p.Submit(countJob{counter: &counter, fail: i%2 == 0})
	}
	results := p.Wait()

	assert.Len(t, results, 10)
	var failed int
	for _, r := range results {
		if r.GetError() != nil {
			failed++
		}
	}
	assert.Equal(t, 5, failed)
}

func TestPool_ManyMoreJobsThanWorkers(t *testing.T) {
	// Job count far beyond worker count and queue capacity: submission must
	// keep draining while workers hold finished results
	var counter atomic.Int64
	p := NewPool(2)
	p.Start()

	const jobs = 30
	submitted := make(chan struct{})
	go func() {
		for i := 0; i < jobs; i++ {
			p.Submit(countJob{counter: &counter})
		}
		close(submitted)
	}()

	select {
	case <-submitted:
	case <-time.After(10 * time.Second):
		t.Fatal("submission stalled with jobs outstanding")
	}
	results := p.Wait()

	assert.Equal(t, int64(jobs), counter.Load())
	assert.Len(t, results, jobs)
}

func TestPool_ZeroWorkersClamped(t *testing.T) {
	var counter atomic.Int64
	p := NewPool(0)
	p.Start()
	p.Submit(countJob{counter: &counter})
	p.Wait()

	assert.Equal(t, int64(1), counter.Load())
}
