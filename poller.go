package main

import (
	"context"
	"sync"
	"time"
)

// vehicleRead is the outcome of one poll tick.
type vehicleRead struct {
	Loc   LatLng
	Found bool
	Err   error
}

// poller reads the vehicle location on a fixed cadence. Ticks are numbered so
// the receiver can drop a slow tick's result once a newer one has landed.
type poller struct {
	source    LocationSource
	interval  time.Duration
	timeout   time.Duration
	apply     func(seq uint64, r vehicleRead) bool
	newTicker func(d time.Duration) (<-chan time.Time, func())

	seq uint64
	wg  sync.WaitGroup
}

func newPoller(source LocationSource, interval, timeout time.Duration, apply func(uint64, vehicleRead) bool) *poller {
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &poller{
		source:    source,
		interval:  interval,
		timeout:   timeout,
		apply:     apply,
		newTicker: systemTicker,
	}
}

func systemTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// run blocks until ctx is cancelled. It returns only after every started
// tick has finished, so nothing is applied once run has returned.
func (p *poller) run(ctx context.Context) {
	c, stop := p.newTicker(p.interval)
	defer stop()
	defer p.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c:
			if ctx.Err() != nil {
				return
			}
			p.seq++
			p.wg.Add(1)
			go p.tick(ctx, p.seq)
		}
	}
}

func (p *poller) tick(ctx context.Context, seq uint64) {
	defer p.wg.Done()
	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	loc, found, err := p.source.Locate(cctx)
	if ctx.Err() != nil {
		return
	}
	p.apply(seq, vehicleRead{Loc: loc, Found: found, Err: err})
}
