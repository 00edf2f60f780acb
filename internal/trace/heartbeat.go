package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat periodically emits a liveness event naming the oldest open
// span, so a PowerShell invocation that never returns shows up in the
// trace while it is still stuck.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	stop     chan struct{}
	done     sync.WaitGroup
	once     sync.Once
}

// StartHeartbeat starts emitting at interval. It returns nil when the
// tracer is disabled or interval is not positive.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{tracer: tracer, interval: interval, stop: make(chan struct{})}
	h.done.Add(1)
	go func() {
		defer h.done.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for beat := uint64(1); ; beat++ {
			select {
			case now := <-ticker.C:
				h.tracer.Emit(&Event{
					Time:   now,
					Kind:   KindHeartbeat,
					Scope:  ScopeCommand,
					Name:   "heartbeat",
					Detail: heartbeatDetail(beat, now, Inflight()),
				})
			case <-h.stop:
				return
			}
		}
	}()
	return h
}

func heartbeatDetail(beat uint64, now time.Time, open []InflightSpan) string {
	if len(open) == 0 {
		return fmt.Sprintf("#%d idle", beat)
	}
	oldest := open[0]
	return fmt.Sprintf("#%d open=%d oldest=%s for %s", beat, len(open), oldest.Name, now.Sub(oldest.Started).Round(time.Millisecond))
}

// Stop ends the heartbeat and waits for its goroutine.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		close(h.stop)
		h.done.Wait()
	})
}
