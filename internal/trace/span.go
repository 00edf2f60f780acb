package trace

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// NextSeq returns the next event sequence number.
func NextSeq() uint64 { return seqCounter.Add(1) }

// Span is an operation with a begin and an end event, such as one
// PowerShell invocation. Open spans are visible through Inflight until
// they end.
type Span struct {
	tracer   Tracer
	id       uint64
	parentID uint64
	scope    Scope
	name     string
	started  time.Time
	extra    map[string]string
}

// InflightSpan describes a span that has begun but not ended.
type InflightSpan struct {
	ID      uint64
	Name    string
	Started time.Time
}

var inflight = struct {
	sync.Mutex
	spans map[uint64]InflightSpan
}{spans: make(map[uint64]InflightSpan)}

// Inflight returns the open spans, oldest first.
func Inflight() []InflightSpan {
	inflight.Lock()
	out := make([]InflightSpan, 0, len(inflight.spans))
	for _, s := range inflight.spans {
		out = append(out, s)
	}
	inflight.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Started.Equal(out[j].Started) {
			return out[i].Started.Before(out[j].Started)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Begin emits a SpanBegin event under parent (0 for a root span). When t
// does not record scope the returned span is inert.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{tracer: Nop}
	}
	s := &Span{
		tracer:   t,
		id:       spanCounter.Add(1),
		parentID: parent,
		scope:    scope,
		name:     name,
		started:  time.Now(),
	}
	inflight.Lock()
	inflight.spans[s.id] = InflightSpan{ID: s.id, Name: name, Started: s.started}
	inflight.Unlock()
	t.Emit(s.event(KindSpanBegin, s.started, ""))
	return s
}

func (s *Span) event(kind Kind, at time.Time, detail string) *Event {
	return &Event{
		Time:     at,
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parentID,
		Name:     s.name,
		Detail:   detail,
	}
}

func (s *Span) live() bool {
	return s != nil && s.tracer != nil && s.tracer.Enabled()
}

// End emits the SpanEnd event and returns how long the span was open.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	inflight.Lock()
	delete(inflight.spans, s.id)
	inflight.Unlock()
	now := time.Now()
	ev := s.event(KindSpanEnd, now, detail)
	ev.Extra = s.extra
	s.tracer.Emit(ev)
	return now.Sub(s.started)
}

// Fail ends the span with err as its detail and emits an error event.
func (s *Span) Fail(err error) time.Duration {
	if err == nil {
		return s.End("")
	}
	if s.live() {
		s.tracer.Emit(s.event(KindError, time.Now(), err.Error()))
	}
	return s.End(err.Error())
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// ID returns the span ID, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}
