package pipeline

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time view of a run.
type Snapshot struct {
	Dataset   string    `json:"dataset"`
	Unit      string    `json:"unit,omitempty"`
	Total     int       `json:"units_total"`
	Done      int       `json:"units_done"`
	Succeeded int       `json:"succeeded"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Records   int       `json:"records"`
	Running   bool      `json:"running"`
	Finished  bool      `json:"finished"`
	Stopped   bool      `json:"interrupted"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Nested is the inner run of the current unit, if it has one.
	Nested *Snapshot `json:"nested,omitempty"`
}

// Progress is updated by Run and read concurrently by the status server.
// A nil *Progress ignores updates.
type Progress struct {
	mu     sync.RWMutex
	snap   Snapshot
	now    func() time.Time
	parent *Progress
}

func NewProgress() *Progress {
	return &Progress{now: time.Now}
}

// Nested returns a Progress for runs started inside a unit. Its updates land
// in the Nested section of p's snapshot and are reset when p starts over.
func (p *Progress) Nested() *Progress {
	if p == nil {
		return nil
	}
	return &Progress{parent: p}
}

func (p *Progress) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}
	if p.parent != nil {
		s := p.parent.Snapshot()
		if s.Nested == nil {
			return Snapshot{}
		}
		return *s.Nested
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.snap
	if s.Nested != nil {
		nested := *s.Nested
		s.Nested = &nested
	}
	return s
}

func (p *Progress) update(f func(s *Snapshot, now time.Time)) {
	if p == nil {
		return
	}
	root := p
	if p.parent != nil {
		root = p.parent
	}
	root.mu.Lock()
	defer root.mu.Unlock()
	s := &root.snap
	if p.parent != nil {
		if s.Nested == nil {
			s.Nested = &Snapshot{}
		}
		s = s.Nested
	}
	f(s, root.now())
}

func (p *Progress) start(dataset string, total int) {
	p.update(func(s *Snapshot, now time.Time) {
		*s = Snapshot{Dataset: dataset, Total: total, Running: true, StartedAt: now, UpdatedAt: now}
	})
}

func (p *Progress) enter(unit string) {
	p.update(func(s *Snapshot, now time.Time) {
		s.Unit = unit
		s.UpdatedAt = now
	})
}

func (p *Progress) leave(outcome string, records int) {
	p.update(func(s *Snapshot, now time.Time) {
		s.Done++
		s.Records += records
		switch outcome {
		case outcomeSucceeded:
			s.Succeeded++
		case outcomeSkipped:
			s.Skipped++
		case outcomeFailed:
			s.Failed++
		}
		s.UpdatedAt = now
	})
}

func (p *Progress) finish(interrupted bool) {
	p.update(func(s *Snapshot, now time.Time) {
		s.Unit = ""
		s.Running = false
		s.Finished = true
		s.Stopped = interrupted
		s.UpdatedAt = now
	})
}
