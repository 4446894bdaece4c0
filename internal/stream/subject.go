package stream

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Subject is both an Observer and an Observable: every notification it
// receives is broadcast to its current observers. Disposing a subject
// detaches all observers without notifying them.
type Subject interface {
	Observable
	Observer
	Disposable
}

// entry gives each subscription a comparable identity; arbitrary Observer
// values are not necessarily comparable.
//
// While a new subscription replays the cached value, notifications that
// reach the entry queue behind the replay instead of overtaking it.
type entry struct {
	observer Observer

	mu        sync.Mutex
	replaying bool
	queued    []queuedNotification
}

type queuedNotification struct {
	value    any
	terminal bool
	err      error
}

func (e *entry) deliver(n queuedNotification) {
	e.mu.Lock()
	if e.replaying {
		e.queued = append(e.queued, n)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.emit(n)
}

func (e *entry) emit(n queuedNotification) {
	switch {
	case !n.terminal:
		e.observer.OnNext(n.value)
	case n.err != nil:
		e.observer.OnError(n.err)
	default:
		e.observer.OnCompleted()
	}
}

// replay sends the cached value, then drains whatever queued meanwhile.
func (e *entry) replay(latest any, hasLatest bool) {
	if hasLatest {
		e.observer.OnNext(latest)
	}
	for {
		e.mu.Lock()
		queued := e.queued
		e.queued = nil
		if len(queued) == 0 {
			e.replaying = false
			e.mu.Unlock()
			return
		}
		e.mu.Unlock()
		for _, n := range queued {
			e.emit(n)
		}
	}
}

type subjectState struct {
	observers []*entry
	done      bool
	err       error
	disposed  bool

	latest    any
	hasLatest bool
}

// broadcast holds the copy-on-write observer list shared by PublishSubject
// and BehaviorSubject. Emission reads a snapshot and never takes a lock;
// subscribe and detach swap in a new immutable slice.
type broadcast struct {
	state atomic.Pointer[subjectState]
}

func (b *broadcast) init() {
	b.state.Store(&subjectState{})
}

func (b *broadcast) subscribe(observer Observer, replayLatest bool) Disposable {
	e := &entry{observer: observer, replaying: replayLatest}
	for {
		old := b.state.Load()
		if old.disposed {
			return Nop
		}
		if old.done {
			if replayLatest && old.hasLatest && old.err == nil {
				observer.OnNext(old.latest)
			}
			if old.err != nil {
				observer.OnError(old.err)
			} else {
				observer.OnCompleted()
			}
			return Nop
		}
		next := *old
		next.observers = append(slices.Clip(old.observers), e)
		if b.state.CompareAndSwap(old, &next) {
			if replayLatest {
				e.replay(next.latest, next.hasLatest)
			}
			return Once(func() { b.detach(e) })
		}
	}
}

// detach removes e. It is idempotent and safe to race with delivery: an
// observer may receive a notification that was already in flight.
func (b *broadcast) detach(e *entry) {
	for {
		old := b.state.Load()
		idx := slices.Index(old.observers, e)
		if idx < 0 {
			return
		}
		next := *old
		next.observers = slices.Delete(slices.Clone(old.observers), idx, idx+1)
		if b.state.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (b *broadcast) next(value any, remember bool) {
	snapshot := b.state.Load()
	if remember {
		for {
			if snapshot.done || snapshot.disposed {
				return
			}
			next := *snapshot
			next.latest = value
			next.hasLatest = true
			if b.state.CompareAndSwap(snapshot, &next) {
				snapshot = &next
				break
			}
			snapshot = b.state.Load()
		}
	}
	if snapshot.done || snapshot.disposed {
		return
	}
	for _, e := range snapshot.observers {
		e.deliver(queuedNotification{value: value})
	}
}

func (b *broadcast) terminate(err error) {
	for {
		old := b.state.Load()
		if old.done || old.disposed {
			return
		}
		next := *old
		next.observers = nil
		next.done = true
		next.err = err
		if b.state.CompareAndSwap(old, &next) {
			for _, e := range old.observers {
				e.deliver(queuedNotification{terminal: true, err: err})
			}
			return
		}
	}
}

func (b *broadcast) dispose() {
	for {
		old := b.state.Load()
		if old.disposed {
			return
		}
		next := &subjectState{disposed: true}
		if b.state.CompareAndSwap(old, next) {
			return
		}
	}
}

func (b *broadcast) observerCount() int {
	return len(b.state.Load().observers)
}

// PublishSubject broadcasts each notification to the observers attached at
// the time it is emitted. It caches nothing.
type PublishSubject struct {
	b broadcast
}

// NewSubject returns an empty PublishSubject.
func NewSubject() *PublishSubject {
	s := &PublishSubject{}
	s.b.init()
	return s
}

// Subscribe implements Observable.
func (s *PublishSubject) Subscribe(observer Observer) Disposable {
	return s.b.subscribe(observer, false)
}

// OnNext implements Observer.
func (s *PublishSubject) OnNext(value any) { s.b.next(value, false) }

// OnError implements Observer.
func (s *PublishSubject) OnError(err error) { s.b.terminate(err) }

// OnCompleted implements Observer.
func (s *PublishSubject) OnCompleted() { s.b.terminate(nil) }

// Dispose implements Disposable.
func (s *PublishSubject) Dispose() { s.b.dispose() }

// ObserverCount returns the number of attached observers.
func (s *PublishSubject) ObserverCount() int { return s.b.observerCount() }

// BehaviorSubject caches the latest value and delivers it to every new
// observer before any subsequent notification.
type BehaviorSubject struct {
	b broadcast
}

// NewBehaviorSubject returns a BehaviorSubject with no cached value.
func NewBehaviorSubject() *BehaviorSubject {
	s := &BehaviorSubject{}
	s.b.init()
	return s
}

// Subscribe implements Observable.
func (s *BehaviorSubject) Subscribe(observer Observer) Disposable {
	return s.b.subscribe(observer, true)
}

// OnNext implements Observer.
func (s *BehaviorSubject) OnNext(value any) { s.b.next(value, true) }

// OnError implements Observer.
func (s *BehaviorSubject) OnError(err error) { s.b.terminate(err) }

// OnCompleted implements Observer.
func (s *BehaviorSubject) OnCompleted() { s.b.terminate(nil) }

// Dispose implements Disposable.
func (s *BehaviorSubject) Dispose() { s.b.dispose() }

// Latest returns the cached value, if any.
func (s *BehaviorSubject) Latest() (any, bool) {
	st := s.b.state.Load()
	return st.latest, st.hasLatest
}

// ReplaySubject replays up to Capacity buffered values to new observers.
// A non-positive capacity keeps every value.
type ReplaySubject struct {
	mu        sync.Mutex
	capacity  int
	buffer    []any
	observers []*entry
	done      bool
	err       error
	disposed  bool
}

// NewReplaySubject returns a ReplaySubject with the given capacity.
func NewReplaySubject(capacity int) *ReplaySubject {
	return &ReplaySubject{capacity: capacity}
}

// Subscribe implements Observable.
func (s *ReplaySubject) Subscribe(observer Observer) Disposable {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return Nop
	}
	for _, v := range s.buffer {
		observer.OnNext(v)
	}
	if s.done {
		if s.err != nil {
			observer.OnError(s.err)
		} else {
			observer.OnCompleted()
		}
		return Nop
	}
	e := &entry{observer: observer}
	s.observers = append(s.observers, e)
	return Once(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx := slices.Index(s.observers, e); idx >= 0 {
			s.observers = slices.Delete(s.observers, idx, idx+1)
		}
	})
}

// OnNext implements Observer.
func (s *ReplaySubject) OnNext(value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || s.disposed {
		return
	}
	s.buffer = append(s.buffer, value)
	if s.capacity > 0 && len(s.buffer) > s.capacity {
		s.buffer = s.buffer[len(s.buffer)-s.capacity:]
	}
	for _, e := range slices.Clone(s.observers) {
		e.observer.OnNext(value)
	}
}

// OnError implements Observer.
func (s *ReplaySubject) OnError(err error) { s.terminate(err) }

// OnCompleted implements Observer.
func (s *ReplaySubject) OnCompleted() { s.terminate(nil) }

func (s *ReplaySubject) terminate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || s.disposed {
		return
	}
	s.done = true
	s.err = err
	observers := s.observers
	s.observers = nil
	for _, e := range observers {
		if err != nil {
			e.observer.OnError(err)
		} else {
			e.observer.OnCompleted()
		}
	}
}

// Dispose implements Disposable.
func (s *ReplaySubject) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	s.observers = nil
	s.buffer = nil
}
