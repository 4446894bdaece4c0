package stream

import (
	"sync"
	"sync/atomic"
	"time"
)

// Map applies fn to every value. An error from fn terminates the sequence.
func Map(source Observable, fn func(any) (any, error)) Observable {
	return Create(func(o Observer) Disposable {
		var sub Composite
		sub.Add(source.Subscribe(ObserverFuncs{
			Next: func(v any) {
				out, err := fn(v)
				if err != nil {
					o.OnError(err)
					sub.Dispose()
					return
				}
				o.OnNext(out)
			},
			Error:     o.OnError,
			Completed: o.OnCompleted,
		}))
		return &sub
	})
}

// Do forwards every notification to side before passing it downstream.
func Do(source Observable, side Observer) Observable {
	return Create(func(o Observer) Disposable {
		return source.Subscribe(ObserverFuncs{
			Next: func(v any) {
				side.OnNext(v)
				o.OnNext(v)
			},
			Error: func(err error) {
				side.OnError(err)
				o.OnError(err)
			},
			Completed: func() {
				side.OnCompleted()
				o.OnCompleted()
			},
		})
	})
}

// IgnoreElements drops every value and forwards the terminal notification.
func IgnoreElements(source Observable) Observable {
	return Create(func(o Observer) Disposable {
		return source.Subscribe(ObserverFuncs{
			Error:     o.OnError,
			Completed: o.OnCompleted,
		})
	})
}

// Take emits the first n values and completes.
func Take(source Observable, n int64) Observable {
	return Create(func(o Observer) Disposable {
		if n <= 0 {
			o.OnCompleted()
			return Nop
		}
		var (
			seen atomic.Int64
			sub  Composite
		)
		sub.Add(source.Subscribe(ObserverFuncs{
			Next: func(v any) {
				c := seen.Add(1)
				if c > n {
					return
				}
				o.OnNext(v)
				if c == n {
					o.OnCompleted()
					sub.Dispose()
				}
			},
			Error:     o.OnError,
			Completed: o.OnCompleted,
		}))
		return &sub
	})
}

// TakeLast emits the last n values once source completes.
func TakeLast(source Observable, n int) Observable {
	return Create(func(o Observer) Disposable {
		var buf []any
		return source.Subscribe(ObserverFuncs{
			Next: func(v any) {
				if n <= 0 {
					return
				}
				buf = append(buf, v)
				if len(buf) > n {
					buf = buf[1:]
				}
			},
			Error: o.OnError,
			Completed: func() {
				for _, v := range buf {
					o.OnNext(v)
				}
				o.OnCompleted()
			},
		})
	})
}

// TakeUntil mirrors source until other emits or completes.
func TakeUntil(source, other Observable) Observable {
	return Create(func(o Observer) Disposable {
		s := &serializedObserver{inner: o}
		var group Composite
		stop := func() {
			s.OnCompleted()
			group.Dispose()
		}
		group.Add(other.Subscribe(ObserverFuncs{
			Next:      func(any) { stop() },
			Error:     s.OnError,
			Completed: stop,
		}))
		group.Add(source.Subscribe(s))
		return &group
	})
}

// Finally runs action exactly once when the subscription terminates or is
// disposed, whichever happens first.
func Finally(source Observable, action func()) Observable {
	return Create(func(o Observer) Disposable {
		var once sync.Once
		run := func() { once.Do(action) }
		d := source.Subscribe(ObserverFuncs{
			Next: o.OnNext,
			Error: func(err error) {
				o.OnError(err)
				run()
			},
			Completed: func() {
				o.OnCompleted()
				run()
			},
		})
		return DisposableFunc(func() {
			d.Dispose()
			run()
		})
	})
}

// Aggregate folds every value into an accumulator and emits the final
// result on completion.
func Aggregate(source Observable, seed any, fn func(acc, v any) (any, error)) Observable {
	return Create(func(o Observer) Disposable {
		acc := seed
		var sub Composite
		sub.Add(source.Subscribe(ObserverFuncs{
			Next: func(v any) {
				next, err := fn(acc, v)
				if err != nil {
					o.OnError(err)
					sub.Dispose()
					return
				}
				acc = next
			},
			Error: o.OnError,
			Completed: func() {
				o.OnNext(acc)
				o.OnCompleted()
			},
		}))
		return &sub
	})
}

// Timestamped pairs a value with the time it was observed.
type Timestamped struct {
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Timestamp wraps each value with the time reported by now.
func Timestamp(source Observable, now func() time.Time) Observable {
	return Map(source, func(v any) (any, error) {
		return Timestamped{Value: v, Timestamp: now()}, nil
	})
}

// Merge interleaves the values of all sources. It completes when every
// source has completed and fails on the first error.
func Merge(sources ...Observable) Observable {
	return Create(func(o Observer) Disposable {
		if len(sources) == 0 {
			o.OnCompleted()
			return Nop
		}
		s := &serializedObserver{inner: o}
		var (
			group     Composite
			remaining atomic.Int64
		)
		remaining.Store(int64(len(sources)))
		for _, src := range sources {
			group.Add(src.Subscribe(ObserverFuncs{
				Next: s.OnNext,
				Error: func(err error) {
					s.OnError(err)
					group.Dispose()
				},
				Completed: func() {
					if remaining.Add(-1) == 0 {
						s.OnCompleted()
					}
				},
			}))
		}
		return &group
	})
}

// Concat subscribes to each source in turn after the previous one completes.
func Concat(sources ...Observable) Observable {
	return Create(func(o Observer) Disposable {
		var (
			mu      sync.Mutex
			current Disposable = Nop
			stopped bool
		)
		var next func(i int)
		next = func(i int) {
			if i >= len(sources) {
				o.OnCompleted()
				return
			}
			d := sources[i].Subscribe(ObserverFuncs{
				Next:      o.OnNext,
				Error:     o.OnError,
				Completed: func() { next(i + 1) },
			})
			mu.Lock()
			if stopped {
				mu.Unlock()
				d.Dispose()
				return
			}
			current = d
			mu.Unlock()
		}
		next(0)
		return DisposableFunc(func() {
			mu.Lock()
			stopped = true
			d := current
			mu.Unlock()
			d.Dispose()
		})
	})
}

// Zip pairs the n-th values of every source into a []any. It completes as
// soon as any source has completed and has no buffered values left.
func Zip(sources ...Observable) Observable {
	return Create(func(o Observer) Disposable {
		if len(sources) == 0 {
			o.OnCompleted()
			return Nop
		}
		var (
			mu     sync.Mutex
			queues = make([][]any, len(sources))
			done   = make([]bool, len(sources))
			group  Composite
		)
		finished := func() bool {
			for i := range sources {
				if done[i] && len(queues[i]) == 0 {
					return true
				}
			}
			return false
		}
		for i, src := range sources {
			group.Add(src.Subscribe(ObserverFuncs{
				Next: func(v any) {
					mu.Lock()
					defer mu.Unlock()
					queues[i] = append(queues[i], v)
					for _, q := range queues {
						if len(q) == 0 {
							return
						}
					}
					tuple := make([]any, len(sources))
					for j := range queues {
						tuple[j] = queues[j][0]
						queues[j] = queues[j][1:]
					}
					o.OnNext(tuple)
					if finished() {
						o.OnCompleted()
					}
				},
				Error: func(err error) {
					mu.Lock()
					defer mu.Unlock()
					o.OnError(err)
				},
				Completed: func() {
					mu.Lock()
					defer mu.Unlock()
					done[i] = true
					if finished() {
						o.OnCompleted()
					}
				},
			}))
		}
		return &group
	})
}

// CombineLatest emits a []any of the latest value of every source whenever
// any source emits, once all sources have emitted at least once.
func CombineLatest(sources ...Observable) Observable {
	return Create(func(o Observer) Disposable {
		if len(sources) == 0 {
			o.OnCompleted()
			return Nop
		}
		var (
			mu        sync.Mutex
			latest    = make([]any, len(sources))
			has       = make([]bool, len(sources))
			remaining = len(sources)
			group     Composite
		)
		for i, src := range sources {
			group.Add(src.Subscribe(ObserverFuncs{
				Next: func(v any) {
					mu.Lock()
					defer mu.Unlock()
					latest[i] = v
					has[i] = true
					for _, ok := range has {
						if !ok {
							return
						}
					}
					o.OnNext(append([]any(nil), latest...))
				},
				Error: func(err error) {
					mu.Lock()
					defer mu.Unlock()
					o.OnError(err)
				},
				Completed: func() {
					mu.Lock()
					defer mu.Unlock()
					remaining--
					if remaining == 0 || !has[i] {
						o.OnCompleted()
					}
				},
			}))
		}
		return &group
	})
}
