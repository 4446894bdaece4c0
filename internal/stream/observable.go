package stream

import (
	"sync"
	"sync/atomic"
)

// Observer receives notifications from an Observable.
type Observer interface {
	OnNext(value any)
	OnError(err error)
	OnCompleted()
}

// Observable is a push-based sequence of values.
type Observable interface {
	Subscribe(observer Observer) Disposable
}

// Disposable releases the resources held by a subscription.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a function to Disposable. A nil func is a no-op.
type DisposableFunc func()

// Dispose implements Disposable.
func (f DisposableFunc) Dispose() {
	if f != nil {
		f()
	}
}

// Nop is a Disposable that does nothing.
var Nop Disposable = DisposableFunc(nil)

// Once wraps fn so it runs at most once no matter how often Dispose is called.
func Once(fn func()) Disposable {
	var once sync.Once
	return DisposableFunc(func() { once.Do(fn) })
}

// Composite disposes a group of disposables together. Items added after the
// composite was disposed are disposed immediately.
type Composite struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// Add registers d with the composite.
func (c *Composite) Add(d Disposable) {
	if d == nil {
		return
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		d.Dispose()
		return
	}
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// Dispose disposes every registered item in registration order.
func (c *Composite) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	items := c.items
	c.items = nil
	c.mu.Unlock()

	for _, d := range items {
		d.Dispose()
	}
}

// Disposed reports whether Dispose has been called.
func (c *Composite) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are ignored.
type ObserverFuncs struct {
	Next      func(value any)
	Error     func(err error)
	Completed func()
}

// OnNext implements Observer.
func (o ObserverFuncs) OnNext(value any) {
	if o.Next != nil {
		o.Next(value)
	}
}

// OnError implements Observer.
func (o ObserverFuncs) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

// OnCompleted implements Observer.
func (o ObserverFuncs) OnCompleted() {
	if o.Completed != nil {
		o.Completed()
	}
}

// ObservableFunc adapts a subscribe function to Observable.
type ObservableFunc func(observer Observer) Disposable

// Subscribe implements Observable.
func (f ObservableFunc) Subscribe(observer Observer) Disposable {
	d := f(observer)
	if d == nil {
		return Nop
	}
	return d
}

// Create returns an Observable whose observers are guarded: nothing is
// delivered after the first terminal notification.
func Create(subscribe func(observer Observer) Disposable) Observable {
	return ObservableFunc(func(observer Observer) Disposable {
		return subscribe(Guard(observer))
	})
}

// Guard wraps observer so that it never sees a notification after a terminal
// one. Guarding an already guarded observer returns it unchanged.
func Guard(observer Observer) Observer {
	if g, ok := observer.(*guardedObserver); ok {
		return g
	}
	return &guardedObserver{inner: observer}
}

type guardedObserver struct {
	inner Observer
	done  atomic.Bool
}

func (g *guardedObserver) OnNext(value any) {
	if g.done.Load() {
		return
	}
	g.inner.OnNext(value)
}

func (g *guardedObserver) OnError(err error) {
	if g.done.CompareAndSwap(false, true) {
		g.inner.OnError(err)
	}
}

func (g *guardedObserver) OnCompleted() {
	if g.done.CompareAndSwap(false, true) {
		g.inner.OnCompleted()
	}
}

// serializedObserver delivers notifications from concurrent producers one at
// a time.
type serializedObserver struct {
	mu    sync.Mutex
	inner Observer
}

func (s *serializedObserver) OnNext(value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.OnNext(value)
}

func (s *serializedObserver) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.OnError(err)
}

func (s *serializedObserver) OnCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.OnCompleted()
}
