package stream

import (
	"context"
	"sync"
	"sync/atomic"
)

// Publish shares one subscription to source between every consumer inside
// selector. For each subscription to the result a fresh subject is created,
// the selector body is subscribed to it, and only then is source connected,
// so synchronous sources reach every branch.
func Publish(source Observable, newSubject func() Subject, selector func(shared Observable) (Observable, error)) Observable {
	return Create(func(o Observer) Disposable {
		subject := newSubject()
		body, err := selector(subject)
		if err != nil {
			o.OnError(err)
			return Nop
		}
		var group Composite
		group.Add(body.Subscribe(o))
		group.Add(source.Subscribe(subject))
		group.Add(subject)
		return &group
	})
}

// PublishLatest is Publish over a BehaviorSubject that connects source as
// soon as the first consumer inside selector subscribes. A synchronous
// source has then already produced its latest value when the next consumer
// attaches, and that consumer receives it on subscription. Source is
// connected after the body when no consumer subscribes during the body's
// subscription.
func PublishLatest(source Observable, selector func(shared Observable) (Observable, error)) Observable {
	return Create(func(o Observer) Disposable {
		subject := NewBehaviorSubject()
		var (
			group     Composite
			connected atomic.Bool
		)
		connect := func() {
			if connected.CompareAndSwap(false, true) {
				group.Add(source.Subscribe(subject))
			}
		}
		shared := Create(func(inner Observer) Disposable {
			d := subject.Subscribe(inner)
			connect()
			return d
		})
		body, err := selector(shared)
		if err != nil {
			o.OnError(err)
			return Nop
		}
		group.Add(body.Subscribe(o))
		connect()
		group.Add(subject)
		return &group
	})
}

// MergeOutput runs connections alongside output. Values of output pass
// through; connection values are discarded and connection errors are
// forwarded. The result terminates when output terminates. With a nil
// output the result completes once every connection has completed.
func MergeOutput(output Observable, connections []Observable) Observable {
	if len(connections) == 0 {
		if output == nil {
			return Empty()
		}
		return output
	}
	ignored := make([]Observable, len(connections))
	for i, c := range connections {
		ignored[i] = IgnoreElements(c)
	}
	if output == nil {
		return Merge(ignored...)
	}
	return Create(func(o Observer) Disposable {
		s := &serializedObserver{inner: o}
		var group Composite
		fail := func(err error) {
			s.OnError(err)
			group.Dispose()
		}
		for _, c := range ignored {
			group.Add(c.Subscribe(ObserverFuncs{Error: fail}))
		}
		group.Add(output.Subscribe(ObserverFuncs{
			Next:  s.OnNext,
			Error: fail,
			Completed: func() {
				s.OnCompleted()
				group.Dispose()
			},
		}))
		return &group
	})
}

// Collect subscribes to source and blocks until it terminates or ctx is
// done, returning every value received. On cancellation the subscription is
// disposed and ctx.Err() is returned with the values seen so far.
func Collect(ctx context.Context, source Observable) ([]any, error) {
	var (
		mu     sync.Mutex
		values []any
	)
	done := make(chan error, 1)
	sub := source.Subscribe(Guard(ObserverFuncs{
		Next: func(v any) {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		},
		Error:     func(err error) { done <- err },
		Completed: func() { done <- nil },
	}))
	defer sub.Dispose()

	select {
	case err := <-done:
		mu.Lock()
		defer mu.Unlock()
		return values, err
	case <-ctx.Done():
		mu.Lock()
		defer mu.Unlock()
		return values, ctx.Err()
	}
}
