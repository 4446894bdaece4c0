package stream

import (
	"time"
)

// Empty completes immediately.
func Empty() Observable {
	return Create(func(o Observer) Disposable {
		o.OnCompleted()
		return Nop
	})
}

// Never emits nothing and never terminates.
func Never() Observable {
	return ObservableFunc(func(Observer) Disposable { return Nop })
}

// Throw terminates immediately with err.
func Throw(err error) Observable {
	return Create(func(o Observer) Disposable {
		o.OnError(err)
		return Nop
	})
}

// Return emits value and completes.
func Return(value any) Observable {
	return FromSlice([]any{value})
}

// FromSlice emits each element of values in order and completes.
func FromSlice(values []any) Observable {
	return Create(func(o Observer) Disposable {
		for _, v := range values {
			o.OnNext(v)
		}
		o.OnCompleted()
		return Nop
	})
}

// Range emits count consecutive int64 values starting at start.
func Range(start, count int64) Observable {
	return Create(func(o Observer) Disposable {
		for i := int64(0); i < count; i++ {
			o.OnNext(start + i)
		}
		o.OnCompleted()
		return Nop
	})
}

// Defer calls factory for every subscription and subscribes to the result.
// A factory error terminates the subscription.
func Defer(factory func() (Observable, error)) Observable {
	return Create(func(o Observer) Disposable {
		src, err := factory()
		if err != nil {
			o.OnError(err)
			return Nop
		}
		return src.Subscribe(o)
	})
}

// Interval emits 0, 1, 2, ... every period on a background goroutine until
// the subscription is disposed.
func Interval(period time.Duration) Observable {
	return Create(func(o Observer) Disposable {
		ticker := time.NewTicker(period)
		stop := make(chan struct{})
		go func() {
			defer ticker.Stop()
			var n int64
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					o.OnNext(n)
					n++
				}
			}
		}()
		return Once(func() { close(stop) })
	})
}
