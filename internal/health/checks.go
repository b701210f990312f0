package health

import (
	"context"
	"time"
)

// PingFunc reports liveness with one round trip, e.g. (*sql.DB).PingContext.
type PingFunc func(ctx context.Context) error

// Ping builds a Checker that fails when ping errors or exceeds timeout.
func Ping(name string, timeout time.Duration, ping PingFunc) Checker {
	return func(ctx context.Context) Status {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := ping(ctx); err != nil {
			return Status{Name: name, Healthy: false, Detail: err.Error()}
		}
		return Status{Name: name, Healthy: true}
	}
}

// Static builds a Checker from in-process state, e.g. the resolved
// reseller config or the detector's circuit breaker. detail is reported
// either way.
func Static(name string, healthy func() (bool, string)) Checker {
	return func(context.Context) Status {
		ok, detail := healthy()
		return Status{Name: name, Healthy: ok, Detail: detail}
	}
}
