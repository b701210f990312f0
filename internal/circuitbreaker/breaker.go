// Package circuitbreaker stops calling an upstream that keeps failing.
// Circuits are keyed by upstream name so the AI detector and the
// plagiarism checker trip independently.
package circuitbreaker

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// State is the position of one circuit.
type State int

const (
	StateClosed   State = iota // calls flow through
	StateOpen                  // calls fail fast until the cooldown ends
	StateHalfOpen              // one probe call is in flight
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var (
	transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "circuitbreaker",
		Name:      "state_transitions_total",
		Help:      "Circuit breaker state transitions by upstream, from-state, and to-state.",
	}, []string{"key", "from_state", "to_state"})

	openGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "storefront",
		Subsystem: "circuitbreaker",
		Name:      "open",
		Help:      "1 while the circuit for an upstream is not closed.",
	}, []string{"key"})
)

func init() {
	prometheus.MustRegister(transitionsTotal, openGauge)
}

// ErrOpen is returned by Execute while a circuit refuses calls.
var ErrOpen = errors.New("circuitbreaker: circuit open")

type circuit struct {
	state    State
	failures int
	openedAt time.Time
}

// Breaker holds one circuit per key. A circuit opens after threshold
// consecutive failures and lets a single probe through once cooldown has
// passed; the probe's outcome closes or reopens it.
type Breaker struct {
	mu        sync.Mutex
	circuits  map[string]*circuit
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// WithLogger logs every state change.
func WithLogger(l *slog.Logger) Option {
	return func(b *Breaker) { b.logger = l }
}

// New creates a Breaker. Non-positive arguments default to 5 failures and
// a 30s cooldown.
func New(threshold int, cooldown time.Duration, opts ...Option) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	b := &Breaker{
		circuits:  make(map[string]*circuit),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Breaker) get(key string) *circuit {
	c, ok := b.circuits[key]
	if !ok {
		c = &circuit{}
		b.circuits[key] = c
	}
	return c
}

// Allow reports whether a call to key may go ahead. An open circuit whose
// cooldown has passed becomes half-open and admits exactly this call.
func (b *Breaker) Allow(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[key]
	if !ok {
		return true
	}
	switch c.state {
	case StateOpen:
		if b.now().Sub(c.openedAt) < b.cooldown {
			return false
		}
		b.move(key, c, StateHalfOpen)
		return true
	case StateHalfOpen:
		return false
	default:
		return true
	}
}

// RecordSuccess resets key's failure count and closes a probing circuit.
func (b *Breaker) RecordSuccess(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[key]
	if !ok {
		return
	}
	c.failures = 0
	if c.state == StateHalfOpen {
		b.move(key, c, StateClosed)
	}
}

// RecordFailure counts a failure against key. A failed probe reopens the
// circuit at once.
func (b *Breaker) RecordFailure(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.get(key)
	c.failures++
	switch {
	case c.state == StateHalfOpen,
		c.state == StateClosed && c.failures >= b.threshold:
		c.openedAt = b.now()
		b.move(key, c, StateOpen)
	}
}

// Execute runs fn under key's circuit. Errors for which ignore returns
// true are the caller's fault, e.g. a rejected input, and count as
// successes.
func (b *Breaker) Execute(key string, fn func() error, ignore func(error) bool) error {
	if !b.Allow(key) {
		return ErrOpen
	}
	err := fn()
	if err == nil || (ignore != nil && ignore(err)) {
		b.RecordSuccess(key)
	} else {
		b.RecordFailure(key)
	}
	return err
}

// State returns key's state. Keys never seen are closed.
func (b *Breaker) State(key string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.circuits[key]; ok {
		return c.state
	}
	return StateClosed
}

// Tripped lists the keys whose circuit is not closed, sorted.
func (b *Breaker) Tripped() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k, c := range b.circuits {
		if c.state != StateClosed {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// move changes c's state. Callers hold b.mu.
func (b *Breaker) move(key string, c *circuit, to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	transitionsTotal.WithLabelValues(key, from.String(), to.String()).Inc()
	if to == StateClosed {
		openGauge.WithLabelValues(key).Set(0)
	} else {
		openGauge.WithLabelValues(key).Set(1)
	}
	if b.logger != nil {
		b.logger.Warn("circuit state changed", "upstream", key, "from_state", from.String(), "to_state", to.String())
	}
}
