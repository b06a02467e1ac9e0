// Package orchestrator loads everything one map view needs from the places
// API: My Place, the active competitor set, trade areas and home zipcodes of
// the selection, and the zipcode boundaries those home zipcodes reference.
// Every upstream call goes through the shared query cache.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/placemap/internal/query"
	"github.com/sells-group/placemap/internal/resilience"
	"github.com/sells-group/placemap/pkg/placesapi"
)

// ErrUnknownEntity is returned when an entity id cannot be found in the
// loaded data.
var ErrUnknownEntity = eris.New("orchestrator: unknown entity")

// Priority limits how many zipcode boundaries are requested at once.
type Priority string

const (
	// PriorityVisible loads the first 10 zipcodes.
	PriorityVisible Priority = "visible"
	// PriorityTop loads the first 20 zipcodes.
	PriorityTop Priority = "top"
	// PriorityAll loads every zipcode.
	PriorityAll Priority = "all"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityVisible || p == PriorityTop || p == PriorityAll
}

// limit returns the id cap of p; 0 means no cap.
func (p Priority) limit() int {
	switch p {
	case PriorityVisible:
		return 10
	case PriorityTop:
		return 20
	}
	return 0
}

// Config holds the orchestrator settings.
type Config struct {
	MyPlaceID       string
	ViewportLimit   int
	ZipcodePriority Priority
	// Fanout caps concurrent per-id fetches in one batch.
	Fanout int
}

// Policies is the cache and retry policy of every query.
type Policies struct {
	Place        query.Options
	Competitors  query.Options
	Industries   query.Options
	TradeAreas   query.Options
	HomeZipcodes query.Options
	Zipcodes     query.Options
}

// DefaultPolicies returns the production policies.
func DefaultPolicies() Policies {
	short := resilience.Policy{Retries: 2, BaseDelay: time.Second, MaxDelay: 10 * time.Second}
	return Policies{
		Place: query.Options{
			Name: "place", StaleTime: time.Hour, GCTime: 24 * time.Hour,
			Retry: resilience.Policy{Retries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second},
		},
		Competitors: query.Options{
			Name: "competitors", StaleTime: 15 * time.Minute, GCTime: 2 * time.Hour, Retry: short,
		},
		Industries: query.Options{
			Name: "industries", StaleTime: 24 * time.Hour, GCTime: 48 * time.Hour,
			Retry: resilience.Policy{Retries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second},
		},
		TradeAreas: query.Options{
			Name: "trade_areas", StaleTime: 30 * time.Minute, GCTime: 2 * time.Hour, Retry: short,
		},
		HomeZipcodes: query.Options{
			Name: "home_zipcodes", StaleTime: 30 * time.Minute, GCTime: 2 * time.Hour, Retry: short,
		},
		Zipcodes: query.Options{
			Name: "zipcodes", StaleTime: time.Hour, GCTime: 24 * time.Hour, Retry: short,
		},
	}
}

// withRetryLogging attaches a retry logger to every policy that has none.
func (p Policies) withRetryLogging() Policies {
	for _, o := range []*query.Options{&p.Place, &p.Competitors, &p.Industries, &p.TradeAreas, &p.HomeZipcodes, &p.Zipcodes} {
		if o.Retry.OnRetry == nil {
			o.Retry.OnRetry = resilience.RetryLogger("placesapi", o.Name)
		}
	}
	return p
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPolicies overrides the default query policies.
func WithPolicies(p Policies) Option {
	return func(o *Orchestrator) { o.policies = p }
}

// Orchestrator coordinates cached upstream fetches.
type Orchestrator struct {
	api      placesapi.Client
	cache    *query.Cache
	cfg      Config
	policies Policies

	mu       sync.Mutex
	failures map[string]error // last error per cache key, cleared on success
}

// New creates an Orchestrator over api and cache.
func New(api placesapi.Client, cache *query.Cache, cfg Config, opts ...Option) *Orchestrator {
	if cfg.ViewportLimit <= 0 {
		cfg.ViewportLimit = 100
	}
	if !cfg.ZipcodePriority.Valid() {
		cfg.ZipcodePriority = PriorityVisible
	}
	if cfg.Fanout <= 0 {
		cfg.Fanout = 6
	}
	o := &Orchestrator{
		api:      api,
		cache:    cache,
		cfg:      cfg,
		policies: DefaultPolicies(),
		failures: make(map[string]error),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.policies = o.policies.withRetryLogging()
	return o
}

// MyPlaceID returns the configured My Place id.
func (o *Orchestrator) MyPlaceID() string {
	return o.cfg.MyPlaceID
}

// fetch runs one cached query and remembers its last failure for Status.
// Errors caused by the caller giving up are not remembered.
func fetch[T any](ctx context.Context, o *Orchestrator, key string, opts query.Options, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := query.Fetch(ctx, o.cache, key, opts, fn)

	if err != nil && ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return v, err
	}

	o.mu.Lock()
	if err != nil {
		o.failures[key] = err
	} else {
		delete(o.failures, key)
	}
	o.mu.Unlock()
	return v, err
}

// failure returns the last remembered error for key.
func (o *Orchestrator) failure(key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failures[key]
}
