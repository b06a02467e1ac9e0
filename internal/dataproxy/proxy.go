// Package dataproxy serves pre-hosted static JSON datasets through a fixed
// set of slugs, caching each body for an hour.
package dataproxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/monitoring"
	"github.com/sells-group/placemap/internal/query"
	"github.com/sells-group/placemap/internal/resilience"
)

// Slugs is the fixed set of recognized dataset keys.
var Slugs = []string{"my_place", "competitors", "trade_areas", "home_zipcodes", "zipcodes"}

// CacheControl is sent with every successful response.
const CacheControl = "public, max-age=3600, s-maxage=3600"

// ErrNotConfigured is returned for a known slug without a URL.
var ErrNotConfigured = eris.New("dataproxy: blob URL not configured")

// ErrUnknownSlug is returned for a slug outside Slugs.
var ErrUnknownSlug = eris.New("dataproxy: invalid data slug")

// Proxy fetches blob URLs by slug.
type Proxy struct {
	urls    map[string]string
	client  *http.Client
	cache   *query.Cache
	opts    query.Options
	metrics *monitoring.Metrics
}

// New creates a Proxy. urls maps slugs to blob URLs; unknown keys are
// ignored and empty values count as unconfigured. cache may be nil.
func New(urls map[string]string, cache *query.Cache, metrics *monitoring.Metrics) *Proxy {
	known := make(map[string]string, len(Slugs))
	for _, s := range Slugs {
		known[s] = urls[s]
	}
	return &Proxy{
		urls:   known,
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  cache,
		opts: query.Options{
			Name:      "blob",
			StaleTime: time.Hour,
			GCTime:    time.Hour,
			Retry:     resilience.NoRetry,
		},
		metrics: metrics,
	}
}

// Fetch returns the JSON body behind slug.
func (p *Proxy) Fetch(ctx context.Context, slug string) ([]byte, error) {
	blobURL, ok := p.urls[slug]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownSlug, "slug %q", slug)
	}
	if blobURL == "" {
		return nil, eris.Wrapf(ErrNotConfigured, "slug %q", slug)
	}

	load := func(ctx context.Context) ([]byte, error) { return p.fetch(ctx, slug, blobURL) }
	if p.cache == nil {
		return load(ctx)
	}
	return query.Fetch(ctx, p.cache, "blob:"+slug, p.opts, load)
}

func (p *Proxy) fetch(ctx context.Context, slug, blobURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, blobURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "dataproxy: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "dataproxy: fetch %s", slug)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("Failed to fetch %s: %d", slug, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "dataproxy: read %s", slug)
	}
	if !json.Valid(data) {
		return nil, eris.Errorf("Failed to parse %s: invalid JSON", slug)
	}

	zap.L().Debug("dataproxy: fetched blob", zap.String("slug", slug), zap.Int("bytes", len(data)))
	return data, nil
}

// ServeHTTP handles GET /api/data/{slug}.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	data, err := p.Fetch(r.Context(), slug)
	switch {
	case err == nil:
		p.observe(slug, http.StatusOK)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", CacheControl)
		_, _ = w.Write(data)

	case eris.Is(err, ErrUnknownSlug):
		p.observe("unknown", http.StatusBadRequest)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid data slug"})

	case eris.Is(err, ErrNotConfigured):
		p.observe(slug, http.StatusInternalServerError)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Blob URL not configured"})

	default:
		zap.L().Error("dataproxy: fetch failed", zap.String("slug", slug), zap.Error(err))
		p.observe(slug, http.StatusInternalServerError)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to fetch data",
			"message": err.Error(),
		})
	}
}

func (p *Proxy) observe(slug string, status int) {
	if p.metrics == nil {
		return
	}
	p.metrics.ProxyRequests.WithLabelValues(slug, fmt.Sprintf("%dxx", status/100)).Inc()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
