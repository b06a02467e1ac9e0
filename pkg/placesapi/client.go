// Package placesapi is a client for the places REST API: My Place, nearby
// competitors, trade areas, home zipcodes and zipcode boundaries.
package placesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/placemap/internal/model"
)

// DefaultBaseURL is the hosted API used when no base URL is configured.
const DefaultBaseURL = "https://hype-api.vercel.app/api/v1"

// Client fetches dashboard data from the places API. Every payload is
// transformed into internal/model types before it is returned.
type Client interface {
	// Place returns the place with the given id.
	Place(ctx context.Context, id string) (*model.Place, error)

	// NearbyCompetitors returns competitors around My Place filtered
	// server-side by radius and industry.
	NearbyCompetitors(ctx context.Context, p NearbyParams) ([]model.Competitor, error)

	// AllCompetitors returns the whole competitor set.
	AllCompetitors(ctx context.Context) ([]model.Competitor, error)

	// Industries returns the competitor industry names.
	Industries(ctx context.Context) ([]string, error)

	// TradeAreas returns the 30/50/70% trade areas of one place.
	TradeAreas(ctx context.Context, placeID string) ([]model.TradeArea, error)

	// HomeZipcodes returns the customer home-zipcode distribution of one place.
	HomeZipcodes(ctx context.Context, placeID string) (*model.HomeZipcodes, error)

	// ZipcodesBulk returns the boundaries of the given zipcodes.
	ZipcodesBulk(ctx context.Context, ids []string) ([]model.Zipcode, error)
}

// NearbyParams filters NearbyCompetitors. Zero Limit means no cap.
type NearbyParams struct {
	Radius     float64
	Industries []string
	Limit      int
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a places API Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(20, 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) Place(ctx context.Context, id string) (*model.Place, error) {
	var p apiPlace
	if err := c.do(ctx, http.MethodGet, "/places/"+url.PathEscape(id), nil, nil, &p); err != nil {
		return nil, eris.Wrapf(err, "placesapi: place %s", id)
	}
	place := p.toModel()
	return &place, nil
}

func (c *client) NearbyCompetitors(ctx context.Context, p NearbyParams) ([]model.Competitor, error) {
	q := url.Values{}
	q.Set("radius", strconv.FormatFloat(p.Radius, 'f', -1, 64))
	if len(p.Industries) > 0 {
		q.Set("industries", strings.Join(p.Industries, ","))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}

	var raw []apiCompetitor
	if err := c.do(ctx, http.MethodGet, "/competitors/near", q, nil, &raw); err != nil {
		return nil, eris.Wrap(err, "placesapi: nearby competitors")
	}
	return competitorsToModel(raw), nil
}

func (c *client) AllCompetitors(ctx context.Context) ([]model.Competitor, error) {
	var list competitorList
	if err := c.do(ctx, http.MethodGet, "/competitors", nil, nil, &list); err != nil {
		return nil, eris.Wrap(err, "placesapi: all competitors")
	}
	return competitorsToModel(list), nil
}

func (c *client) Industries(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/competitors/industries", nil, nil, &out); err != nil {
		return nil, eris.Wrap(err, "placesapi: industries")
	}
	return out, nil
}

func (c *client) TradeAreas(ctx context.Context, placeID string) ([]model.TradeArea, error) {
	var raw []apiTradeArea
	if err := c.do(ctx, http.MethodGet, "/trade-areas/"+url.PathEscape(placeID), nil, nil, &raw); err != nil {
		return nil, eris.Wrapf(err, "placesapi: trade areas %s", placeID)
	}

	out := make([]model.TradeArea, 0, len(raw))
	for _, ta := range raw {
		poly, err := decodePolygon(ta.Polygon)
		if err != nil {
			return nil, permanent(eris.Wrapf(err, "placesapi: trade area %s/%d", placeID, ta.Percentage))
		}
		owner := ta.PlaceID
		if owner == "" {
			owner = placeID
		}
		out = append(out, model.TradeArea{OwnerID: owner, Polygon: poly, Tier: ta.Percentage})
	}
	return out, nil
}

func (c *client) HomeZipcodes(ctx context.Context, placeID string) (*model.HomeZipcodes, error) {
	var raw []apiHomeZipcode
	if err := c.do(ctx, http.MethodGet, "/home-zipcodes/"+url.PathEscape(placeID), nil, nil, &raw); err != nil {
		return nil, eris.Wrapf(err, "placesapi: home zipcodes %s", placeID)
	}

	hz := &model.HomeZipcodes{OwnerID: placeID, Locations: make([]model.ZipcodeShare, 0, len(raw))}
	for _, r := range raw {
		hz.Locations = append(hz.Locations, model.ZipcodeShare{Zipcode: r.Zipcode, Percentage: string(r.Percentage)})
	}
	return hz, nil
}

func (c *client) ZipcodesBulk(ctx context.Context, ids []string) ([]model.Zipcode, error) {
	if len(ids) == 0 {
		return []model.Zipcode{}, nil
	}

	body := struct {
		Zipcodes []string `json:"zipcodes"`
	}{Zipcodes: ids}

	var raw []apiZipcode
	if err := c.do(ctx, http.MethodPost, "/zipcodes/bulk", nil, body, &raw); err != nil {
		return nil, eris.Wrapf(err, "placesapi: zipcodes bulk (%d ids)", len(ids))
	}

	out := make([]model.Zipcode, 0, len(raw))
	for _, z := range raw {
		poly, err := decodePolygon(z.Polygon)
		if err != nil {
			return nil, permanent(eris.Wrapf(err, "placesapi: zipcode %s", z.ZipcodeID))
		}
		out = append(out, model.Zipcode{ID: z.ZipcodeID, Polygon: poly})
	}
	return out, nil
}

// do sends one request and decodes the JSON response into out. Non-2xx
// responses return a *StatusError.
func (c *client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit")
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return eris.Wrap(err, "encode request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return eris.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Method: method, Path: path, Body: truncate(string(data), 512)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return permanent(eris.Wrap(err, "decode response"))
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
