package orchestrator

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/placemap/internal/dashboard"
	"github.com/sells-group/placemap/internal/model"
	"github.com/sells-group/placemap/internal/resilience"
	"github.com/sells-group/placemap/pkg/placesapi"
)

// CompetitorQuery selects the competitor dataset.
type CompetitorQuery struct {
	Mode       dashboard.CompetitorMode
	Radius     float64
	Industries []string
	// Limit caps viewport results; zero uses the configured default.
	Limit int
}

// TradeAreaResult is the outcome of a trade-area batch. Missing lists the
// ids the API has no trade areas for, in request order.
type TradeAreaResult struct {
	Areas   []model.TradeArea
	Missing []string
}

func placeKey(id string) string        { return "place:" + id }
func tradeAreaKey(id string) string    { return "trade-areas:" + id }
func homeZipcodesKey(id string) string { return "home-zipcodes:" + id }

const (
	industriesKey     = "industries"
	allCompetitorsKey = "competitors:all"
)

func (o *Orchestrator) competitorKey(q CompetitorQuery) string {
	if q.Mode == dashboard.ModeAll {
		return allCompetitorsKey
	}
	inds := slices.Clone(q.Industries)
	slices.Sort(inds)
	return "competitors:viewport:" + strconv.FormatFloat(q.Radius, 'f', -1, 64) +
		":" + strings.Join(inds, ",") + ":" + strconv.Itoa(o.limit(q))
}

func zipcodesKey(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return "zipcodes:" + strings.Join(sorted, ",")
}

func (o *Orchestrator) limit(q CompetitorQuery) int {
	if q.Limit > 0 {
		return q.Limit
	}
	return o.cfg.ViewportLimit
}

// FetchPlace loads My Place.
func (o *Orchestrator) FetchPlace(ctx context.Context) (*model.Place, error) {
	id := o.cfg.MyPlaceID
	return fetch(ctx, o, placeKey(id), o.policies.Place, func(ctx context.Context) (*model.Place, error) {
		return o.api.Place(ctx, id)
	})
}

// FetchCompetitors loads the competitor dataset selected by q. Viewport and
// all-competitor results are cached under separate keys.
func (o *Orchestrator) FetchCompetitors(ctx context.Context, q CompetitorQuery) ([]model.Competitor, error) {
	if q.Mode == dashboard.ModeAll {
		return fetch(ctx, o, allCompetitorsKey, o.policies.Competitors, o.api.AllCompetitors)
	}
	params := placesapi.NearbyParams{
		Radius:     q.Radius,
		Industries: slices.Clone(q.Industries),
		Limit:      o.limit(q),
	}
	return fetch(ctx, o, o.competitorKey(q), o.policies.Competitors, func(ctx context.Context) ([]model.Competitor, error) {
		return o.api.NearbyCompetitors(ctx, params)
	})
}

// FetchIndustries loads the industry names for the filter.
func (o *Orchestrator) FetchIndustries(ctx context.Context) ([]string, error) {
	return fetch(ctx, o, industriesKey, o.policies.Industries, o.api.Industries)
}

// FetchTradeAreas loads the trade areas of every id concurrently. An id the
// API answers with 404 yields no areas and is recorded in Missing; any other
// failure is returned joined with the rest. Areas keep the order of ids.
func (o *Orchestrator) FetchTradeAreas(ctx context.Context, ids []string) (TradeAreaResult, error) {
	results := make([][]model.TradeArea, len(ids))
	missing := make([]bool, len(ids))
	errs := make([]error, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Fanout)
	for i, id := range ids {
		g.Go(func() error {
			areas, err := fetch(ctx, o, tradeAreaKey(id), o.policies.TradeAreas, func(ctx context.Context) ([]model.TradeArea, error) {
				return o.api.TradeAreas(ctx, id)
			})
			switch {
			case err == nil:
				results[i] = areas
			case resilience.IsNotFound(err):
				missing[i] = true
			default:
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	var res TradeAreaResult
	for i, id := range ids {
		res.Areas = append(res.Areas, results[i]...)
		if missing[i] {
			res.Missing = append(res.Missing, id)
		}
	}
	return res, errors.Join(errs...)
}

// FetchHomeZipcodes loads the home-zipcode distribution of every id
// concurrently. Failures, 404 included, are returned joined; the
// distributions that did load are returned in the order of ids.
func (o *Orchestrator) FetchHomeZipcodes(ctx context.Context, ids []string) ([]model.HomeZipcodes, error) {
	results := make([]*model.HomeZipcodes, len(ids))
	errs := make([]error, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Fanout)
	for i, id := range ids {
		g.Go(func() error {
			results[i], errs[i] = fetch(ctx, o, homeZipcodesKey(id), o.policies.HomeZipcodes, func(ctx context.Context) (*model.HomeZipcodes, error) {
				return o.api.HomeZipcodes(ctx, id)
			})
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.HomeZipcodes, 0, len(ids))
	for _, hz := range results {
		if hz != nil {
			out = append(out, *hz)
		}
	}
	return out, errors.Join(errs...)
}

// ZipcodeIDs deduplicates ids keeping first occurrence and applies the
// priority cap.
func ZipcodeIDs(ids []string, p Priority) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if n := p.limit(); n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// FetchZipcodesBulk loads the boundaries of ids in one request after
// deduplication and the priority cap. The cache key does not depend on the
// order of ids.
func (o *Orchestrator) FetchZipcodesBulk(ctx context.Context, ids []string, p Priority) ([]model.Zipcode, error) {
	want := ZipcodeIDs(ids, p)
	if len(want) == 0 {
		return []model.Zipcode{}, nil
	}
	return fetch(ctx, o, zipcodesKey(want), o.policies.Zipcodes, func(ctx context.Context) ([]model.Zipcode, error) {
		return o.api.ZipcodesBulk(ctx, want)
	})
}

// ResolveEntity builds the Entity for a client-supplied reference. Places
// resolve against My Place; competitors against the active competitor
// dataset of q.
func (o *Orchestrator) ResolveEntity(ctx context.Context, q CompetitorQuery, kind model.EntityKind, id string) (model.Entity, error) {
	switch kind {
	case model.KindPlace:
		if id != o.cfg.MyPlaceID {
			return model.Entity{}, eris.Wrapf(ErrUnknownEntity, "place %s", id)
		}
		p, err := o.FetchPlace(ctx)
		if err != nil {
			return model.Entity{}, err
		}
		return model.PlaceEntity(*p), nil
	case model.KindCompetitor:
		comps, err := o.FetchCompetitors(ctx, q)
		if err != nil {
			return model.Entity{}, err
		}
		for _, c := range comps {
			if c.PID == id {
				return model.CompetitorEntity(c), nil
			}
		}
		return model.Entity{}, eris.Wrapf(ErrUnknownEntity, "competitor %s", id)
	}
	return model.Entity{}, eris.Wrapf(ErrUnknownEntity, "kind %q", kind)
}
