package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/placemap/internal/dashboard"
	"github.com/sells-group/placemap/internal/model"
	"github.com/sells-group/placemap/internal/resilience"
)

// Request is everything Resolve needs from a dashboard state.
type Request struct {
	Competitors CompetitorQuery

	// TradeAreaIDs are the selected ids showing trade areas, in selection
	// order.
	TradeAreaIDs []string

	// HomeZipcodeIDs are the selected ids showing home zipcodes. The
	// current slot holder comes first.
	HomeZipcodeIDs []string
}

// RequestFor derives the Request of a dashboard state.
func RequestFor(s dashboard.State) Request {
	req := Request{
		Competitors: CompetitorQuery{
			Mode:       s.CompetitorMode,
			Radius:     s.PlaceAnalysis.Radius,
			Industries: slices.Clone(s.PlaceAnalysis.Industries),
		},
	}

	holder := s.Visibility.HomeZipcodes
	if holder != "" {
		if sp, ok := s.Selection(holder); ok && sp.ShowHomeZipcodes {
			req.HomeZipcodeIDs = append(req.HomeZipcodeIDs, holder)
		}
	}
	for _, sp := range s.Selected {
		if sp.ShowTradeArea {
			req.TradeAreaIDs = append(req.TradeAreaIDs, sp.Entity.ID)
		}
		if sp.ShowHomeZipcodes && sp.Entity.ID != holder {
			req.HomeZipcodeIDs = append(req.HomeZipcodeIDs, sp.Entity.ID)
		}
	}
	return req
}

// Snapshot is the data behind one rendered view.
type Snapshot struct {
	Place        *model.Place         `json:"place"`
	Competitors  []model.Competitor   `json:"competitors"`
	TradeAreas   []model.TradeArea    `json:"tradeAreas"`
	HomeZipcodes []model.HomeZipcodes `json:"homeZipcodes"`
	Zipcodes     []model.Zipcode      `json:"zipcodes"`

	// NoTradeAreaIDs lists selected ids the API has no trade areas for.
	NoTradeAreaIDs []string `json:"noTradeAreaIds,omitempty"`

	// Error joins every failure except not-found, "; "-separated.
	Error string `json:"error,omitempty"`

	// Notification is the informational message for NoTradeAreaIDs.
	Notification string `json:"notification,omitempty"`
}

// Status is the non-blocking loading and error state of a request.
type Status struct {
	Loading bool   `json:"isLoading"`
	Error   string `json:"error,omitempty"`
}

// Resolve loads every dataset of req. Place, competitors, trade areas and
// home zipcodes load concurrently; zipcode boundaries load once the home
// zipcodes they reference are known. A failing source leaves its part of
// the snapshot empty and is reported in Snapshot.Error. The returned error
// is non-nil only when ctx ended first.
func (o *Orchestrator) Resolve(ctx context.Context, req Request) (*Snapshot, error) {
	var (
		snap                                    Snapshot
		placeErr, compErr, taErr, hzErr, zipErr error
		place                                   *model.Place
		comps                                   []model.Competitor
		tradeAreas                              TradeAreaResult
		homeZipcodes                            []model.HomeZipcodes
		zipcodes                                []model.Zipcode
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		place, placeErr = o.FetchPlace(ctx)
		return nil
	})
	g.Go(func() error {
		comps, compErr = o.FetchCompetitors(ctx, req.Competitors)
		return nil
	})
	g.Go(func() error {
		tradeAreas, taErr = o.FetchTradeAreas(ctx, req.TradeAreaIDs)
		return nil
	})
	g.Go(func() error {
		homeZipcodes, hzErr = o.FetchHomeZipcodes(ctx, req.HomeZipcodeIDs)
		var ids []string
		for _, hz := range homeZipcodes {
			ids = append(ids, hz.ZipcodeIDs()...)
		}
		zipcodes, zipErr = o.FetchZipcodesBulk(ctx, ids, o.cfg.ZipcodePriority)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap.Place = place
	snap.Competitors = nonNil(comps)
	snap.TradeAreas = nonNil(tradeAreas.Areas)
	snap.HomeZipcodes = nonNil(homeZipcodes)
	snap.Zipcodes = nonNil(zipcodes)
	snap.NoTradeAreaIDs = tradeAreas.Missing
	snap.Notification = MissingTradeAreaNotice(len(tradeAreas.Missing))
	snap.Error = JoinErrors(placeErr, compErr, taErr, hzErr, zipErr)

	if snap.Error != "" {
		zap.L().Warn("orchestrator: resolved with errors", zap.String("error", snap.Error))
	}
	return &snap, nil
}

// Status reports whether req is still loading and the last known errors of
// its queries. It never starts a fetch. Loading is true until both the
// place and the active competitor dataset are cached or have failed, and
// while a retry of either runs with nothing cached.
func (o *Orchestrator) Status(req Request) Status {
	pk := placeKey(o.cfg.MyPlaceID)
	ck := o.competitorKey(req.Competitors)

	loading := o.pending(pk) || o.pending(ck)

	errs := []error{o.failure(pk), o.failure(ck)}
	for _, id := range req.TradeAreaIDs {
		errs = append(errs, o.failure(tradeAreaKey(id)))
	}
	for _, id := range req.HomeZipcodeIDs {
		errs = append(errs, o.failure(homeZipcodesKey(id)))
	}
	return Status{Loading: loading, Error: JoinErrors(errs...)}
}

func (o *Orchestrator) pending(key string) bool {
	if o.cache.Has(key) {
		return false
	}
	return o.cache.InFlight(key) || o.failure(key) == nil
}

// JoinErrors joins the messages of errs in order, skipping nils and
// not-found errors. Joined errors are flattened.
func JoinErrors(errs ...error) string {
	var msgs []string
	var walk func(err error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if j, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range j.Unwrap() {
				walk(e)
			}
			return
		}
		if resilience.IsNotFound(err) {
			return
		}
		msgs = append(msgs, err.Error())
	}
	for _, err := range errs {
		walk(err)
	}
	return strings.Join(msgs, "; ")
}

// MissingTradeAreaNotice is the message shown when n selected locations
// have no trade-area data. It is empty for n == 0.
func MissingTradeAreaNotice(n int) string {
	switch {
	case n <= 0:
		return ""
	case n == 1:
		return "Trade area data not available for this location"
	}
	return fmt.Sprintf("Trade area data not available for %d selected locations", n)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
