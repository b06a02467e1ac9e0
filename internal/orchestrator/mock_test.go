package orchestrator

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/placemap/internal/model"
	"github.com/sells-group/placemap/internal/query"
	"github.com/sells-group/placemap/internal/resilience"
	"github.com/sells-group/placemap/pkg/placesapi"
)

// --- places API mock ---

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Place(ctx context.Context, id string) (*model.Place, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Place), args.Error(1)
}

func (m *mockAPI) NearbyCompetitors(ctx context.Context, p placesapi.NearbyParams) ([]model.Competitor, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Competitor), args.Error(1)
}

func (m *mockAPI) AllCompetitors(ctx context.Context) ([]model.Competitor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Competitor), args.Error(1)
}

func (m *mockAPI) Industries(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockAPI) TradeAreas(ctx context.Context, placeID string) ([]model.TradeArea, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TradeArea), args.Error(1)
}

func (m *mockAPI) HomeZipcodes(ctx context.Context, placeID string) (*model.HomeZipcodes, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HomeZipcodes), args.Error(1)
}

func (m *mockAPI) ZipcodesBulk(ctx context.Context, ids []string) ([]model.Zipcode, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Zipcode), args.Error(1)
}

// --- helpers ---

const myPlaceID = "my-place"

func statusErr(code int) error {
	return &placesapi.StatusError{StatusCode: code, Method: http.MethodGet, Path: "/x", Body: strconv.Itoa(code)}
}

// fastPolicies keeps the production retry counts with millisecond backoff.
func fastPolicies() Policies {
	p := DefaultPolicies()
	for _, o := range []*query.Options{&p.Place, &p.Competitors, &p.Industries, &p.TradeAreas, &p.HomeZipcodes, &p.Zipcodes} {
		o.Retry = resilience.Policy{Retries: o.Retry.Retries, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	}
	return p
}

func newTestOrchestrator(api *mockAPI) *Orchestrator {
	return New(api, query.NewCache(100), Config{MyPlaceID: myPlaceID}, WithPolicies(fastPolicies()))
}

func testPlace() *model.Place {
	return &model.Place{ID: myPlaceID, Name: "My Place", Latitude: 38.9, Longitude: -104.8, HasTradeArea: true, HasHomeZipcodes: true}
}

func tradeAreas(owner string) []model.TradeArea {
	out := make([]model.TradeArea, 0, len(model.Tiers))
	for _, tier := range model.Tiers {
		out = append(out, model.TradeArea{OwnerID: owner, Tier: tier, Polygon: model.Polygon{Type: "Polygon"}})
	}
	return out
}
