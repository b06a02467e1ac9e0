package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placemap/internal/dashboard"
	"github.com/sells-group/placemap/internal/model"
	"github.com/sells-group/placemap/internal/query"
	"github.com/sells-group/placemap/pkg/placesapi"
)

func TestFetchPlace_Cached(t *testing.T) {
	api := new(mockAPI)
	api.On("Place", mock.Anything, myPlaceID).Return(testPlace(), nil).Once()
	o := newTestOrchestrator(api)

	for range 3 {
		p, err := o.FetchPlace(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "My Place", p.Name)
	}
	api.AssertExpectations(t)
}

func TestFetchPlace_RetriesServerErrors(t *testing.T) {
	api := new(mockAPI)
	api.On("Place", mock.Anything, myPlaceID).Return(nil, statusErr(503)).Times(4)
	o := newTestOrchestrator(api)

	_, err := o.FetchPlace(context.Background())
	require.Error(t, err)
	api.AssertNumberOfCalls(t, "Place", 4)
}

func TestFetchPlace_ClientErrorNotRetried(t *testing.T) {
	api := new(mockAPI)
	api.On("Place", mock.Anything, myPlaceID).Return(nil, statusErr(404)).Once()
	o := newTestOrchestrator(api)

	_, err := o.FetchPlace(context.Background())
	require.Error(t, err)
	api.AssertNumberOfCalls(t, "Place", 1)
}

func TestFetchCompetitors_ModesCachedSeparately(t *testing.T) {
	api := new(mockAPI)
	nearby := []model.Competitor{{PID: "c1"}}
	all := []model.Competitor{{PID: "c1"}, {PID: "c2"}}

	api.On("NearbyCompetitors", mock.Anything, mock.MatchedBy(func(p placesapi.NearbyParams) bool {
		return p.Radius == 10 && p.Limit == 100 && len(p.Industries) == 2
	})).Return(nearby, nil).Once()
	api.On("AllCompetitors", mock.Anything).Return(all, nil).Once()
	o := newTestOrchestrator(api)
	ctx := context.Background()

	got, err := o.FetchCompetitors(ctx, CompetitorQuery{Mode: dashboard.ModeViewport, Radius: 10, Industries: []string{"b", "a"}})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = o.FetchCompetitors(ctx, CompetitorQuery{Mode: dashboard.ModeAll})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Same filter in another order hits the viewport entry.
	got, err = o.FetchCompetitors(ctx, CompetitorQuery{Mode: dashboard.ModeViewport, Radius: 10, Industries: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	api.AssertExpectations(t)
}

func TestCompetitorKey(t *testing.T) {
	o := newTestOrchestrator(new(mockAPI))

	assert.Equal(t, "competitors:all", o.competitorKey(CompetitorQuery{Mode: dashboard.ModeAll, Radius: 3}))
	assert.Equal(t, "competitors:viewport:2.5:a,b:100",
		o.competitorKey(CompetitorQuery{Mode: dashboard.ModeViewport, Radius: 2.5, Industries: []string{"b", "a"}}))
	assert.Equal(t, "competitors:viewport:10::25",
		o.competitorKey(CompetitorQuery{Mode: dashboard.ModeViewport, Radius: 10, Limit: 25}))
}

func TestFetchIndustries(t *testing.T) {
	api := new(mockAPI)
	api.On("Industries", mock.Anything).Return([]string{"Barber Shops", "Coffee"}, nil).Once()
	o := newTestOrchestrator(api)

	got, err := o.FetchIndustries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Barber Shops", "Coffee"}, got)

	_, err = o.FetchIndustries(context.Background())
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestFetchTradeAreas_NotFoundAndFailures(t *testing.T) {
	api := new(mockAPI)
	api.On("TradeAreas", mock.Anything, "a").Return(tradeAreas("a"), nil).Once()
	api.On("TradeAreas", mock.Anything, "b").Return(nil, statusErr(404)).Once()
	api.On("TradeAreas", mock.Anything, "c").Return(nil, statusErr(500)).Times(3)
	api.On("TradeAreas", mock.Anything, "d").Return(tradeAreas("d"), nil).Once()
	o := newTestOrchestrator(api)

	res, err := o.FetchTradeAreas(context.Background(), []string{"a", "b", "c", "d"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, []string{"b"}, res.Missing)

	require.Len(t, res.Areas, 6)
	assert.Equal(t, "a", res.Areas[0].OwnerID)
	assert.Equal(t, "d", res.Areas[5].OwnerID)

	api.AssertExpectations(t)
}

func TestFetchTradeAreas_Empty(t *testing.T) {
	o := newTestOrchestrator(new(mockAPI))

	res, err := o.FetchTradeAreas(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Areas)
	assert.Empty(t, res.Missing)
}

func TestFetchHomeZipcodes_KeepsOrderAndReportsFailures(t *testing.T) {
	api := new(mockAPI)
	api.On("HomeZipcodes", mock.Anything, "a").Return(&model.HomeZipcodes{OwnerID: "a"}, nil).Once()
	api.On("HomeZipcodes", mock.Anything, "b").Return(nil, statusErr(404)).Once()
	api.On("HomeZipcodes", mock.Anything, "c").Return(&model.HomeZipcodes{OwnerID: "c"}, nil).Once()
	o := newTestOrchestrator(api)

	got, err := o.FetchHomeZipcodes(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].OwnerID)
	assert.Equal(t, "c", got[1].OwnerID)
}

func TestZipcodeIDs(t *testing.T) {
	ids := make([]string, 0, 30)
	for i := range 25 {
		ids = append(ids, fmt.Sprintf("%05d", 80900+i))
	}
	ids = append(ids, "80900", "", "80901")

	tests := []struct {
		p    Priority
		want int
	}{
		{PriorityVisible, 10},
		{PriorityTop, 20},
		{PriorityAll, 25},
	}
	for _, tt := range tests {
		t.Run(string(tt.p), func(t *testing.T) {
			got := ZipcodeIDs(ids, tt.p)
			assert.Len(t, got, tt.want)
			assert.Equal(t, "80900", got[0])
		})
	}
}

func TestFetchZipcodesBulk_OrderInsensitiveKey(t *testing.T) {
	api := new(mockAPI)
	api.On("ZipcodesBulk", mock.Anything, []string{"80903", "80904", "80905"}).
		Return([]model.Zipcode{{ID: "80903"}, {ID: "80904"}, {ID: "80905"}}, nil).Once()
	o := newTestOrchestrator(api)
	ctx := context.Background()

	got, err := o.FetchZipcodesBulk(ctx, []string{"80903", "80904", "80903", "80905"}, PriorityAll)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = o.FetchZipcodesBulk(ctx, []string{"80905", "80903", "80904"}, PriorityAll)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	api.AssertExpectations(t)
}

func TestFetchZipcodesBulk_NoIDsNoRequest(t *testing.T) {
	api := new(mockAPI)
	o := newTestOrchestrator(api)

	got, err := o.FetchZipcodesBulk(context.Background(), nil, PriorityVisible)
	require.NoError(t, err)
	assert.Empty(t, got)
	api.AssertNotCalled(t, "ZipcodesBulk", mock.Anything, mock.Anything)
}

func TestRequestFor(t *testing.T) {
	s := dashboard.New(myPlaceID)
	s = dashboard.ToggleSelection(s, model.CompetitorEntity(model.Competitor{PID: "c1"}))
	s = dashboard.ToggleSelection(s, model.CompetitorEntity(model.Competitor{PID: "c2"}))
	s.PlaceAnalysis.Industries = []string{"Coffee"}

	req := RequestFor(s)
	assert.Equal(t, []string{"c1", "c2"}, req.TradeAreaIDs)
	assert.Empty(t, req.HomeZipcodeIDs)
	assert.Equal(t, dashboard.ModeViewport, req.Competitors.Mode)
	assert.InDelta(t, 10.0, req.Competitors.Radius, 1e-9)
	assert.Equal(t, []string{"Coffee"}, req.Competitors.Industries)
}

func TestRequestFor_HolderFirst(t *testing.T) {
	s := dashboard.New(myPlaceID)
	s.CustomerAnalysis.DataType = dashboard.DataHomeZipcodes
	s.Selected = []dashboard.SelectedPlace{
		{Entity: model.CompetitorEntity(model.Competitor{PID: "a"}), ShowHomeZipcodes: true},
		{Entity: model.CompetitorEntity(model.Competitor{PID: "b"}), ShowHomeZipcodes: true},
	}
	s.Visibility.HomeZipcodes = "b"

	req := RequestFor(s)
	assert.Empty(t, req.TradeAreaIDs)
	assert.Equal(t, []string{"b", "a"}, req.HomeZipcodeIDs)
}

func TestResolve_TradeAreaMode(t *testing.T) {
	api := new(mockAPI)
	api.On("Place", mock.Anything, myPlaceID).Return(testPlace(), nil).Once()
	api.On("NearbyCompetitors", mock.Anything, mock.Anything).
		Return([]model.Competitor{{PID: "c1"}, {PID: "c2"}}, nil).Once()
	api.On("TradeAreas", mock.Anything, "c1").Return(tradeAreas("c1"), nil).Once()
	api.On("TradeAreas", mock.Anything, "c2").Return(nil, statusErr(404)).Once()
	o := newTestOrchestrator(api)

	s := dashboard.New(myPlaceID)
	s = dashboard.ToggleSelection(s, model.CompetitorEntity(model.Competitor{PID: "c1"}))
	s = dashboard.ToggleSelection(s, model.CompetitorEntity(model.Competitor{PID: "c2"}))

	snap, err := o.Resolve(context.Background(), RequestFor(s))
	require.NoError(t, err)

	require.NotNil(t, snap.Place)
	assert.Len(t, snap.Competitors, 2)
	assert.Len(t, snap.TradeAreas, 3)
	assert.Equal(t, []string{"c2"}, snap.NoTradeAreaIDs)
	assert.Equal(t, "Trade area data not available for this location", snap.Notification)
	assert.Empty(t, snap.Error, "not-found is never an error")
	assert.NotNil(t, snap.Zipcodes)
	api.AssertExpectations(t)
}

func TestResolve_HomeZipcodeMode(t *testing.T) {
	api := new(mockAPI)
	api.On("Place", mock.Anything, myPlaceID).Return(testPlace(), nil).Once()
	api.On("NearbyCompetitors", mock.Anything, mock.Anything).Return([]model.Competitor{}, nil).Once()
	api.On("HomeZipcodes", mock.Anything, myPlaceID).Return(&model.HomeZipcodes{
		OwnerID: myPlaceID,
		Locations: []model.ZipcodeShare{
			{Zipcode: "80903", Percentage: "12.5"},
			{Zipcode: "80904", Percentage: "3.1"},
		},
	}, nil).Once()
	api.On("ZipcodesBulk", mock.Anything, []string{"80903", "80904"}).
		Return([]model.Zipcode{{ID: "80903"}, {ID: "80904"}}, nil).Once()
	o := newTestOrchestrator(api)

	dt := dashboard.DataHomeZipcodes
	s, err := dashboard.SetCustomerAnalysis(dashboard.New(myPlaceID), dashboard.CustomerAnalysisPatch{DataType: &dt})
	require.NoError(t, err)

	snap, err := o.Resolve(context.Background(), RequestFor(s))
	require.NoError(t, err)
	require.Len(t, snap.HomeZipcodes, 1)
	assert.Len(t, snap.Zipcodes, 2)
	assert.Empty(t, snap.TradeAreas)
	assert.Empty(t, snap.Notification)
	assert.Empty(t, snap.Error)
	api.AssertExpectations(t)
}

func TestResolve_ErrorsJoinedInSourceOrder(t *testing.T) {
	api := new(mockAPI)
	api.On("Place", mock.Anything, myPlaceID).Return(nil, errors.New("place down")).Once()
	api.On("NearbyCompetitors", mock.Anything, mock.Anything).Return(nil, statusErr(400)).Once()
	api.On("TradeAreas", mock.Anything, "c1").Return(nil, statusErr(404)).Once()
	api.On("TradeAreas", mock.Anything, "c2").Return(nil, statusErr(404)).Once()
	o := New(api, query.NewCache(100), Config{MyPlaceID: myPlaceID}, WithPolicies(noRetryPolicies()))

	req := Request{
		Competitors:  CompetitorQuery{Mode: dashboard.ModeViewport, Radius: 10},
		TradeAreaIDs: []string{"c1", "c2"},
	}
	snap, err := o.Resolve(context.Background(), req)
	require.NoError(t, err)

	assert.Nil(t, snap.Place)
	assert.Empty(t, snap.Competitors)
	assert.Equal(t, "place down; GET /x: 400 Bad Request: 400", snap.Error)
	assert.Equal(t, "Trade area data not available for 2 selected locations", snap.Notification)
}

func TestResolve_ContextCancelled(t *testing.T) {
	o := newTestOrchestrator(new(mockAPI))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Resolve(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestStatus_LoadingBeforeAnyFetch(t *testing.T) {
	o := newTestOrchestrator(new(mockAPI))

	st := o.Status(Request{Competitors: CompetitorQuery{Mode: dashboard.ModeAll}})
	assert.True(t, st.Loading)
	assert.Empty(t, st.Error)
}

func TestStatus_LoadingUntilPlaceArrives(t *testing.T) {
	release := make(chan struct{})
	api := new(mockAPI)
	api.On("AllCompetitors", mock.Anything).Return([]model.Competitor{}, nil).Once()
	api.On("Place", mock.Anything, myPlaceID).
		Run(func(mock.Arguments) { <-release }).
		Return(testPlace(), nil).Once()
	o := newTestOrchestrator(api)
	req := Request{Competitors: CompetitorQuery{Mode: dashboard.ModeAll}}

	_, err := o.FetchCompetitors(context.Background(), req.Competitors)
	require.NoError(t, err)
	assert.True(t, o.Status(req).Loading, "place not fetched yet")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.FetchPlace(context.Background())
	}()

	require.Eventually(t, func() bool { return o.cache.InFlight(placeKey(myPlaceID)) }, time.Second, 5*time.Millisecond)
	assert.True(t, o.Status(req).Loading)
	close(release)
	<-done
	assert.False(t, o.Status(req).Loading)
}

func TestStatus_FailureIsNotLoading(t *testing.T) {
	api := new(mockAPI)
	api.On("Place", mock.Anything, myPlaceID).Return(nil, errors.New("place down")).Once()
	api.On("AllCompetitors", mock.Anything).Return([]model.Competitor{}, nil).Once()
	o := New(api, query.NewCache(100), Config{MyPlaceID: myPlaceID}, WithPolicies(noRetryPolicies()))
	req := Request{Competitors: CompetitorQuery{Mode: dashboard.ModeAll}}
	ctx := context.Background()

	_, err := o.FetchPlace(ctx)
	require.Error(t, err)
	_, err = o.FetchCompetitors(ctx, req.Competitors)
	require.NoError(t, err)

	st := o.Status(req)
	assert.False(t, st.Loading)
	assert.Equal(t, "place down", st.Error)
}

func TestStatus_ReportsLastFailureUntilSuccess(t *testing.T) {
	api := new(mockAPI)
	api.On("AllCompetitors", mock.Anything).Return(nil, errors.New("boom")).Once()
	api.On("AllCompetitors", mock.Anything).Return([]model.Competitor{}, nil).Once()
	o := New(api, query.NewCache(100), Config{MyPlaceID: myPlaceID}, WithPolicies(noRetryPolicies()))
	req := Request{Competitors: CompetitorQuery{Mode: dashboard.ModeAll}}
	ctx := context.Background()

	_, err := o.FetchCompetitors(ctx, req.Competitors)
	require.Error(t, err)
	assert.Equal(t, "boom", o.Status(req).Error)

	_, err = o.FetchCompetitors(ctx, req.Competitors)
	require.NoError(t, err)
	assert.Empty(t, o.Status(req).Error)
}

func TestResolveEntity(t *testing.T) {
	api := new(mockAPI)
	api.On("Place", mock.Anything, myPlaceID).Return(testPlace(), nil).Once()
	api.On("AllCompetitors", mock.Anything).Return([]model.Competitor{{PID: "c1", Name: "Rival"}}, nil).Once()
	o := newTestOrchestrator(api)
	ctx := context.Background()
	q := CompetitorQuery{Mode: dashboard.ModeAll}

	e, err := o.ResolveEntity(ctx, q, model.KindPlace, myPlaceID)
	require.NoError(t, err)
	assert.Equal(t, model.KindPlace, e.Kind)
	assert.False(t, e.Placeholder)

	e, err = o.ResolveEntity(ctx, q, model.KindCompetitor, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Rival", e.Name)

	_, err = o.ResolveEntity(ctx, q, model.KindCompetitor, "nope")
	assert.ErrorIs(t, err, ErrUnknownEntity)

	_, err = o.ResolveEntity(ctx, q, model.KindPlace, "other-place")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestMissingTradeAreaNotice(t *testing.T) {
	assert.Empty(t, MissingTradeAreaNotice(0))
	assert.Equal(t, "Trade area data not available for this location", MissingTradeAreaNotice(1))
	assert.Equal(t, "Trade area data not available for 3 selected locations", MissingTradeAreaNotice(3))
}

func TestJoinErrors(t *testing.T) {
	got := JoinErrors(
		nil,
		errors.New("one"),
		errors.Join(statusErr(404), errors.New("two"), nil),
		statusErr(404),
		errors.New("three"),
	)
	assert.Equal(t, "one; two; three", got)
}

func noRetryPolicies() Policies {
	p := DefaultPolicies()
	for _, o := range []*query.Options{&p.Place, &p.Competitors, &p.Industries, &p.TradeAreas, &p.HomeZipcodes, &p.Zipcodes} {
		o.Retry.Retries = 0
	}
	return p
}
