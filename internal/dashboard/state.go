// Package dashboard holds the selection and visibility state machine of one
// map session. Reducers are pure: they take a State value and return a new
// one without touching the input. Store serializes them per session.
package dashboard

import (
	"slices"

	"github.com/sells-group/placemap/internal/model"
)

// DataType is the customer-analysis data set shown on the map.
type DataType string

const (
	DataTradeArea    DataType = "tradeArea"
	DataHomeZipcodes DataType = "homeZipcodes"
)

// Valid reports whether d is a known data type.
func (d DataType) Valid() bool {
	return d == DataTradeArea || d == DataHomeZipcodes
}

// CompetitorMode selects which competitor dataset is loaded.
type CompetitorMode string

const (
	// ModeViewport loads competitors within the radius around My Place.
	ModeViewport CompetitorMode = "viewport"
	// ModeAll loads the whole competitor set.
	ModeAll CompetitorMode = "all"
)

// Valid reports whether m is a known competitor mode.
func (m CompetitorMode) Valid() bool {
	return m == ModeViewport || m == ModeAll
}

// PlaceAnalysis filters the competitor markers.
type PlaceAnalysis struct {
	Radius     float64  `json:"radius"`
	Industries []string `json:"industries"`
	IsVisible  bool     `json:"isVisible"`
}

// CustomerAnalysis selects the customer data set and trade-area tiers.
type CustomerAnalysis struct {
	DataType             DataType `json:"dataType"`
	TradeAreaPercentages []int    `json:"tradeAreaPercentages"`
	IsVisible            bool     `json:"isVisible"`
}

// HasTier reports whether tier is part of the global tier filter.
func (c CustomerAnalysis) HasTier(tier int) bool {
	return slices.Contains(c.TradeAreaPercentages, tier)
}

func (c CustomerAnalysis) showsTradeAreas() bool {
	return c.DataType == DataTradeArea && c.IsVisible
}

func (c CustomerAnalysis) showsHomeZipcodes() bool {
	return c.DataType == DataHomeZipcodes && c.IsVisible
}

// LayerVisibility tracks which entities have their customer layers shown.
// TradeAreas may hold many ids; HomeZipcodes holds at most one ("" = none).
type LayerVisibility struct {
	Places       bool            `json:"places"`
	TradeAreas   map[string]bool `json:"tradeAreas"`
	HomeZipcodes string          `json:"homeZipcodes,omitempty"`
}

// SelectedPlace is one entry of the selection set.
type SelectedPlace struct {
	Entity           model.Entity `json:"place"`
	ShowTradeArea    bool         `json:"showTradeArea"`
	ShowHomeZipcodes bool         `json:"showHomeZipcodes"`
}

// Tooltip is the entity under the pointer and its screen position.
type Tooltip struct {
	Entity model.Entity `json:"object"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
}

// MapView is the camera position of the map.
type MapView struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
	Bearing   float64 `json:"bearing"`
}

// State is the full dashboard state of one session.
type State struct {
	MyPlaceID        string           `json:"myPlaceId"`
	PlaceAnalysis    PlaceAnalysis    `json:"placeAnalysis"`
	CustomerAnalysis CustomerAnalysis `json:"customerAnalysis"`
	Visibility       LayerVisibility  `json:"layerVisibility"`

	// Selected is kept in selection order.
	Selected []SelectedPlace `json:"selectedPlaces"`

	Tooltip        *Tooltip       `json:"tooltip"`
	MapView        MapView        `json:"mapViewState"`
	CompetitorMode CompetitorMode `json:"competitorLoadingMode"`
}

// Defaults used by New.
var (
	DefaultRadiusMiles = 10.0
	DefaultMapView     = MapView{Longitude: -104.8059, Latitude: 38.9337, Zoom: 11}
)

// New returns the initial state for a session around myPlaceID.
func New(myPlaceID string) State {
	return State{
		MyPlaceID: myPlaceID,
		PlaceAnalysis: PlaceAnalysis{
			Radius:     DefaultRadiusMiles,
			Industries: []string{},
			IsVisible:  true,
		},
		CustomerAnalysis: CustomerAnalysis{
			DataType:             DataTradeArea,
			TradeAreaPercentages: slices.Clone(model.Tiers),
			IsVisible:            true,
		},
		Visibility: LayerVisibility{
			Places:     true,
			TradeAreas: map[string]bool{},
		},
		Selected:       []SelectedPlace{},
		MapView:        DefaultMapView,
		CompetitorMode: ModeViewport,
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.PlaceAnalysis.Industries = slices.Clone(s.PlaceAnalysis.Industries)
	out.CustomerAnalysis.TradeAreaPercentages = slices.Clone(s.CustomerAnalysis.TradeAreaPercentages)
	out.Visibility.TradeAreas = make(map[string]bool, len(s.Visibility.TradeAreas))
	for id, v := range s.Visibility.TradeAreas {
		out.Visibility.TradeAreas[id] = v
	}
	out.Selected = slices.Clone(s.Selected)
	if s.Tooltip != nil {
		t := *s.Tooltip
		out.Tooltip = &t
	}
	return out
}

// Selection returns the selected entry for id.
func (s State) Selection(id string) (SelectedPlace, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.Selected[i], true
	}
	return SelectedPlace{}, false
}

// IsSelected reports whether id is in the selection set.
func (s State) IsSelected(id string) bool {
	return s.indexOf(id) >= 0
}

// SelectedIDs returns the selected ids in selection order.
func (s State) SelectedIDs() []string {
	ids := make([]string, len(s.Selected))
	for i, sp := range s.Selected {
		ids[i] = sp.Entity.ID
	}
	return ids
}

// TradeAreaIDs returns the ids whose trade areas are visible, in selection
// order.
func (s State) TradeAreaIDs() []string {
	var ids []string
	for _, sp := range s.Selected {
		if s.Visibility.TradeAreas[sp.Entity.ID] {
			ids = append(ids, sp.Entity.ID)
		}
	}
	return ids
}

func (s State) indexOf(id string) int {
	return slices.IndexFunc(s.Selected, func(sp SelectedPlace) bool {
		return sp.Entity.ID == id
	})
}
