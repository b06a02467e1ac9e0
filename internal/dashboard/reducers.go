package dashboard

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/placemap/internal/model"
)

// ErrInvalid is returned (wrapped) for patches that would break the state
// invariants. Callers map it to a client error.
var ErrInvalid = eris.New("dashboard: invalid update")

// ErrNotSelected is returned when an operation names an entity that is not
// in the selection set.
var ErrNotSelected = eris.New("dashboard: entity not selected")

// PlaceAnalysisPatch is a partial PlaceAnalysis. Nil fields are left alone;
// an empty non-nil Industries clears the industry filter.
type PlaceAnalysisPatch struct {
	Radius     *float64 `json:"radius,omitempty"`
	Industries []string `json:"industries,omitempty"`
	IsVisible  *bool    `json:"isVisible,omitempty"`
}

// CustomerAnalysisPatch is a partial CustomerAnalysis.
type CustomerAnalysisPatch struct {
	DataType             *DataType `json:"dataType,omitempty"`
	TradeAreaPercentages []int     `json:"tradeAreaPercentages,omitempty"`
	IsVisible            *bool     `json:"isVisible,omitempty"`
}

// ToggleSelection removes e from the selection if present, otherwise adds
// it with layer flags derived from the current customer analysis. Data
// availability is not checked here.
func ToggleSelection(s State, e model.Entity) State {
	out := s.Clone()
	id := e.ID

	if i := out.indexOf(id); i >= 0 {
		out.Selected = append(out.Selected[:i], out.Selected[i+1:]...)
		delete(out.Visibility.TradeAreas, id)
		if out.Visibility.HomeZipcodes == id {
			out.Visibility.HomeZipcodes = ""
		}
		return out
	}

	sp := SelectedPlace{
		Entity:           e,
		ShowTradeArea:    out.CustomerAnalysis.showsTradeAreas(),
		ShowHomeZipcodes: out.CustomerAnalysis.showsHomeZipcodes(),
	}
	out.Selected = append(out.Selected, sp)

	if sp.ShowTradeArea {
		out.Visibility.TradeAreas[id] = true
	}
	if sp.ShowHomeZipcodes && out.Visibility.HomeZipcodes == "" {
		out.Visibility.HomeZipcodes = id
	}
	return out
}

// SetCustomerAnalysis merges p into the customer analysis and re-derives
// the selection flags and layer visibility.
//
// Any patch that leaves home-zipcode mode visible is destructive: trade-area
// visibility is cleared and the selection collapses to a single My Place
// placeholder that holds the home-zipcode slot, whatever was selected
// before. Any other result recomputes each selection's flags and releases
// the home-zipcode slot.
func SetCustomerAnalysis(s State, p CustomerAnalysisPatch) (State, error) {
	next := s.CustomerAnalysis
	if p.DataType != nil {
		if !p.DataType.Valid() {
			return s, eris.Wrapf(ErrInvalid, "unknown data type %q", *p.DataType)
		}
		next.DataType = *p.DataType
	}
	if p.TradeAreaPercentages != nil {
		tiers, err := normalizeTiers(p.TradeAreaPercentages)
		if err != nil {
			return s, err
		}
		next.TradeAreaPercentages = tiers
	}
	if p.IsVisible != nil {
		next.IsVisible = *p.IsVisible
	}

	out := s.Clone()
	out.CustomerAnalysis = next

	if next.showsHomeZipcodes() {
		out.Visibility.TradeAreas = map[string]bool{}
		out.Visibility.HomeZipcodes = s.MyPlaceID
		out.Selected = []SelectedPlace{{
			Entity:           model.PlaceholderEntity(s.MyPlaceID),
			ShowTradeArea:    false,
			ShowHomeZipcodes: true,
		}}
		return out, nil
	}

	showTA := next.showsTradeAreas()

	out.Visibility.TradeAreas = map[string]bool{}
	for i := range out.Selected {
		out.Selected[i].ShowTradeArea = showTA
		out.Selected[i].ShowHomeZipcodes = false
		if showTA {
			out.Visibility.TradeAreas[out.Selected[i].Entity.ID] = true
		}
	}
	out.Visibility.HomeZipcodes = ""
	return out, nil
}

// SetPlaceAnalysis merges p into the place analysis. Selection is untouched.
func SetPlaceAnalysis(s State, p PlaceAnalysisPatch) (State, error) {
	out := s.Clone()
	if p.Radius != nil {
		if *p.Radius < 0 {
			return s, eris.Wrapf(ErrInvalid, "radius must be >= 0, got %v", *p.Radius)
		}
		out.PlaceAnalysis.Radius = *p.Radius
	}
	if p.Industries != nil {
		out.PlaceAnalysis.Industries = append([]string{}, p.Industries...)
	}
	if p.IsVisible != nil {
		out.PlaceAnalysis.IsVisible = *p.IsVisible
	}
	return out, nil
}

// ShowHomeZipcodesFor hands the exclusive home-zipcode slot to id, evicting
// the current holder. id must be selected and showing home zipcodes.
func ShowHomeZipcodesFor(s State, id string) (State, error) {
	sp, ok := s.Selection(id)
	if !ok {
		return s, eris.Wrapf(ErrNotSelected, "id %s", id)
	}
	if !sp.ShowHomeZipcodes {
		return s, eris.Wrapf(ErrInvalid, "home zipcodes are not shown for %s", id)
	}
	out := s.Clone()
	out.Visibility.HomeZipcodes = id
	return out, nil
}

// SetTooltip replaces the tooltip. A nil tooltip clears it.
func SetTooltip(s State, t *Tooltip) State {
	out := s.Clone()
	if t == nil {
		out.Tooltip = nil
		return out
	}
	tt := *t
	out.Tooltip = &tt
	return out
}

// SetMapView replaces the camera position.
func SetMapView(s State, v MapView) (State, error) {
	if v.Latitude < -90 || v.Latitude > 90 || v.Longitude < -180 || v.Longitude > 180 {
		return s, eris.Wrapf(ErrInvalid, "map view out of range (%v, %v)", v.Longitude, v.Latitude)
	}
	if v.Zoom < 0 {
		return s, eris.Wrapf(ErrInvalid, "zoom must be >= 0, got %v", v.Zoom)
	}
	out := s.Clone()
	out.MapView = v
	return out, nil
}

// SetCompetitorMode switches the active competitor dataset.
func SetCompetitorMode(s State, m CompetitorMode) (State, error) {
	if !m.Valid() {
		return s, eris.Wrapf(ErrInvalid, "unknown competitor mode %q", m)
	}
	out := s.Clone()
	out.CompetitorMode = m
	return out, nil
}

// SetPlacesVisible shows or hides the place markers.
func SetPlacesVisible(s State, visible bool) State {
	out := s.Clone()
	out.Visibility.Places = visible
	return out
}

// normalizeTiers validates tiers and returns them deduplicated in
// ascending order.
func normalizeTiers(tiers []int) ([]int, error) {
	seen := make(map[int]bool, len(tiers))
	for _, t := range tiers {
		if !model.ValidTier(t) {
			return nil, eris.Wrapf(ErrInvalid, "trade area tier %d not in {30, 50, 70}", t)
		}
		seen[t] = true
	}
	out := make([]int, 0, len(seen))
	for _, t := range model.Tiers {
		if seen[t] {
			out = append(out, t)
		}
	}
	return out, nil
}
