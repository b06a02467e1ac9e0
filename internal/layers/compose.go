package layers

import (
	"fmt"
	"sort"

	"github.com/sells-group/placemap/internal/colorscale"
	"github.com/sells-group/placemap/internal/dashboard"
	"github.com/sells-group/placemap/internal/geo"
	"github.com/sells-group/placemap/internal/model"
)

// Input is everything a view is composed from.
type Input struct {
	State        dashboard.State
	Place        *model.Place
	Competitors  []model.Competitor
	TradeAreas   []model.TradeArea
	HomeZipcodes []model.HomeZipcodes
	Zipcodes     []model.Zipcode
}

// Result is the composed view.
type Result struct {
	// Layers are ordered bottom to top.
	Layers []Layer `json:"layers"`

	// Competitors are the competitors left after filtering.
	Competitors []model.Competitor `json:"competitors"`

	Legend Legend `json:"legend"`
}

// TradeAreaLayerID names the layer of one owner/tier pair.
func TradeAreaLayerID(ownerID string, tier int) string {
	return fmt.Sprintf("trade-area-%s-%d", ownerID, tier)
}

// Compose builds the layers of in. The order is fixed: home zipcodes,
// trade areas, radius indicator, pulse, competitors, My Place.
func Compose(in Input) Result {
	s := in.State
	comps := FilterCompetitors(in)

	var out []Layer
	if l, ok := homeZipcodesLayer(in); ok {
		out = append(out, l)
	}
	out = append(out, tradeAreaLayers(in)...)
	if l, ok := radiusLayer(in); ok {
		out = append(out, l)
	}
	if l, ok := pulseLayer(in, comps); ok {
		out = append(out, l)
	}
	if s.Visibility.Places {
		out = append(out, competitorLayer(s, comps))
	}
	if in.Place != nil {
		out = append(out, myPlaceLayer(s, *in.Place))
	}

	return Result{
		Layers:      nonNil(out),
		Competitors: nonNil(comps),
		Legend:      BuildLegend(in),
	}
}

// FilterCompetitors returns the competitors to render: none until My Place
// is loaded or while place analysis is hidden, then the industry filter, then
// in viewport mode a Haversine radius check around My Place.
func FilterCompetitors(in Input) []model.Competitor {
	pa := in.State.PlaceAnalysis
	if in.Place == nil || !pa.IsVisible {
		return nil
	}
	comps := geo.FilterByIndustries(in.Competitors, pa.Industries)
	if in.State.CompetitorMode == dashboard.ModeViewport {
		comps = geo.NewCompetitorIndex(comps).WithinRadius(in.Place.Latitude, in.Place.Longitude, pa.Radius)
	}
	return comps
}

// selectedEntity returns the selection entry of sp with a placeholder
// replaced by the loaded place.
func selectedEntity(sp dashboard.SelectedPlace, place *model.Place) model.Entity {
	if sp.Entity.Placeholder && place != nil && place.ID == sp.Entity.ID {
		return model.PlaceEntity(*place)
	}
	return sp.Entity
}

func tradeAreaLayers(in Input) []Layer {
	ca := in.State.CustomerAnalysis
	if ca.DataType != dashboard.DataTradeArea || !ca.IsVisible {
		return nil
	}

	byOwner := make(map[string][]model.TradeArea)
	for _, ta := range in.TradeAreas {
		byOwner[ta.OwnerID] = append(byOwner[ta.OwnerID], ta)
	}

	var out []Layer
	for _, sp := range in.State.Selected {
		if !sp.ShowTradeArea {
			continue
		}
		e := selectedEntity(sp, in.Place)
		if !e.HasTradeArea {
			continue
		}

		areas := append([]model.TradeArea(nil), byOwner[e.ID]...)
		sort.SliceStable(areas, func(i, j int) bool { return areas[i].Tier < areas[j].Tier })

		for _, ta := range areas {
			if !ca.HasTier(ta.Tier) {
				continue
			}
			ring := ta.Polygon.OuterRing()
			if len(ring) == 0 {
				continue
			}
			out = append(out, Layer{
				ID:      TradeAreaLayerID(e.ID, ta.Tier),
				Type:    TypePolygon,
				Opacity: 1,
				Polygons: []Shape{{
					OwnerID:   e.ID,
					Tier:      ta.Tier,
					Ring:      ring,
					Fill:      TierFill(ta.Tier),
					Line:      tradeAreaLine,
					LineWidth: 1,
				}},
			})
		}
	}
	return out
}

// homeZipcodesLayer renders the distribution of the slot holder as a
// percentile choropleth.
func homeZipcodesLayer(in Input) (Layer, bool) {
	ca := in.State.CustomerAnalysis
	holder := in.State.Visibility.HomeZipcodes
	if ca.DataType != dashboard.DataHomeZipcodes || !ca.IsVisible || holder == "" {
		return Layer{}, false
	}

	hz, ok := findHomeZipcodes(in.HomeZipcodes, holder)
	if !ok {
		return Layer{}, false
	}
	buckets := colorscale.Percentiles(hz.Values())

	polys := make(map[string]model.Polygon, len(in.Zipcodes))
	for _, z := range in.Zipcodes {
		polys[z.ID] = z.Polygon
	}

	shapes := make([]Shape, 0, len(hz.Locations))
	for _, loc := range hz.Locations {
		v, ok := loc.Value()
		if !ok {
			continue
		}
		poly, ok := polys[loc.Zipcode]
		if !ok || len(poly.OuterRing()) == 0 {
			continue
		}
		fill, err := colorscale.ParseHex(colorscale.ColorForValue(v, buckets), zipcodeAlpha)
		if err != nil {
			continue
		}
		pct := v
		shapes = append(shapes, Shape{
			OwnerID:    holder,
			Zipcode:    loc.Zipcode,
			Percentage: &pct,
			Ring:       poly.OuterRing(),
			Fill:       fill,
			Line:       zipcodeLine,
			LineWidth:  1,
		})
	}

	return Layer{
		ID:       IDHomeZipcodes,
		Type:     TypePolygon,
		Pickable: true,
		Opacity:  1,
		Polygons: shapes,
	}, true
}

func findHomeZipcodes(all []model.HomeZipcodes, ownerID string) (model.HomeZipcodes, bool) {
	for _, hz := range all {
		if hz.OwnerID == ownerID {
			return hz, true
		}
	}
	return model.HomeZipcodes{}, false
}

// radiusLayer draws the search radius around My Place in viewport mode.
func radiusLayer(in Input) (Layer, bool) {
	s := in.State
	pa := s.PlaceAnalysis
	if s.CompetitorMode != dashboard.ModeViewport || in.Place == nil || !pa.IsVisible || pa.Radius <= 0 {
		return Layer{}, false
	}
	return Layer{
		ID:      IDRadiusIndicator,
		Type:    TypeScatterplot,
		Opacity: 0.15,
		Points: []Point{{
			Position:  model.Coord{in.Place.Longitude, in.Place.Latitude},
			Radius:    geo.MilesToMeters(pa.Radius),
			Units:     UnitsMeters,
			Fill:      radiusFill,
			Line:      radiusLine,
			LineWidth: 2,
		}},
	}, true
}

// pulseLayer highlights the selected markers that are actually rendered.
func pulseLayer(in Input, comps []model.Competitor) (Layer, bool) {
	s := in.State
	var pts []Point

	if in.Place != nil && s.IsSelected(in.Place.ID) {
		pts = append(pts, pulsePoint(in.Place.Longitude, in.Place.Latitude))
	}
	if s.Visibility.Places {
		for _, c := range comps {
			if s.IsSelected(c.PID) {
				pts = append(pts, pulsePoint(c.Longitude, c.Latitude))
			}
		}
	}
	if len(pts) == 0 {
		return Layer{}, false
	}
	return Layer{
		ID:      IDPulse,
		Type:    TypeScatterplot,
		Opacity: 0.3,
		Points:  pts,
		Pulse:   &Pulse{MinRadius: 20, MaxRadius: 35, StepMillis: 50},
	}, true
}

func pulsePoint(lon, lat float64) Point {
	return Point{
		Position: model.Coord{lon, lat},
		Radius:   20,
		Units:    UnitsPixels,
		Fill:     pulseFill,
	}
}

func competitorLayer(s dashboard.State, comps []model.Competitor) Layer {
	pts := make([]Point, 0, len(comps))
	for _, c := range comps {
		e := model.CompetitorEntity(c)
		pts = append(pts, marker(s, e, ColorCompetitor, SizeCompetitor, SizeCompetitorSelected))
	}
	return Layer{
		ID:       IDCompetitors,
		Type:     TypeScatterplot,
		Pickable: true,
		Opacity:  competitorsOpa,
		Points:   pts,
	}
}

func myPlaceLayer(s dashboard.State, p model.Place) Layer {
	e := model.PlaceEntity(p)
	return Layer{
		ID:       IDMyPlace,
		Type:     TypeScatterplot,
		Pickable: true,
		Opacity:  1,
		Points:   []Point{marker(s, e, ColorMyPlace, SizeMyPlace, SizeMyPlaceSelected)},
	}
}

// marker styles one entity. The tooltip outline wins over the selection
// outline, which wins over the base style.
func marker(s dashboard.State, e model.Entity, base string, size, selectedSize float64) Point {
	selected := s.IsSelected(e.ID)

	p := Point{
		Entity:    &e,
		Position:  model.Coord{e.Longitude, e.Latitude},
		Radius:    size,
		Units:     UnitsPixels,
		Fill:      colorscale.MustParseHex(base, 255),
		Line:      white,
		LineWidth: 2,
	}
	if selected {
		p.Radius = selectedSize
		p.Fill = colorscale.MustParseHex(ColorSelected, 255)
		p.Line = selectedLine
		p.LineWidth = 3
	}
	if t := s.Tooltip; t != nil && t.Entity.ID == e.ID && t.Entity.Kind == e.Kind {
		p.Line = tooltipLine
		p.LineWidth = 4
	}
	return p
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
