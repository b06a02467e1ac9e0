// Package layers turns loaded map data and a dashboard state into the
// ordered list of layer descriptors a map client renders. Composition is
// pure: the same input always yields the same layers.
package layers

import (
	"github.com/sells-group/placemap/internal/colorscale"
	"github.com/sells-group/placemap/internal/model"
)

// Type is the primitive a layer renders with.
type Type string

const (
	TypeScatterplot Type = "scatterplot"
	TypePolygon     Type = "polygon"
)

// Units of a point radius.
const (
	UnitsPixels = "pixels"
	UnitsMeters = "meters"
)

// Fixed layer ids, bottom to top. Trade-area layers are named by
// TradeAreaLayerID.
const (
	IDHomeZipcodes    = "home-zipcodes"
	IDRadiusIndicator = "radius-indicator"
	IDPulse           = "pulse"
	IDCompetitors     = "competitors"
	IDMyPlace         = "my-place"
)

// Layer is one renderable map layer.
type Layer struct {
	ID       string  `json:"id"`
	Type     Type    `json:"type"`
	Pickable bool    `json:"pickable"`
	Opacity  float64 `json:"opacity"`

	Points   []Point `json:"points,omitempty"`
	Polygons []Shape `json:"polygons,omitempty"`

	// Pulse animates the point radius between two pixel sizes.
	Pulse *Pulse `json:"pulse,omitempty"`
}

// Point is a circle at a [longitude, latitude] position.
type Point struct {
	Entity    *model.Entity   `json:"entity,omitempty"`
	Position  model.Coord     `json:"position"`
	Radius    float64         `json:"radius"`
	Units     string          `json:"radiusUnits"`
	Fill      colorscale.RGBA `json:"fillColor"`
	Line      colorscale.RGBA `json:"lineColor"`
	LineWidth float64         `json:"lineWidth"`
}

// Shape is a filled polygon outline.
type Shape struct {
	OwnerID    string          `json:"ownerId,omitempty"`
	Zipcode    string          `json:"zipcode,omitempty"`
	Tier       int             `json:"tier,omitempty"`
	Percentage *float64        `json:"percentage,omitempty"`
	Ring       []model.Coord   `json:"polygon"`
	Fill       colorscale.RGBA `json:"fillColor"`
	Line       colorscale.RGBA `json:"lineColor"`
	LineWidth  float64         `json:"lineWidth"`
}

// Pulse describes the radius animation of the pulse layer.
type Pulse struct {
	MinRadius  float64 `json:"minRadius"`
	MaxRadius  float64 `json:"maxRadius"`
	StepMillis int     `json:"stepMillis"`
}

// Marker colors.
const (
	ColorMyPlace    = "#4CAF50"
	ColorCompetitor = "#2196F3"
	ColorSelected   = "#FFD700"
	ColorTooltip    = "#D81B60"
)

var (
	white          = colorscale.RGBA{255, 255, 255, 255}
	selectedLine   = colorscale.RGBA{255, 140, 0, 255}
	tooltipLine    = colorscale.MustParseHex(ColorTooltip, 255)
	tradeAreaLine  = colorscale.RGBA{255, 255, 255, 180}
	zipcodeLine    = colorscale.RGBA{255, 255, 255, 200}
	radiusFill     = colorscale.RGBA{33, 150, 243, 25}
	radiusLine     = colorscale.RGBA{33, 150, 243, 120}
	pulseFill      = colorscale.MustParseHex(ColorSelected, 102)
	zipcodeAlpha   = uint8(180)
	competitorsOpa = 0.8
)

// Marker sizes in screen pixels; they do not scale with zoom.
const (
	SizeMyPlace            = 12
	SizeMyPlaceSelected    = 16
	SizeCompetitor         = 8
	SizeCompetitorSelected = 12
)

// tierStyle is the fill of one trade-area tier. Opacity grows with the
// tier: the 70% area is the smallest and most concentrated.
type tierStyle struct {
	rgb     [3]uint8
	opacity float64
	note    string
}

var tierStyles = map[int]tierStyle{
	model.Tier30: {rgb: [3]uint8{255, 193, 7}, opacity: 0.3, note: "Widest customer catchment area"},
	model.Tier50: {rgb: [3]uint8{255, 152, 0}, opacity: 0.5, note: "Medium customer catchment area"},
	model.Tier70: {rgb: [3]uint8{255, 87, 34}, opacity: 0.7, note: "Most concentrated customer area"},
}

// TierFill returns the fill color of a trade-area tier.
func TierFill(tier int) colorscale.RGBA {
	st, ok := tierStyles[tier]
	if !ok {
		st = tierStyles[model.Tier50]
	}
	return colorscale.RGBA{st.rgb[0], st.rgb[1], st.rgb[2], uint8(st.opacity * 255)}
}
