package model

import (
	"strconv"
	"strings"
)

// Trade-area tiers: the share of customers originating inside the polygon.
const (
	Tier30 = 30
	Tier50 = 50
	Tier70 = 70
)

// Tiers lists every trade-area tier in ascending order.
var Tiers = []int{Tier30, Tier50, Tier70}

// ValidTier reports whether t is one of 30, 50 or 70.
func ValidTier(t int) bool {
	return t == Tier30 || t == Tier50 || t == Tier70
}

// Coord is a [longitude, latitude] pair.
type Coord [2]float64

// Polygon is a GeoJSON-like polygon. Coordinates[0] is the outer ring.
type Polygon struct {
	Type        string    `json:"type"`
	Coordinates [][]Coord `json:"coordinates"`
}

// OuterRing returns the outer ring, or nil for an empty polygon.
func (p Polygon) OuterRing() []Coord {
	if len(p.Coordinates) == 0 {
		return nil
	}
	return p.Coordinates[0]
}

// TradeArea is one catchment polygon for an owning Place or Competitor.
type TradeArea struct {
	OwnerID string  `json:"pid"`
	Polygon Polygon `json:"polygon"`
	Tier    int     `json:"trade_area"`
}

// ZipcodeShare maps one zipcode to the percentage of customers living there.
// The percentage is kept as the string the API ships.
type ZipcodeShare struct {
	Zipcode    string `json:"zipcode"`
	Percentage string `json:"percentage"`
}

// Value parses the percentage. ok is false for unparseable values.
func (z ZipcodeShare) Value() (v float64, ok bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(z.Percentage), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// HomeZipcodes is the customer home-location distribution for one entity.
type HomeZipcodes struct {
	OwnerID   string         `json:"pid"`
	Locations []ZipcodeShare `json:"locations"`
}

// ZipcodeIDs returns the zipcodes in their original order.
func (h HomeZipcodes) ZipcodeIDs() []string {
	ids := make([]string, 0, len(h.Locations))
	for _, l := range h.Locations {
		ids = append(ids, l.Zipcode)
	}
	return ids
}

// Values returns every parseable percentage value, in order.
func (h HomeZipcodes) Values() []float64 {
	out := make([]float64, 0, len(h.Locations))
	for _, l := range h.Locations {
		if v, ok := l.Value(); ok {
			out = append(out, v)
		}
	}
	return out
}

// Zipcode is a ZIP code boundary keyed by its 5-digit id.
type Zipcode struct {
	ID      string  `json:"id"`
	Polygon Polygon `json:"polygon"`
}
