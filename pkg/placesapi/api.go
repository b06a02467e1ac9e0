package placesapi

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/placemap/internal/model"
)

// apiPoint is a GeoJSON point; coordinates are [lng, lat].
type apiPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type apiPlace struct {
	PlaceID                 string   `json:"place_id"`
	Name                    string   `json:"name"`
	StreetAddress           string   `json:"street_address"`
	City                    string   `json:"city"`
	State                   string   `json:"state"`
	Logo                    *string  `json:"logo"`
	Location                apiPoint `json:"location"`
	Industry                string   `json:"industry"`
	IsTradeAreaAvailable    bool     `json:"isTradeAreaAvailable"`
	IsHomeZipcodesAvailable bool     `json:"isHomeZipcodesAvailable"`
}

func (p apiPlace) toModel() model.Place {
	return model.Place{
		ID:              p.PlaceID,
		Name:            p.Name,
		StreetAddress:   p.StreetAddress,
		City:            p.City,
		State:           p.State,
		Logo:            deref(p.Logo),
		Longitude:       p.Location.Coordinates[0],
		Latitude:        p.Location.Coordinates[1],
		Industry:        p.Industry,
		HasTradeArea:    p.IsTradeAreaAvailable,
		HasHomeZipcodes: p.IsHomeZipcodesAvailable,
	}
}

type apiCompetitor struct {
	PlaceID               string   `json:"place_id"`
	Name                  string   `json:"name"`
	StreetAddress         string   `json:"street_address"`
	City                  string   `json:"city"`
	Region                string   `json:"region"`
	Logo                  *string  `json:"logo"`
	Location              apiPoint `json:"location"`
	SubCategory           string   `json:"sub_category"`
	TradeAreaActivity     bool     `json:"trade_area_activity"`
	HomeLocationsActivity bool     `json:"home_locations_activity"`
	Distance              float64  `json:"distance"`
}

func (c apiCompetitor) toModel() model.Competitor {
	return model.Competitor{
		PID:             c.PlaceID,
		Name:            c.Name,
		StreetAddress:   c.StreetAddress,
		City:            c.City,
		Region:          c.Region,
		SubCategory:     c.SubCategory,
		Logo:            deref(c.Logo),
		Longitude:       c.Location.Coordinates[0],
		Latitude:        c.Location.Coordinates[1],
		DistanceMiles:   c.Distance,
		HasTradeArea:    c.TradeAreaActivity,
		HasHomeZipcodes: c.HomeLocationsActivity,
	}
}

func competitorsToModel(raw []apiCompetitor) []model.Competitor {
	out := make([]model.Competitor, 0, len(raw))
	for _, c := range raw {
		out = append(out, c.toModel())
	}
	return out
}

// competitorList accepts either a bare array or an envelope with the
// array under "data" or "competitors".
type competitorList []apiCompetitor

func (l *competitorList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var arr []apiCompetitor
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return err
		}
		*l = arr
		return nil
	}

	var env struct {
		Data        *[]apiCompetitor `json:"data"`
		Competitors *[]apiCompetitor `json:"competitors"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	switch {
	case env.Data != nil:
		*l = *env.Data
	case env.Competitors != nil:
		*l = *env.Competitors
	default:
		return eris.New("invalid competitors data format")
	}
	return nil
}

type apiTradeArea struct {
	PlaceID    string          `json:"place_id"`
	Polygon    json.RawMessage `json:"polygon"`
	Percentage int             `json:"trade_area_percentage"`
}

type apiZipcode struct {
	ZipcodeID string          `json:"zipcode_id"`
	Polygon   json.RawMessage `json:"polygon"`
}

type apiHomeZipcode struct {
	Zipcode    string    `json:"zipcode"`
	Percentage flexFloat `json:"percentage"`
}

// flexFloat keeps the textual form of a number that may arrive either as a
// JSON number or as a string.
type flexFloat string

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexFloat(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	if v, err := strconv.ParseFloat(n.String(), 64); err == nil {
		*f = flexFloat(strconv.FormatFloat(v, 'f', -1, 64))
		return nil
	}
	*f = flexFloat(n.String())
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
