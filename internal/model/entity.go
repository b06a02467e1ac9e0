package model

// EntityKind discriminates the two kinds of map locations.
type EntityKind string

const (
	KindPlace      EntityKind = "place"
	KindCompetitor EntityKind = "competitor"
)

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	return k == KindPlace || k == KindCompetitor
}

// Place is the primary business location ("My Place").
type Place struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	StreetAddress   string  `json:"street_address"`
	City            string  `json:"city"`
	State           string  `json:"state"`
	Logo            string  `json:"logo,omitempty"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Industry        string  `json:"industry"`
	HasTradeArea    bool    `json:"has_trade_area"`
	HasHomeZipcodes bool    `json:"has_home_zipcodes"`
}

// Competitor is a nearby third-party business location.
type Competitor struct {
	PID             string  `json:"pid"`
	Name            string  `json:"name"`
	StreetAddress   string  `json:"street_address"`
	City            string  `json:"city"`
	Region          string  `json:"region"`
	SubCategory     string  `json:"sub_category"`
	Logo            string  `json:"logo,omitempty"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	DistanceMiles   float64 `json:"distance"`
	HasTradeArea    bool    `json:"has_trade_area"`
	HasHomeZipcodes bool    `json:"has_home_zipcodes"`
}

// Entity is a reference to either a Place or a Competitor. Kind is set once
// when the entity is built and is the only thing downstream code switches on.
type Entity struct {
	Kind            EntityKind `json:"kind"`
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	StreetAddress   string     `json:"street_address,omitempty"`
	City            string     `json:"city,omitempty"`
	Region          string     `json:"region,omitempty"`
	Category        string     `json:"category,omitempty"`
	Logo            string     `json:"logo,omitempty"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	DistanceMiles   float64    `json:"distance,omitempty"`
	HasTradeArea    bool       `json:"has_trade_area"`
	HasHomeZipcodes bool       `json:"has_home_zipcodes"`

	// Placeholder marks the "My Place" sentinel inserted by a mode switch.
	// Its geometry is filled in later from the real Place.
	Placeholder bool `json:"placeholder,omitempty"`
}

// PlaceEntity builds an Entity reference for p.
func PlaceEntity(p Place) Entity {
	return Entity{
		Kind:            KindPlace,
		ID:              p.ID,
		Name:            p.Name,
		StreetAddress:   p.StreetAddress,
		City:            p.City,
		Region:          p.State,
		Category:        p.Industry,
		Logo:            p.Logo,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		HasTradeArea:    p.HasTradeArea,
		HasHomeZipcodes: p.HasHomeZipcodes,
	}
}

// CompetitorEntity builds an Entity reference for c.
func CompetitorEntity(c Competitor) Entity {
	return Entity{
		Kind:            KindCompetitor,
		ID:              c.PID,
		Name:            c.Name,
		StreetAddress:   c.StreetAddress,
		City:            c.City,
		Region:          c.Region,
		Category:        c.SubCategory,
		Logo:            c.Logo,
		Latitude:        c.Latitude,
		Longitude:       c.Longitude,
		DistanceMiles:   c.DistanceMiles,
		HasTradeArea:    c.HasTradeArea,
		HasHomeZipcodes: c.HasHomeZipcodes,
	}
}

// PlaceholderEntity returns the sentinel used for "My Place" before the real
// record is known. It advertises both data sets as available.
func PlaceholderEntity(id string) Entity {
	return Entity{
		Kind:            KindPlace,
		ID:              id,
		Name:            "MyPlace",
		HasTradeArea:    true,
		HasHomeZipcodes: true,
		Placeholder:     true,
	}
}
