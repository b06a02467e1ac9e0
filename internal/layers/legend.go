package layers

import (
	"fmt"

	"github.com/sells-group/placemap/internal/colorscale"
	"github.com/sells-group/placemap/internal/dashboard"
)

// LegendItem is one swatch of the legend.
type LegendItem struct {
	Color       string `json:"color"`
	BorderColor string `json:"borderColor,omitempty"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Legend explains the visible layers.
type Legend struct {
	Markers      []LegendItem `json:"markers"`
	TradeAreas   []LegendItem `json:"tradeAreas,omitempty"`
	HomeZipcodes []LegendItem `json:"homeZipcodes,omitempty"`
}

var markerLegend = []LegendItem{
	{Color: ColorMyPlace, BorderColor: "#FFFFFF", Label: "My Place", Description: "Primary location (always visible)"},
	{Color: ColorCompetitor, BorderColor: "#FFFFFF", Label: "Competitors", Description: "Nearby business locations"},
	{Color: ColorSelected, BorderColor: "#FF8C00", Label: "Selected Places", Description: "Click any place to select and view data"},
}

// BuildLegend lists the marker styles, the trade-area tiers in the filter
// while any selection shows trade areas, and the percentile ranges of the
// home-zipcode holder.
func BuildLegend(in Input) Legend {
	s := in.State
	lg := Legend{Markers: append([]LegendItem(nil), markerLegend...)}

	ca := s.CustomerAnalysis
	switch ca.DataType {
	case dashboard.DataTradeArea:
		if len(s.TradeAreaIDs()) == 0 {
			break
		}
		for _, tier := range ca.TradeAreaPercentages {
			st, ok := tierStyles[tier]
			if !ok {
				continue
			}
			lg.TradeAreas = append(lg.TradeAreas, LegendItem{
				Color:       TierFill(tier).Hex(),
				Label:       fmt.Sprintf("%d%% Trade Area", tier),
				Description: st.note,
			})
		}

	case dashboard.DataHomeZipcodes:
		holder := s.Visibility.HomeZipcodes
		if holder == "" {
			break
		}
		hz, ok := findHomeZipcodes(in.HomeZipcodes, holder)
		if !ok {
			break
		}
		for i, b := range colorscale.Percentiles(hz.Values()) {
			label, desc := b.Label(i)
			lg.HomeZipcodes = append(lg.HomeZipcodes, LegendItem{Color: b.Color, Label: label, Description: desc})
		}
	}
	return lg
}
