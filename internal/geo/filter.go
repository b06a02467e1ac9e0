package geo

import "github.com/sells-group/placemap/internal/model"

// FilterByIndustries keeps competitors whose sub-category is in industries.
// An empty industry list disables the filter.
func FilterByIndustries(competitors []model.Competitor, industries []string) []model.Competitor {
	if len(industries) == 0 {
		return competitors
	}

	allowed := make(map[string]struct{}, len(industries))
	for _, ind := range industries {
		allowed[ind] = struct{}{}
	}

	out := make([]model.Competitor, 0, len(competitors))
	for _, c := range competitors {
		if _, ok := allowed[c.SubCategory]; ok {
			out = append(out, c)
		}
	}
	return out
}

// FilterWithinRadius keeps competitors within radiusMiles of (lat, lon).
func FilterWithinRadius(lat, lon float64, competitors []model.Competitor, radiusMiles float64) []model.Competitor {
	return NewCompetitorIndex(competitors).WithinRadius(lat, lon, radiusMiles)
}
