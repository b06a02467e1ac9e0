package geo

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/sells-group/placemap/internal/model"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50

	// pointTolerance is the side of the degenerate rect stored per point.
	pointTolerance = 1e-7
)

// competitorItem wraps a competitor for R-tree indexing. pos keeps the
// input order so results are returned in a stable order.
type competitorItem struct {
	pos  int
	c    model.Competitor
	rect *rtreego.Rect
}

func (ci *competitorItem) Bounds() *rtreego.Rect {
	return ci.rect
}

// CompetitorIndex is an R-tree over competitor coordinates. It is built once
// per competitor dataset and is safe for concurrent reads.
type CompetitorIndex struct {
	tree *rtreego.Rtree
	size int
}

// NewCompetitorIndex indexes competitors by (lat, lon).
func NewCompetitorIndex(competitors []model.Competitor) *CompetitorIndex {
	items := make([]rtreego.Spatial, 0, len(competitors))
	for i, c := range competitors {
		p := rtreego.Point{c.Latitude, c.Longitude}
		items = append(items, &competitorItem{pos: i, c: c, rect: p.ToRect(pointTolerance)})
	}
	return &CompetitorIndex{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren, items...),
		size: len(items),
	}
}

// Size returns the number of indexed competitors.
func (ix *CompetitorIndex) Size() int {
	return ix.size
}

// WithinRadius returns the competitors whose Haversine distance from
// (lat, lon) is <= radiusMiles, in their original order. The R-tree narrows
// candidates to a bounding box; the exact distance check decides.
func (ix *CompetitorIndex) WithinRadius(lat, lon, radiusMiles float64) []model.Competitor {
	if ix.size == 0 || radiusMiles < 0 {
		return nil
	}

	boxes, err := searchBounds(lat, lon, radiusMiles)
	if err != nil {
		return nil
	}

	var hits []*competitorItem
	seen := make(map[int]bool)
	for _, box := range boxes {
		for _, s := range ix.tree.SearchIntersect(box) {
			item, ok := s.(*competitorItem)
			if !ok || seen[item.pos] {
				continue
			}
			seen[item.pos] = true
			d := HaversineMiles(lat, lon, item.c.Latitude, item.c.Longitude)
			if WithinRadius(d, radiusMiles) {
				hits = append(hits, item)
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]model.Competitor, len(hits))
	for i, h := range hits {
		out[i] = h.c
	}
	return out
}

// searchBounds returns lat/lon boxes that together contain every point
// within radiusMiles of the center. The longitude span widens with
// latitude, and a span crossing the antimeridian is split in two.
func searchBounds(lat, lon, radiusMiles float64) ([]*rtreego.Rect, error) {
	latDeg := (radiusMiles * KMPerMile / EarthRadiusKM) * (180 / math.Pi)
	latDeg = latDeg*1.01 + 1e-6

	lonDeg := 180.0
	if cos := math.Cos(toRad(lat)); cos > 1e-6 {
		lonDeg = math.Min(latDeg/cos, 180)
	}

	lo, hi := lon-lonDeg, lon+lonDeg
	var spans [][2]float64
	switch {
	case lonDeg >= 180:
		spans = [][2]float64{{-180, 180}}
	case lo < -180:
		spans = [][2]float64{{lo + 360, 180}, {-180, hi}}
	case hi > 180:
		spans = [][2]float64{{lo, 180}, {-180, hi - 360}}
	default:
		spans = [][2]float64{{lo, hi}}
	}

	boxes := make([]*rtreego.Rect, 0, len(spans))
	for _, sp := range spans {
		r, err := rtreego.NewRect(
			rtreego.Point{lat - latDeg, sp[0] - pointTolerance},
			[]float64{2 * latDeg, sp[1] - sp[0] + 2*pointTolerance},
		)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, r)
	}
	return boxes, nil
}
