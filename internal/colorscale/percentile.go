package colorscale

import (
	"fmt"
	"sort"
)

// Bucket is one quantile range and its palette color.
type Bucket struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Color string  `json:"color"`
}

// Percentiles sorts values ascending and splits them into five equal-count
// buckets at the 0/20/40/60/80/100 breakpoints. Bucket i spans
// [v[floor(lo*n)], v[max(floor(hi*n)-1, floor(lo*n))]]. Returns nil when
// values is empty. The input slice is not modified.
func Percentiles(values []float64) []Bucket {
	n := len(values)
	if n == 0 {
		return nil
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	buckets := make([]Bucket, len(Palette))
	for i := range Palette {
		lo := Breakpoints[i] * n / 100
		hi := Breakpoints[i+1]*n/100 - 1
		if hi < lo {
			hi = lo
		}
		if lo > n-1 {
			lo = n - 1
		}
		if hi > n-1 {
			hi = n - 1
		}
		buckets[i] = Bucket{Min: sorted[lo], Max: sorted[hi], Color: Palette[i]}
	}
	return buckets
}

// ColorForValue returns the color of the first bucket whose [Min, Max]
// contains v. Values below the lowest bucket resolve to the lightest color,
// values above the highest to the darkest. Anything else (a value falling in
// a gap between buckets) gets the lightest color.
func ColorForValue(v float64, buckets []Bucket) string {
	if len(buckets) == 0 {
		return Palette[0]
	}
	if v < buckets[0].Min {
		return buckets[0].Color
	}
	if last := buckets[len(buckets)-1]; v > last.Max {
		return last.Color
	}
	for _, b := range buckets {
		if v >= b.Min && v <= b.Max {
			return b.Color
		}
	}
	return buckets[0].Color
}

// BucketIndex is ColorForValue returning the bucket position instead.
func BucketIndex(v float64, buckets []Bucket) int {
	c := ColorForValue(v, buckets)
	for i, b := range buckets {
		if b.Color == c {
			return i
		}
	}
	return 0
}

var densityLabels = [5]string{
	"Lowest Density",
	"Low Density",
	"Medium Density",
	"High Density",
	"Highest Density",
}

// Label returns the density label and the range description for bucket i,
// e.g. "Low Density", "20-40th percentile: 2.0% - 3.5%".
func (b Bucket) Label(i int) (label, description string) {
	if i < 0 || i >= len(densityLabels) {
		return "", ""
	}
	return densityLabels[i], fmt.Sprintf("%d-%dth percentile: %.1f%% - %.1f%%",
		Breakpoints[i], Breakpoints[i+1], b.Min, b.Max)
}
