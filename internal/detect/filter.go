// detect/filter.go geometric post-filter for raw cascade output
package detect

import "image"

// GeometricFilter rejects detector candidates whose shape cannot be a
// face. Raw cascade output has a high false-positive rate on
// low-confidence windows; this filter is cheap and removes most of them
// before the appearance model ever runs.
type GeometricFilter struct {
	MinAspect float64 // minimum width/height ratio
	MaxAspect float64 // maximum width/height ratio
	MinSide   int     // absolute floor for width and height, pixels
	MaxSide   int     // absolute ceiling for width and height, pixels
}

// DefaultGeometricFilter returns the filter bounds tuned for a single
// classroom camera at roughly 0.5–3 m subject distance.
func DefaultGeometricFilter() GeometricFilter {
	return GeometricFilter{
		MinAspect: 0.7,
		MaxAspect: 1.3,
		MinSide:   80,
		MaxSide:   400,
	}
}

// Accept reports whether a candidate region passes the filter.
func (f GeometricFilter) Accept(r image.Rectangle) bool {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return false
	}
	aspect := float64(w) / float64(h)
	if aspect < f.MinAspect || aspect > f.MaxAspect {
		return false
	}
	if w < f.MinSide || h < f.MinSide {
		return false
	}
	if w > f.MaxSide || h > f.MaxSide {
		return false
	}
	return true
}

// Apply returns the candidates that pass the filter, preserving order.
func (f GeometricFilter) Apply(candidates []image.Rectangle) []image.Rectangle {
	accepted := make([]image.Rectangle, 0, len(candidates))
	for _, r := range candidates {
		if f.Accept(r) {
			accepted = append(accepted, r)
		}
	}
	return accepted
}

// Largest returns the region with the greatest area, or false when the
// slice is empty. Used when only one subject is expected per frame.
func Largest(regions []image.Rectangle) (image.Rectangle, bool) {
	if len(regions) == 0 {
		return image.Rectangle{}, false
	}
	best := regions[0]
	bestArea := best.Dx() * best.Dy()
	for _, r := range regions[1:] {
		if area := r.Dx() * r.Dy(); area > bestArea {
			best, bestArea = r, area
		}
	}
	return best, true
}
