// recognizer/decision.go three-way acceptance decision over raw LBPH
// distances. Distance is a nearest-neighbor dissimilarity where lower is
// better; it is never a probability.
package recognizer

import "math"

// Verdict is the outcome of one prediction against the decision policy.
type Verdict int

const (
	// VerdictAccept: distance under the strict threshold.
	VerdictAccept Verdict = iota
	// VerdictAcceptLenient: inside the lenient band above the strict
	// threshold. Accepted under current product policy; the band
	// multiplier is explicit configuration so callers can tighten it.
	VerdictAcceptLenient
	// VerdictUncertain: too far to accept, close enough to show the
	// candidate for diagnostics.
	VerdictUncertain
	// VerdictUnknown: no plausible match.
	VerdictUnknown
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccept:
		return "accept"
	case VerdictAcceptLenient:
		return "accept-lenient"
	case VerdictUncertain:
		return "uncertain"
	default:
		return "unknown"
	}
}

// Policy holds the named decision configuration. All accept and reject
// decisions use the raw distance against these values, never the display
// percentage.
type Policy struct {
	Threshold   float64 // strict acceptance threshold
	LenientBand float64 // multiplier on Threshold for the lenient band
}

// uncertainBand bounds the "show as uncertain" region at a fixed
// multiple of the strict threshold.
const uncertainBand = 2.0

// Decide classifies a raw distance.
func (p Policy) Decide(distance float64) Verdict {
	switch {
	case distance < p.Threshold:
		return VerdictAccept
	case distance < p.Threshold*p.LenientBand:
		return VerdictAcceptLenient
	case distance < p.Threshold*uncertainBand:
		return VerdictUncertain
	default:
		return VerdictUnknown
	}
}

// Accepted reports whether a verdict gates an attendance mark.
func (p Policy) Accepted(v Verdict) bool {
	return v == VerdictAccept || v == VerdictAcceptLenient
}

// RejectDistance is the distance at and beyond which Predict returns no
// identity.
func (p Policy) RejectDistance() float64 {
	return p.Threshold * p.LenientBand
}

// ConfidencePercent converts a raw distance to a 0-100 display value.
// Purely cosmetic for UI and logs; decisions never use it.
func (p Policy) ConfidencePercent(distance float64) float64 {
	maxDistance := p.Threshold * 2
	pct := 100 - distance/maxDistance*100
	if pct < 0 {
		pct = 0
	}
	return math.Round(pct*100) / 100
}
