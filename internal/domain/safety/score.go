package safety

import "math"

// Score is the numeric outcome of the scoring stage
type Score struct {
	Base    float64
	Penalty float64
	Final   float64
}

// ComputeScore applies the pass ratio and severity penalties. No checks at
// all counts as a neutral base of 100.
func ComputeScore(checks []Check, risks []RiskFactor) Score {
	base := 100.0
	if len(checks) > 0 {
		passed := 0
		for _, c := range checks {
			if c.Passed {
				passed++
			}
		}
		base = 100 * float64(passed) / float64(len(checks))
	}

	var penalty float64
	for _, r := range risks {
		penalty += r.Severity.Penalty()
	}

	return Score{
		Base:    round2(base),
		Penalty: penalty,
		Final:   round2(clamp(base-penalty, 0, 100)),
	}
}

// RiskLevelFor maps a final score onto a risk band
func RiskLevelFor(score float64) Severity {
	switch {
	case score >= 80:
		return SeverityLow
	case score >= 60:
		return SeverityModerate
	case score >= 40:
		return SeverityHigh
	default:
		return SeverityVeryHigh
	}
}

// StatusFor maps a final score onto a review status
func StatusFor(score float64) Status {
	switch {
	case score >= 80:
		return StatusPassed
	case score >= 60:
		return StatusWarning
	case score >= 40:
		return StatusReview
	default:
		return StatusFailed
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
