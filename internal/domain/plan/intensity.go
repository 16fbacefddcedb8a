package plan

import "strings"

// Intensity is the ordered exertion level of an exercise item
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityModerate Intensity = "moderate"
	IntensityHigh     Intensity = "high"
	IntensityVeryHigh Intensity = "very_high"
)

var intensityLadder = []Intensity{IntensityLow, IntensityModerate, IntensityHigh, IntensityVeryHigh}

// NormalizeIntensity maps free text onto the ladder; unknown values stay as given
func NormalizeIntensity(raw string) Intensity {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(strings.ReplaceAll(s, "-", "_"), " ", "_")
	switch s {
	case "light", "easy":
		return IntensityLow
	case "medium", "mid":
		return IntensityModerate
	case "vigorous", "hard":
		return IntensityHigh
	case "max", "maximal", "very_hard":
		return IntensityVeryHigh
	}
	return Intensity(s)
}

// Shift moves the intensity by delta levels, clamped to the ladder.
// Unknown intensities are returned unchanged.
func (i Intensity) Shift(delta int) Intensity {
	for idx, level := range intensityLadder {
		if level != i {
			continue
		}
		next := idx + delta
		if next < 0 {
			next = 0
		}
		if next >= len(intensityLadder) {
			next = len(intensityLadder) - 1
		}
		return intensityLadder[next]
	}
	return i
}
