package safety

// Combined is the joint verdict over the diet and exercise assessments
type Combined struct {
	Diet            *Assessment `json:"diet_assessment,omitempty"`
	Exercise        *Assessment `json:"exercise_assessment,omitempty"`
	OverallScore    int         `json:"overall_score"`
	IsSafe          bool        `json:"is_safe"`
	Recommendations []string    `json:"recommendations"`
}

// Combine merges up to two assessments. The overall score is the integer
// mean of the present scores; with none present the result is 100 and safe.
func Combine(diet, exercise *Assessment) Combined {
	out := Combined{Diet: diet, Exercise: exercise, OverallScore: 100, IsSafe: true, Recommendations: []string{}}

	var sum float64
	n := 0
	for _, a := range []*Assessment{diet, exercise} {
		if a == nil {
			continue
		}
		n++
		sum += a.Score
		out.IsSafe = out.IsSafe && a.IsSafe
		out.Recommendations = append(out.Recommendations, a.Recommendations...)
	}
	if n > 0 {
		out.OverallScore = int(sum) / n
	}
	out.Recommendations = Dedupe(out.Recommendations)
	return out
}

// Dedupe drops repeated and empty strings keeping first-seen order
func Dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
