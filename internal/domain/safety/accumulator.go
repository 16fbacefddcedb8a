package safety

import "time"

// Accumulator collects checks and risk factors in stage order. Findings are
// only ever appended.
type Accumulator struct {
	checks       []Check
	risks        []RiskFactor
	degradations []string
	confidence   float64
}

// NewAccumulator starts an accumulator at full confidence
func NewAccumulator() *Accumulator {
	return &Accumulator{confidence: FullConfidence}
}

// AddCheck appends a check
func (a *Accumulator) AddCheck(c Check) {
	a.checks = append(a.checks, c)
}

// AddRisk appends a risk factor, coercing its severity onto a valid tier
func (a *Accumulator) AddRisk(r RiskFactor) {
	if _, ok := severityPenalty[r.Severity]; !ok {
		r.Severity = ParseSeverity(string(r.Severity))
	}
	a.risks = append(a.risks, r)
}

// Fail records a failed check together with its risk factor
func (a *Accumulator) Fail(c Check, r RiskFactor) {
	c.Passed = false
	if c.Severity == "" {
		c.Severity = r.Severity
	}
	a.AddCheck(c)
	a.AddRisk(r)
}

// Degrade records an informational failure and lowers confidence
func (a *Accumulator) Degrade(reason string, confidence float64) {
	a.degradations = append(a.degradations, reason)
	if confidence < a.confidence {
		a.confidence = confidence
	}
}

// Checks returns a copy of the collected checks
func (a *Accumulator) Checks() []Check {
	return append([]Check(nil), a.checks...)
}

// Risks returns a copy of the collected risk factors
func (a *Accumulator) Risks() []RiskFactor {
	return append([]RiskFactor(nil), a.risks...)
}

// Degradations returns a copy of the recorded degradations
func (a *Accumulator) Degradations() []string {
	return append([]string(nil), a.degradations...)
}

// Confidence is the lowest confidence recorded
func (a *Accumulator) Confidence() float64 {
	return a.confidence
}

// Finalize scores the collected findings and classifies the result. It is
// the only way an Assessment is built from an accumulator.
func (a *Accumulator) Finalize(planKind string, threshold float64, recommendations []string, now time.Time) Assessment {
	checks, risks := a.Checks(), a.Risks()
	score := ComputeScore(checks, risks)

	warnings := []string{}
	for _, r := range risks {
		if r.Severity.Serious() {
			warnings = append(warnings, r.Description)
		}
	}
	if recommendations == nil {
		recommendations = []string{}
	}

	return Assessment{
		PlanKind:        planKind,
		Checks:          checks,
		RiskFactors:     risks,
		BaseScore:       score.Base,
		SeverityPenalty: score.Penalty,
		Score:           score.Final,
		IsSafe:          score.Final >= threshold,
		RiskLevel:       RiskLevelFor(score.Final),
		Status:          StatusFor(score.Final),
		Confidence:      a.Confidence(),
		Recommendations: recommendations,
		Warnings:        warnings,
		Degradations:    a.Degradations(),
		AssessedAt:      now,
	}
}
