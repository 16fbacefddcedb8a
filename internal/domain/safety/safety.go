// Package safety holds the scoring model for plan safety assessments.
package safety

import (
	"strings"
	"time"
)

// Severity is the ordered risk tier
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityVeryHigh Severity = "very_high"
)

var severityPenalty = map[Severity]float64{
	SeverityLow:      5,
	SeverityModerate: 15,
	SeverityHigh:     30,
	SeverityVeryHigh: 50,
}

// ParseSeverity maps free text onto the four tiers. Unrecognised values
// become moderate so every risk factor carries a valid tier.
func ParseSeverity(raw string) Severity {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(strings.ReplaceAll(s, "-", "_"), " ", "_")
	switch s {
	case "low", "minor":
		return SeverityLow
	case "moderate", "medium":
		return SeverityModerate
	case "high", "major", "severe":
		return SeverityHigh
	case "very_high", "critical":
		return SeverityVeryHigh
	}
	return SeverityModerate
}

// Penalty is the score deduction for the tier
func (s Severity) Penalty() float64 {
	return severityPenalty[s]
}

// Serious reports whether the tier is high or very_high
func (s Severity) Serious() bool {
	return s == SeverityHigh || s == SeverityVeryHigh
}

// Source records which layer produced a finding
type Source string

const (
	SourceRule     Source = "rule"
	SourceSemantic Source = "semantic"
)

// Check is one named test result
type Check struct {
	Name     string   `json:"check_name"`
	Passed   bool     `json:"passed"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity,omitempty"`
	Source   Source   `json:"source"`
}

// RiskFactor is one named risk
type RiskFactor struct {
	Factor         string   `json:"factor"`
	Category       string   `json:"category"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation,omitempty"`
	Source         Source   `json:"source"`
}

// Status is the review outcome derived from the score
type Status string

const (
	StatusPassed  Status = "passed"
	StatusWarning Status = "warning"
	StatusReview  Status = "review"
	StatusFailed  Status = "failed"
)

// Confidence values
const (
	FullConfidence    = 1.0
	ReducedConfidence = 0.6
)

// Options control one assessment
type Options struct {
	EnableRuleChecks bool    `json:"enable_rule_checks"`
	Threshold        float64 `json:"threshold"`
}

// Assessment is the immutable result of assessing one plan
type Assessment struct {
	PlanKind        string       `json:"plan_kind"`
	Checks          []Check      `json:"safety_checks"`
	RiskFactors     []RiskFactor `json:"risk_factors"`
	BaseScore       float64      `json:"base_score"`
	SeverityPenalty float64      `json:"severity_penalty"`
	Score           float64      `json:"score"`
	IsSafe          bool         `json:"is_safe"`
	RiskLevel       Severity     `json:"risk_level"`
	Status          Status       `json:"status"`
	Confidence      float64      `json:"confidence"`
	Recommendations []string     `json:"recommendations"`
	Warnings        []string     `json:"warnings"`
	// Degradations lists informational failures such as a failed semantic layer
	Degradations []string  `json:"degradations,omitempty"`
	AssessedAt   time.Time `json:"assessed_at"`
}
