package safety

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
	"github.com/alchemorsel/vitaplan/internal/domain/safety"
)

const semanticSystemPrompt = "You are a safety assessment expert. Return only valid JSON."

type semanticRisk struct {
	Factor         string `json:"factor"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	Severity       string `json:"severity"`
	Recommendation string `json:"recommendation"`
}

type semanticCheck struct {
	Name     string `json:"check_name"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

type semanticReply struct {
	RiskFactors []semanticRisk  `json:"risk_factors"`
	Checks      []semanticCheck `json:"checks"`
}

func semanticPrompt(content plan.Content, user profile.UserMetadata, env profile.EnvironmentContext) (string, error) {
	body, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode plan: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following %s plan for safety issues.\n\n", content.Kind)
	b.WriteString("## User Profile\n")
	fmt.Fprintf(&b, "- Age: %d\n", user.Age)
	fmt.Fprintf(&b, "- Sex: %s\n", user.Sex)
	fmt.Fprintf(&b, "- Fitness Level: %s\n", user.FitnessLevel)
	conditions := "none"
	if len(user.MedicalConditions) > 0 {
		conditions = strings.Join(user.MedicalConditions, ", ")
	}
	fmt.Fprintf(&b, "- Conditions: %s\n\n", conditions)

	b.WriteString("## Environment\n")
	if env.Weather.Condition != "" {
		fmt.Fprintf(&b, "- Weather: %s\n", env.Weather.Condition)
	}
	if t, ok := env.Temperature(); ok {
		fmt.Fprintf(&b, "- Temperature: %.1f C\n", t)
	}
	if aqi, ok := env.AirQualityIndex(); ok {
		fmt.Fprintf(&b, "- Air quality index: %d\n", aqi)
	}
	if env.TimeContext.TimeOfDay != "" {
		fmt.Fprintf(&b, "- Time of day: %s\n", env.TimeContext.TimeOfDay)
	}

	b.WriteString("\n## Plan\n")
	b.Write(body)
	b.WriteString("\n\n## Task\n")
	b.WriteString("Identify any safety concerns that rule-based checks might miss:\n")
	b.WriteString("1. Hidden contraindications\n")
	b.WriteString("2. Unrealistic progression\n")
	b.WriteString("3. Nutrient deficiencies\n")
	b.WriteString("4. Overtraining signs\n")
	b.WriteString("5. Environmental mismatches\n\n")
	b.WriteString("Return JSON with:\n")
	b.WriteString(`- "risk_factors": array of {factor, description, severity} where severity is one of low, moderate, high, very_high` + "\n")
	b.WriteString(`- "checks": array of {check_name, passed, message}` + "\n")
	return b.String(), nil
}

// parseSemantic reads the judge's reply. Unknown severities become moderate.
func parseSemantic(raw string) ([]safety.Check, []safety.RiskFactor, error) {
	text := strings.TrimSpace(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, nil, fmt.Errorf("%w: no JSON object in reply", safety.ErrSemanticAssessment)
	}

	var reply semanticReply
	if err := json.Unmarshal([]byte(text[start:end+1]), &reply); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", safety.ErrSemanticAssessment, err)
	}

	checks := make([]safety.Check, 0, len(reply.Checks))
	for _, c := range reply.Checks {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		check := safety.Check{Name: c.Name, Passed: c.Passed, Message: c.Message, Source: safety.SourceSemantic}
		if !c.Passed && c.Severity != "" {
			check.Severity = safety.ParseSeverity(c.Severity)
		}
		checks = append(checks, check)
	}

	risks := make([]safety.RiskFactor, 0, len(reply.RiskFactors))
	for _, r := range reply.RiskFactors {
		if strings.TrimSpace(r.Factor) == "" && strings.TrimSpace(r.Description) == "" {
			continue
		}
		category := r.Category
		if category == "" {
			category = "semantic"
		}
		risks = append(risks, safety.RiskFactor{
			Factor:         r.Factor,
			Category:       category,
			Severity:       safety.ParseSeverity(r.Severity),
			Description:    r.Description,
			Recommendation: r.Recommendation,
			Source:         safety.SourceSemantic,
		})
	}
	return checks, risks, nil
}
