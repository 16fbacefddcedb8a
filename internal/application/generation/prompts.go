package generation

import (
	"fmt"
	"strings"

	"github.com/alchemorsel/vitaplan/internal/domain/knowledge"
	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
)

func orNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func writeProfile(b *strings.Builder, u profile.UserMetadata) {
	b.WriteString("## User Profile\n")
	fmt.Fprintf(b, "- Age: %d\n", u.Age)
	fmt.Fprintf(b, "- Sex: %s\n", u.Sex)
	fmt.Fprintf(b, "- Height: %.0f cm\n", u.HeightCM)
	fmt.Fprintf(b, "- Weight: %.1f kg\n", u.WeightKG)
	fmt.Fprintf(b, "- Fitness level: %s\n", u.FitnessLevel)
	fmt.Fprintf(b, "- Medical conditions: %s\n", orNone(u.MedicalConditions))
	fmt.Fprintf(b, "- Restrictions: %s\n\n", orNone(u.Restrictions))
}

func writeEnvironment(b *strings.Builder, env profile.EnvironmentContext) {
	b.WriteString("## Environment\n")
	w := env.Weather
	if w.Condition != "" {
		fmt.Fprintf(b, "- Weather: %s\n", w.Condition)
	}
	if t, ok := env.Temperature(); ok {
		fmt.Fprintf(b, "- Temperature: %.1f C\n", t)
	}
	if w.Humidity != nil {
		fmt.Fprintf(b, "- Humidity: %.0f%%\n", *w.Humidity)
	}
	if aqi, ok := env.AirQualityIndex(); ok {
		fmt.Fprintf(b, "- Air quality index: %d\n", aqi)
	}
	tc := env.TimeContext
	if tc.Season != "" {
		fmt.Fprintf(b, "- Season: %s\n", tc.Season)
	}
	if tc.TimeOfDay != "" {
		fmt.Fprintf(b, "- Time of day: %s\n", tc.TimeOfDay)
	}
	if tc.Date != "" {
		fmt.Fprintf(b, "- Date: %s\n", tc.Date)
	}
	b.WriteString("\n")
}

// writeDirection renders either the user's preference or the style
// injection. A preference always wins: style items become optional.
func writeDirection(b *strings.Builder, req profile.UserRequirement, style plan.Style, themeLabel string) {
	if req.HasPreference() {
		b.WriteString("## User Preference (primary constraint)\n")
		b.WriteString(strings.TrimSpace(req.Preference))
		b.WriteString("\n")
		if len(req.PreferenceTags) > 0 {
			fmt.Fprintf(b, "Preference tags: %s\n", strings.Join(req.PreferenceTags, ", "))
		}
		b.WriteString("The plan must satisfy this preference before anything else.\n\n")

		b.WriteString("## Optional Suggestions\n")
		b.WriteString("Use these only where they fit the preference; ignore them otherwise: ")
		b.WriteString(styleItems(style))
		b.WriteString("\n\n")
		return
	}

	b.WriteString("## Mandatory Components\n")
	b.WriteString("The plan MUST include each of the following:\n")
	for _, m := range style.Mandatory {
		fmt.Fprintf(b, "- %s: %s\n", m.Slot, m.Item)
	}
	fmt.Fprintf(b, "\n## Avoid\nDo not use: %s\n\n", orNone(style.Excluded))
	fmt.Fprintf(b, "## %s\n%s\n\n", themeLabel, style.Theme)
	if len(req.PreferenceTags) > 0 {
		fmt.Fprintf(b, "Preference tags: %s\n\n", strings.Join(req.PreferenceTags, ", "))
	}
}

func styleItems(style plan.Style) string {
	names := make([]string, 0, len(style.Mandatory))
	for _, m := range style.Mandatory {
		names = append(names, m.Item)
	}
	return strings.Join(names, ", ")
}

func writeKnowledge(b *strings.Builder, relations []knowledge.Relation, limit int) {
	if len(relations) == 0 {
		return
	}
	b.WriteString("## Background Knowledge (advisory)\n")
	b.WriteString("General facts from the knowledge graph. Use them as guidance; they never override the user's preference.\n")
	b.WriteString(knowledge.FormatContext(relations, limit))
	b.WriteString("\n")
}

func unitList(kind plan.Kind) string {
	units := plan.UnitsFor(kind)
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = string(u)
	}
	return strings.Join(names, ", ")
}
