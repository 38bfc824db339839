package semantic

import (
	"math"
	"strconv"

	"github.com/dukex/lineforge/pkg/equipment"
	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/template"
)

const systemInstruction = `You review kitchen line build steps for a restaurant operations team.
Judge the step only against the rule you are given.
Answer with a single JSON object and nothing else:
{"pass": boolean, "failures": [string], "reasoning": string}
"failures" lists each concrete problem when pass is false and is empty otherwise.`

const promptTemplate = `Rule: {{ .rule }}
{{- if .guidance }}
Guidance: {{ .guidance }}
{{- end }}

Menu item: {{ .item }}
Step action: {{ .action }}
Target: {{ .target }}
Equipment: {{ .equipment }}
{{- if .capability }} (canonical: {{ .capability }}){{ end }}
Duration: {{ .duration }}
Phase: {{ .phase }}
{{- if .station }}
Station: {{ .station }}
{{- end }}
{{- if .notes }}
Notes: {{ .notes }}
{{- end }}`

const notSpecified = "not specified"

// buildPrompt describes unit in the context of its build for the reasoning
// service.
func buildPrompt(rule models.ValidationRule, unit models.WorkUnit, build *models.LineBuild,
	catalog models.CatalogLookup, capability equipment.Capability,
) (string, error) {
	item := notSpecified
	if build != nil && build.ItemID != "" {
		item = build.ItemID
		if catalog != nil {
			item = catalog(build.ItemID)
		}
	}

	target := unit.Tags.Target.Name
	if target == "" {
		target = unit.Tags.Target.BomID
	}

	return template.Render(promptTemplate, map[string]any{
		"rule":       rule.Prompt,
		"guidance":   rule.Guidance,
		"item":       item,
		"action":     string(unit.Tags.Action),
		"target":     orNotSpecified(target),
		"equipment":  orNotSpecified(unit.Tags.Equipment),
		"capability": string(capability),
		"duration":   FormatDuration(unit.Tags.Duration),
		"phase":      orNotSpecified(unit.Tags.Phase),
		"station":    unit.Tags.Station,
		"notes":      unit.Notes,
	})
}

// FormatDuration renders d in one unit: whole or fractional seconds below a
// minute ("45 sec"), fractional minutes otherwise ("1.5 min").
func FormatDuration(d *models.Duration) string {
	if d == nil {
		return notSpecified
	}

	seconds := d.Seconds()

	var out string
	if seconds < 60 {
		out = strconv.FormatFloat(seconds, 'f', -1, 64) + " sec"
	} else {
		minutes := math.Round(seconds/60*100) / 100
		out = strconv.FormatFloat(minutes, 'f', -1, 64) + " min"
	}

	if d.Activity != "" {
		out += " (" + string(d.Activity) + ")"
	}

	return out
}

func orNotSpecified(s string) string {
	if s == "" {
		return notSpecified
	}

	return s
}
