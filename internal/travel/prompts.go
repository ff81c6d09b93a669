package travel

import (
	"strings"
	"text/template"
)

var prompts = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`
{{define "analyze"}}You are an expert travel planner analyzing a user's travel request.

CONVERSATION SO FAR:
{{join .Conversation "\n"}}

INFORMATION GATHERED SO FAR:
{{.Known}}
TASK:
1. Extract any NEW travel information from the conversation.
2. Work out what is known and what is missing or unclear.
3. Ask 1-3 follow-up questions specific to THIS trip, only if they would genuinely improve the plan.
   If there is enough to plan a good trip, set needs_clarification to false.

Return ONLY this YAML:
` + "```yaml" + `
extracted_info:
  destination: <string or null>
  trip_type: <local/domestic/international or null>
  duration_days: <number or null>
  travelers: <number or null>
  budget: <string like "$2000" or "mid-range" or null>
  travel_style: <luxury/mid-range/budget/backpacker or null>
  interests: <list of specific interests or []>
  start_date: <date string or null>
  special_requirements: <accessibility, dietary or other needs, or null>
needs_clarification: <true/false>
reasoning: <what is known and what is missing>
questions:
  - <question 1 if needed>
` + "```" + `
{{end}}

{{define "identify"}}Identify the top 5 most interesting specific places (hotels, restaurants, attractions) mentioned in this text that are worth checking reviews for.
Return ONLY a YAML list of names.

Text:
{{.Text}}

` + "```yaml" + `
places:
  - <Place Name 1>
  - <Place Name 2>
` + "```" + `
{{end}}

{{define "day"}}Plan day {{.Day}} of a {{.Days}}-day trip to {{.Info.Destination}}.

Trip details:
{{.Known}}
Research notes:
{{.Research}}
Top places and reviews:
{{.Reviews}}
Spread the highlights across all {{.Days}} days and keep this day realistic.
Include morning, afternoon and evening activities, meal recommendations and practical tips.

Return as YAML, quoting any value that contains a colon:
` + "```yaml" + `
morning: <activities>
afternoon: <activities>
evening: <activities>
meals: <recommendations>
tips: <helpful tips>
` + "```" + `
{{end}}

{{define "budget"}}Create a budget breakdown for this trip.

Trip details:
{{.Known}}
Accommodation options:
{{.Accommodations}}
Daily plans:
{{.Plans}}
Break the total down by accommodation, transport, food, activities and a contingency, in the traveler's budget currency when known.
{{end}}

{{define "combine"}}Write the final travel guide for a trip to {{.Info.Destination}} in Markdown.

Trip details:
{{.Known}}
Daily itinerary:
{{.Plans}}
Budget:
{{.Budget}}
Getting around:
{{.Transportation}}
Where to eat:
{{.Restaurants}}
Places and reviews:
{{.Reviews}}
Start with a short overview, then the day-by-day itinerary, then budget, transport, food and practical tips.
{{end}}

{{define "replan"}}Revise this travel plan based on the traveler's feedback.

CURRENT PLAN:
{{.Plan}}

FEEDBACK:
{{.Feedback}}

Trip details:
{{.Known}}
Return the complete revised guide in Markdown, keeping everything the feedback does not ask to change.
{{end}}
`))

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}
