package tripgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// requiredSections are the plan sections the trip details view renders.
var requiredSections = []string{"trip_details", "flights", "hotels", "itinerary"}

// ParsePlan decodes the completion text into a TripPlan. The text must be a
// JSON object; strict additionally requires every section in requiredSections.
func ParsePlan(raw string, strict bool) (TripPlan, error) {
	plan, err := decodePlan([]byte(cleanJSONString(raw)))
	if err != nil {
		return TripPlan{}, err
	}
	if !strict {
		return plan, nil
	}

	var missing []string
	for _, s := range requiredSections {
		if v, ok := plan.Fields[s]; !ok || v == nil {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return TripPlan{}, fmt.Errorf("%w: missing sections %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return plan, nil
}

func decodePlan(data []byte) (TripPlan, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return TripPlan{}, fmt.Errorf("%w: response is not valid JSON", ErrMalformedPlan)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return TripPlan{}, fmt.Errorf("%w: top-level value is not an object", ErrSchemaMismatch)
	}

	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return TripPlan{Raw: raw, Fields: fields}, nil
}

// cleanJSONString removes markdown code blocks if present (e.g. ```json ... ```)
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
