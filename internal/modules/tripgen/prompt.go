package tripgen

import (
	"fmt"
	"strconv"
	"strings"
)

const noPreferencesMarker = "No specific preferences"

const (
	placeholderLocation = "{location}"
	placeholderDays     = "{totalDays}"
	placeholderNights   = "{totalNight}"
	placeholderTraveler = "{traveler}"
	placeholderBudget   = "{budget}"
	placeholderWishlist = "{wishlist}"
)

var requiredPlaceholders = []string{
	placeholderLocation,
	placeholderDays,
	placeholderNights,
	placeholderTraveler,
	placeholderBudget,
	placeholderWishlist,
}

// DefaultPromptTemplate asks for the plan layout the trip details view reads.
const DefaultPromptTemplate = `Generate a travel plan for Location: {location}, for {totalDays} Days and {totalNight} Night for {traveler} with a {budget} budget.
Consider these travel preferences from the user's wishlist when relevant: {wishlist}.
Return ONLY a JSON object with these top-level keys:
- "trip_details": {"destination", "duration", "travelers", "budget"}
- "flights": {"details": {"airline", "flight_price", "booking_url"}}
- "hotels": {"options": [{"name", "address", "price", "image_url", "geo_coordinates", "rating", "description"}]}
- "itinerary": one entry per day for {totalDays} Days, each with "day", "best_time_to_visit" and "plan": [{"place_name", "place_details", "image_url", "geo_coordinates", "ticket_pricing", "time_to_travel"}]
Do not wrap the JSON in markdown.`

// BuildPrompt substitutes every placeholder of template with values from req.
// Each placeholder must appear at least once.
func BuildPrompt(template string, req TripRequest) (string, error) {
	var missing []string
	for _, p := range requiredPlaceholders {
		if !strings.Contains(template, p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: missing placeholders %s", ErrTemplate, strings.Join(missing, ", "))
	}

	r := strings.NewReplacer(
		placeholderLocation, req.Destination,
		placeholderDays, strconv.Itoa(req.TotalDays),
		placeholderNights, strconv.Itoa(req.Nights()),
		placeholderTraveler, req.Traveler.Title,
		placeholderBudget, string(req.Budget),
		placeholderWishlist, flattenPreferences(req.Preferences),
	)
	return r.Replace(template), nil
}

func flattenPreferences(prefs []string) string {
	items := make([]string, 0, len(prefs))
	for _, p := range prefs {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return noPreferencesMarker
	}
	return strings.Join(items, ", ")
}
