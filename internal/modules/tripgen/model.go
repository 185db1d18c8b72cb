// README: Trip request, generation state machine and trip record definitions.
package tripgen

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type BudgetTier string

const (
	BudgetCheap    BudgetTier = "Cheap"
	BudgetModerate BudgetTier = "Moderate"
	BudgetLuxury   BudgetTier = "Luxury"
)

// ParseBudgetTier accepts any casing of the three tiers.
func ParseBudgetTier(s string) (BudgetTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cheap":
		return BudgetCheap, nil
	case "moderate":
		return BudgetModerate, nil
	case "luxury":
		return BudgetLuxury, nil
	}
	return "", fmt.Errorf("%w: unknown budget tier %q", ErrInvalidRequest, s)
}

type TravelerProfile struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Location is the resolved destination, when the caller or the geocoder knows it.
type Location struct {
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	PlaceID          string  `json:"place_id,omitempty"`
}

type TripRequest struct {
	Destination string          `json:"destination"`
	Location    *Location       `json:"location,omitempty"`
	TotalDays   int             `json:"total_days"`
	Traveler    TravelerProfile `json:"traveler"`
	Budget      BudgetTier      `json:"budget"`
	Preferences []string        `json:"preferences,omitempty"`
}

// Nights is one less than the day count; a day trip has zero nights.
func (r TripRequest) Nights() int {
	if r.TotalDays <= 1 {
		return 0
	}
	return r.TotalDays - 1
}

func (r TripRequest) Validate() error {
	if strings.TrimSpace(r.Destination) == "" {
		return fmt.Errorf("%w: missing destination", ErrInvalidRequest)
	}
	if r.TotalDays < 1 {
		return fmt.Errorf("%w: total days must be at least 1, got %d", ErrInvalidRequest, r.TotalDays)
	}
	if _, err := ParseBudgetTier(string(r.Budget)); err != nil {
		return err
	}
	return nil
}

type State string

const (
	StateIdle                State = "idle"
	StateFetchingPreferences State = "fetching_preferences"
	StateBuildingPrompt      State = "building_prompt"
	StateAwaitingCompletion  State = "awaiting_completion"
	StateParsing             State = "parsing"
	StatePersisting          State = "persisting"
	StateSucceeded           State = "succeeded"
	StateFailed              State = "failed"
)

// AllowedTransitions is the generation flow as code. Idle may skip straight to
// building the prompt when the caller is anonymous.
var AllowedTransitions = map[State][]State{
	StateIdle:                {StateFetchingPreferences, StateBuildingPrompt, StateFailed},
	StateFetchingPreferences: {StateBuildingPrompt, StateFailed},
	StateBuildingPrompt:      {StateAwaitingCompletion, StateFailed},
	StateAwaitingCompletion:  {StateParsing, StateFailed},
	StateParsing:             {StatePersisting, StateFailed},
	StatePersisting:          {StateSucceeded, StateFailed},
}

func CanTransition(from, to State) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// TripPlan is the completion's JSON object. Its shape is owned by the prompt,
// so only the raw bytes and the decoded top level are kept.
type TripPlan struct {
	Raw    json.RawMessage
	Fields map[string]any
}

// Destination returns trip_details.destination when the plan carries it.
func (p TripPlan) Destination() string {
	details, ok := p.Fields["trip_details"].(map[string]any)
	if !ok {
		return ""
	}
	dest, _ := details["destination"].(string)
	return dest
}

func (p TripPlan) MarshalJSON() ([]byte, error) {
	if len(p.Raw) == 0 {
		return []byte("null"), nil
	}
	return p.Raw, nil
}

func (p *TripPlan) UnmarshalJSON(data []byte) error {
	plan, err := decodePlan(data)
	if err != nil {
		return err
	}
	*p = plan
	return nil
}

type TripRecord struct {
	ID                 string      `json:"id"`
	OwnerIdentity      string      `json:"owner"`
	Plan               TripPlan    `json:"trip_plan"`
	Request            TripRequest `json:"trip_data"`
	PreferenceSnapshot []string    `json:"preferences"`
	CreatedAt          time.Time   `json:"created_at"`
}

// Outcome is what a caller gets back from one generation attempt.
type Outcome struct {
	State    State
	RecordID string
	// Record is set on success.
	Record *TripRecord
	Err    error
}

func (o Outcome) Succeeded() bool {
	return o.State == StateSucceeded
}
