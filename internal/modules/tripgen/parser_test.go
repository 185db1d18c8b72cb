package tripgen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		strict  bool
		wantErr error
	}{
		{"object", `{"trip_details":{"destination":"Paris"}}`, false, nil},
		{"fenced object", "```json\n{\"trip_details\":{}}\n```", false, nil},
		{"not json", "not json", false, ErrMalformedPlan},
		{"truncated", `{"trip_details":`, false, ErrMalformedPlan},
		{"empty", "", false, ErrMalformedPlan},
		{"array", `[1,2]`, false, ErrSchemaMismatch},
		{"null", `null`, false, ErrSchemaMismatch},
		{"string", `"hello"`, false, ErrSchemaMismatch},
		{"strict missing sections", `{"trip_details":{"destination":"Paris"}}`, true, ErrSchemaMismatch},
		{"strict null section", `{"trip_details":{},"flights":null,"hotels":{},"itinerary":[]}`, true, ErrSchemaMismatch},
		{"strict complete", `{"trip_details":{},"flights":{},"hotels":{"options":[]},"itinerary":[]}`, true, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := ParsePlan(tc.raw, tc.strict)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.wantErr), "got %v, want %v", err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, plan.Raw)
			assert.NotNil(t, plan.Fields)
		})
	}
}

func TestParsePlan_Destination(t *testing.T) {
	plan, err := ParsePlan(`{"trip_details":{"destination":"Paris"}}`, false)
	require.NoError(t, err)
	assert.Equal(t, "Paris", plan.Destination())

	plan, err = ParsePlan(`{"itinerary":[]}`, false)
	require.NoError(t, err)
	assert.Empty(t, plan.Destination())
}

func TestParsePlan_StrictNamesMissingSections(t *testing.T) {
	_, err := ParsePlan(`{"trip_details":{},"itinerary":[]}`, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flights")
	assert.Contains(t, err.Error(), "hotels")
	assert.NotContains(t, err.Error(), "itinerary")
}
