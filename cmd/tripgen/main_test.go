package main

import (
	"errors"
	"testing"

	"wander/internal/modules/tripgen"
)

func TestFinishRequest(t *testing.T) {
	base := tripgen.TripRequest{
		Destination: "Kyoto",
		TotalDays:   3,
		Traveler:    tripgen.TravelerProfile{Title: "Just Me"},
	}

	cases := []struct {
		name    string
		budget  string
		want    tripgen.BudgetTier
		wantErr bool
	}{
		{"lowercase", "moderate", tripgen.BudgetModerate, false},
		{"upper", "LUXURY", tripgen.BudgetLuxury, false},
		{"canonical", "Cheap", tripgen.BudgetCheap, false},
		{"unknown", "free", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := finishRequest(base, tc.budget, listFlag{"temples"})
			if tc.wantErr {
				if !errors.Is(err, tripgen.ErrInvalidRequest) {
					t.Fatalf("expected ErrInvalidRequest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Budget != tc.want {
				t.Errorf("budget = %q, want %q", req.Budget, tc.want)
			}
			if len(req.Preferences) != 1 || req.Preferences[0] != "temples" {
				t.Errorf("preferences = %v", req.Preferences)
			}
		})
	}

	if _, err := finishRequest(tripgen.TripRequest{TotalDays: 2}, "cheap", nil); !errors.Is(err, tripgen.ErrInvalidRequest) {
		t.Errorf("missing destination: expected ErrInvalidRequest, got %v", err)
	}
}
