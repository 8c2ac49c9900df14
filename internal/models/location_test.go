package models

import (
	"math"
	"testing"
)

func TestLocation_Valid(t *testing.T) {
	tests := []struct {
		name     string
		loc      Location
		expected bool
	}{
		{"hyderabad", Location{Lat: 17.3850, Lon: 78.4867}, true},
		{"origin", Location{}, true},
		{"north pole", Location{Lat: 90, Lon: 0}, true},
		{"antimeridian", Location{Lat: 0, Lon: -180}, true},
		{"lat too large", Location{Lat: 90.0001, Lon: 0}, false},
		{"lon too small", Location{Lat: 0, Lon: -180.5}, false},
		{"nan lat", Location{Lat: math.NaN(), Lon: 0}, false},
		{"nan lon", Location{Lat: 0, Lon: math.NaN()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.Valid(); got != tt.expected {
				t.Errorf("Valid() = %v, want %v", got, tt.expected)
			}
		})
	}
}
