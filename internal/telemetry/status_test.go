package telemetry

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestParseWaypoint(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"typical", "$GPS,-32.940931,151.718029,45.2*", -32.940931, 151.718029, false},
		{"northern hemisphere", "$GPS,48.117300,11.516667,545.4*", 48.1173, 11.516667, false},
		{"trailing newline", "$GPS,1.5,2.5,0.0*\n", 1.5, 2.5, false},
		{"zero altitude", "$GPS,0,0,0*", 0, 0, false},
		{"missing prefix", "GPS,1,2,3*", 0, 0, true},
		{"missing terminator", "$GPS,1,2,3", 0, 0, true},
		{"too few fields", "$GPS,1,2*", 0, 0, true},
		{"too many fields", "$GPS,1,2,3,4*", 0, 0, true},
		{"bad latitude", "$GPS,north,2,3*", 0, 0, true},
		{"bad longitude", "$GPS,1,east,3*", 0, 0, true},
		{"bad altitude", "$GPS,1,2,high*", 0, 0, true},
		{"empty", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon, err := ParseWaypoint(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWaypoint(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if math.Abs(lat-tt.lat) > 1e-9 || math.Abs(lon-tt.lon) > 1e-9 {
				t.Errorf("ParseWaypoint(%q) = (%v, %v), want (%v, %v)",
					tt.input, lat, lon, tt.lat, tt.lon)
			}
		})
	}
}

func TestStatusTargetNullWhenUnset(t *testing.T) {
	b, err := json.Marshal(Status{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(b), `"targetLat":null`) ||
		!strings.Contains(string(b), `"targetLon":null`) {
		t.Errorf("status without a target must carry null coordinates: %s", b)
	}
}
