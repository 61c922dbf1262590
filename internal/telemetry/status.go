package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the outbound status payload. Field names match what the
// companion app already expects; target coordinates are null when no
// waypoint is set.
type Status struct {
	HasGpsFix         bool     `json:"hasGpsFix"`
	Satellites        int      `json:"satellites"`
	CurrentLat        float64  `json:"currentLat"`
	CurrentLon        float64  `json:"currentLon"`
	Altitude          float64  `json:"altitude"`
	Heading           float64  `json:"heading"`
	Distance          float64  `json:"distance"`
	Bearing           float64  `json:"bearing"`
	TargetLat         *float64 `json:"targetLat"`
	TargetLon         *float64 `json:"targetLon"`
	Navigating        bool     `json:"navigating"`
	Arrived           bool     `json:"arrived"`
	NavigationEnabled bool     `json:"navigationEnabled"`
}

// Inbound control commands, as sent by the companion app.
const (
	CmdNavEnable   = "NAV_ENABLE"
	CmdNavDisable  = "NAV_DISABLE"
	CmdClearTarget = "CLEAR_TARGET"
	CmdStartCal    = "START_CAL"
	CmdStopCal     = "STOP_CAL"
)

// ParseWaypoint parses the app's waypoint wire format
// "$GPS,latitude,longitude,altitude*", e.g. "$GPS,-32.940931,151.718029,45.2*".
func ParseWaypoint(s string) (lat, lon float64, err error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "$GPS,") || !strings.HasSuffix(s, "*") {
		return 0, 0, fmt.Errorf("telemetry: malformed waypoint %q", s)
	}
	fields := strings.Split(strings.TrimSuffix(strings.TrimPrefix(s, "$GPS,"), "*"), ",")
	if len(fields) != 3 {
		return 0, 0, fmt.Errorf("telemetry: waypoint %q: want 3 fields, got %d", s, len(fields))
	}
	lat, err = strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("telemetry: waypoint latitude %q: %w", fields[0], err)
	}
	lon, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("telemetry: waypoint longitude %q: %w", fields[1], err)
	}
	// Altitude is carried on the wire but unused for surface navigation.
	if _, err := strconv.ParseFloat(fields[2], 64); err != nil {
		return 0, 0, fmt.Errorf("telemetry: waypoint altitude %q: %w", fields[2], err)
	}
	return lat, lon, nil
}
