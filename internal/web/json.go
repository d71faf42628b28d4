package web

import (
	"encoding/json"
	"net/http"

	"github.com/ikke-t/mopo/internal/config"
)

// LimitsJSON is the wire form of the threshold record on /config.json.
type LimitsJSON struct {
	MaxSpeedKmh        float64 `json:"max_speed_kmh"`
	MaxRPM             float64 `json:"max_rpm"`
	SpeedHysteresisKmh float64 `json:"speed_hysteresis_kmh"`
	RPMHysteresis      float64 `json:"rpm_hysteresis"`
}

// Limits converts the wire form to the config record.
func (l LimitsJSON) Limits() config.Limits {
	return config.Limits{
		MaxSpeedKmh:        l.MaxSpeedKmh,
		MaxRPM:             l.MaxRPM,
		SpeedHysteresisKmh: l.SpeedHysteresisKmh,
		RPMHysteresis:      l.RPMHysteresis,
	}
}

// ErrorJSON is the wire form of a rejected request.
type ErrorJSON struct {
	Error string `json:"error"`
}

func writeLimits(w http.ResponseWriter, code int, l config.Limits) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(LimitsJSON{
		MaxSpeedKmh:        l.MaxSpeedKmh,
		MaxRPM:             l.MaxRPM,
		SpeedHysteresisKmh: l.SpeedHysteresisKmh,
		RPMHysteresis:      l.RPMHysteresis,
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorJSON{Error: msg})
}
