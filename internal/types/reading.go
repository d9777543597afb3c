package types

import (
	"fmt"
	"time"
)

// Reading is one persisted sensor observation. ID and Timestamp are always
// assigned server-side at ingestion; readings are never updated.
type Reading struct {
	ID          string    `json:"id"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Timestamp   time.Time `json:"timestamp"`
}

// String renders the reading for log output.
func (r Reading) String() string {
	return fmt.Sprintf("%s at %s: %.2f°C, %.2f%%",
		r.ID, r.Timestamp.Format(time.RFC3339), r.Temperature, r.Humidity)
}

// Before orders readings by timestamp ascending, breaking ties by id so that
// history scans are deterministic.
func (r Reading) Before(other Reading) bool {
	if r.Timestamp.Equal(other.Timestamp) {
		return r.ID < other.ID
	}
	return r.Timestamp.Before(other.Timestamp)
}
