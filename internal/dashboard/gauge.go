package dashboard

import "fmt"

// GaugeKind selects one of the two fixed gauge configurations.
type GaugeKind string

const (
	GaugeHumidity    GaugeKind = "humidity"
	GaugeTemperature GaugeKind = "temperature"
)

// Band is one colored sub-range of a gauge domain.
type Band struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Color string  `json:"color"`
}

// GaugeSpec describes how to draw one gauge. Value is the raw reading and
// may fall outside [Min, Max]; ActiveBand is the index of the band that
// colors it.
type GaugeSpec struct {
	Kind       GaugeKind `json:"kind"`
	Title      string    `json:"title"`
	Value      float64   `json:"value"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	BarColor   string    `json:"bar_color"`
	Bands      []Band    `json:"bands"`
	ActiveBand int       `json:"active_band"`
}

type gaugeConfig struct {
	title    string
	min, max float64
	barColor string
	bands    [3]Band
}

var gaugeConfigs = map[GaugeKind]gaugeConfig{
	GaugeHumidity: {
		title:    "Current Humidity (%)",
		min:      0,
		max:      100,
		barColor: "#AF1740",
		bands: [3]Band{
			{Min: 0, Max: 30, Color: "lightblue"},
			{Min: 30, Max: 60, Color: "blue"},
			{Min: 60, Max: 100, Color: "darkblue"},
		},
	},
	GaugeTemperature: {
		title:    "Current Temperature (°C)",
		min:      0,
		max:      85,
		barColor: "#7AB2D3",
		bands: [3]Band{
			{Min: 0, Max: 30, Color: "lightgreen"},
			{Min: 30, Max: 60, Color: "yellow"},
			{Min: 60, Max: 85, Color: "red"},
		},
	},
}

// DeriveGauge builds the gauge for value. The needle is never clamped:
// values below the domain fall in the first band and values at or above the
// last band's lower bound fall in the topmost band.
func DeriveGauge(value float64, kind GaugeKind) (GaugeSpec, error) {
	cfg, ok := gaugeConfigs[kind]
	if !ok {
		return GaugeSpec{}, fmt.Errorf("unknown gauge kind %q", kind)
	}

	return GaugeSpec{
		Kind:       kind,
		Title:      cfg.title,
		Value:      value,
		Min:        cfg.min,
		Max:        cfg.max,
		BarColor:   cfg.barColor,
		Bands:      cfg.bands[:],
		ActiveBand: bandIndex(value, cfg.bands),
	}, nil
}

// bandIndex treats bands as half-open [min, max) except the last, which
// absorbs everything above it.
func bandIndex(value float64, bands [3]Band) int {
	for i := len(bands) - 1; i > 0; i-- {
		if value >= bands[i].Min {
			return i
		}
	}
	return 0
}
