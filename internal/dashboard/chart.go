package dashboard

import (
	"time"

	"plantwatch/internal/types"
)

// Series is one line of the trend chart. X and Y have equal length.
type Series struct {
	Name  string      `json:"name"`
	Color string      `json:"color"`
	X     []time.Time `json:"x"`
	Y     []float64   `json:"y"`
}

// TrendChart is the dual-series history chart.
type TrendChart struct {
	Title  string   `json:"title"`
	XTitle string   `json:"x_title"`
	YTitle string   `json:"y_title"`
	Series []Series `json:"series"`
}

// DeriveTrendChart plots humidity and temperature against timestamp, in
// that legend order.
// history must already be in ascending timestamp order.
func DeriveTrendChart(history []types.Reading) TrendChart {
	humidity := Series{
		Name:  "Humidity",
		Color: "blue",
		X:     make([]time.Time, 0, len(history)),
		Y:     make([]float64, 0, len(history)),
	}
	temperature := Series{
		Name:  "Temperature",
		Color: "red",
		X:     make([]time.Time, 0, len(history)),
		Y:     make([]float64, 0, len(history)),
	}

	for _, r := range history {
		humidity.X = append(humidity.X, r.Timestamp)
		humidity.Y = append(humidity.Y, r.Humidity)
		temperature.X = append(temperature.X, r.Timestamp)
		temperature.Y = append(temperature.Y, r.Temperature)
	}

	return TrendChart{
		Title:  "Temperature and Humidity Over Time",
		XTitle: "Time",
		YTitle: "Value",
		Series: []Series{humidity, temperature},
	}
}
