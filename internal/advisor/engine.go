// Package advisor turns the latest reading and the local time of day into
// plain-language care guidance for the plant.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"plantwatch/internal/types"
)

// staleAfter is how old the latest reading may be before the advice warns
// that the sensor may have stopped reporting.
const staleAfter = time.Hour

// LatestSource exposes the most recently fetched reading.
type LatestSource interface {
	Latest() *types.Reading
}

// Engine is the default recommendation collaborator.
type Engine struct {
	source LatestSource
	loc    *time.Location
	now    func() time.Time
}

// NewEngine creates an Engine that evaluates time of day in loc.
func NewEngine(source LatestSource, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{source: source, loc: loc, now: time.Now}
}

// Recommend builds guidance for the current reading. It fails with a
// CollaboratorError when no reading has been fetched yet.
func (e *Engine) Recommend(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", types.ErrCollaborator("recommendation cancelled", err)
	}

	r := e.source.Latest()
	if r == nil {
		return "", types.ErrCollaborator("no sensor reading available yet", nil)
	}

	now := e.now()
	advice := Advise(*r, now.In(e.loc))
	if age := now.Sub(r.Timestamp); age > staleAfter {
		advice = append(advice, fmt.Sprintf(
			"The latest reading is %s old; check that the sensor is still reporting.",
			age.Truncate(time.Minute)))
	}
	return strings.Join(advice, " "), nil
}

// Advise returns one sentence per rule that applies to r at local time at.
func Advise(r types.Reading, at time.Time) []string {
	advice := make([]string, 0, 3)
	advice = append(advice, temperatureAdvice(r.Temperature))
	advice = append(advice, humidityAdvice(r.Humidity))
	advice = append(advice, timeOfDayAdvice(at.Hour(), r))
	return advice
}

func temperatureAdvice(c float64) string {
	switch {
	case c < 10:
		return fmt.Sprintf("At %.1f°C it is too cold: move the plant somewhere warmer and away from drafts.", c)
	case c < 18:
		return fmt.Sprintf("At %.1f°C it is cool: growth will slow, so reduce watering.", c)
	case c < 27:
		return fmt.Sprintf("At %.1f°C the temperature is ideal.", c)
	case c < 32:
		return fmt.Sprintf("At %.1f°C it is warm: provide some shade during the hottest hours.", c)
	default:
		return fmt.Sprintf("At %.1f°C it is too hot: move the plant out of direct sun and check the soil moisture.", c)
	}
}

func humidityAdvice(pct float64) string {
	switch {
	case pct < 30:
		return fmt.Sprintf("Humidity of %.0f%% is very dry: mist the leaves or place the pot on a tray of wet pebbles.", pct)
	case pct < 60:
		return fmt.Sprintf("Humidity of %.0f%% is comfortable.", pct)
	case pct <= 80:
		return fmt.Sprintf("Humidity of %.0f%% is high: improve air circulation.", pct)
	default:
		return fmt.Sprintf("Humidity of %.0f%% is excessive: ventilate and hold off watering to avoid mould.", pct)
	}
}

func timeOfDayAdvice(hour int, r types.Reading) string {
	switch {
	case hour >= 5 && hour < 11:
		if r.Humidity < 60 {
			return "Morning is the best time to water."
		}
		return "Morning: check the soil before watering, the air is already humid."
	case hour >= 11 && hour < 17:
		if r.Temperature >= 27 {
			return "Avoid watering in the midday heat; wait until evening."
		}
		return "Midday: make sure the plant gets bright, indirect light."
	case hour >= 17 && hour < 21:
		return "Evening: water only if the top of the soil is dry."
	default:
		return "Night: do not water, leaves that stay wet overnight invite disease."
	}
}
