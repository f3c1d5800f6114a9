package alerts

import (
	"fmt"

	"cgm-alert-pipeline/src/types"
)

type Notification struct {
	Title   string
	Message string
}

var titles = map[types.AlertName]string{
	types.AlertHigh:          "High Glucose",
	types.AlertLow:           "Low Glucose",
	types.AlertUrgentLow:     "Urgent Low Glucose",
	types.AlertUrgentLowSoon: "Urgent Low Soon",
	types.AlertRise:          "Glucose Rising Fast",
	types.AlertFall:          "Glucose Falling Fast",
	types.AlertNoReadings:    "No Readings",
}

var messages = map[types.AlertName]string{
	types.AlertHigh:          "Glucose is above your high alert level.",
	types.AlertLow:           "Glucose is below your low alert level.",
	types.AlertUrgentLow:     "Glucose is urgently low. Treat now.",
	types.AlertUrgentLowSoon: "Glucose is predicted to be urgently low soon.",
	types.AlertRise:          "Glucose is rising quickly.",
	types.AlertFall:          "Glucose is falling quickly.",
	types.AlertNoReadings:    "No glucose readings have been received recently.",
}

var trendGlyphs = map[types.Trend]string{
	types.TrendDoubleUp:      "⇈",
	types.TrendSingleUp:      "↑",
	types.TrendFortyFiveUp:   "↗",
	types.TrendFlat:          "→",
	types.TrendFortyFiveDown: "↘",
	types.TrendSingleDown:    "↓",
	types.TrendDoubleDown:    "⇊",
}

// NotificationFor renders the push title and body for an alert. It returns
// false for alert names without text; callers must then send nothing.
func NotificationFor(name types.AlertName, reading *types.GlucoseReading) (Notification, bool) {
	title, ok := titles[name]
	if !ok {
		return Notification{}, false
	}
	message := messages[name]
	if message == "" {
		return Notification{}, false
	}

	if reading == nil {
		return Notification{Title: title, Message: message}, true
	}

	if glyph, ok := trendGlyphs[reading.Trend]; ok {
		title = glyph + " " + title
	}
	return Notification{
		Title:   title,
		Message: fmt.Sprintf("%d mg/dL. %s", reading.Value, message),
	}, true
}
