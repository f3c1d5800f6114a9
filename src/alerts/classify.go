package alerts

import "cgm-alert-pipeline/src/types"

// Thresholds is the fallback alert configuration used when the provider
// cannot supply device settings.
type Thresholds struct {
	UrgentLow float64
	Low       float64
	High      float64
}

// DefaultSettings expands thresholds into an enabled AlertSetting set.
func DefaultSettings(t Thresholds) []types.AlertSetting {
	return []types.AlertSetting{
		{AlertName: types.AlertUrgentLow, Enabled: true, Value: t.UrgentLow},
		{AlertName: types.AlertLow, Enabled: true, Value: t.Low},
		{AlertName: types.AlertHigh, Enabled: true, Value: t.High},
	}
}

// Classify returns the first alert, in priority order, that the reading
// triggers. The second return value is false when nothing fires.
func Classify(reading types.GlucoseReading, settings []types.AlertSetting) (types.AlertName, bool) {
	enabled := make(map[types.AlertName]float64, len(settings))
	for _, s := range settings {
		if s.Enabled {
			enabled[s.AlertName] = s.Value
		}
	}

	value := float64(reading.Value)

	if threshold, ok := enabled[types.AlertHigh]; ok && value > threshold {
		return types.AlertHigh, true
	}
	if threshold, ok := enabled[types.AlertUrgentLow]; ok && value < threshold {
		return types.AlertUrgentLow, true
	}
	if threshold, ok := enabled[types.AlertUrgentLowSoon]; ok && value < threshold {
		return types.AlertUrgentLowSoon, true
	}
	if threshold, ok := enabled[types.AlertLow]; ok && value < threshold {
		return types.AlertLow, true
	}

	if reading.TrendRate == nil {
		return "", false
	}
	rate := *reading.TrendRate

	if threshold, ok := enabled[types.AlertRise]; ok && rate > threshold {
		return types.AlertRise, true
	}
	if threshold, ok := enabled[types.AlertFall]; ok && rate < -threshold {
		return types.AlertFall, true
	}

	return "", false
}
