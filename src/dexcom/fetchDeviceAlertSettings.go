package dexcom

import (
	"context"

	"cgm-alert-pipeline/src/types"
)

type devicesResponse struct {
	Records []struct {
		LastUploadDate string `json:"lastUploadDate"`
		AlertSchedules []struct {
			AlertScheduleSettings struct {
				IsDefaultSchedule bool `json:"isDefaultSchedule"`
				IsEnabled         bool `json:"isEnabled"`
				IsActive          bool `json:"isActive"`
			} `json:"alertScheduleSettings"`
			AlertSettings []struct {
				AlertName string  `json:"alertName"`
				Value     float64 `json:"value"`
				Enabled   bool    `json:"enabled"`
			} `json:"alertSettings"`
		} `json:"alertSchedules"`
	} `json:"records"`
}

// FetchDeviceAlertSettings returns the alert settings of the most recently
// uploaded device, taken from its active schedule, else its default one. An
// empty result means the device exposes no settings.
func (c *Client) FetchDeviceAlertSettings(ctx context.Context, session types.OAuthSession) ([]types.AlertSetting, error) {
	var resp devicesResponse
	if err := c.getJSON(ctx, session, "/v3/users/self/devices", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Records) == 0 {
		return nil, nil
	}

	latest := 0
	for i, r := range resp.Records {
		// lastUploadDate is provider-format, so lexical order is chronological.
		if r.LastUploadDate > resp.Records[latest].LastUploadDate {
			latest = i
		}
	}
	device := resp.Records[latest]

	chosen := -1
	for i, s := range device.AlertSchedules {
		if s.AlertScheduleSettings.IsActive && s.AlertScheduleSettings.IsEnabled {
			chosen = i
			break
		}
		if chosen < 0 && s.AlertScheduleSettings.IsDefaultSchedule {
			chosen = i
		}
	}
	if chosen < 0 {
		return nil, nil
	}

	raw := device.AlertSchedules[chosen].AlertSettings
	settings := make([]types.AlertSetting, 0, len(raw))
	for _, s := range raw {
		settings = append(settings, types.AlertSetting{
			AlertName: types.AlertName(s.AlertName),
			Enabled:   s.Enabled,
			Value:     s.Value,
		})
	}
	return settings, nil
}
