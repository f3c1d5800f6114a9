package dexcom

import (
	"context"
	"net/url"
	"time"

	"cgm-alert-pipeline/src/types"
	"cgm-alert-pipeline/src/utils"
)

type egvsResponse struct {
	RecordType string `json:"recordType"`
	UserID     string `json:"userId"`
	Records    []struct {
		RecordID   string   `json:"recordId"`
		SystemTime string   `json:"systemTime"`
		Value      *int     `json:"value"`
		Trend      string   `json:"trend"`
		TrendRate  *float64 `json:"trendRate"`
	} `json:"records"`
}

// FetchReadings returns the EGVs recorded in [start, end]. Records without a
// value (sensor warm-up, errors) are dropped.
func (c *Client) FetchReadings(ctx context.Context, session types.OAuthSession, start, end time.Time) ([]types.GlucoseReading, error) {
	query := url.Values{}
	query.Set("startDate", utils.FormatProviderTime(start))
	query.Set("endDate", utils.FormatProviderTime(end))

	var resp egvsResponse
	if err := c.getJSON(ctx, session, "/v3/users/self/egvs", query, &resp); err != nil {
		return nil, err
	}

	readings := make([]types.GlucoseReading, 0, len(resp.Records))
	for _, r := range resp.Records {
		if r.Value == nil {
			continue
		}
		readings = append(readings, types.GlucoseReading{
			UserID:     session.RemoteUserID,
			RecordID:   r.RecordID,
			Value:      *r.Value,
			SystemTime: r.SystemTime,
			Trend:      types.Trend(r.Trend),
			TrendRate:  r.TrendRate,
		})
	}
	return readings, nil
}
