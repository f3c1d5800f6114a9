package types

import "time"

type ProviderType string

const ProviderDexcom ProviderType = "dexcom"

type Trend string

const (
	TrendFlat          Trend = "flat"
	TrendSingleUp      Trend = "singleUp"
	TrendDoubleUp      Trend = "doubleUp"
	TrendSingleDown    Trend = "singleDown"
	TrendDoubleDown    Trend = "doubleDown"
	TrendFortyFiveUp   Trend = "fortyFiveUp"
	TrendFortyFiveDown Trend = "fortyFiveDown"
	TrendNotComputable Trend = "notComputable"
)

type AlertName string

const (
	AlertHigh          AlertName = "high"
	AlertLow           AlertName = "low"
	AlertUrgentLow     AlertName = "urgentLow"
	AlertUrgentLowSoon AlertName = "urgentLowSoon"
	AlertRise          AlertName = "rise"
	AlertFall          AlertName = "fall"
	AlertNoReadings    AlertName = "noReadings"
)

// GlucoseReading is a single EGV. SystemTime is the device clock in the
// provider's wire format and is parsed on demand.
type GlucoseReading struct {
	UserID     string   `json:"userId,omitempty" dynamodbav:"userId"`
	RecordID   string   `json:"recordId,omitempty" dynamodbav:"recordId,omitempty"`
	Value      int      `json:"value" dynamodbav:"value"`
	SystemTime string   `json:"systemTime" dynamodbav:"systemTime"`
	Trend      Trend    `json:"trend,omitempty" dynamodbav:"trend,omitempty"`
	TrendRate  *float64 `json:"trendRate,omitempty" dynamodbav:"trendRate,omitempty"`
}

// TelemetryRecord is the payload carried by each stream record.
type TelemetryRecord struct {
	UserID  string         `json:"userId"`
	Reading GlucoseReading `json:"reading"`
}

// OAuthSession is treated as an immutable value: refreshing produces a new one.
type OAuthSession struct {
	Email        string       `json:"email" dynamodbav:"email"`
	ProviderType ProviderType `json:"providerType" dynamodbav:"providerType"`
	AccessToken  string       `json:"accessToken" dynamodbav:"accessToken"`
	RefreshToken string       `json:"refreshToken" dynamodbav:"refreshToken"`
	ExpiresAt    int64        `json:"expiresAt" dynamodbav:"expiresAt"`
	RemoteUserID string       `json:"remoteUserId" dynamodbav:"remoteUserId"`
}

func (s OAuthSession) Expired(now time.Time) bool {
	return s.ExpiresAt < now.Unix()
}

// WithTokens returns a copy of the session carrying a new token pair.
func (s OAuthSession) WithTokens(accessToken, refreshToken string, expiresAt int64) OAuthSession {
	s.AccessToken = accessToken
	if refreshToken != "" {
		s.RefreshToken = refreshToken
	}
	s.ExpiresAt = expiresAt
	return s
}

type AlertSetting struct {
	AlertName AlertName `json:"alertName"`
	Enabled   bool      `json:"enabled"`
	Value     float64   `json:"value"`
}

// PersonProfile is a primary user or a guardian looked up as a user.
type PersonProfile struct {
	Email                     string   `json:"email" dynamodbav:"email"`
	Nickname                  string   `json:"nickname,omitempty" dynamodbav:"nickname,omitempty"`
	PhoneNumber               string   `json:"phoneNumber,omitempty" dynamodbav:"phoneNumber,omitempty"`
	UserTopicArn              string   `json:"userTopicArn,omitempty" dynamodbav:"userTopicArn,omitempty"`
	GlucoseAlerts             bool     `json:"glucoseAlerts" dynamodbav:"glucoseAlerts"`
	LowGlucoseAlertThreshold  *float64 `json:"lowGlucoseAlertThreshold,omitempty" dynamodbav:"lowGlucoseAlertThreshold,omitempty"`
	HighGlucoseAlertThreshold *float64 `json:"highGlucoseAlertThreshold,omitempty" dynamodbav:"highGlucoseAlertThreshold,omitempty"`
	CreatedAt                 string   `json:"createdAt,omitempty" dynamodbav:"createdAt,omitempty"`
}

type GuardianStatus string

const (
	GuardianPending GuardianStatus = "pending"
	GuardianActive  GuardianStatus = "active"
)

type GuardianLink struct {
	GuardianEmail             string         `json:"guardianEmail" dynamodbav:"guardianEmail"`
	UserEmail                 string         `json:"userEmail" dynamodbav:"userEmail"`
	Status                    GuardianStatus `json:"status" dynamodbav:"status"`
	LowGlucoseAlertThreshold  *float64       `json:"lowGlucoseAlertThreshold,omitempty" dynamodbav:"lowGlucoseAlertThreshold,omitempty"`
	HighGlucoseAlertThreshold *float64       `json:"highGlucoseAlertThreshold,omitempty" dynamodbav:"highGlucoseAlertThreshold,omitempty"`
}

// Guardian pairs an active link with the guardian's own profile.
type Guardian struct {
	Link    GuardianLink
	Profile PersonProfile
}

// AlertStatus is the cached dedup state for one session.
type AlertStatus struct {
	LastAlertStatus       *AlertName      `json:"lastAlertStatus"`
	LastLowAlertStatuses  map[string]bool `json:"lastLowAlertStatuses"`
	LastHighAlertStatuses map[string]bool `json:"lastHighAlertStatuses"`
}

type BackfillRequest struct {
	Email          string       `json:"email"`
	ProviderType   ProviderType `json:"providerType"`
	StartTimestamp string       `json:"startTimestamp,omitempty"`
	EndTimestamp   string       `json:"endTimestamp,omitempty"`
}

type RefreshRequest struct {
	Email        string        `json:"email"`
	ProviderType ProviderType  `json:"providerType"`
	Session      *OAuthSession `json:"session,omitempty"`
}

// TokenPair is what the provider hands back from a refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// Credential is the shared provider client secret.
type Credential struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}
