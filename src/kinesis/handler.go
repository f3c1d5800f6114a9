package kinesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"cgm-alert-pipeline/src/alerts"
	"cgm-alert-pipeline/src/cache"
	"cgm-alert-pipeline/src/dynamo"
	apperrors "cgm-alert-pipeline/src/errors"
	"cgm-alert-pipeline/src/logger"
	"cgm-alert-pipeline/src/metrics"
	"cgm-alert-pipeline/src/types"
	"cgm-alert-pipeline/src/utils"
)

const (
	consumerAlerts = "alerts"
	consumerRaw    = "raw"
)

// AlertStore is the storage the alert consumer reads profiles from and
// writes the latest reading to.
type AlertStore interface {
	ListSessionsByUserId(ctx context.Context, remoteUserID string) ([]types.OAuthSession, error)
	GetUser(ctx context.Context, email string) (*types.PersonProfile, error)
	ListGuardianLinksForUser(ctx context.Context, email string) ([]types.GuardianLink, error)
	SaveLatestReading(ctx context.Context, reading types.GlucoseReading, userID string) error
}

type SettingsProvider interface {
	FetchDeviceAlertSettings(ctx context.Context, session types.OAuthSession) ([]types.AlertSetting, error)
}

type Notifier interface {
	PublishPush(ctx context.Context, destination, title, message, notificationID string) error
	SendLowAlertVoiceCall(ctx context.Context, phoneNumber string, isGuardian bool) error
	SendHighAlertVoiceCall(ctx context.Context, phoneNumber string, isGuardian bool) error
}

type AlertOptions struct {
	DefaultSettings []types.AlertSetting
	StatusTTL       time.Duration
	StaleAfter      time.Duration
	Now             func() time.Time
}

// AlertProcessor evaluates each stream reading against the owner's alert
// settings and fans notifications out to the user and their guardians.
type AlertProcessor struct {
	store    AlertStore
	provider SettingsProvider
	notifier Notifier
	cache    cache.Store
	opts     AlertOptions
}

func NewAlertProcessor(store AlertStore, provider SettingsProvider, notifier Notifier, statusCache cache.Store, opts AlertOptions) *AlertProcessor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 10 * time.Minute
	}
	if opts.StatusTTL <= 0 {
		opts.StatusTTL = time.Hour
	}
	return &AlertProcessor{store: store, provider: provider, notifier: notifier, cache: statusCache, opts: opts}
}

// Handler processes records one at a time, in delivery order, and reports
// the sequence numbers of records that failed.
func (p *AlertProcessor) Handler(ctx context.Context, kinesisEvent events.KinesisEvent) events.KinesisEventResponse {
	var response events.KinesisEventResponse

	for _, record := range kinesisEvent.Records {
		log := logger.WithFields("sequenceNumber", record.Kinesis.SequenceNumber)

		outcome, err := p.processRecord(ctx, log, record.Kinesis.Data)
		if err != nil {
			log.Error("failed to process telemetry record", "error", err)
			response.BatchItemFailures = append(response.BatchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
			metrics.RecordProcessed(consumerAlerts, metrics.OutcomeFailed)
			continue
		}
		metrics.RecordProcessed(consumerAlerts, outcome)
	}

	return response
}

func (p *AlertProcessor) processRecord(ctx context.Context, log *slog.Logger, data []byte) (string, error) {
	telemetry, err := decodeRecord(data)
	if err != nil {
		return "", err
	}
	reading := telemetry.Reading
	log = log.With("userId", telemetry.UserID)

	age, err := utils.GetTimeDiff(p.opts.Now(), reading.SystemTime)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorTypeValidation, "INVALID_TIMESTAMP", "Invalid reading system time")
	}
	if age >= p.opts.StaleAfter {
		log.Debug("dropping stale reading", "age", age.String())
		return metrics.OutcomeStale, nil
	}

	sessions, err := p.store.ListSessionsByUserId(ctx, telemetry.UserID)
	if err != nil {
		return "", err
	}

	for _, session := range sessions {
		if session.ProviderType != types.ProviderDexcom || session.Expired(p.opts.Now()) {
			continue
		}
		if err := p.evaluateSession(ctx, session, reading); err != nil {
			log.Error("alert evaluation failed", "email", session.Email, "error", err)
		}
	}

	if err := p.store.SaveLatestReading(ctx, reading, telemetry.UserID); err != nil {
		return "", err
	}
	return metrics.OutcomeOK, nil
}

func (p *AlertProcessor) evaluateSession(ctx context.Context, session types.OAuthSession, reading types.GlucoseReading) error {
	log := logger.WithFields("email", session.Email)

	profile, err := p.store.GetUser(ctx, session.Email)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	guardians, err := p.activeGuardians(ctx, session.Email)
	if err != nil {
		return fmt.Errorf("load guardians: %w", err)
	}

	settings, err := p.provider.FetchDeviceAlertSettings(ctx, session)
	if err != nil {
		log.Warn("using default alert settings", "error", err)
	}
	if len(settings) == 0 {
		settings = p.opts.DefaultSettings
	}

	current, fires := alerts.Classify(reading, settings)

	key := cache.StatusKey(session.ProviderType, session.Email)
	previous, hadPrevious := cache.LoadAlertStatus(ctx, p.cache, key)

	next := types.AlertStatus{
		LastLowAlertStatuses:  map[string]bool{},
		LastHighAlertStatuses: map[string]bool{},
	}
	if fires {
		next.LastAlertStatus = &current
	}

	if fires && (!hadPrevious || previous.LastAlertStatus == nil || *previous.LastAlertStatus != current) {
		p.pushAlert(ctx, current, reading, *profile, guardians)
	}

	p.voiceAlerts(ctx, reading, profile.Email, profile.PhoneNumber, profile.LowGlucoseAlertThreshold, profile.HighGlucoseAlertThreshold, false, previous, next)
	for _, guardian := range guardians {
		p.voiceAlerts(ctx, reading, guardian.Profile.Email, guardian.Profile.PhoneNumber, guardian.Link.LowGlucoseAlertThreshold, guardian.Link.HighGlucoseAlertThreshold, true, previous, next)
	}

	cache.SaveAlertStatus(ctx, p.cache, key, next, p.opts.StatusTTL)
	return nil
}

// activeGuardians resolves active links to guardian profiles. Pending links
// never receive alerts.
func (p *AlertProcessor) activeGuardians(ctx context.Context, email string) ([]types.Guardian, error) {
	links, err := p.store.ListGuardianLinksForUser(ctx, email)
	if err != nil {
		return nil, err
	}

	var guardians []types.Guardian
	for _, link := range links {
		if link.Status != types.GuardianActive {
			continue
		}
		profile, err := p.store.GetUser(ctx, link.GuardianEmail)
		if errors.Is(err, dynamo.ErrNotFound) {
			logger.Warn("guardian has no profile", "email", email, "guardianEmail", link.GuardianEmail)
			continue
		}
		if err != nil {
			return nil, err
		}
		guardians = append(guardians, types.Guardian{Link: link, Profile: *profile})
	}
	return guardians, nil
}

func (p *AlertProcessor) pushAlert(ctx context.Context, name types.AlertName, reading types.GlucoseReading, profile types.PersonProfile, guardians []types.Guardian) {
	notification, ok := alerts.NotificationFor(name, &reading)
	if !ok {
		return
	}
	notificationID := uuid.NewString()

	if profile.UserTopicArn != "" && profile.GlucoseAlerts {
		p.push(ctx, profile.Email, profile.UserTopicArn, notification.Title, notification.Message, notificationID, name)
	}

	title := notification.Title
	if profile.Nickname != "" {
		title = profile.Nickname + ": " + title
	}
	for _, guardian := range guardians {
		if guardian.Profile.UserTopicArn == "" || !guardian.Profile.GlucoseAlerts {
			continue
		}
		p.push(ctx, guardian.Profile.Email, guardian.Profile.UserTopicArn, title, notification.Message, notificationID, name)
	}
}

func (p *AlertProcessor) push(ctx context.Context, email, destination, title, message, notificationID string, name types.AlertName) {
	if err := p.notifier.PublishPush(ctx, destination, title, message, notificationID); err != nil {
		logger.Error("push failed", "email", email, "alert", name, "error", err)
		return
	}
	metrics.NotificationSent("push", string(name))
}

// voiceAlerts places low and high calls independently. Each kind stays
// suppressed while the cached flag for email is true and the reading still
// satisfies it.
func (p *AlertProcessor) voiceAlerts(ctx context.Context, reading types.GlucoseReading, email, phone string, low, high *float64, isGuardian bool, previous, next types.AlertStatus) {
	if phone == "" {
		return
	}
	value := float64(reading.Value)

	if low != nil {
		below := value < *low
		next.LastLowAlertStatuses[email] = below
		if below && !previous.LastLowAlertStatuses[email] {
			if err := p.notifier.SendLowAlertVoiceCall(ctx, phone, isGuardian); err != nil {
				logger.Error("low voice call failed", "email", email, "error", err)
				next.LastLowAlertStatuses[email] = false
			} else {
				metrics.NotificationSent("voice", string(types.AlertLow))
			}
		}
	}

	if high != nil {
		above := value > *high
		next.LastHighAlertStatuses[email] = above
		if above && !previous.LastHighAlertStatuses[email] {
			if err := p.notifier.SendHighAlertVoiceCall(ctx, phone, isGuardian); err != nil {
				logger.Error("high voice call failed", "email", email, "error", err)
				next.LastHighAlertStatuses[email] = false
			} else {
				metrics.NotificationSent("voice", string(types.AlertHigh))
			}
		}
	}
}

func decodeRecord(data []byte) (types.TelemetryRecord, error) {
	var telemetry types.TelemetryRecord
	if err := json.Unmarshal(data, &telemetry); err != nil {
		return telemetry, apperrors.Wrap(err, apperrors.ErrorTypeValidation, "MALFORMED", "Cannot read telemetry record")
	}
	if telemetry.UserID == "" {
		return telemetry, apperrors.NewValidationError("MALFORMED", "Telemetry record has no userId")
	}
	if telemetry.Reading.UserID == "" {
		telemetry.Reading.UserID = telemetry.UserID
	}
	return telemetry, nil
}
