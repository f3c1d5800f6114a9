package backfill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"cgm-alert-pipeline/src/dynamo"
	apperrors "cgm-alert-pipeline/src/errors"
	"cgm-alert-pipeline/src/logger"
	"cgm-alert-pipeline/src/metrics"
	"cgm-alert-pipeline/src/types"
	"cgm-alert-pipeline/src/utils"
)

type Store interface {
	GetUser(ctx context.Context, email string) (*types.PersonProfile, error)
	GetSession(ctx context.Context, email string, provider types.ProviderType) (*types.OAuthSession, error)
	BatchSaveReadings(ctx context.Context, readings []types.GlucoseReading) error
}

type ReadingsProvider interface {
	FetchReadings(ctx context.Context, session types.OAuthSession, start, end time.Time) ([]types.GlucoseReading, error)
}

type Options struct {
	// Chunk is the widest window requested from the provider in one call.
	Chunk          time.Duration
	LookbackMonths int
	Now            func() time.Time
}

// Worker imports historical readings for one account per queue message.
type Worker struct {
	store    Store
	provider ReadingsProvider
	opts     Options
}

func NewWorker(store Store, provider ReadingsProvider, opts Options) *Worker {
	if opts.Chunk <= 0 {
		opts.Chunk = 30 * 24 * time.Hour
	}
	if opts.LookbackMonths <= 0 {
		opts.LookbackMonths = 6
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Worker{store: store, provider: provider, opts: opts}
}

// Handler processes messages sequentially. Malformed requests and missing
// or expired sessions are dropped; anything else is reported for redelivery.
func (w *Worker) Handler(ctx context.Context, sqsEvent events.SQSEvent) events.SQSEventResponse {
	var response events.SQSEventResponse

	for _, message := range sqsEvent.Records {
		err := w.processMessage(ctx, message.Body)
		if err == nil {
			continue
		}

		if apperrors.IsSkippable(err) {
			logger.Warn("skipping backfill request", "messageId", message.MessageId, "error", err)
			continue
		}
		logger.Error("backfill failed", "messageId", message.MessageId, "error", err)
		response.BatchItemFailures = append(response.BatchItemFailures, events.SQSBatchItemFailure{
			ItemIdentifier: message.MessageId,
		})
	}

	return response
}

func (w *Worker) processMessage(ctx context.Context, body string) error {
	var request types.BackfillRequest
	if err := json.Unmarshal([]byte(body), &request); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrMalformedMessage, err)
	}
	if request.Email == "" {
		return fmt.Errorf("%w: missing email", apperrors.ErrMalformedMessage)
	}
	if request.ProviderType != types.ProviderDexcom {
		return fmt.Errorf("%w: %q", apperrors.ErrUnsupportedProvider, request.ProviderType)
	}

	start, end, err := w.resolveRange(ctx, request)
	if err != nil {
		return err
	}

	session, err := w.store.GetSession(ctx, request.Email, request.ProviderType)
	if errors.Is(err, dynamo.ErrNotFound) {
		return fmt.Errorf("%w: %s", apperrors.ErrSessionNotFound, request.Email)
	}
	if err != nil {
		return err
	}
	if session.Expired(w.opts.Now()) {
		return fmt.Errorf("%w: %s", apperrors.ErrSessionExpired, request.Email)
	}

	readings, err := w.fetchRange(ctx, *session, start, end)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		logger.Info("backfill found no readings", "email", request.Email)
		return nil
	}
	if err := w.store.BatchSaveReadings(ctx, readings); err != nil {
		return err
	}

	metrics.BackfillReadings(len(readings))
	logger.Info("backfill complete", "email", request.Email, "readings", len(readings),
		"start", utils.FormatProviderTime(start), "end", utils.FormatProviderTime(end))
	return nil
}

// resolveRange applies the defaults and validates the requested window.
// Defaults go through the same provider format as explicit values, which
// truncates them to whole seconds.
func (w *Worker) resolveRange(ctx context.Context, request types.BackfillRequest) (time.Time, time.Time, error) {
	startValue := request.StartTimestamp
	if startValue == "" {
		user, err := w.store.GetUser(ctx, request.Email)
		if errors.Is(err, dynamo.ErrNotFound) {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, request.Email)
		}
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		createdAt, err := utils.ParseSystemTime(user.CreatedAt)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: createdAt %q", apperrors.ErrInvalidTimestamp, user.CreatedAt)
		}
		startValue = utils.FormatProviderTime(createdAt.AddDate(0, -w.opts.LookbackMonths, 0))
	}

	endValue := request.EndTimestamp
	if endValue == "" {
		endValue = utils.FormatProviderTime(w.opts.Now())
	}

	start, err := utils.ParseProviderTime(startValue)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidTimestamp, err)
	}
	end, err := utils.ParseProviderTime(endValue)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidTimestamp, err)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s >= %s", apperrors.ErrInvalidRange, startValue, endValue)
	}
	return start, end, nil
}

// fetchRange walks [start, end) in windows of at most Chunk, each starting
// 1ms after the previous one ended. Any failure discards everything fetched.
func (w *Worker) fetchRange(ctx context.Context, session types.OAuthSession, start, end time.Time) ([]types.GlucoseReading, error) {
	var all []types.GlucoseReading

	for cursor := start; cursor.Before(end); {
		chunkEnd := cursor.Add(w.opts.Chunk)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		readings, err := w.provider.FetchReadings(ctx, session, cursor, chunkEnd)
		if err != nil {
			return nil, fmt.Errorf("fetch %s..%s: %w", utils.FormatProviderTime(cursor), utils.FormatProviderTime(chunkEnd), err)
		}
		for i := range readings {
			readings[i].UserID = session.RemoteUserID
		}
		all = append(all, readings...)

		cursor = chunkEnd.Add(time.Millisecond)
	}

	return all, nil
}
