// Package refresh keeps provider sessions alive: a scheduled scan enqueues
// sessions that are about to expire and a queue consumer refreshes them.
package refresh

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"

	"cgm-alert-pipeline/src/logger"
	"cgm-alert-pipeline/src/metrics"
	"cgm-alert-pipeline/src/types"
)

const (
	phaseScan    = "scan"
	phaseRefresh = "refresh"
)

type SessionScanner interface {
	ScanSessionsExpiringBefore(ctx context.Context, epochSeconds int64, fn func([]types.OAuthSession) bool) error
}

// Scheduler enqueues refresh requests onto a FIFO queue.
type Scheduler struct {
	store    SessionScanner
	queue    sqsiface.SQSAPI
	queueURL string
	window   time.Duration
	now      func() time.Time
}

func NewScheduler(store SessionScanner, queue sqsiface.SQSAPI, queueURL string, window time.Duration) *Scheduler {
	if window <= 0 {
		window = 30 * time.Minute
	}
	return &Scheduler{store: store, queue: queue, queueURL: queueURL, window: window, now: time.Now}
}

// ScanExpiringSessions enqueues one request per supported session expiring
// within the window. The message group and deduplication id are the email,
// so repeated scans cannot stack refreshes for the same user.
func (s *Scheduler) ScanExpiringSessions(ctx context.Context) (int, error) {
	before := s.now().Add(s.window).Unix()
	enqueued := 0

	err := s.store.ScanSessionsExpiringBefore(ctx, before, func(page []types.OAuthSession) bool {
		for _, session := range page {
			if session.ProviderType != types.ProviderDexcom {
				continue
			}
			if err := s.enqueue(ctx, session); err != nil {
				logger.Error("failed to enqueue refresh", "email", session.Email, "error", err)
				metrics.Refresh(phaseScan, metrics.OutcomeFailed)
				continue
			}
			enqueued++
			metrics.Refresh(phaseScan, metrics.OutcomeOK)
		}
		return ctx.Err() == nil
	})
	if err != nil {
		return enqueued, err
	}

	logger.Info("refresh scan complete", "enqueued", enqueued)
	return enqueued, nil
}

func (s *Scheduler) enqueue(ctx context.Context, session types.OAuthSession) error {
	snapshot := session
	body, err := json.Marshal(types.RefreshRequest{
		Email:        session.Email,
		ProviderType: session.ProviderType,
		Session:      &snapshot,
	})
	if err != nil {
		return err
	}

	_, err = s.queue.SendMessageWithContext(ctx, &sqs.SendMessageInput{
		QueueUrl:               aws.String(s.queueURL),
		MessageBody:            aws.String(string(body)),
		MessageGroupId:         aws.String(session.Email),
		MessageDeduplicationId: aws.String(session.Email),
	})
	return err
}
