package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"cgm-alert-pipeline/src/dynamo"
	"cgm-alert-pipeline/src/logger"
	"cgm-alert-pipeline/src/metrics"
	"cgm-alert-pipeline/src/types"
)

type SessionStore interface {
	GetSession(ctx context.Context, email string, provider types.ProviderType) (*types.OAuthSession, error)
	SaveSession(ctx context.Context, session types.OAuthSession) error
}

type TokenRefresher interface {
	RefreshSession(ctx context.Context, session types.OAuthSession, credential types.Credential) (types.TokenPair, error)
}

type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (types.Credential, error)
}

// Refresher consumes refresh requests. Failures are logged per message and
// never reported back to the queue: the next scan picks the session up again.
type Refresher struct {
	store      SessionStore
	provider   TokenRefresher
	secrets    SecretGetter
	secretName string
	window     time.Duration
	now        func() time.Time
}

func NewRefresher(store SessionStore, provider TokenRefresher, secrets SecretGetter, secretName string, window time.Duration) *Refresher {
	if window <= 0 {
		window = 30 * time.Minute
	}
	return &Refresher{
		store:      store,
		provider:   provider,
		secrets:    secrets,
		secretName: secretName,
		window:     window,
		now:        time.Now,
	}
}

// Handler fetches the provider credential once and refreshes every session
// in the batch with it.
func (r *Refresher) Handler(ctx context.Context, sqsEvent events.SQSEvent) error {
	if len(sqsEvent.Records) == 0 {
		return nil
	}

	credential, err := r.secrets.GetSecret(ctx, r.secretName)
	if err != nil {
		return fmt.Errorf("load provider credential: %w", err)
	}

	for _, message := range sqsEvent.Records {
		outcome, err := r.refreshOne(ctx, message.Body, credential)
		if err != nil {
			logger.Error("session refresh failed", "messageId", message.MessageId, "error", err)
			metrics.Refresh(phaseRefresh, metrics.OutcomeFailed)
			continue
		}
		metrics.Refresh(phaseRefresh, outcome)
	}
	return nil
}

func (r *Refresher) refreshOne(ctx context.Context, body string, credential types.Credential) (string, error) {
	var request types.RefreshRequest
	if err := json.Unmarshal([]byte(body), &request); err != nil {
		return "", fmt.Errorf("decode refresh request: %w", err)
	}
	if request.ProviderType != types.ProviderDexcom {
		logger.Warn("ignoring refresh for unsupported provider", "email", request.Email, "providerType", request.ProviderType)
		return metrics.OutcomeSkipped, nil
	}

	session, err := r.currentSession(ctx, request)
	if err != nil {
		return "", err
	}
	if session == nil {
		logger.Warn("no session to refresh", "email", request.Email)
		return metrics.OutcomeSkipped, nil
	}

	// Another refresh may already have landed since the scan.
	if session.ExpiresAt >= r.now().Add(r.window).Unix() {
		logger.Debug("session already fresh", "email", session.Email)
		return metrics.OutcomeSkipped, nil
	}

	pair, err := r.provider.RefreshSession(ctx, *session, credential)
	if err != nil {
		return "", err
	}
	refreshed := session.WithTokens(pair.AccessToken, pair.RefreshToken, pair.ExpiresAt)
	if err := r.store.SaveSession(ctx, refreshed); err != nil {
		return "", err
	}

	logger.Info("session refreshed", "email", refreshed.Email, "expiresAt", refreshed.ExpiresAt)
	return metrics.OutcomeOK, nil
}

// currentSession prefers the stored session over the snapshot carried in the
// message, which may hold an already rotated refresh token. The snapshot is
// only used when the lookup itself fails; a deleted session stays deleted.
func (r *Refresher) currentSession(ctx context.Context, request types.RefreshRequest) (*types.OAuthSession, error) {
	stored, err := r.store.GetSession(ctx, request.Email, request.ProviderType)
	switch {
	case err == nil:
		return stored, nil
	case errors.Is(err, dynamo.ErrNotFound):
		return nil, nil
	case request.Session != nil:
		logger.Warn("session lookup failed, using snapshot", "email", request.Email, "error", err)
		return request.Session, nil
	default:
		return nil, err
	}
}
