package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cgm-alert-pipeline/src/logger"
	"cgm-alert-pipeline/src/types"
)

// StatusKey builds the dedup cache key for one provider session.
func StatusKey(provider types.ProviderType, email string) string {
	return fmt.Sprintf("status:%s:%s", provider, email)
}

// LoadAlertStatus returns the cached status for key. A miss or an
// undecodable blob both report false: there is no previous state.
func LoadAlertStatus(ctx context.Context, store Store, key string) (types.AlertStatus, bool) {
	raw, ok := store.Get(ctx, key)
	if !ok {
		return types.AlertStatus{}, false
	}
	var status types.AlertStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		logger.Warn("discarding undecodable alert status", "key", key, "error", err)
		return types.AlertStatus{}, false
	}
	return status, true
}

func SaveAlertStatus(ctx context.Context, store Store, key string, status types.AlertStatus, ttl time.Duration) {
	raw, err := json.Marshal(status)
	if err != nil {
		logger.Warn("cannot encode alert status", "key", key, "error", err)
		return
	}
	store.Set(ctx, key, raw, ttl)
}
