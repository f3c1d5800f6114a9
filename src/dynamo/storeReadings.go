package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"

	apperrors "cgm-alert-pipeline/src/errors"
	"cgm-alert-pipeline/src/types"
)

const (
	batchWriteLimit    = 25
	maxBatchRetries    = 5
	batchRetryBaseWait = 50 * time.Millisecond
)

// latestReading is the single-row-per-user view of the most recent EGV.
type latestReading struct {
	types.GlucoseReading
	UpdatedAt string `dynamodbav:"updatedAt"`
}

// SaveReading upserts one reading keyed by (userId, systemTime).
func (s *Store) SaveReading(ctx context.Context, reading types.GlucoseReading) error {
	item, err := dynamodbattribute.MarshalMap(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	_, err = s.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Readings),
		Item:      item,
	})
	if err != nil {
		return apperrors.NewDatabaseError(err, "save_reading")
	}
	return nil
}

// SaveLatestReading overwrites the account's latest known reading.
func (s *Store) SaveLatestReading(ctx context.Context, reading types.GlucoseReading, userID string) error {
	reading.UserID = userID
	item, err := dynamodbattribute.MarshalMap(latestReading{
		GlucoseReading: reading,
		UpdatedAt:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal latest reading: %w", err)
	}

	_, err = s.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.LatestReadings),
		Item:      item,
	})
	if err != nil {
		return apperrors.NewDatabaseError(err, "save_latest_reading")
	}
	return nil
}

// BatchSaveReadings upserts readings in batches of 25. Readings sharing a
// (userId, systemTime) key are collapsed first since a batch may not carry
// duplicate keys.
func (s *Store) BatchSaveReadings(ctx context.Context, readings []types.GlucoseReading) error {
	requests := make([]*dynamodb.WriteRequest, 0, len(readings))
	seen := make(map[string]struct{}, len(readings))
	for _, r := range readings {
		id := r.UserID + "#" + r.SystemTime
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		item, err := dynamodbattribute.MarshalMap(r)
		if err != nil {
			return fmt.Errorf("failed to marshal reading: %w", err)
		}
		requests = append(requests, &dynamodb.WriteRequest{PutRequest: &dynamodb.PutRequest{Item: item}})
	}

	for start := 0; start < len(requests); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(requests))
		if err := s.writeBatch(ctx, requests[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeBatch(ctx context.Context, requests []*dynamodb.WriteRequest) error {
	pending := map[string][]*dynamodb.WriteRequest{s.tables.Readings: requests}

	for attempt := 0; ; attempt++ {
		out, err := s.db.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return apperrors.NewDatabaseError(err, "batch_save_readings")
		}
		if len(out.UnprocessedItems) == 0 {
			return nil
		}
		if attempt+1 >= maxBatchRetries {
			return apperrors.NewDatabaseError(
				fmt.Errorf("%d unprocessed writes after %d attempts", len(out.UnprocessedItems[s.tables.Readings]), maxBatchRetries),
				"batch_save_readings",
			)
		}
		pending = out.UnprocessedItems

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(batchRetryBaseWait << attempt):
		}
	}
}
