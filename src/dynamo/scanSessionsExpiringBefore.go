package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"

	apperrors "cgm-alert-pipeline/src/errors"
	"cgm-alert-pipeline/src/types"
)

// ScanSessionsExpiringBefore pages through sessions with expiresAt < epochSeconds,
// handing each page to fn. Returning false from fn stops the scan.
func (s *Store) ScanSessionsExpiringBefore(ctx context.Context, epochSeconds int64, fn func([]types.OAuthSession) bool) error {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(s.tables.Sessions),
		FilterExpression: aws.String("expiresAt < :before"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":before": {N: aws.String(strconv.FormatInt(epochSeconds, 10))},
		},
	}

	var decodeErr error
	err := s.db.ScanPagesWithContext(ctx, input, func(page *dynamodb.ScanOutput, lastPage bool) bool {
		var batch []types.OAuthSession
		if decodeErr = dynamodbattribute.UnmarshalListOfMaps(page.Items, &batch); decodeErr != nil {
			return false
		}
		if len(batch) == 0 {
			return true
		}
		return fn(batch)
	})
	if err != nil {
		return apperrors.NewDatabaseError(err, "scan_expiring_sessions")
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to unmarshal sessions: %w", decodeErr)
	}
	return nil
}
