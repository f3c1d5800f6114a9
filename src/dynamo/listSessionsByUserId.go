package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"

	apperrors "cgm-alert-pipeline/src/errors"
	"cgm-alert-pipeline/src/types"
)

// ListSessionsByUserId returns every session linked to a provider-side user id.
func (s *Store) ListSessionsByUserId(ctx context.Context, remoteUserID string) ([]types.OAuthSession, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Sessions),
		IndexName:              aws.String(s.tables.SessionsUserIDIndex),
		KeyConditionExpression: aws.String("remoteUserId = :uid"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":uid": {S: aws.String(remoteUserID)},
		},
	}

	var sessions []types.OAuthSession
	var decodeErr error
	err := s.db.QueryPagesWithContext(ctx, input, func(page *dynamodb.QueryOutput, lastPage bool) bool {
		var batch []types.OAuthSession
		if decodeErr = dynamodbattribute.UnmarshalListOfMaps(page.Items, &batch); decodeErr != nil {
			return false
		}
		sessions = append(sessions, batch...)
		return true
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError(err, "list_sessions_by_user_id")
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to unmarshal sessions: %w", decodeErr)
	}
	return sessions, nil
}
