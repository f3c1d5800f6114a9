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

// GetSession loads the session for (email, provider). Missing sessions yield ErrNotFound.
func (s *Store) GetSession(ctx context.Context, email string, provider types.ProviderType) (*types.OAuthSession, error) {
	result, err := s.db.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Sessions),
		Key: map[string]*dynamodb.AttributeValue{
			"email":        {S: aws.String(email)},
			"providerType": {S: aws.String(string(provider))},
		},
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError(err, "get_session")
	}
	if len(result.Item) == 0 {
		return nil, ErrNotFound
	}

	var session types.OAuthSession
	if err := dynamodbattribute.UnmarshalMap(result.Item, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}
