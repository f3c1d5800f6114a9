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

func (s *Store) GetUser(ctx context.Context, email string) (*types.PersonProfile, error) {
	result, err := s.db.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Users),
		Key: map[string]*dynamodb.AttributeValue{
			"email": {S: aws.String(email)},
		},
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError(err, "get_user")
	}
	if len(result.Item) == 0 {
		return nil, ErrNotFound
	}

	var user types.PersonProfile
	if err := dynamodbattribute.UnmarshalMap(result.Item, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}
