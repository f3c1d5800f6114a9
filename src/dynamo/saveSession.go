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

func (s *Store) SaveSession(ctx context.Context, session types.OAuthSession) error {
	item, err := dynamodbattribute.MarshalMap(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Sessions),
		Item:      item,
	})
	if err != nil {
		return apperrors.NewDatabaseError(err, "save_session")
	}
	return nil
}
