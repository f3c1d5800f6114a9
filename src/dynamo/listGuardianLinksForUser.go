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

// ListGuardianLinksForUser returns every guardian link, pending or active, for a user.
func (s *Store) ListGuardianLinksForUser(ctx context.Context, email string) ([]types.GuardianLink, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Guardians),
		IndexName:              aws.String(s.tables.GuardiansUserIndex),
		KeyConditionExpression: aws.String("userEmail = :email"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":email": {S: aws.String(email)},
		},
	}

	var links []types.GuardianLink
	var decodeErr error
	err := s.db.QueryPagesWithContext(ctx, input, func(page *dynamodb.QueryOutput, lastPage bool) bool {
		var batch []types.GuardianLink
		if decodeErr = dynamodbattribute.UnmarshalListOfMaps(page.Items, &batch); decodeErr != nil {
			return false
		}
		links = append(links, batch...)
		return true
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError(err, "list_guardian_links")
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to unmarshal guardian links: %w", decodeErr)
	}
	return links, nil
}
