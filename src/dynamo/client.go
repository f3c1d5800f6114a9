package dynamo

import (
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
)

var (
	sessionInstance *session.Session
	clientInstance  *dynamodb.DynamoDB
	once            sync.Once
	clientOnce      sync.Once
)

// GetSession returns the shared AWS session. Region and endpoint are only
// honored on the first call; endpoint is set for localstack.
func GetSession(region, endpoint string) *session.Session {
	once.Do(func() {
		cfg := aws.NewConfig().WithRegion(region)
		if endpoint != "" {
			cfg = cfg.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
		}
		sessionInstance = session.Must(session.NewSession(cfg))
	})

	return sessionInstance
}

func GetDynamoDBClient(sess *session.Session) *dynamodb.DynamoDB {
	clientOnce.Do(func() {
		clientInstance = dynamodb.New(sess)
	})

	return clientInstance
}
