package dynamo

import (
	"errors"

	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// ErrNotFound indicates a missing item.
var ErrNotFound = errors.New("record not found")

type Tables struct {
	Sessions            string
	SessionsUserIDIndex string
	Users               string
	Guardians           string
	GuardiansUserIndex  string
	Readings            string
	LatestReadings      string
}

// Store is the session, user, guardian and reading storage.
type Store struct {
	db     dynamodbiface.DynamoDBAPI
	tables Tables
}

func NewStore(db dynamodbiface.DynamoDBAPI, tables Tables) *Store {
	return &Store{db: db, tables: tables}
}
