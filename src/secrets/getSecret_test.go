package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
)

type fakeSecrets struct {
	secretsmanageriface.SecretsManagerAPI
	value string
	err   error
}

func (f *fakeSecrets) GetSecretValueWithContext(_ aws.Context, in *secretsmanager.GetSecretValueInput, _ ...request.Option) (*secretsmanager.GetSecretValueOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{Name: in.SecretId, SecretString: aws.String(f.value)}, nil
}

func TestGetSecret(t *testing.T) {
	s := NewStore(&fakeSecrets{value: `{"clientId":"cid","clientSecret":"shh"}`})
	cred, err := s.GetSecret(context.Background(), "dexcom/client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.ClientID != "cid" || cred.ClientSecret != "shh" {
		t.Fatalf("unexpected credential %+v", cred)
	}
}

func TestGetSecretErrors(t *testing.T) {
	boom := errors.New("access denied")
	cases := map[string]*fakeSecrets{
		"api failure":   {err: boom},
		"not json":      {value: "plain"},
		"missing field": {value: `{"clientId":"cid"}`},
	}
	for name, fake := range cases {
		if _, err := NewStore(fake).GetSecret(context.Background(), "x"); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
