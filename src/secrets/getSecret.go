package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"

	apperrors "cgm-alert-pipeline/src/errors"
	"cgm-alert-pipeline/src/types"
)

type Store struct {
	client secretsmanageriface.SecretsManagerAPI
}

func NewStore(client secretsmanageriface.SecretsManagerAPI) *Store {
	return &Store{client: client}
}

// GetSecret loads a JSON credential ({"clientId","clientSecret"}) by name.
func (s *Store) GetSecret(ctx context.Context, name string) (types.Credential, error) {
	out, err := s.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return types.Credential{}, apperrors.NewExternalAPIError(err, "secretsmanager").WithContext("secret", name)
	}

	var cred types.Credential
	if err := json.Unmarshal([]byte(aws.StringValue(out.SecretString)), &cred); err != nil {
		return types.Credential{}, apperrors.NewInternalError(fmt.Errorf("decode secret %s: %w", name, err))
	}
	if cred.ClientID == "" || cred.ClientSecret == "" {
		return types.Credential{}, apperrors.NewInternalError(fmt.Errorf("secret %s is missing clientId or clientSecret", name))
	}
	return cred, nil
}
