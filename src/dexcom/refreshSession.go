package dexcom

import (
	"context"
	"errors"

	"golang.org/x/oauth2"

	apperrors "cgm-alert-pipeline/src/errors"
	"cgm-alert-pipeline/src/types"
)

var errMissingExpiry = errors.New("token response has no expires_in")

// RefreshSession exchanges the session's refresh token for a new token pair.
func (c *Client) RefreshSession(ctx context.Context, session types.OAuthSession, credential types.Credential) (types.TokenPair, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return types.TokenPair{}, err
	}

	conf := &oauth2.Config{
		ClientID:     credential.ClientID,
		ClientSecret: credential.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + "/v2/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	// A token carrying only a refresh token forces the refresh grant.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: session.RefreshToken}).Token()
	if err != nil {
		return types.TokenPair{}, apperrors.NewExternalAPIError(err, apiName).WithContext("email", session.Email)
	}
	if token.Expiry.IsZero() {
		return types.TokenPair{}, apperrors.NewExternalAPIError(errMissingExpiry, apiName).WithContext("email", session.Email)
	}

	return types.TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry.Unix(),
	}, nil
}
