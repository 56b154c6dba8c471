package tester

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentials holds OAuth 2.0 client credentials settings
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// FetchToken exchanges client credentials for an access token usable as Config.AuthToken
func FetchToken(ctx context.Context, cc ClientCredentials) (string, error) {
	if cc.ClientID == "" || cc.TokenURL == "" {
		return "", fmt.Errorf("client id and token url are required")
	}

	cfg := clientcredentials.Config{
		ClientID:     cc.ClientID,
		ClientSecret: cc.ClientSecret,
		TokenURL:     cc.TokenURL,
		Scopes:       cc.Scopes,
	}
	token, err := cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch oauth2 token: %w", err)
	}
	return token.AccessToken, nil
}
