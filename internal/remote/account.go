package remote

import (
	"context"

	"github.com/jusdesk/portal-sync/internal/api/rest"
)

// LoginInput carries portal credentials.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the backend's answer to a successful login.
type LoginResult struct {
	Token string `json:"token"`
}

// AccountAPI is the backend surface for authentication.
type AccountAPI interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
}

type accountAPI struct {
	client    *rest.Client
	loginPath string
}

// NewAccountAPI builds the REST-backed gateway.
func NewAccountAPI(client *rest.Client, loginPath string) AccountAPI {
	return &accountAPI{client: client, loginPath: loginPath}
}

func (a *accountAPI) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	var result LoginResult
	if err := a.client.Post(ctx, a.loginPath, input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
