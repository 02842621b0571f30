package identity

import (
	"context"
	"errors"

	"github.com/safar/go-cart-store/internal/models"
)

var ErrUnauthenticated = errors.New("no authenticated user")

// Provider answers who is calling. Credential checks and token issuance
// happen before a request reaches this package.
type Provider interface {
	CurrentUserID(ctx context.Context) (int64, error)
	CurrentUserEmail(ctx context.Context) (string, error)
}

type ctxKey struct{}

func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

func UserFrom(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(models.User)
	return user, ok
}

// ContextProvider reads the user stored by WithUser.
type ContextProvider struct{}

func (ContextProvider) CurrentUserID(ctx context.Context) (int64, error) {
	user, ok := UserFrom(ctx)
	if !ok {
		return 0, ErrUnauthenticated
	}
	return user.ID, nil
}

func (ContextProvider) CurrentUserEmail(ctx context.Context) (string, error) {
	user, ok := UserFrom(ctx)
	if !ok {
		return "", ErrUnauthenticated
	}
	return user.Email, nil
}

var _ Provider = ContextProvider{}
