package identity

import (
	"context"
	"strings"

	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
)

// Resolver reports the user acting on the current request, if any.
type Resolver interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// ContextResolver reads the user id seeded by WithUserID.
type ContextResolver struct{}

func (ContextResolver) CurrentUserID(ctx context.Context) (string, bool) {
	userID := strings.TrimSpace(UserIDFromContext(ctx))
	return userID, userID != ""
}

// Static always resolves to the same user. An empty value is anonymous.
type Static string

func (s Static) CurrentUserID(context.Context) (string, bool) {
	return string(s), strings.TrimSpace(string(s)) != ""
}

// Require returns the current user id or an unauthorized error.
func Require(ctx context.Context, resolver Resolver) (string, error) {
	if resolver == nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID, ok := resolver.CurrentUserID(ctx)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}
