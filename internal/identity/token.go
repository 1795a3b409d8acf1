package identity

import (
	"context"
	"strings"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/auth"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/config"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
)

// TokenResolver authenticates bearer tokens and seeds the context with the
// resulting user. It resolves the current user like ContextResolver.
type TokenResolver struct {
	ContextResolver
	cfg  config.JWTConfig
	logg *logger.Logger
}

func NewTokenResolver(cfg config.JWTConfig, logg *logger.Logger) *TokenResolver {
	if logg == nil {
		logg = logger.Nop()
	}
	return &TokenResolver{cfg: cfg, logg: logg}
}

// Authenticate validates an Authorization header value and returns a
// context carrying the token's user.
func (r *TokenResolver) Authenticate(ctx context.Context, authorization string) (context.Context, error) {
	raw := strings.TrimSpace(authorization)
	if raw == "" {
		return ctx, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	token, ok := auth.BearerToken(raw)
	if !ok {
		return ctx, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := auth.ParseAccessToken(r.cfg, token)
	if err != nil {
		return ctx, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}

	ctx = WithUserID(ctx, claims.UserID)
	return r.logg.WithUserID(ctx, claims.UserID), nil
}
