package run

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/fixwell/shop-agent/agent/contract"
)

type identityContextKey struct{}

// WithIdentity attaches the caller's identity to the context. The HTTP
// layer sets it from request headers; tests set it directly.
func WithIdentity(ctx context.Context, id contractx.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// ContextResolver reads the identity attached by WithIdentity.
type ContextResolver struct{}

func (ContextResolver) Resolve(ctx context.Context) (contractx.Identity, error) {
	id, ok := ctx.Value(identityContextKey{}).(contractx.Identity)
	if !ok || strings.TrimSpace(id.UserID) == "" {
		return contractx.Identity{}, contractx.ErrNotAuthenticated
	}
	if strings.TrimSpace(id.TenantID) == "" {
		return contractx.Identity{}, fmt.Errorf("%w: user=%s", contractx.ErrNoActiveTenant, id.UserID)
	}
	return id, nil
}
