package core

import "context"

type principalKey struct{}

// Principal is the authenticated caller. AccessToken is forwarded to the backing store.
type Principal struct {
	UserID      string
	Email       string
	AccessToken string
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// MustPrincipal returns the principal of ctx or ErrNoAuth.
func MustPrincipal(ctx context.Context) (Principal, error) {
	if p, ok := PrincipalFrom(ctx); ok {
		return p, nil
	}
	return Principal{}, ErrNoAuth
}
