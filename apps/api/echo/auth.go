package echoapi

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/developer0000009-hue/schoolportal/core"
)

const contextTokenKey = "userToken"

// Claims are the claims of the access tokens issued by the auth provider. Tokens are verified
// here and forwarded as is to the backing store.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"` // database role, "authenticated" for signed-in users
}

// newJWTMiddleware verifies HS256 bearer tokens signed with secret.
func newJWTMiddleware(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: echojwt.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(Claims) },
		ErrorHandler: func(ctx echo.Context, err error) error {
			if ctx.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return errMissingToken
			}
			return errInvalidToken.WithInternal(err)
		},
	})
}

// principalMiddleware puts the core.Principal of the verified token in the request context.
func principalMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token, ok := ctx.Get(contextTokenKey).(*jwt.Token)
		if !ok {
			return errUnauthorized
		}
		claims, ok := token.Claims.(*Claims)
		if !ok || claims.Subject == "" {
			return errUnauthorized
		}
		p := core.Principal{UserID: claims.Subject, Email: claims.Email, AccessToken: token.Raw}
		req := ctx.Request()
		ctx.SetRequest(req.WithContext(core.WithPrincipal(req.Context(), p)))
		return next(ctx)
	}
}

func getContextPrincipal(ctx echo.Context) (core.Principal, error) {
	p, err := core.MustPrincipal(ctx.Request().Context())
	if err != nil {
		return core.Principal{}, errUnauthorized
	}
	return p, nil
}
