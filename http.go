package shield

import (
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator wires the facade and token service into HTTP
// middleware: session cookies, the bearer-or-cookie token guard and the
// per-route role allow-list.
type RouteAuthenticator struct {
	auth           Authenticator
	tokens         TokenService
	cfg            Config
	cookieDuration time.Duration
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
	// OnActivity runs on every authorized request so guarded traffic
	// counts as session activity.
	OnActivity func()
}

// NewHTTPAuthenticator creates the HTTP-facing authenticator.
func NewHTTPAuthenticator(auther Authenticator, tokens TokenService, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		tokens:         tokens,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// ProtectedRoute guards a route with token validation and an optional
// role allow-list. An empty list admits any valid session.
func (a *RouteAuthenticator) ProtectedRoute(roles ...UserRole) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw, err := a.extractToken(ctx)
			if err != nil {
				return a.ErrorHandler(ctx, err)
			}

			claims, err := a.tokens.Validate(raw)
			if err != nil {
				return a.ErrorHandler(ctx, err)
			}

			if !RoleAllowed(UserRole(claims.Role()), roles) {
				return a.ErrorHandler(ctx, ErrRoleNotAllowed)
			}

			ctx.Locals(a.cfg.GetContextKey(), claims)
			ctx.SetContext(WithClaimsContext(ctx.Context(), claims))

			if a.OnActivity != nil {
				a.OnActivity()
			}

			return hf(ctx)
		}
	}
}

// SetSessionCookie stores the signed token on the client.
func (a *RouteAuthenticator) SetSessionCookie(ctx router.Context, token string) {
	ctx.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    token,
		Expires:  time.Now().Add(a.cookieDuration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// ClearSessionCookie removes the session cookie.
func (a *RouteAuthenticator) ClearSessionCookie(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// extractToken walks the configured token lookup sources, e.g.
// "header:Authorization,cookie:posguard_token".
func (a *RouteAuthenticator) extractToken(ctx router.Context) (string, error) {
	lookup := a.cfg.GetTokenLookup()
	if lookup == "" {
		lookup = "header:" + router.HeaderAuthorization
	}

	scheme := a.cfg.GetAuthScheme()
	if scheme == "" {
		scheme = "Bearer"
	}

	for _, rootPart := range strings.Split(lookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		var token string
		switch parts[0] {
		case "header":
			raw := ctx.GetString(parts[1], "")
			l := len(scheme)
			if len(raw) > l+1 && strings.EqualFold(raw[:l], scheme) {
				token = strings.TrimSpace(raw[l:])
			}
		case "cookie":
			token = ctx.Cookies(parts[1])
		case "query":
			token = ctx.Query(parts[1], "")
		}

		if token != "" {
			return token, nil
		}
	}

	return "", ErrUnableToFindSession
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "an unexpected authentication error").
			WithCode(goerrors.CodeUnauthorized)
	}

	a.Logger.Info(
		"request rejected: %s (%s) path=%s",
		richErr.Message,
		richErr.TextCode,
		c.OriginalURL(),
	)

	status := richErr.Code
	if status == 0 {
		status = router.StatusUnauthorized
	}

	return c.JSON(status, map[string]any{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	})
}
