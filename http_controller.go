package shield

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// PasscodeRequest is the credential step payload.
type PasscodeRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate will run validation rules. The password is optional; when
// supplied it must meet the minimum length.
func (r PasscodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Length(6, 100)),
	)
}

// VerifyRequest is the passcode confirmation payload.
type VerifyRequest struct {
	Email string `json:"email" form:"email"`
	Code  string `json:"code" form:"code"`
}

// Validate will run validation rules
func (r VerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

// AuthController exposes the authentication flow as a JSON API.
type AuthController struct {
	Debug  bool
	Logger Logger
	Auther *Auther
	Tokens TokenService
	HTTP   *RouteAuthenticator
}

// AuthControllerOption configures the controller.
type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger overrides the logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerDebug enables payload echo in logs.
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// NewAuthController creates the controller over the facade.
func NewAuthController(auther *Auther, tokens TokenService, httpAuth *RouteAuthenticator, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Auther: auther,
		Tokens: tokens,
		HTTP:   httpAuth,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing authenticator in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing token service in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth endpoints on the given group.
func RegisterAuthRoutes(group RouteRegistrar, controller *AuthController) {
	group.Post("/passcode", controller.PasscodePost)
	group.Post("/verify", controller.VerifyPost)
	group.Post("/logout", controller.LogoutPost)
	group.Get("/session", controller.SessionShow)
}

// PasscodePost handles the credential step. A swallowed dispatch
// failure is indistinguishable from a delivered passcode here; the
// fallback session opens at verify time.
func (c *AuthController) PasscodePost(ctx router.Context) error {
	payload := &PasscodeRequest{}
	if err := ctx.Bind(payload); err != nil {
		return c.writeError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if c.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	if err := payload.Validate(); err != nil {
		return c.writeError(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid credentials payload").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := c.Auther.RequestPasscode(ctx.Context(), payload.Email, payload.Password); err != nil {
		return c.writeError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status": "passcode_sent",
		"email":  payload.Email,
	})
}

// VerifyPost confirms the passcode and opens the session.
func (c *AuthController) VerifyPost(ctx router.Context) error {
	payload := &VerifyRequest{}
	if err := ctx.Bind(payload); err != nil {
		return c.writeError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return c.writeError(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid verification payload").
			WithCode(goerrors.CodeBadRequest))
	}

	identity, err := c.Auther.ConfirmPasscode(ctx.Context(), payload.Email, payload.Code)
	if err != nil {
		return c.writeError(ctx, err)
	}

	return c.openSession(ctx, identity)
}

// LogoutPost ends the session and clears the cookie.
func (c *AuthController) LogoutPost(ctx router.Context) error {
	if err := c.Auther.Logout(ctx.Context()); err != nil {
		return c.writeError(ctx, err)
	}

	if c.HTTP != nil {
		c.HTTP.ClearSessionCookie(ctx)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status": "logged_out",
	})
}

// SessionShow returns the live session, if any.
func (c *AuthController) SessionShow(ctx router.Context) error {
	identity, ok := c.Auther.CurrentIdentity()
	if !ok {
		return c.writeError(ctx, ErrUnableToFindSession)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status": "authenticated",
		"user":   identity,
	})
}

func (c *AuthController) openSession(ctx router.Context, identity *Identity) error {
	token, err := c.Tokens.Mint(identity)
	if err != nil {
		return c.writeError(ctx, err)
	}

	if c.HTTP != nil {
		c.HTTP.SetSessionCookie(ctx, token)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status": "authenticated",
		"token":  token,
		"user":   identity,
	})
}

func (c *AuthController) writeError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "unexpected error").
			WithCode(goerrors.CodeInternal)
	}

	c.Logger.Warn("auth request failed: %s (%s)", richErr.Message, richErr.TextCode)

	status := richErr.Code
	if status == 0 {
		status = router.StatusInternalServerError
	}

	return ctx.JSON(status, map[string]any{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	})
}
