package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	"github.com/sethvargo/go-envconfig"

	shield "github.com/it22317094/posguard-brylix-shield"
	"github.com/it22317094/posguard-brylix-shield/alertfeed"
	"github.com/it22317094/posguard-brylix-shield/kot"
	"github.com/it22317094/posguard-brylix-shield/storage/bunstore"
	"github.com/it22317094/posguard-brylix-shield/storage/memory"
)

// AppConfig reads the runtime settings from the environment.
type AppConfig struct {
	Addr              string        `env:"POSGUARD_ADDR, default=:8572"`
	SigningKey        string        `env:"POSGUARD_SIGNING_KEY, default=posguard-dev-signing-key"`
	ContextKey        string        `env:"POSGUARD_CONTEXT_KEY, default=posguard_token"`
	TokenExpiration   int           `env:"POSGUARD_TOKEN_EXPIRATION_HOURS, default=24"`
	TokenLookup       string        `env:"POSGUARD_TOKEN_LOOKUP, default=header:Authorization,cookie:posguard_token"`
	AuthScheme        string        `env:"POSGUARD_AUTH_SCHEME, default=Bearer"`
	Issuer            string        `env:"POSGUARD_ISSUER, default=posguard"`
	Audience          []string      `env:"POSGUARD_AUDIENCE, default=posguard"`
	PasscodeTTL       time.Duration `env:"POSGUARD_PASSCODE_TTL, default=5m"`
	InactivityTimeout time.Duration `env:"POSGUARD_INACTIVITY_TIMEOUT, default=60s"`
	FallbackMode      bool          `env:"POSGUARD_FALLBACK_MODE, default=true"`
	DemoMode          bool          `env:"POSGUARD_DEMO_MODE, default=true"`
	DSN               string        `env:"POSGUARD_DSN"`
}

var _ shield.Config = (*AppConfig)(nil)

func (c *AppConfig) GetSigningKey() string               { return c.SigningKey }
func (c *AppConfig) GetContextKey() string               { return c.ContextKey }
func (c *AppConfig) GetTokenExpiration() int             { return c.TokenExpiration }
func (c *AppConfig) GetTokenLookup() string              { return c.TokenLookup }
func (c *AppConfig) GetAuthScheme() string               { return c.AuthScheme }
func (c *AppConfig) GetIssuer() string                   { return c.Issuer }
func (c *AppConfig) GetAudience() []string               { return c.Audience }
func (c *AppConfig) GetPasscodeTTL() time.Duration       { return c.PasscodeTTL }
func (c *AppConfig) GetInactivityTimeout() time.Duration { return c.InactivityTimeout }
func (c *AppConfig) GetFallbackMode() bool               { return c.FallbackMode }
func (c *AppConfig) GetDemoMode() bool                   { return c.DemoMode }

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("posguard"),
		glog.WithAddSource(false),
	)

	ctx := context.Background()

	cfg := &AppConfig{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		lgr.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, cleanup, err := openStore(ctx, cfg, lgr)
	if err != nil {
		lgr.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	authOpts := []shield.AuthOption{
		shield.WithAuthLogger(lgr.GetLogger("auth")),
		shield.WithAuthPasscodeTTL(cfg.GetPasscodeTTL()),
		shield.WithAuthInactivityTimeout(cfg.GetInactivityTimeout()),
		shield.WithAuthFallbackMode(cfg.GetFallbackMode()),
	}

	if cfg.GetDemoMode() {
		// the demo pins the passcode so operators can log in without a mailbox
		authOpts = append(authOpts, shield.WithAuthCodeGenerator(shield.FixedCodeGenerator("123456")))
	}

	auther := shield.NewAuthenticator(shield.DefaultDirectory(), store, authOpts...)
	if err := auther.Start(ctx); err != nil {
		lgr.Error("failed to restore session", "error", err)
		os.Exit(1)
	}
	defer auther.Stop()

	tokens := shield.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		lgr.GetLogger("tokens"),
	)

	httpAuth, err := shield.NewHTTPAuthenticator(auther, tokens, cfg)
	if err != nil {
		lgr.Error("failed to build http authenticator", "error", err)
		os.Exit(1)
	}
	httpAuth.Logger = lgr.GetLogger("auth:http")
	httpAuth.OnActivity = auther.Sessions().Touch

	kots := kot.NewService(store,
		kot.WithActivitySink(auther.Activity()),
		kot.WithLogger(lgr.GetLogger("kot")),
	)
	alerts := alertfeed.NewFeed(store,
		alertfeed.WithLogger(lgr.GetLogger("alerts")),
	)

	if cfg.GetDemoMode() {
		if err := kots.Seed(ctx); err != nil {
			lgr.Error("failed to seed tickets", "error", err)
			os.Exit(1)
		}
		if err := alerts.Seed(ctx); err != nil {
			lgr.Error("failed to seed alerts", "error", err)
			os.Exit(1)
		}
	}

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	srv.Router().WithLogger(lgr.GetLogger("router"))

	controller := shield.NewAuthController(auther, tokens, httpAuth,
		shield.WithControllerLogger(lgr.GetLogger("auth:ctrl")),
		shield.WithControllerDebug(cfg.GetDemoMode()),
	)

	shield.RegisterAuthRoutes(srv.Router().Group("/auth"), controller)

	registerAppRoutes(srv.Router(), cfg, httpAuth, auther, kots, alerts)

	lgr.Info("posguard listening", "addr", cfg.Addr)
	srv.Serve(cfg.Addr)

	WaitExitSignal()
}

func openStore(ctx context.Context, cfg *AppConfig, lgr *glog.BaseLogger) (shield.Store, func(), error) {
	if cfg.DSN == "" {
		lgr.Info("using in-memory store")
		return memory.New(), func() {}, nil
	}

	bstore, err := bunstore.Open(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := bstore.Init(ctx); err != nil {
		bstore.Close()
		return nil, nil, err
	}

	lgr.Info("using sqlite store", "dsn", cfg.DSN)
	return bstore, func() { bstore.Close() }, nil
}

func registerAppRoutes(
	r router.Router[*fiber.App],
	cfg *AppConfig,
	httpAuth *shield.RouteAuthenticator,
	auther *shield.Auther,
	kots *kot.Service,
	alerts *alertfeed.Feed,
) {
	actorFrom := func(ctx router.Context) string {
		if claims, ok := shield.GetRouterClaims(ctx, cfg.GetContextKey()); ok {
			return claims.Subject()
		}
		return "unknown"
	}

	anyRole := httpAuth.ProtectedRoute()
	frontOfHouse := httpAuth.ProtectedRoute(shield.RoleAdmin, shield.RoleCashier)

	r.Get("/kots", func(ctx router.Context) error {
		filter := kot.Filter{
			Search: ctx.Query("search", ""),
			Status: kot.Status(ctx.Query("status", "")),
		}
		tickets, err := kots.List(ctx.Context(), filter)
		if err != nil {
			return err
		}
		return ctx.JSON(router.StatusOK, map[string]any{"kots": tickets})
	}, anyRole)

	r.Post("/kots", func(ctx router.Context) error {
		payload := &struct {
			TableNumber string     `json:"tableNumber"`
			Items       []kot.Item `json:"items"`
		}{}
		if err := ctx.Bind(payload); err != nil {
			return ctx.JSON(router.StatusBadRequest, map[string]any{"error": "invalid request body"})
		}

		ticket, err := kots.Create(ctx.Context(), actorFrom(ctx), payload.TableNumber, payload.Items)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusCreated, ticket)
	}, anyRole)

	r.Post("/kots/:id/status", func(ctx router.Context) error {
		payload := &struct {
			Status kot.Status `json:"status"`
		}{}
		if err := ctx.Bind(payload); err != nil {
			return ctx.JSON(router.StatusBadRequest, map[string]any{"error": "invalid request body"})
		}

		ticket, err := kots.SetStatus(ctx.Context(), actorFrom(ctx), ctx.Param("id"), payload.Status)
		if err != nil {
			return err
		}
		return ctx.JSON(router.StatusOK, ticket)
	}, anyRole)

	r.Get("/alerts", func(ctx router.Context) error {
		feed, err := alerts.List(ctx.Context())
		if err != nil {
			return err
		}
		return ctx.JSON(router.StatusOK, map[string]any{"alerts": feed})
	}, frontOfHouse)

	r.Post("/alerts/:id/ack", func(ctx router.Context) error {
		id := ctx.ParamsInt("id", 0)
		if id == 0 {
			return ctx.JSON(router.StatusBadRequest, map[string]any{"error": "invalid alert id"})
		}
		alert, err := alerts.Acknowledge(ctx.Context(), id)
		if err != nil {
			return err
		}
		return ctx.JSON(router.StatusOK, alert)
	}, frontOfHouse)

	r.Get("/activity", func(ctx router.Context) error {
		limit := ctx.QueryInt("limit", 50)
		records, err := auther.Activity().Recent(ctx.Context(), limit)
		if err != nil {
			return err
		}
		return ctx.JSON(router.StatusOK, map[string]any{"activities": records})
	}, frontOfHouse)

	r.Get("/settings", func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]any{"status": "ok"})
	}, httpAuth.ProtectedRoute(shield.RoleAdmin))
}

// WaitExitSignal blocks until the process receives a termination signal.
func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
