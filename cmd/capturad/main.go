// capturad is the court capture daemon: HTTP API plus scheduler, with an
// optional MCP stdio surface for agent integration.
package main

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/SinesysTech/captura/capture"
	"github.com/SinesysTech/captura/dbopen"
	"github.com/SinesysTech/captura/otp"
	"github.com/SinesysTech/captura/tribunal"
	"github.com/SinesysTech/captura/tribunal/pje"
)

func main() {
	port := env("PORT", "8086")
	dbPath := env("DB_PATH", "db/captura.db")
	courtsSeed := env("COURTS_SEED", "courts.yaml")
	otpURL := env("OTP_PROVIDER_URL", "")
	browserURL := env("BROWSER_URL", "")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")

	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	registry := tribunal.NewRegistry(db)
	if err := registry.InitSchema(ctx); err != nil {
		slog.Error("registry schema", "error", err)
		os.Exit(1)
	}
	if _, err := os.Stat(courtsSeed); err == nil {
		configs, err := tribunal.LoadSeedFile(courtsSeed)
		if err != nil {
			slog.Error("load court seed", "path", courtsSeed, "error", err)
			os.Exit(1)
		}
		if err := registry.Seed(ctx, configs); err != nil {
			slog.Error("seed courts", "error", err)
			os.Exit(1)
		}
		slog.Info("courts seeded", "path", courtsSeed, "count", len(configs))
	}

	if otpURL == "" {
		slog.Warn("OTP_PROVIDER_URL not set, OTP-challenged logins will fail")
	}
	codes := otp.NewClient(otpURL, envDuration("OTP_TIMEOUT", 10*time.Second))

	factory := tribunal.NewFactory()
	factory.Register("pje", pje.New(codes, pje.Config{
		BrowserURL: browserURL,
		Headless:   envBool("BROWSER_HEADLESS", true),
		Logger:     logger,
	}))
	factory.Register("projudi", tribunal.NewStub("projudi"))
	factory.Register("esaj", tribunal.NewStub("esaj"))

	loc, err := time.LoadLocation(env("SCHEDULE_TZ", "America/Sao_Paulo"))
	if err != nil {
		slog.Error("schedule timezone", "error", err)
		os.Exit(1)
	}
	svc, err := capture.New(db, registry, factory, capture.Config{
		TickInterval:      envDuration("SCHEDULE_TICK", time.Minute),
		HearingWindowDays: envInt("HEARING_WINDOW_DAYS", 30),
		Location:          loc,
		Logger:            logger,
	})
	if err != nil {
		slog.Error("capture service", "error", err)
		os.Exit(1)
	}

	go svc.RunScheduler(ctx)

	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "captura",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)
		go func() {
			slog.Info("MCP stdio starting")
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil {
				slog.Error("MCP stdio", "error", err)
			}
		}()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if hash := os.Getenv("API_PASSWORD_HASH"); hash != "" {
		r.Use(basicAuth(env("API_USER", "captura"), hash))
	} else {
		slog.Warn("API_PASSWORD_HASH not set, API is unauthenticated")
	}
	svc.RegisterHTTP(r)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	svc.Close()
	slog.Info("server stopped")
}

// basicAuth guards the API with a single bcrypt-hashed password.
func basicAuth(user, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			u, p, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(p)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="captura"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) *bool {
	b := def
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			b = parsed
		}
	}
	return &b
}
