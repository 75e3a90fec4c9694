package pje

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/SinesysTech/captura/otp"
	"github.com/SinesysTech/captura/tribunal"
	"github.com/SinesysTech/captura/tribunal/internal/browser"
)

// Config configures the driver.
type Config struct {
	// BrowserURL is an existing DevTools endpoint to attach to. Empty
	// launches a local Chrome per session.
	BrowserURL string

	// Headless controls the launched browser. Nil means headless.
	Headless *bool

	// HTTPTimeout is the overall timeout of the API client. Per-page
	// deadlines come from the court config on top of this. Default: 2m.
	HTTPTimeout time.Duration

	// PageSize is the default page size when a request does not set one.
	// Default: 50.
	PageSize int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 2 * time.Minute
	}
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Driver is the capability set for the PJe court family. One instance
// serves every court configured with driver_kind "pje"; per-court
// parameters arrive with each call.
type Driver struct {
	cfg   Config
	codes otp.Source
	httpc *http.Client
	log   *slog.Logger
}

// New creates the driver. codes is the external one-time-passcode source,
// passed in explicitly; the authenticator never reads ambient state.
func New(codes otp.Source, cfg Config) *Driver {
	cfg.defaults()
	return &Driver{
		cfg:   cfg,
		codes: codes,
		httpc: &http.Client{Timeout: cfg.HTTPTimeout},
		log:   cfg.Logger,
	}
}

// Authenticate opens one browser, runs the login state machine under the
// court's whole-flow ceiling, and returns the session. The browser lives
// exactly as long as the session.
func (d *Driver) Authenticate(ctx context.Context, cred *tribunal.Credential, cfg *tribunal.CourtConfig) (*tribunal.Session, error) {
	authCtx, cancel := context.WithTimeout(ctx, cfg.AuthTimeout())
	defer cancel()

	bcfg := browser.Config{
		RemoteURL:  d.cfg.BrowserURL,
		Headless:   d.cfg.Headless,
		NavTimeout: cfg.NavTimeout(),
		Logger:     d.log,
	}

	inst, err := browser.Launch(authCtx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("pje: launch browser: %w", err)
	}

	auth := &authenticator{
		flow:  newRodFlow(inst, cfg, d.log),
		codes: d.codes,
		cred:  cred,
		court: cfg,
		log:   d.log,
	}

	artifact, identity, err := auth.run(authCtx)
	if err != nil {
		inst.Close()
		return nil, err
	}

	var once sync.Once
	return &tribunal.Session{
		Court:    cfg,
		Artifact: artifact,
		Identity: *identity,
		Close:    func() { once.Do(inst.Close) },
	}, nil
}

// Terminate discards the session's browser. Idempotent through the
// session's own once-guarded close.
func (d *Driver) Terminate(sess *tribunal.Session) {
	if sess == nil || sess.Close == nil {
		return
	}
	sess.Close()
	d.log.Debug("pje: session terminated", "court", sess.Court.CourtID)
}
