// Package browser manages one Chrome process per court session: launch via
// Rod with anti-automation flags, open a stealth page, tear everything down
// when the session ends. Sessions never share a browser, so there is no
// recycling: the lifetime of the process is the lifetime of the login.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures a browser launch.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless controls whether the local Chrome runs headless. Default true.
	Headless *bool

	// NavTimeout bounds each navigation. Default: 30s.
	NavTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Instance is one live Chrome process bound to one session.
type Instance struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// Launch starts Chrome (or connects to a remote instance) and returns the
// Instance. The caller must Close it on every exit path.
func Launch(ctx context.Context, cfg Config) (*Instance, error) {
	cfg.defaults()
	log := cfg.Logger

	var wsURL string
	inst := &Instance{cfg: cfg}

	if cfg.RemoteURL != "" {
		wsURL = cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		headless := true
		if cfg.Headless != nil {
			headless = *cfg.Headless
		}
		l := launcher.New().Headless(headless)
		// The courts run bot-defense on the login front ends.
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		inst.lnch = l
		log.Debug("browser: launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		inst.cleanupLauncher()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}

	inst.browser = b
	return inst, nil
}

// StealthPage opens a stealth-patched page and navigates it to pageURL,
// waiting for the load event under the navigation timeout.
func (i *Instance) StealthPage(ctx context.Context, pageURL string) (*rod.Page, error) {
	page, err := stealth.Page(i.browser)
	if err != nil {
		return nil, fmt.Errorf("browser: create stealth page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, i.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		i.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return page, nil
}

// Cookies returns the cookies visible to the browser, scoped to the given
// URLs by cookie domain-match. With no URLs, every cookie is returned.
func (i *Instance) Cookies(urls ...string) ([]*proto.NetworkCookie, error) {
	cookies, err := i.browser.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("browser: get cookies: %w", err)
	}
	return scopeCookies(cookies, urls), nil
}

func scopeCookies(cookies []*proto.NetworkCookie, urls []string) []*proto.NetworkCookie {
	if len(urls) == 0 {
		return cookies
	}
	hosts := make([]string, 0, len(urls))
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		hosts = append(hosts, u.Hostname())
	}

	var scoped []*proto.NetworkCookie
	for _, c := range cookies {
		// RFC 6265 domain-match: the cookie domain equals the host or is a
		// suffix of it at a label boundary.
		domain := strings.TrimPrefix(c.Domain, ".")
		for _, h := range hosts {
			if h == domain || strings.HasSuffix(h, "."+domain) {
				scoped = append(scoped, c)
				break
			}
		}
	}
	return scoped
}

// Close kills Chrome and the launcher state. Idempotent.
func (i *Instance) Close() {
	if i.browser != nil {
		i.browser.Close()
		i.browser = nil
	}
	i.cleanupLauncher()
}

func (i *Instance) cleanupLauncher() {
	if i.lnch != nil {
		i.lnch.Cleanup()
		i.lnch = nil
	}
}
