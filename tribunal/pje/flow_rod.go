package pje

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/SinesysTech/captura/tribunal"
	"github.com/SinesysTech/captura/tribunal/internal/browser"
)

// Selector candidates, ordered by provider generation. Same
// first-match-wins discipline as the response field names.
var (
	documentSelectors = []string{"#username", `input[name="username"]`, `input[name="login"]`, `input[name="cpf"]`}
	secretSelectors   = []string{"#password", `input[name="password"]`, `input[type="password"]`}
	submitSelectors   = []string{"#kc-login", `button[type="submit"]`, `input[type="submit"]`}
	otpSelectors      = []string{"#otp", `input[name="otp"]`, `input[name="totp"]`, `input[name="codigo"]`}
)

// maxRedirectHops bounds the identity provider's redirect sequence.
const maxRedirectHops = 5

// tokenCookieNames are the cookie names the provider may use for the
// session artifact, checked before the localStorage fallback.
var tokenCookieNames = []string{"access_token", "pje_token", "tokenpje"}

// rodFlow drives the login ritual on a live Chrome page.
type rodFlow struct {
	inst  *browser.Instance
	court *tribunal.CourtConfig
	page  *rod.Page
	log   *slog.Logger
}

func newRodFlow(inst *browser.Instance, court *tribunal.CourtConfig, log *slog.Logger) *rodFlow {
	return &rodFlow{inst: inst, court: court, log: log}
}

func (f *rodFlow) Start(ctx context.Context) error {
	page, err := f.inst.StealthPage(ctx, f.court.LoginURL)
	if err != nil {
		return err
	}
	f.page = page
	return nil
}

// AwaitCredentialForm waits for the credential form across the provider's
// redirect chain. Each hop gets one bounded wait; the form not appearing
// within the hop budget fails the chain.
func (f *rodFlow) AwaitCredentialForm(ctx context.Context) error {
	hopWait := f.court.NavTimeout() / maxRedirectHops
	if hopWait < time.Second {
		hopWait = time.Second
	}
	for hop := 0; hop < maxRedirectHops; hop++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := f.firstElement(hopWait, documentSelectors); err == nil {
			return nil
		}
		// Still mid-chain: let the provider's redirect land.
		if err := f.page.Context(ctx).Timeout(hopWait).WaitLoad(); err != nil {
			f.log.Debug("pje: hop wait", "hop", hop, "error", err)
		}
	}
	return fmt.Errorf("credential form not reached after %d hops", maxRedirectHops)
}

func (f *rodFlow) SubmitCredentials(ctx context.Context, document, secret string) error {
	wait := f.court.NavTimeout()

	docEl, err := f.firstElement(wait, documentSelectors)
	if err != nil {
		return fmt.Errorf("document field: %w", err)
	}
	if err := docEl.Input(document); err != nil {
		return fmt.Errorf("fill document: %w", err)
	}

	secEl, err := f.firstElement(wait, secretSelectors)
	if err != nil {
		return fmt.Errorf("secret field: %w", err)
	}
	if err := secEl.Input(secret); err != nil {
		return fmt.Errorf("fill secret: %w", err)
	}

	if err := f.clickSubmit(wait); err != nil {
		return err
	}
	if err := f.page.Context(ctx).Timeout(wait).WaitLoad(); err != nil {
		f.log.Debug("pje: post-submit load wait", "error", err)
	}
	return nil
}

// OTPRequired probes briefly for the passcode input. Absence is the normal
// case, so the probe window stays short.
func (f *rodFlow) OTPRequired(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := f.firstElement(3*time.Second, otpSelectors); err == nil {
		return true, nil
	}
	return false, nil
}

func (f *rodFlow) SubmitOTP(ctx context.Context, code string) (string, error) {
	wait := f.court.NavTimeout()

	el, err := f.firstElement(wait, otpSelectors)
	if err != nil {
		return "", fmt.Errorf("otp field: %w", err)
	}
	if err := el.SelectAllText(); err == nil {
		// Clear any leftover digits from the previous attempt.
		el.Input("")
	}
	if err := el.Input(code); err != nil {
		return "", fmt.Errorf("fill otp: %w", err)
	}
	if err := f.clickSubmit(wait); err != nil {
		return "", err
	}
	if err := f.page.Context(ctx).Timeout(wait).WaitLoad(); err != nil {
		f.log.Debug("pje: otp load wait", "error", err)
	}

	html, err := f.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return html, nil
}

// SessionArtifact checks the provider cookies first, then the page's
// storage, for the issued token.
func (f *rodFlow) SessionArtifact(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	cookies, err := f.inst.Cookies(f.court.BaseURL)
	if err == nil {
		for _, c := range cookies {
			if cookieIsToken(c) {
				return c.Value, true, nil
			}
		}
	}

	res, err := f.page.Context(ctx).Eval(
		`() => localStorage.getItem("access_token") || sessionStorage.getItem("access_token") || ""`)
	if err != nil {
		return "", false, nil // page mid-navigation; probe again later
	}
	if v := res.Value.Str(); v != "" {
		return v, true, nil
	}
	return "", false, nil
}

func cookieIsToken(c *proto.NetworkCookie) bool {
	for _, name := range tokenCookieNames {
		if c.Name == name && c.Value != "" {
			return true
		}
	}
	return false
}

// firstElement tries the selector candidates in order, splitting the wait
// budget across them.
func (f *rodFlow) firstElement(wait time.Duration, selectors []string) (*rod.Element, error) {
	per := wait / time.Duration(len(selectors))
	if per < 500*time.Millisecond {
		per = 500 * time.Millisecond
	}
	var lastErr error
	for _, sel := range selectors {
		el, err := f.page.Timeout(per).Element(sel)
		if err == nil {
			return el, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("none of %v present: %w", selectors, lastErr)
}

func (f *rodFlow) clickSubmit(wait time.Duration) error {
	btn, err := f.firstElement(wait, submitSelectors)
	if err != nil {
		return fmt.Errorf("submit button: %w", err)
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click submit: %w", err)
	}
	return nil
}
