// Package pje implements the dominant court family: PJe front ends behind
// the shared SSO identity provider, with JSON APIs under the court's
// internal /api tree. The login ritual is a browser-driven state machine;
// record fetching reuses the session artifact over plain HTTP.
package pje

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SinesysTech/captura/otp"
	"github.com/SinesysTech/captura/tribunal"
)

// loginFlow is the browser side of the ritual. The rod implementation lives
// in flow_rod.go; tests script the whole flow with fakes.
type loginFlow interface {
	// Start navigates to the court's login entry point.
	Start(ctx context.Context) error
	// AwaitCredentialForm follows the identity provider's redirect chain
	// until the credential form is present. Bounded hops, bounded waits.
	AwaitCredentialForm(ctx context.Context) error
	// SubmitCredentials fills and submits the provider's form.
	SubmitCredentials(ctx context.Context, document, secret string) error
	// OTPRequired reports whether the post-submit page shows the
	// one-time-passcode challenge.
	OTPRequired(ctx context.Context) (bool, error)
	// SubmitOTP submits one code and returns the provider's response text
	// for rejection matching.
	SubmitOTP(ctx context.Context, code string) (string, error)
	// SessionArtifact probes once for the bearer token or cookie the
	// provider sets when the chain completes.
	SessionArtifact(ctx context.Context) (string, bool, error)
}

type authState int

const (
	stateStart authState = iota
	stateRedirectChain
	stateCredentialSubmit
	stateOTPChallenge
	stateTokenIssued
	stateIdentityResolved
)

const (
	maxOTPAttempts = 3
	// otpValidity is the provider-side validity window of one code. A code
	// older than this is discarded and refetched, never resubmitted.
	otpValidity = 30 * time.Second

	artifactPollInterval = 500 * time.Millisecond
)

// authenticator runs the login state machine for one credential.
type authenticator struct {
	flow  loginFlow
	codes otp.Source
	cred  *tribunal.Credential
	court *tribunal.CourtConfig
	log   *slog.Logger

	// now is injectable so tests can age OTP codes.
	now func() time.Time
}

// run drives START through IDENTITY_RESOLVED under the whole-flow ceiling.
// The caller wraps ctx with the court's auth timeout; a deadline hit in any
// state surfaces as ErrAuthTimeout.
func (a *authenticator) run(ctx context.Context) (artifact string, identity *tribunal.Identity, err error) {
	if a.now == nil {
		a.now = time.Now
	}

	defer func() {
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) &&
			!errors.Is(err, tribunal.ErrOTPExhausted) {
			err = fmt.Errorf("%w: %v", tribunal.ErrAuthTimeout, err)
		}
	}()

	for state := stateStart; ; {
		switch state {
		case stateStart:
			if err := a.flow.Start(ctx); err != nil {
				return "", nil, fmt.Errorf("pje: open login page: %w", err)
			}
			state = stateRedirectChain

		case stateRedirectChain:
			if err := a.flow.AwaitCredentialForm(ctx); err != nil {
				return "", nil, fmt.Errorf("pje: redirect chain: %w", err)
			}
			state = stateCredentialSubmit

		case stateCredentialSubmit:
			if err := a.flow.SubmitCredentials(ctx, a.cred.Document, a.cred.Secret); err != nil {
				return "", nil, fmt.Errorf("pje: submit credentials: %w", err)
			}
			state = stateOTPChallenge

		case stateOTPChallenge:
			required, err := a.flow.OTPRequired(ctx)
			if err != nil {
				return "", nil, fmt.Errorf("pje: detect otp challenge: %w", err)
			}
			if required {
				if err := a.runOTPChallenge(ctx); err != nil {
					return "", nil, err
				}
			}
			state = stateTokenIssued

		case stateTokenIssued:
			artifact, err = a.awaitArtifact(ctx)
			if err != nil {
				return "", nil, err
			}
			state = stateIdentityResolved

		case stateIdentityResolved:
			id, err := decodeIdentity(artifact)
			if err != nil {
				return "", nil, fmt.Errorf("pje: resolve identity: %w", err)
			}
			a.log.Info("pje: authenticated",
				"court", a.court.CourtID, "credential", a.cred.ID, "subject", id.Subject)
			return artifact, id, nil
		}
	}
}

// runOTPChallenge fetches and submits codes until the provider accepts one.
// Hard bound of 3 attempts; the 3rd consecutive rejection yields
// ErrOTPExhausted, never a 4th submission or provider call.
func (a *authenticator) runOTPChallenge(ctx context.Context) error {
	for attempt := 1; attempt <= maxOTPAttempts; attempt++ {
		code, fetchedAt, err := a.freshCode(ctx)
		if err != nil {
			// An unusable provider response burns the attempt.
			a.log.Warn("pje: otp code fetch failed",
				"court", a.court.CourtID, "attempt", attempt, "error", err)
			continue
		}

		// The ritual can stall between fetch and submit (slow page). A
		// code past its validity window must not be resubmitted.
		if a.now().Sub(fetchedAt) >= otpValidity {
			code, _, err = a.freshCode(ctx)
			if err != nil {
				a.log.Warn("pje: otp refetch failed",
					"court", a.court.CourtID, "attempt", attempt, "error", err)
				continue
			}
		}

		resp, err := a.flow.SubmitOTP(ctx, code)
		if err != nil {
			return fmt.Errorf("pje: submit otp: %w", err)
		}
		if !isOTPRejection(resp) {
			return nil
		}
		a.log.Warn("pje: otp rejected",
			"court", a.court.CourtID, "attempt", attempt)
	}
	return fmt.Errorf("%w: %d attempts", tribunal.ErrOTPExhausted, maxOTPAttempts)
}

func (a *authenticator) freshCode(ctx context.Context) (string, time.Time, error) {
	code, err := a.codes.CurrentCode(ctx, a.cred.OTPAccountID)
	if err != nil {
		return "", time.Time{}, err
	}
	if !otp.ValidCode(code) {
		return "", time.Time{}, fmt.Errorf("unusable code %q", code)
	}
	return code, a.now(), nil
}

// awaitArtifact polls for the session artifact under the per-stage bound.
// Absence at the deadline means the chain never completed.
func (a *authenticator) awaitArtifact(ctx context.Context) (string, error) {
	stage, cancel := context.WithTimeout(ctx, a.court.NavTimeout())
	defer cancel()

	ticker := time.NewTicker(artifactPollInterval)
	defer ticker.Stop()

	for {
		artifact, ok, err := a.flow.SessionArtifact(stage)
		if err != nil {
			return "", fmt.Errorf("pje: probe session artifact: %w", err)
		}
		if ok {
			return artifact, nil
		}
		select {
		case <-stage.Done():
			return "", fmt.Errorf("%w: court %s", tribunal.ErrTokenNotIssued, a.court.CourtID)
		case <-ticker.C:
		}
	}
}
