package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
	"github.com/ericfisherdev/bucketpanel/internal/domain/port/driven"
)

const (
	// Rate limiting: a sliding window measured from the first failed attempt.
	attemptWindow    = 15 * time.Minute
	maxLoginAttempts = 10
	blockDuration    = 30 * time.Minute

	// Session lifetimes.
	sessionTTL    = 24 * time.Hour
	rememberMeTTL = 7 * 24 * time.Hour

	sessionTokenBytes = 32
)

// DefaultLoginWorkers bounds concurrent argon2 verifications when no explicit
// limit is configured.
const DefaultLoginWorkers = 4

// AuthService implements login, logout, and session validation for the single
// admin account, with durable per-IP rate limiting in front of password
// verification.
type AuthService struct {
	digest   *PasswordDigest
	attempts driven.RateLimitStore
	sessions driven.SessionStore
	logger   *slog.Logger

	// verifySlots is a fixed-size semaphore around argon2 verification.
	// Hashing is memory-hard; without the bound a login flood would
	// starve unrelated request handling.
	verifySlots chan struct{}

	now func() time.Time
}

// NewAuthService creates an AuthService. digest must be the startup-computed
// admin password digest; workers bounds concurrent password verifications.
func NewAuthService(
	digest *PasswordDigest,
	attempts driven.RateLimitStore,
	sessions driven.SessionStore,
	workers int,
	logger *slog.Logger,
) *AuthService {
	if workers < 1 {
		workers = DefaultLoginWorkers
	}

	return &AuthService{
		digest:      digest,
		attempts:    attempts,
		sessions:    sessions,
		logger:      logger,
		verifySlots: make(chan struct{}, workers),
		now:         time.Now,
	}
}

// Login verifies the password for a request from the given source IP and
// returns a new session on success. Failure modes: *model.RateLimitError when
// the IP is locked out, model.ErrInvalidPassword on a wrong password.
func (s *AuthService) Login(ctx context.Context, ip, password string, rememberMe bool) (*model.Session, error) {
	if err := s.checkRate(ctx, ip); err != nil {
		return nil, err
	}

	select {
	case s.verifySlots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	ok := s.digest.Verify(password)
	<-s.verifySlots

	if !ok {
		if err := s.attempts.RecordFailure(ctx, ip, s.now(), attemptWindow); err != nil {
			s.logger.Error("failed to record login failure", "ip", ip, "error", err)
		}
		return nil, model.ErrInvalidPassword
	}

	// Successful login fully clears the IP's rate-limit record.
	if err := s.attempts.Delete(ctx, ip); err != nil {
		s.logger.Error("failed to clear login attempts", "ip", ip, "error", err)
	}

	session, err := s.createSession(ctx, rememberMe)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login successful", "ip", ip, "remember_me", rememberMe)
	return session, nil
}

// Logout destroys the session server-side. The caller is responsible for
// clearing the client-side token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// Validate reports whether the token belongs to a live session. Expired
// sessions are treated as absent.
func (s *AuthService) Validate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		return false, fmt.Errorf("look up session: %w", err)
	}
	if session == nil || !session.Valid(s.now()) {
		return false, nil
	}

	return true, nil
}

// Status returns the read-only authentication projection for a token: whether
// the session is live and, if so, when the login happened.
func (s *AuthService) Status(ctx context.Context, token string) (authenticated bool, loginTime *time.Time, err error) {
	if token == "" {
		return false, nil, nil
	}

	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		return false, nil, fmt.Errorf("look up session: %w", err)
	}
	if session == nil || !session.Valid(s.now()) {
		return false, nil, nil
	}

	t := session.LoginTime
	return true, &t, nil
}

// PurgeExpired removes expired sessions and rate-limit records whose window
// and lockout have both passed. Meant to be called periodically.
func (s *AuthService) PurgeExpired(ctx context.Context) {
	now := s.now()

	if n, err := s.sessions.PurgeExpired(ctx, now); err != nil {
		s.logger.Error("failed to purge expired sessions", "error", err)
	} else if n > 0 {
		s.logger.Info("purged expired sessions", "count", n)
	}

	if n, err := s.attempts.PurgeStale(ctx, now.Add(-attemptWindow), now); err != nil {
		s.logger.Error("failed to purge stale login attempts", "error", err)
	} else if n > 0 {
		s.logger.Info("purged stale login attempts", "count", n)
	}
}

// checkRate applies the per-IP decision sequence: no record allows; an active
// lockout denies with the remaining wait; a stale window erases the record and
// allows; reaching the attempt cap starts a lockout and denies; anything else
// allows.
func (s *AuthService) checkRate(ctx context.Context, ip string) error {
	rec, err := s.attempts.Get(ctx, ip)
	if err != nil {
		return fmt.Errorf("check rate limit: %w", err)
	}
	if rec == nil {
		return nil
	}

	now := s.now()

	if rec.BlockedUntil != nil && rec.BlockedUntil.After(now) {
		return &model.RateLimitError{RetryAfter: ceilSeconds(rec.BlockedUntil.Sub(now))}
	}

	if now.Sub(rec.WindowStart) > attemptWindow {
		if err := s.attempts.Delete(ctx, ip); err != nil {
			s.logger.Error("failed to erase stale login attempts", "ip", ip, "error", err)
		}
		return nil
	}

	if rec.AttemptCount >= maxLoginAttempts {
		until := now.Add(blockDuration)
		if err := s.attempts.Block(ctx, ip, now, until); err != nil {
			return fmt.Errorf("start lockout: %w", err)
		}
		s.logger.Warn("source locked out after repeated login failures", "ip", ip, "until", until)
		return &model.RateLimitError{RetryAfter: ceilSeconds(blockDuration)}
	}

	return nil
}

func (s *AuthService) createSession(ctx context.Context, rememberMe bool) (*model.Session, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	ttl := sessionTTL
	if rememberMe {
		ttl = rememberMeTTL
	}

	now := s.now()
	session := model.Session{
		Token:     hex.EncodeToString(b),
		LoginTime: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	return &session, nil
}

// ceilSeconds converts a duration to whole seconds, rounding up.
func ceilSeconds(d time.Duration) int {
	return int((d.Milliseconds() + 999) / 1000)
}
