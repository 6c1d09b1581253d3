// Package service contains the application services behind the HTTP surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/maru-site/internal/crypto"
	"github.com/and161185/maru-site/internal/errs"
	"github.com/and161185/maru-site/internal/limiter"
	"github.com/and161185/maru-site/internal/metrics"
	"github.com/and161185/maru-site/internal/model"
	"github.com/and161185/maru-site/internal/repository"
)

// DefaultIdleTimeout is how long a session may stay unused.
const DefaultIdleTimeout = 30 * time.Minute

// AuthService covers account and session operations.
type AuthService interface {
	// Register creates an active account.
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	// Login checks credentials, applies throttling and issues a session token.
	Login(ctx context.Context, username, password, clientIP string) (model.Session, error)
	// Logout marks the token owner as logged out. Undecodable tokens are ignored.
	Logout(ctx context.Context, rawToken string) error
	// Authenticate verifies the token and enforces the idle timeout.
	Authenticate(ctx context.Context, rawToken string) (*model.User, error)
	// DeleteUser removes an account.
	DeleteUser(ctx context.Context, id uuid.UUID) error
	// Reactivate re-enables a disabled account.
	Reactivate(ctx context.Context, username string) error
}

// TokenManager issues and verifies session tokens.
type TokenManager interface {
	Issue(userID uuid.UUID, username string) (string, time.Time, error)
	Verify(raw string) (model.Claims, error)
}

// IPResolver looks up the public address of the caller.
type IPResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// AuthOptions tunes AuthServiceImpl. Zero values select defaults.
type AuthOptions struct {
	IdleTimeout     time.Duration
	IPLookupTimeout time.Duration
	// Window throttles login attempts per client address. Nil disables it.
	Window limiter.Window
	// Resolver records the caller address after a login. Nil stores the
	// request address instead.
	Resolver IPResolver
	Metrics  *metrics.Metrics
}

type AuthServiceImpl struct {
	users    repository.UserRepository
	tokens   TokenManager
	window   limiter.Window
	resolver IPResolver
	metrics  *metrics.Metrics
	log      *zap.Logger

	idle     time.Duration
	ipLookup time.Duration
	now      func() time.Time

	bg sync.WaitGroup
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, tokens TokenManager, log *zap.Logger, opts AuthOptions) *AuthServiceImpl {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.IPLookupTimeout <= 0 {
		opts.IPLookupTimeout = 3 * time.Second
	}
	return &AuthServiceImpl{
		users:    users,
		tokens:   tokens,
		window:   opts.Window,
		resolver: opts.Resolver,
		metrics:  opts.Metrics,
		log:      log,
		idle:     opts.IdleTimeout,
		ipLookup: opts.IPLookupTimeout,
		now:      time.Now,
	}
}

// Wait blocks until background work started by Login has finished.
func (s *AuthServiceImpl) Wait() { s.bg.Wait() }

// Register creates a new user record with a per-user salt.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if n := utf8.RuneCountInString(username); n < 2 || n > 30 {
		return nil, errs.New(errs.KindValidation, "username must be 2 to 30 characters")
	}
	if !strings.Contains(email, "@") {
		return nil, errs.New(errs.KindValidation, "invalid email")
	}
	if utf8.RuneCountInString(password) < 4 {
		return nil, errs.New(errs.KindValidation, "password must be at least 4 characters")
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	hash, salt, err := pkgcrypto.NewPasswordHash(password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:       uid,
		Username: username,
		Email:    email,
		PwdHash:  hash,
		Salt:     salt,
		IsActive: true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login authenticates with per-account lockout and an optional per-address window.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password, clientIP string) (model.Session, error) {
	if s.window != nil && clientIP != "" {
		ok, err := s.window.Allow(ctx, clientIP)
		if err != nil {
			s.log.Warn("login window unavailable, allowing", zap.Error(err))
		}
		if !ok {
			s.metrics.Login("rate_limited")
			return model.Session{}, errs.New(errs.KindRateLimited, "too many login attempts")
		}
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.metrics.Login("unknown_user")
			return model.Session{}, errs.Wrap(errs.KindNotFound, "user not found", err)
		}
		return model.Session{}, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive {
		s.metrics.Login("disabled")
		return model.Session{}, errs.New(errs.KindAccountDisabled, "account disabled")
	}

	now := s.now()
	if !pkgcrypto.VerifyPassword(password, u.Salt, u.PwdHash) {
		attempts, active, err := s.users.RecordFailure(ctx, u.ID, now)
		if err != nil {
			return model.Session{}, fmt.Errorf("record failed login: %w", err)
		}
		if !active {
			s.metrics.Login("disabled")
			s.log.Warn("account disabled after failed logins", zap.String("username", u.Username))
			return model.Session{}, errs.New(errs.KindAccountDisabled, "account disabled after too many failed attempts")
		}
		s.metrics.Login("invalid_credentials")
		return model.Session{}, errs.InvalidCredentials(limiter.Remaining(attempts))
	}

	ok, err := s.users.RecordLogin(ctx, u.ID, now)
	if err != nil {
		return model.Session{}, fmt.Errorf("record login: %w", err)
	}
	if !ok {
		// disabled by a concurrent failure after the load
		s.metrics.Login("disabled")
		return model.Session{}, errs.New(errs.KindAccountDisabled, "account disabled")
	}
	limiter.Success(u, now)
	tok, exp, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return model.Session{}, fmt.Errorf("issue token: %w", err)
	}
	s.metrics.Login("ok")
	s.recordIP(u.ID, clientIP)
	return model.Session{Token: tok, ExpiresAt: exp, User: *u}, nil
}

// recordIP stores the caller address in the background. It never affects
// the login outcome.
func (s *AuthServiceImpl) recordIP(id uuid.UUID, fallback string) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.ipLookup)
		defer cancel()

		ip := fallback
		if s.resolver != nil {
			if got, err := s.resolver.Resolve(ctx); err == nil {
				ip = got
			} else {
				s.log.Debug("ip lookup failed", zap.Error(err))
			}
		}
		if ip == "" {
			return
		}
		if err := s.users.SetIPAddress(ctx, id, ip); err != nil {
			s.log.Warn("store login ip", zap.String("user_id", id.String()), zap.Error(err))
		}
	}()
}

// Logout clears the logged-in flag of the token owner.
func (s *AuthServiceImpl) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		return nil
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.users.SetLoggedIn(ctx, u.ID, false)
}

// Authenticate is the idle-session reaper. It runs on every authenticated
// request: a session unused for longer than the idle timeout is closed and
// reported as SessionExpired, otherwise its activity stamp is refreshed.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, rawToken string) (*model.User, error) {
	if rawToken == "" {
		s.metrics.Session("unauthenticated")
		return nil, errs.New(errs.KindUnauthenticated, "authentication required")
	}
	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		s.metrics.Session("invalid_token")
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.metrics.Session("unauthenticated")
			return nil, errs.New(errs.KindUnauthenticated, "user not found")
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}

	now := s.now()
	last := now
	if u.LastActiveAt != nil {
		last = *u.LastActiveAt
	}
	if now.Sub(last) > s.idle {
		u.IsLoggedIn = false
		if err := s.users.SetLoggedIn(ctx, u.ID, false); err != nil {
			s.log.Warn("close idle session", zap.String("user_id", u.ID.String()), zap.Error(err))
		}
		s.metrics.Session("expired")
		return nil, errs.New(errs.KindSessionExpired, "session expired")
	}

	if err := s.users.TouchActivity(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	u.LastActiveAt = &now
	s.metrics.Session("ok")
	return u, nil
}

// DeleteUser removes an account by ID.
func (s *AuthServiceImpl) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.New(errs.KindValidation, "invalid user id")
	}
	return s.users.Delete(ctx, id)
}

// Reactivate re-enables an account disabled by failed logins.
func (s *AuthServiceImpl) Reactivate(ctx context.Context, username string) error {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	limiter.Reactivate(u)
	return s.users.Update(ctx, u)
}
