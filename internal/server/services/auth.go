// Package services contains server-side business logic. This file implements
// AuthService: credential sign-in, session reads from issued tokens, and
// account registration.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/observability"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// PasswordHasher hashes new passwords and checks submitted ones.
type PasswordHasher interface {
	auth.PasswordComparer
	Hash(password string) (string, error)
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Image    string
	Role     models.Role
}

// AuthService signs users in with credentials and reads sessions back from
// the issued tokens:
//   - Login: verify credentials, shape and sign a token
//   - Session: validate a token and project it onto a session
//   - Register: create a user with a hashed password
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	verifier    *auth.Verifier
	hasher      PasswordHasher
	codec       *auth.TokenCodec
	metrics     *observability.Metrics
	logger      logging.Logger
}

// NewAuthService wires the service. db may be nil for the in-memory backend;
// metrics may be nil.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, cfg *config.Config,
	metrics *observability.Metrics, l logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		verifier:    auth.NewVerifier(m.Users(db), hasher),
		hasher:      hasher,
		codec:       auth.NewTokenCodec([]byte(cfg.SecretKey), cfg.TokenValidityDuration),
		metrics:     metrics,
		logger:      l.With("module", "auth_service"),
	}
}

// Login checks creds and returns a signed session token carrying the user's
// id and role. Credential failures are common.ErrMissingFields or
// common.ErrInvalidCredentials; other failures are common.ErrorInternal.
func (s *AuthService) Login(ctx context.Context, creds auth.Credentials) (string, error) {
	user, err := s.verifier.Verify(ctx, creds)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrMissingFields):
			s.metrics.RecordLogin(observability.OutcomeMissingFields)
			s.logger.Warn(ctx, "login rejected", "reason", "missing fields")
		case errors.Is(err, common.ErrInvalidCredentials):
			s.metrics.RecordLogin(observability.OutcomeInvalidCredentials)
			s.logger.Warn(ctx, "login rejected", "reason", "invalid credentials", "email", creds.Email)
		default:
			s.metrics.RecordLogin(observability.OutcomeError)
			s.logger.Error(ctx, "login failed", "email", creds.Email, "error", err)
			return "", common.ErrorInternal
		}
		return "", err
	}

	token := auth.ExtendToken(s.codec.NewToken(user), user)

	signed, err := s.codec.Sign(token)
	if err != nil {
		s.metrics.RecordLogin(observability.OutcomeError)
		s.logger.Error(ctx, "token signing failed", "error", err)
		return "", common.ErrorInternal
	}

	s.metrics.RecordLogin(observability.OutcomeSuccess)
	s.logger.Info(ctx, "login accepted", "user_id", user.ID, "role", user.Role)
	s.logger.Debug(ctx, "token issued", "jti", token[auth.ClaimTokenID], "exp", token[auth.ClaimExpires])

	return signed, nil
}

// Session validates rawToken and returns the session derived from it.
// Every call re-derives the session from the same claims.
func (s *AuthService) Session(ctx context.Context, rawToken string) (*auth.Session, error) {
	token, err := s.codec.Parse(rawToken)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			s.metrics.RecordSessionRead(observability.OutcomeExpired)
		} else {
			s.metrics.RecordSessionRead(observability.OutcomeInvalidToken)
		}
		s.logger.Debug(ctx, "session token rejected", "error", err)
		return nil, err
	}

	token = auth.ExtendToken(token, nil)
	session := auth.ProjectSession(auth.DefaultSession(token), token)

	s.metrics.RecordSessionRead(observability.OutcomeSuccess)

	return &session, nil
}

// Register creates an account with a bcrypt-hashed password. Role defaults to
// models.RoleUser. A taken email yields common.ErrorAlreadyExists.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := (auth.Credentials{Email: in.Email, Password: in.Password}).Validate(); err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:          in.Email,
		Name:           in.Name,
		Image:          in.Image,
		HashedPassword: &hash,
		Role:           role,
	}

	create := func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = s.repomanager.Users(tx).Create(ctx, user)
		return err
	}

	if s.db != nil {
		err = dbx.WithTx(ctx, s.db, nil, create)
	} else {
		err = create(ctx, nil)
	}
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "role", user.Role)

	return user, nil
}
