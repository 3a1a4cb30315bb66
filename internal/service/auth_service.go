package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/auth"
	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/models"
	"github.com/goatkit/issueflow/internal/repository"
)

// ErrInvalidCredentials is returned for an unknown id and for a wrong
// password alike.
var ErrInvalidCredentials = apierrors.Unauthorized("Invalid user credentials")

var errInvalidRefresh = apierrors.Unauthorized("Invalid or expired refresh token")

// LoginResult is the login response body.
type LoginResult struct {
	User         models.UserSummary `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
	Tokens       *auth.TokenPair    `json:"-"`
}

// AuthService handles authentication and the caller's own account.
type AuthService struct {
	db      *database.DB
	users   *repository.UserRepository
	tokens  *auth.JWTManager
	refresh auth.RefreshStore
	opts    Options
	log     zerolog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(db *database.DB, tokens *auth.JWTManager, refresh auth.RefreshStore, opts Options, log zerolog.Logger) *AuthService {
	return &AuthService{
		db:      db,
		users:   repository.NewUserRepository(db),
		tokens:  tokens,
		refresh: refresh,
		opts:    opts,
		log:     log.With().Str("service", "auth").Logger(),
	}
}

// Login authenticates a user and returns a fresh token pair.
func (s *AuthService) Login(ctx context.Context, id, password string) (*LoginResult, error) {
	id = normalizeUserID(id)
	if id == "" || password == "" {
		return nil, apierrors.BadRequest("Username and password are required")
	}

	user, err := s.users.GetByID(ctx, id)
	if isNotFound(err) {
		auth.BurnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	if !auth.CheckPassword(user.Password, password) {
		s.log.Info().Str("user_id", id).Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		User:         user.Summary(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Tokens:       pair,
	}, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*auth.TokenPair, error) {
	pair, err := s.tokens.GenerateTokenPair(user.ID, user.IsAdmin)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	if err := s.refresh.Save(ctx, user.ID, pair.RefreshToken, s.tokens.RefreshTTL()); err != nil {
		return nil, apierrors.Internal(err)
	}
	return pair, nil
}

// Refresh rotates the token pair. The refresh token must belong to callerID
// when one is given and must match the server-side record.
func (s *AuthService) Refresh(ctx context.Context, callerID, refreshToken string) (*auth.TokenPair, error) {
	if refreshToken == "" {
		return nil, apierrors.Unauthorized("Unauthorized request")
	}

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errInvalidRefresh
	}
	if callerID != "" && claims.UserID != callerID {
		return nil, errInvalidRefresh
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if isNotFound(err) {
		return nil, errInvalidRefresh
	}
	if err != nil {
		return nil, apierrors.Internal(err)
	}

	if err := s.refresh.Verify(ctx, user.ID, refreshToken); err != nil {
		if errors.Is(err, auth.ErrRefreshTokenRevoked) {
			s.log.Warn().Str("user_id", user.ID).Msg("refresh token reuse or revoked token presented")
			return nil, errInvalidRefresh
		}
		return nil, apierrors.Internal(err)
	}
	return s.issue(ctx, user)
}

// Logout revokes the stored refresh token.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.refresh.Revoke(ctx, userID); err != nil {
		return apierrors.Internal(err)
	}
	return nil
}

// ChangePassword replaces the caller's password after checking the old one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apierrors.BadRequest("Old password and new password are required")
	}
	if err := s.opts.PasswordPolicy.Validate(newPassword); err != nil {
		return policyError(err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if isNotFound(err) {
		return apierrors.NotFound("User not found")
	}
	if err != nil {
		return apierrors.Internal(err)
	}
	if !auth.CheckPassword(user.Password, oldPassword) {
		return apierrors.BadRequest("Current password is incorrect")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apierrors.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return apierrors.Internal(err)
	}
	return nil
}

// CurrentUser resolves a user by id. The middleware uses it on every
// authenticated request.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if isNotFound(err) {
		return nil, apierrors.NotFound("User not found")
	}
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	return user, nil
}

// UpdateAccount changes the caller's name and email.
func (s *AuthService) UpdateAccount(ctx context.Context, userID, fullName, email string) (*models.User, error) {
	fullName, email = strings.TrimSpace(fullName), strings.TrimSpace(email)
	if fullName == "" || email == "" {
		return nil, apierrors.BadRequest("All fields are required")
	}
	if validate.Var(email, "email") != nil {
		return nil, apierrors.BadRequest("Please provide a valid email address")
	}

	var updated *models.User
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		users := s.users.WithTx(tx)
		taken, err := users.EmailTaken(ctx, email, userID)
		if err != nil {
			return err
		}
		if taken {
			return apierrors.Conflict("Email already exists")
		}
		if err := users.Update(ctx, userID, models.UserPatch{FullName: &fullName, Email: &email}); err != nil {
			if isDuplicate(err) {
				return apierrors.Conflict("Email already exists")
			}
			return err
		}
		updated, err = users.GetByID(ctx, userID)
		if isNotFound(err) {
			return apierrors.NotFound("User not found")
		}
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}
	return updated, nil
}
