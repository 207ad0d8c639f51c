package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sakif/inventory-service/internal/apperror"
	"github.com/sakif/inventory-service/internal/auth"
	"github.com/sakif/inventory-service/internal/metrics"
	"github.com/sakif/inventory-service/internal/model"
	"github.com/sakif/inventory-service/internal/repository"
)

// PhotoFiles is the file side of product photos. storage.PhotoStore
// implements it.
type PhotoFiles interface {
	Save(r io.Reader) (string, error)
	Path(name string) (string, error)
	RemoveQuietly(name string)
}

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name"  validate:"required,max=50"`
	Phone     string `json:"phone"      validate:"required,min=2,max=20"`
	Email     string `json:"email"      validate:"required,email,max=100"`
	Password  string `json:"password"   validate:"required,min=6"`
}

// AuthResult bundles the user and the issued access token.
type AuthResult struct {
	Token string      `json:"access_token"`
	User  *model.User `json:"user"`
}

// AuthService owns accounts: registration, password login, GitHub login,
// profile lookup and account removal.
type AuthService struct {
	store     repository.Store
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	photos    PhotoFiles
	logger    *slog.Logger
}

func NewAuthService(
	store repository.Store,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	photos PhotoFiles,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		photos:    photos,
		logger:    logger,
	}
}

// Register validates and creates an account. Email and phone must both be
// unused; duplicates are reported per field.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = normalizeEmail(in.Email)

	if err := checkStruct(in); err != nil {
		return nil, err
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Email:        in.Email,
		PasswordHash: hash,
	}

	err = s.store.WithinTx(ctx, func(q repository.Queries) error {
		taken, err := q.EmailTaken(ctx, user.Email)
		if err != nil {
			return err
		}
		if taken {
			return apperror.ValidationFailed("email", "Email already registered")
		}

		taken, err = q.PhoneTaken(ctx, user.Phone)
		if err != nil {
			return err
		}
		if taken {
			return apperror.ValidationFailed("phone", "Phone already registered")
		}

		return q.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: registering %s: %w", user.Email, err)
	}

	metrics.RecordEvent("user", "register")
	s.logger.Info("user registered", slog.Int64("userID", user.ID))
	return user, nil
}

// Login checks the password and issues an access token. Unknown email and
// wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := apperror.Unauthorized("Invalid credentials")

	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login failed", slog.Int64("userID", user.ID))
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	metrics.RecordEvent("user", "login")
	return s.issue(user)
}

// LoginWithGitHub issues a token for the local account whose email matches
// the GitHub primary verified email. It never creates accounts.
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(gh.Email))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: "no account is registered for this GitHub email",
		}
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up GitHub user: %w", err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.Int64("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", userID, err)
	}
	return user, nil
}

// DeleteAccount removes the caller and everything they own in one
// transaction. Photo files are removed only after the commit.
func (s *AuthService) DeleteAccount(ctx context.Context, userID int64) error {
	var photos []string
	err := s.store.WithinTx(ctx, func(q repository.Queries) error {
		var err error
		if photos, err = q.ListProductPhotos(ctx, userID); err != nil {
			return err
		}
		return q.DeleteUser(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("service/auth: deleting user %d: %w", userID, err)
	}

	for _, name := range photos {
		s.photos.RemoveQuietly(name)
	}

	metrics.RecordEvent("user", "delete")
	s.logger.Info("user deleted",
		slog.Int64("userID", userID),
		slog.Int("photosRemoved", len(photos)),
	)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
