package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	minNameLength     = 2
	minPasswordLength = 6
	badCredentials    = "invalid email or password"
)

// Service manages storefront accounts.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*UserDTO, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	GetProfile(ctx context.Context, id int64) (*UserDTO, error)
	UpdateProfile(ctx context.Context, id int64, input ProfileInput) (*UserDTO, error)
	ChangePassword(ctx context.Context, id int64, current, next string) error
	List(ctx context.Context) ([]UserDTO, error)
	Delete(ctx context.Context, id int64) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	BurnDecoy(password string)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     Repository
	tx       txRunner
	hasher   passwordHasher
	jwt      config.JWTConfig
	validate *validator.Validate
	now      func() time.Time
}

// NewService wires the account service.
func NewService(repo Repository, tx txRunner, hasher passwordHasher, jwtCfg config.JWTConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("password hasher required")
	}
	if jwtCfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		hasher:   hasher,
		jwt:      jwtCfg,
		validate: validator.New(),
		now:      time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*UserDTO, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	switch {
	case len([]rune(name)) < minNameLength:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must be at least 2 characters")
	case s.validate.Var(email, "required,email") != nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email must be valid")
	case len(input.Password) < minPasswordLength:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         enums.UserRoleCustomer,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return FromModel(user), nil
}

// Login verifies credentials and mints an access token. Unknown accounts and
// wrong passwords produce the same error after comparable work.
func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.hasher.BurnDecoy(password)
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, badCredentials)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, badCredentials)
	}

	now := s.now()
	token, err := auth.MintAccessToken(s.jwt, now, auth.AccessTokenPayload{UserID: user.ID, Role: user.Role})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &LoginResult{
		User:        *FromModel(user),
		AccessToken: token,
		ExpiresAt:   now.Add(time.Duration(s.jwt.ExpirationMinutes) * time.Minute).Unix(),
	}, nil
}

func (s *service) GetProfile(ctx context.Context, id int64) (*UserDTO, error) {
	user, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, id int64, input ProfileInput) (*UserDTO, error) {
	var updated *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		user, err := s.load(ctx, txRepo, id)
		if err != nil {
			return err
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if len([]rune(name)) < minNameLength {
				return pkgerrors.New(pkgerrors.CodeValidation, "name must be at least 2 characters")
			}
			if err := txRepo.UpdateName(ctx, id, name); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update name")
			}
		}

		profile := user.Profile
		if profile == nil {
			profile = &models.UserProfile{UserID: id}
		}
		if err := applyProfile(profile, input); err != nil {
			return err
		}
		if err := txRepo.UpsertProfile(ctx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save profile")
		}

		reloaded, err := s.load(ctx, txRepo, id)
		if err != nil {
			return err
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return FromModel(updated), nil
}

func (s *service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	if len(next) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters")
	}
	user, err := s.load(ctx, s.repo, id)
	if err != nil {
		return err
	}
	ok, err := s.hasher.Verify(current, user.PasswordHash)
	if err != nil || !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, id, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id must be positive")
	}
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

func (s *service) load(ctx context.Context, repo Repository, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id must be positive")
	}
	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func applyProfile(profile *models.UserProfile, input ProfileInput) error {
	if input.FirstName != nil {
		profile.FirstName = trimOptional(input.FirstName)
	}
	if input.LastName != nil {
		profile.LastName = trimOptional(input.LastName)
	}
	if input.Phone != nil {
		profile.Phone = trimOptional(input.Phone)
	}
	if input.Address != nil {
		profile.Address = trimOptional(input.Address)
	}
	if input.Gender != nil {
		if strings.TrimSpace(*input.Gender) == "" {
			profile.Gender = nil
		} else {
			gender, err := enums.ParseGender(*input.Gender)
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "gender must be male, female or other")
			}
			profile.Gender = &gender
		}
	}
	if input.BirthDate != nil {
		raw := strings.TrimSpace(*input.BirthDate)
		if raw == "" {
			profile.BirthDate = nil
		} else {
			parsed, err := time.Parse(birthDateLayout, raw)
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "birthDate must use YYYY-MM-DD")
			}
			profile.BirthDate = &parsed
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
