package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/avellaud/pictobank/internal/models"
	apperrors "github.com/avellaud/pictobank/pkg/errors"
)

// AccountService provisions owner accounts together with their root folders.
// Confirmation emails, sessions and profile management are caller concerns.
type AccountService struct {
	db        *gorm.DB
	hierarchy *HierarchyService
}

// NewAccountService constructs the service.
func NewAccountService(db *gorm.DB, hierarchy *HierarchyService) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if hierarchy == nil {
		return nil, errors.New("account service: hierarchy service is required")
	}
	return &AccountService{db: db, hierarchy: hierarchy}, nil
}

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Register creates the user record and provisions their root folder. The root
// is part of the owner lifecycle, not a separate user action.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if username == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewBadRequest("username, email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("username or email is already taken")
		}
		return nil, fmt.Errorf("account service: create user: %w", err)
	}

	if _, err := s.hierarchy.ProvisionRoot(ctx, &user); err != nil {
		// The account exists; a partial root is repairable from metadata.
		return &user, err
	}

	return &user, nil
}

// Authenticate verifies credentials and returns the matching user.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("account service: load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	return &user, nil
}
