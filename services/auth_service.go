package services

import (
	"context"
	"strings"
	"time"

	"filerepo/models"
	"filerepo/repositories"
	"filerepo/utils"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FullName, nameRules...),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 255), is.EmailFormat),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 72)),
	)
}

type LoginInput struct {
	Email    string
	Password string
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

type AuthUser struct {
	ID         uint      `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	IsApproved bool      `json:"is_approved"`
	IsArchived bool      `json:"is_archived"`
	CreatedAt  time.Time `json:"created_at"`
}

func toAuthUser(u models.User) AuthUser {
	return AuthUser{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		Role:       u.Role,
		IsActive:   u.IsActive,
		IsApproved: u.IsApproved,
		IsArchived: u.IsArchived,
		CreatedAt:  u.CreatedAt,
	}
}

type LoginOutput struct {
	Token string   `json:"token"`
	User  AuthUser `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (AuthUser, error)
	Login(ctx context.Context, in LoginInput) (LoginOutput, error)
	GetProfile(ctx context.Context, userID uint) (AuthUser, error)
	// Authenticate resolves a token subject to a caller allowed to use the API.
	Authenticate(ctx context.Context, userID uint) (Identity, error)
	EnsurePrincipal(ctx context.Context, in RegisterInput) (AuthUser, error)
}

type authService struct {
	users repositories.UserRepository
}

func NewAuthService(users repositories.UserRepository) AuthService {
	return &authService{users: users}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) createUser(ctx context.Context, in RegisterInput, role string, approved bool) (AuthUser, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return AuthUser{}, errValidation(err.Error(), err)
	}

	count, err := s.users.CountByEmail(ctx, in.Email)
	if err != nil {
		return AuthUser{}, errOperationFailed("failed to check email", err)
	}
	if count > 0 {
		return AuthUser{}, errConflict("email already registered", nil)
	}

	hashedPassword, err := utils.HashPassword(in.Password)
	if err != nil {
		return AuthUser{}, errOperationFailed("failed to hash password", err)
	}

	user := models.User{
		FullName:   in.FullName,
		Email:      in.Email,
		Password:   hashedPassword,
		Role:       role,
		IsActive:   true,
		IsApproved: approved,
	}
	if err := s.users.Create(ctx, nil, &user); err != nil {
		return AuthUser{}, errOperationFailed("failed to create user", err)
	}
	return toAuthUser(user), nil
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (AuthUser, error) {
	return s.createUser(ctx, in, models.RoleUser, false)
}

// EnsurePrincipal creates an approved principal account unless the email is taken.
func (s *authService) EnsurePrincipal(ctx context.Context, in RegisterInput) (AuthUser, error) {
	existing, err := s.users.GetByEmail(ctx, nil, normalizeEmail(in.Email))
	if err == nil {
		return toAuthUser(existing), nil
	}
	if !isNotFound(err) {
		return AuthUser{}, errOperationFailed("failed to query user", err)
	}
	return s.createUser(ctx, in, models.RolePrincipal, true)
}

// checkAccess rejects accounts that may not sign in.
func checkAccess(user models.User) error {
	switch {
	case user.IsArchived:
		return errForbidden("account is archived")
	case !user.IsActive:
		return errForbidden("account is inactive")
	case !user.IsApproved && !user.IsPrincipal():
		return errForbidden("account is pending approval")
	}
	return nil
}

func (s *authService) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return LoginOutput{}, errValidation(err.Error(), err)
	}

	user, err := s.users.GetByEmail(ctx, nil, in.Email)
	if err != nil {
		if isNotFound(err) {
			return LoginOutput{}, errUnauthorized("invalid email or password")
		}
		return LoginOutput{}, errOperationFailed("failed to query user", err)
	}

	if !utils.CheckPassword(in.Password, user.Password) {
		return LoginOutput{}, errUnauthorized("invalid email or password")
	}
	if err := checkAccess(user); err != nil {
		return LoginOutput{}, err
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return LoginOutput{}, errOperationFailed("failed to generate token", err)
	}

	return LoginOutput{Token: token, User: toAuthUser(user)}, nil
}

func (s *authService) GetProfile(ctx context.Context, userID uint) (AuthUser, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		if isNotFound(err) {
			return AuthUser{}, errNotFound("user not found")
		}
		return AuthUser{}, errOperationFailed("failed to query user", err)
	}
	return toAuthUser(user), nil
}

func (s *authService) Authenticate(ctx context.Context, userID uint) (Identity, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		if isNotFound(err) {
			return Identity{}, errUnauthorized("user no longer exists")
		}
		return Identity{}, errOperationFailed("failed to query user", err)
	}
	if err := checkAccess(user); err != nil {
		return Identity{}, err
	}
	return Identity{UserID: user.ID, DisplayName: user.FullName, Role: user.Role}, nil
}
