package services

import (
	"context"

	"filerepo/logger"
	"filerepo/models"
	"filerepo/repositories"

	"gorm.io/gorm"
)

// UserService is the principal's account approval workflow.
type UserService interface {
	ListPendingUsers(ctx context.Context) ([]AuthUser, error)
	ApproveUser(ctx context.Context, principal Identity, userID uint) (AuthUser, error)
	RejectUser(ctx context.Context, principal Identity, userID uint) (AuthUser, error)
}

type userService struct {
	txManager TxManager
	users     repositories.UserRepository
	audit     repositories.AuditRepository
}

func NewUserService(txManager TxManager, users repositories.UserRepository, audit repositories.AuditRepository) UserService {
	return &userService{txManager: txManager, users: users, audit: audit}
}

func (s *userService) ListPendingUsers(ctx context.Context) ([]AuthUser, error) {
	users, err := s.users.ListPending(ctx, nil)
	if err != nil {
		return nil, errOperationFailed("failed to list pending users", err)
	}
	out := make([]AuthUser, 0, len(users))
	for _, u := range users {
		out = append(out, toAuthUser(u))
	}
	return out, nil
}

func (s *userService) ApproveUser(ctx context.Context, principal Identity, userID uint) (AuthUser, error) {
	return s.decide(ctx, principal, userID, models.ApprovalActionApprove, map[string]interface{}{
		"is_approved": true,
		"is_active":   true,
	})
}

// RejectUser also deactivates the account so it can no longer sign in.
func (s *userService) RejectUser(ctx context.Context, principal Identity, userID uint) (AuthUser, error) {
	return s.decide(ctx, principal, userID, models.ApprovalActionReject, map[string]interface{}{
		"is_approved": false,
		"is_active":   false,
	})
}

func (s *userService) decide(ctx context.Context, principal Identity, userID uint, action string, updates map[string]interface{}) (AuthUser, error) {
	if !principal.IsPrincipal() {
		return AuthUser{}, errForbidden("principal access required")
	}
	if principal.UserID == userID {
		return AuthUser{}, errValidation("cannot change your own approval", nil)
	}

	var user models.User
	err := s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		user, err = s.users.GetByID(ctx, tx, userID)
		if err != nil {
			if isNotFound(err) {
				return errNotFound("user not found")
			}
			return errOperationFailed("failed to query user", err)
		}
		if user.IsPrincipal() {
			return errValidation("principal accounts are not subject to approval", nil)
		}
		if err := s.users.UpdateByID(ctx, tx, userID, updates); err != nil {
			return errOperationFailed("failed to update user", err)
		}
		entry := models.ApprovalLog{PrincipalID: principal.UserID, UserID: userID, Action: action}
		if err := s.audit.CreateApproval(ctx, tx, &entry); err != nil {
			return errOperationFailed("failed to record approval", err)
		}
		return nil
	})
	if err != nil {
		return AuthUser{}, err
	}

	user.IsApproved, _ = updates["is_approved"].(bool)
	user.IsActive, _ = updates["is_active"].(bool)
	logger.Infow("account decision recorded", "principal_id", principal.UserID, "user_id", userID, "action", action)
	return toAuthUser(user), nil
}
