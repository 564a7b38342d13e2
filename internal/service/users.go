package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"accounting/backend/internal/domain"
)

func (s *Service) GetProfile(ctx context.Context) (domain.UserAccount, error) {
	actor, err := requireRole(ctx, allRoles...)
	if err != nil {
		return domain.UserAccount{}, err
	}
	user, err := s.repo.GetUser(ctx, actor.UserID)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return *user, nil
}

// UpdateProfile changes the signed-in user's name or email. Roles are only
// changed through UpdateUser.
func (s *Service) UpdateProfile(ctx context.Context, req domain.ProfileUpdateRequest) (domain.UserAccount, error) {
	actor, err := requireRole(ctx, allRoles...)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return s.updateAccount(ctx, actor.UserID, domain.UserUpdateRequest{Name: req.Name, Email: req.Email})
}

// ChangePassword checks the current password and stores the new one. Tokens
// issued before the change stop authenticating, so the caller hands out a
// fresh one from the returned account.
func (s *Service) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) (domain.UserAccount, error) {
	actor, err := requireRole(ctx, allRoles...)
	if err != nil {
		return domain.UserAccount{}, err
	}
	if req.Password == "" {
		return domain.UserAccount{}, validationError("current password is required")
	}
	if len(req.NewPassword) < minPasswordLength {
		return domain.UserAccount{}, validationError("password must be at least %d characters", minPasswordLength)
	}

	user, err := s.repo.GetUser(ctx, actor.UserID)
	if err != nil {
		return domain.UserAccount{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return domain.UserAccount{}, fmt.Errorf("%w: current password is incorrect", domain.ErrUnauthorized)
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return domain.UserAccount{}, err
	}
	if err := s.repo.UpdateUserPassword(ctx, user.Email, hash, s.now()); err != nil {
		return domain.UserAccount{}, err
	}
	updated, err := s.repo.GetUser(ctx, user.ID)
	if err != nil {
		return domain.UserAccount{}, err
	}
	s.logger.Info("password changed", zap.String("user_id", user.ID))
	return *updated, nil
}

func (s *Service) ListUsers(ctx context.Context, limit int) ([]domain.UserAccount, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx, limit)
}

// GetUser is open to admins and to the account owner.
func (s *Service) GetUser(ctx context.Context, id string) (domain.UserAccount, error) {
	actor, err := requireRole(ctx, allRoles...)
	if err != nil {
		return domain.UserAccount{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.UserAccount{}, validationError("user id is required")
	}
	if actor.Role != domain.RoleAdmin && actor.UserID != id {
		return domain.UserAccount{}, fmt.Errorf("%w: only admins can view other accounts", domain.ErrForbidden)
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return *user, nil
}

func (s *Service) UpdateUser(ctx context.Context, id string, req domain.UserUpdateRequest) (domain.UserAccount, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.UserAccount{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.UserAccount{}, validationError("user id is required")
	}
	return s.updateAccount(ctx, id, req)
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	actor, err := requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return validationError("user id is required")
	}
	if id == actor.UserID {
		return validationError("you cannot delete your own account")
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("deleted_by", actor.UserID))
	return nil
}

func (s *Service) updateAccount(ctx context.Context, id string, req domain.UserUpdateRequest) (domain.UserAccount, error) {
	if req.Name == nil && req.Email == nil && req.Role == nil {
		return domain.UserAccount{}, validationError("at least one field must be provided")
	}

	var name, email, role string
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if err := requireLength("name", name, 2, 50); err != nil {
			return domain.UserAccount{}, err
		}
	}
	if req.Email != nil {
		email = normalizeEmail(*req.Email)
		if err := validateEmail(email); err != nil {
			return domain.UserAccount{}, err
		}
	}
	if req.Role != nil {
		role = strings.ToLower(strings.TrimSpace(*req.Role))
		if err := validateStatus("role", role, allRoles); err != nil {
			return domain.UserAccount{}, err
		}
	}

	updated, err := s.repo.UpdateUser(ctx, id, func(current domain.UserAccount) (domain.UserAccount, error) {
		if req.Name != nil {
			current.Name = name
		}
		if req.Email != nil {
			current.Email = email
		}
		if req.Role != nil {
			current.Role = role
		}
		return current, nil
	})
	if err != nil {
		return domain.UserAccount{}, err
	}
	return *updated, nil
}
