package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"accounting/backend/internal/domain"
)

func TestChangePasswordChecksCurrentPassword(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ChangePassword(cashierCtx(), domain.ChangePasswordRequest{Password: "wrong-pass", NewPassword: "fresh-pass-1"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = env.svc.ChangePassword(cashierCtx(), domain.ChangePasswordRequest{Password: "cashier12345", NewPassword: "short"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.svc.ChangePassword(cashierCtx(), domain.ChangePasswordRequest{NewPassword: "fresh-pass-1"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	stored, err := env.repo.GetUser(context.Background(), "usr-cashier")
	require.NoError(t, err)
	assert.Nil(t, stored.PasswordChangedAt, "rejected changes must not touch the account")
}

func TestChangePasswordStoresNewHash(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.svc.ChangePassword(cashierCtx(), domain.ChangePasswordRequest{Password: "cashier12345", NewPassword: "fresh-pass-1"})
	require.NoError(t, err)
	assert.Equal(t, "usr-cashier", user.ID)
	require.NotNil(t, user.PasswordChangedAt)
	assert.True(t, user.PasswordChangedAt.Equal(env.clock.Now()))

	stored, err := env.repo.GetUser(context.Background(), "usr-cashier")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("fresh-pass-1")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("cashier12345")))
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)

	updated, err := env.svc.UpdateProfile(cashierCtx(), domain.ProfileUpdateRequest{Name: ptr(" Front Desk "), Email: ptr("Desk@Accounting.Local")})
	require.NoError(t, err)
	assert.Equal(t, "Front Desk", updated.Name)
	assert.Equal(t, "desk@accounting.local", updated.Email)
	assert.Equal(t, domain.RoleCashier, updated.Role)

	profile, err := env.svc.GetProfile(cashierCtx())
	require.NoError(t, err)
	assert.Equal(t, "desk@accounting.local", profile.Email)

	_, err = env.svc.UpdateProfile(cashierCtx(), domain.ProfileUpdateRequest{Email: ptr("admin@accounting.local")})
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = env.svc.UpdateProfile(cashierCtx(), domain.ProfileUpdateRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.svc.UpdateProfile(cashierCtx(), domain.ProfileUpdateRequest{Email: ptr("not-an-email")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.svc.GetProfile(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t)

	users, err := env.svc.ListUsers(adminCtx(), 0)
	require.NoError(t, err)
	assert.Len(t, users, 3)
	_, err = env.svc.ListUsers(cashierCtx(), 0)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	promoted, err := env.svc.UpdateUser(adminCtx(), "usr-inventory", domain.UserUpdateRequest{Role: ptr("Cashier")})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCashier, promoted.Role)

	_, err = env.svc.UpdateUser(adminCtx(), "usr-inventory", domain.UserUpdateRequest{Role: ptr("owner")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.svc.UpdateUser(cashierCtx(), "usr-inventory", domain.UserUpdateRequest{Role: ptr("admin")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.svc.UpdateUser(adminCtx(), "usr-ghost", domain.UserUpdateRequest{Name: ptr("Ghost")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, env.svc.DeleteUser(cashierCtx(), "usr-inventory"), domain.ErrForbidden)
	assert.ErrorIs(t, env.svc.DeleteUser(adminCtx(), "usr-admin"), domain.ErrValidation)
	require.NoError(t, env.svc.DeleteUser(adminCtx(), "usr-inventory"))
	_, err = env.svc.GetUser(adminCtx(), "usr-inventory")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, env.svc.DeleteUser(adminCtx(), "usr-inventory"), domain.ErrNotFound)
}

func TestGetUserOwnerOrAdmin(t *testing.T) {
	env := newTestEnv(t)

	self, err := env.svc.GetUser(cashierCtx(), "usr-cashier")
	require.NoError(t, err)
	assert.Equal(t, "cashier@accounting.local", self.Email)

	_, err = env.svc.GetUser(cashierCtx(), "usr-admin")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	other, err := env.svc.GetUser(adminCtx(), "usr-cashier")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCashier, other.Role)
}
