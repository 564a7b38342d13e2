package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"accounting/backend/internal/domain"
	"accounting/backend/internal/metrics"
	"accounting/backend/internal/otp"
)

const (
	minPasswordLength = 8

	verificationSubject = "Email Verification"
	verificationMessage = "verify your email with the code below."
	resetSubject        = "Password Reset OTP"
	resetMessage        = "reset your password with the code below."
)

var errInvalidCode = fmt.Errorf("%w: invalid code", domain.ErrValidation)

// Signup registers an unverified account and mails it a verification code.
// A failed dispatch is logged; the account can request a new code later.
func (s *Service) Signup(ctx context.Context, req domain.SignupRequest) (domain.UserAccount, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.UserAccount{}, err
	}

	name := strings.TrimSpace(req.Name)
	if err := requireLength("name", name, 2, 50); err != nil {
		return domain.UserAccount{}, err
	}
	email := normalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return domain.UserAccount{}, err
	}
	if len(req.Password) < minPasswordLength {
		return domain.UserAccount{}, validationError("password must be at least %d characters", minPasswordLength)
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = domain.RoleCashier
	}
	if err := validateStatus("role", role, allRoles); err != nil {
		return domain.UserAccount{}, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.UserAccount{}, err
	}

	created, err := s.repo.CreateUser(ctx, domain.UserAccount{
		Name:     name,
		Email:    email,
		Password: hash,
		Role:     role,
	})
	if err != nil {
		return domain.UserAccount{}, err
	}

	if _, err := s.issue(ctx, otp.IssueRequest{
		Identity: email,
		Subject:  verificationSubject,
		Message:  verificationMessage,
		Duration: s.otpDuration,
	}); err != nil {
		s.logger.Warn("verification code not sent", zap.String("email", email), zap.Error(err))
	}

	s.logger.Info("user registered", zap.String("user_id", created.ID), zap.String("role", created.Role))
	return *created, nil
}

// SendOTP issues a code with a caller-chosen subject and message.
func (s *Service) SendOTP(ctx context.Context, req domain.OTPSendRequest) (domain.OneTimeCode, error) {
	if req.DurationHours < 0 {
		return domain.OneTimeCode{}, validationError("duration_hours must not be negative")
	}
	duration := s.otpDuration
	if req.DurationHours > 0 {
		duration = time.Duration(req.DurationHours) * time.Hour
	}
	return s.issue(ctx, otp.IssueRequest{
		Identity: req.Email,
		Subject:  req.Subject,
		Message:  req.Message,
		Duration: duration,
	})
}

// VerifyOTP reports whether code matches the live code for email. The code
// stays valid until it is revoked or expires.
func (s *Service) VerifyOTP(ctx context.Context, req domain.OTPVerifyRequest) (bool, error) {
	return s.verify(ctx, req.Email, req.Code)
}

func (s *Service) RequestEmailVerification(ctx context.Context, email string) (domain.OneTimeCode, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return domain.OneTimeCode{}, err
	}
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.OneTimeCode{}, err
	}
	if user.Verified {
		return domain.OneTimeCode{}, fmt.Errorf("%w: email is already verified", domain.ErrConflict)
	}
	return s.issue(ctx, otp.IssueRequest{
		Identity: email,
		Subject:  verificationSubject,
		Message:  verificationMessage,
		Duration: s.otpDuration,
	})
}

func (s *Service) VerifyEmail(ctx context.Context, req domain.OTPVerifyRequest) error {
	email := normalizeEmail(req.Email)
	ok, err := s.verify(ctx, email, req.Code)
	if err != nil {
		return err
	}
	if !ok {
		return errInvalidCode
	}
	if err := s.repo.SetUserVerified(ctx, email, true); err != nil {
		return err
	}
	s.revoke(ctx, email)
	s.logger.Info("email verified", zap.String("email", email))
	return nil
}

// RequestPasswordReset mails a reset code to a verified account.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (domain.OneTimeCode, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return domain.OneTimeCode{}, err
	}
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.OneTimeCode{}, err
	}
	if !user.Verified {
		return domain.OneTimeCode{}, fmt.Errorf("%w: email is not verified", domain.ErrForbidden)
	}
	return s.issue(ctx, otp.IssueRequest{
		Identity: email,
		Subject:  resetSubject,
		Message:  resetMessage,
		Duration: s.otpDuration,
	})
}

// ResetPassword consumes a reset code and stores the new password hash.
// Tokens issued before the change stop authenticating.
func (s *Service) ResetPassword(ctx context.Context, req domain.PasswordResetRequest) error {
	email := normalizeEmail(req.Email)
	if len(req.NewPassword) < minPasswordLength {
		return validationError("password must be at least %d characters", minPasswordLength)
	}
	ok, err := s.verify(ctx, email, req.Code)
	if err != nil {
		return err
	}
	if !ok {
		return errInvalidCode
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateUserPassword(ctx, email, hash, s.now()); err != nil {
		return err
	}
	s.revoke(ctx, email)
	s.logger.Info("password reset", zap.String("email", email))
	return nil
}

func (s *Service) issue(ctx context.Context, req otp.IssueRequest) (domain.OneTimeCode, error) {
	record, err := s.codes.Issue(ctx, req)
	s.metrics.OTPEvent("issue", metrics.Classify(err))
	if err != nil {
		return domain.OneTimeCode{}, err
	}
	return record, nil
}

func (s *Service) verify(ctx context.Context, email, code string) (bool, error) {
	ok, err := s.codes.Verify(ctx, email, code)
	result := metrics.Classify(err)
	if err == nil && !ok {
		result = "mismatch"
	}
	s.metrics.OTPEvent("verify", result)
	return ok, err
}

// revoke consumes a code after its flow completed. The flow already took
// effect, so a failure here is only logged.
func (s *Service) revoke(ctx context.Context, email string) {
	err := s.codes.Revoke(ctx, email)
	s.metrics.OTPEvent("revoke", metrics.Classify(err))
	if err != nil {
		s.logger.Warn("code not revoked", zap.String("email", email), zap.Error(err))
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", validationError("password is too long")
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
