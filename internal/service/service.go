package service

import (
	"context"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"accounting/backend/internal/clock"
	"accounting/backend/internal/domain"
	"accounting/backend/internal/metrics"
	"accounting/backend/internal/otp"
	"accounting/backend/internal/store"
)

var allRoles = []string{domain.RoleAdmin, domain.RoleCashier, domain.RoleInventory}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo        store.Repository
	codes       *otp.Manager
	metrics     *metrics.Settlement
	logger      *zap.Logger
	clock       clock.Clock
	otpDuration time.Duration
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Settlement) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithOTPDuration sets the lifetime of verification and reset codes.
func WithOTPDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.otpDuration = d
		}
	}
}

func New(repo store.Repository, codes *otp.Manager, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		codes:       codes,
		logger:      zap.NewNop(),
		clock:       clock.Real{},
		otpDuration: otp.DefaultDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requireRole returns the context actor when its role is one of roles.
func requireRole(ctx context.Context, roles ...string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("%w: missing actor", domain.ErrUnauthorized)
	}
	if !slices.Contains(roles, actor.Role) {
		return domain.Actor{}, fmt.Errorf("%w: %s role required", domain.ErrForbidden, strings.Join(roles, " or "))
	}
	return actor, nil
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrValidation}, args...)...)
}

func requireLength(field string, value string, minLen, maxLen int) error {
	n := len([]rune(value))
	if n < minLen || n > maxLen {
		return validationError("%s must be between %d and %d characters", field, minLen, maxLen)
	}
	return nil
}

func requireMaxLength(field string, value string, maxLen int) error {
	if len([]rune(value)) > maxLen {
		return validationError("%s must be at most %d characters", field, maxLen)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return validationError("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validationError("email is not a valid address")
	}
	return nil
}

// stripSpaces removes all whitespace from phone numbers.
func stripSpaces(value string) string {
	return strings.Join(strings.Fields(value), "")
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}
