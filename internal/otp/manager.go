// Package otp issues, verifies and revokes one-time verification codes bound
// to an email identity. At most one code is live per identity; only its
// bcrypt hash is ever persisted.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"accounting/backend/internal/clock"
	"accounting/backend/internal/domain"
	"accounting/backend/internal/notify"
)

const (
	DefaultDuration = time.Hour
	codeDigits      = 6
)

// Store persists at most one code per identity.
type Store interface {
	SaveCode(ctx context.Context, code domain.OneTimeCode) error
	GetCode(ctx context.Context, identity string) (domain.OneTimeCode, error)
	DeleteCode(ctx context.Context, identity string) error
}

type IssueRequest struct {
	Identity string
	Subject  string
	Message  string
	Duration time.Duration
}

type Manager struct {
	store      Store
	dispatcher notify.Dispatcher
	clock      clock.Clock
	generate   func() (string, error)
	hashCost   int
	brand      string
}

type Option func(*Manager)

func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

func WithGenerator(gen func() (string, error)) Option {
	return func(m *Manager) { m.generate = gen }
}

func WithHashCost(cost int) Option {
	return func(m *Manager) { m.hashCost = cost }
}

// WithBrand sets the product name printed in the message footer.
func WithBrand(name string) Option {
	return func(m *Manager) { m.brand = name }
}

func NewManager(store Store, dispatcher notify.Dispatcher, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		dispatcher: dispatcher,
		clock:      clock.Real{},
		generate:   randomCode,
		hashCost:   bcrypt.DefaultCost,
		brand:      "Accounting System",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue supersedes any live code for the identity, mails a fresh one and
// persists its hash. A dispatch failure aborts before anything is stored.
func (m *Manager) Issue(ctx context.Context, req IssueRequest) (domain.OneTimeCode, error) {
	identity := normalizeIdentity(req.Identity)
	subject := strings.TrimSpace(req.Subject)
	message := strings.TrimSpace(req.Message)
	if identity == "" || subject == "" || message == "" {
		return domain.OneTimeCode{}, fmt.Errorf("%w: email, subject and message are required", domain.ErrValidation)
	}
	duration := req.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}

	if err := m.store.DeleteCode(ctx, identity); err != nil {
		return domain.OneTimeCode{}, fmt.Errorf("remove previous code: %w", err)
	}

	plain, err := m.generate()
	if err != nil {
		return domain.OneTimeCode{}, fmt.Errorf("generate code: %w", err)
	}

	body, err := renderMessage(message, plain, duration, m.brand, m.clock.Now())
	if err != nil {
		return domain.OneTimeCode{}, err
	}
	if err := m.dispatcher.Send(ctx, identity, subject, body); err != nil {
		return domain.OneTimeCode{}, fmt.Errorf("dispatch code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), m.hashCost)
	if err != nil {
		return domain.OneTimeCode{}, fmt.Errorf("hash code: %w", err)
	}

	issuedAt := m.clock.Now().UTC()
	record := domain.OneTimeCode{
		Identity:  identity,
		CodeHash:  string(hash),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(duration),
	}
	if err := m.store.SaveCode(ctx, record); err != nil {
		return domain.OneTimeCode{}, fmt.Errorf("save code: %w", err)
	}
	return record, nil
}

// Verify reports whether candidate matches the live code. An expired code is
// deleted and reported as ErrExpired. A successful match leaves the record in
// place; callers revoke it once they have acted on it.
func (m *Manager) Verify(ctx context.Context, identity string, candidate string) (bool, error) {
	identity = normalizeIdentity(identity)
	candidate = strings.TrimSpace(candidate)
	if identity == "" || candidate == "" {
		return false, fmt.Errorf("%w: email and code are required", domain.ErrValidation)
	}

	record, err := m.store.GetCode(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, fmt.Errorf("%w: no code issued for this email", domain.ErrNotFound)
		}
		return false, err
	}

	if m.clock.Now().After(record.ExpiresAt) {
		if err := m.store.DeleteCode(ctx, identity); err != nil {
			return false, fmt.Errorf("remove expired code: %w", err)
		}
		return false, fmt.Errorf("%w: code has expired, request a new one", domain.ErrExpired)
	}

	err = bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(candidate))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare code: %w", err)
	}
	return true, nil
}

// Revoke deletes any code for identity. Revoking a missing code is a no-op.
func (m *Manager) Revoke(ctx context.Context, identity string) error {
	identity = normalizeIdentity(identity)
	if identity == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	return m.store.DeleteCode(ctx, identity)
}

func normalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func randomCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
