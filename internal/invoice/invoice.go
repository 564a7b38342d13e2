package invoice

import (
	"fmt"
	"strconv"
	"strings"

	"accounting/backend/internal/domain"
)

const (
	Prefix = "INV-"
	// SequenceName scopes the stored counter row to sales.
	SequenceName = "sale"

	// MaxDigits bounds the numeric part so every accepted identifier has a
	// successor that still parses.
	MaxDigits = 9
	MaxNumber = 999_999_999
)

// Format renders n as INV-%03d; numbers above 999 keep all their digits.
func Format(n int) string {
	return fmt.Sprintf("%s%03d", Prefix, n)
}

// Parse extracts the numeric part of an invoice identifier.
func Parse(id string) (int, error) {
	digits, ok := strings.CutPrefix(id, Prefix)
	if !ok || digits == "" || len(digits) > MaxDigits {
		return 0, fmt.Errorf("%w: %q", domain.ErrSequenceCorruption, id)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", domain.ErrSequenceCorruption, id)
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrSequenceCorruption, id)
	}
	return n, nil
}

// Next returns the identifier following lastIssued. An empty lastIssued
// means nothing was issued yet.
func Next(lastIssued string) (string, error) {
	if lastIssued == "" {
		return Format(1), nil
	}
	n, err := Parse(lastIssued)
	if err != nil {
		return "", err
	}
	if n >= MaxNumber {
		return "", fmt.Errorf("%w: sequence exhausted at %q", domain.ErrSequenceCorruption, lastIssued)
	}
	return Format(n + 1), nil
}

// Canonical parses id and renders it in the form Next produces, so that
// INV-7, INV-07 and INV-0007 all become INV-007.
func Canonical(id string) (string, error) {
	n, err := Parse(id)
	if err != nil {
		return "", err
	}
	return Format(n), nil
}

// Later reports whether candidate sorts after current in sequence order.
// An empty current is before everything.
func Later(candidate, current string) (bool, error) {
	c, err := Parse(candidate)
	if err != nil {
		return false, err
	}
	if current == "" {
		return true, nil
	}
	cur, err := Parse(current)
	if err != nil {
		return false, err
	}
	return c > cur, nil
}
