// Package model defines the core data structures for the fammoney application.
package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// BankPattern is a matching rule that turns notification text from a set of
// source apps into a structured transaction. Rules are data, not behavior:
// the classifier interprets them, the registry owns their lifecycle.
type BankPattern struct {
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	ID               string    `json:"id"`
	DisplayName      string    `json:"display_name"`
	AmountPattern    string    `json:"amount_pattern"`
	SourceApps       []string  `json:"source_apps"`
	IncomeKeywords   []string  `json:"income_keywords"`
	ExpenseKeywords  []string  `json:"expense_keywords"`
	MerchantPatterns []string  `json:"merchant_patterns"`
	SeedOrder        int       `json:"seed_order"`
	Enabled          bool      `json:"enabled"`
	Custom           bool      `json:"custom"`
}

// Pattern validation errors.
var (
	ErrEmptyDisplayName      = errors.New("display name is required")
	ErrNoSourceApps          = errors.New("at least one source app is required")
	ErrBadAmountPattern      = errors.New("amount pattern must have exactly one capture group")
	ErrBadMerchantPattern    = errors.New("merchant pattern must have at most one capture group")
	ErrPatternDoesNotCompile = errors.New("pattern does not compile")
)

// Validate ensures the pattern is well formed. The amount pattern must compile
// and contain exactly one capturing group; each merchant pattern must compile
// and contain at most one.
func (p *BankPattern) Validate() error {
	if strings.TrimSpace(p.DisplayName) == "" {
		return ErrEmptyDisplayName
	}
	if len(p.SourceApps) == 0 {
		return ErrNoSourceApps
	}

	re, err := regexp.Compile(p.AmountPattern)
	if err != nil {
		return fmt.Errorf("%w: amount pattern %q: %v", ErrPatternDoesNotCompile, p.AmountPattern, err)
	}
	if re.NumSubexp() != 1 {
		return fmt.Errorf("%w: got %d groups", ErrBadAmountPattern, re.NumSubexp())
	}

	for _, mp := range p.MerchantPatterns {
		mre, err := regexp.Compile(mp)
		if err != nil {
			return fmt.Errorf("%w: merchant pattern %q: %v", ErrPatternDoesNotCompile, mp, err)
		}
		if mre.NumSubexp() > 1 {
			return fmt.Errorf("%w: pattern %q has %d groups", ErrBadMerchantPattern, mp, mre.NumSubexp())
		}
	}

	return nil
}

// AppliesTo reports whether this pattern handles notifications from the given
// source app.
func (p *BankPattern) AppliesTo(sourceApp string) bool {
	for _, app := range p.SourceApps {
		if app == sourceApp {
			return true
		}
	}
	return false
}
