// Package classifier turns raw notification text into a structured parse
// outcome by interpreting a single BankPattern. Classification is pure: no
// storage access, no side effects, deterministic for identical input.
package classifier

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ggoomipapa/fammoney-core/internal/model"
)

// DefaultMatchBudget bounds the wall-clock time one Classify call may spend
// matching. Go's regexp engine is linear-time (RE2), so this is a secondary
// guard against pathologically large inputs, not against backtracking.
const DefaultMatchBudget = 100 * time.Millisecond

// Classifier evaluates bank patterns against notification text. Compiled
// regexes are cached per instance keyed by pattern source, so repeated
// classification with a stable rule set compiles each pattern once.
type Classifier struct {
	cache       map[string]*regexp.Regexp
	matchBudget time.Duration
	mu          sync.RWMutex
}

// New creates a classifier with the given per-call match budget.
// A budget of 0 disables the time check.
func New(matchBudget time.Duration) *Classifier {
	return &Classifier{
		cache:       make(map[string]*regexp.Regexp),
		matchBudget: matchBudget,
	}
}

// Classify runs pattern against text and extracts amount, direction and
// merchant. Amount extraction is the only step that can fail; direction and
// merchant degrade to UNKNOWN / absent.
func (c *Classifier) Classify(pattern *model.BankPattern, text string) model.ParseOutcome {
	start := time.Now()

	amountRe, err := c.compiled(pattern.AmountPattern)
	if err != nil {
		return model.Failure(model.ErrKindNoAmountMatch, fmt.Sprintf("amount pattern does not compile: %v", err))
	}

	match := amountRe.FindStringSubmatch(text)
	if outcome, exceeded := c.checkBudget(start); exceeded {
		return outcome
	}
	if match == nil {
		return model.Failure(model.ErrKindNoAmountMatch, "amount pattern did not match")
	}

	digits := stripNonDigits(match[1])
	if digits == "" {
		// A pattern whose group captures no digits is treated as no match.
		return model.Failure(model.ErrKindNoAmountMatch, "amount capture contains no digits")
	}

	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return model.Failure(model.ErrKindNoAmountMatch, fmt.Sprintf("amount %q out of range", digits))
	}

	txType := classifyType(text, pattern.IncomeKeywords, pattern.ExpenseKeywords)

	merchant, outcome, failed := c.extractMerchant(pattern, text, start)
	if failed {
		return outcome
	}

	if outcome, exceeded := c.checkBudget(start); exceeded {
		return outcome
	}

	return model.ParseOutcome{
		Success:  true,
		Amount:   amount,
		Type:     txType,
		Merchant: merchant,
	}
}

// classifyType scans for the earliest occurrence of any income or expense
// keyword. The set contributing the earliest match decides the direction;
// a same-index tie resolves to income. No keyword at all means UNKNOWN,
// which is not a failure.
func classifyType(text string, incomeKeywords, expenseKeywords []string) model.TransactionType {
	incomeIdx := earliestIndex(text, incomeKeywords)
	expenseIdx := earliestIndex(text, expenseKeywords)

	switch {
	case incomeIdx < 0 && expenseIdx < 0:
		return model.TypeUnknown
	case expenseIdx < 0:
		return model.TypeIncome
	case incomeIdx < 0:
		return model.TypeExpense
	case incomeIdx <= expenseIdx:
		return model.TypeIncome
	default:
		return model.TypeExpense
	}
}

// earliestIndex returns the lowest byte index at which any keyword occurs,
// or -1 if none does.
func earliestIndex(text string, keywords []string) int {
	best := -1
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if idx := strings.Index(text, kw); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best
}

// extractMerchant tries each merchant pattern in list order. The first one
// that matches the text decides: with a capture group the trimmed group text
// becomes the merchant, without one the merchant stays absent.
func (c *Classifier) extractMerchant(pattern *model.BankPattern, text string, start time.Time) (string, model.ParseOutcome, bool) {
	for _, src := range pattern.MerchantPatterns {
		re, err := c.compiled(src)
		if err != nil {
			continue
		}

		m := re.FindStringSubmatch(text)
		if outcome, exceeded := c.checkBudget(start); exceeded {
			return "", outcome, true
		}
		if m == nil {
			continue
		}

		if re.NumSubexp() >= 1 {
			return strings.TrimSpace(m[1]), model.ParseOutcome{}, false
		}
		return "", model.ParseOutcome{}, false
	}
	return "", model.ParseOutcome{}, false
}

// checkBudget fails the call closed once the match budget is exhausted.
func (c *Classifier) checkBudget(start time.Time) (model.ParseOutcome, bool) {
	if c.matchBudget <= 0 {
		return model.ParseOutcome{}, false
	}
	if elapsed := time.Since(start); elapsed > c.matchBudget {
		return model.Failure(model.ErrKindPatternTimeout,
			fmt.Sprintf("match exceeded budget of %s (took %s)", c.matchBudget, elapsed)), true
	}
	return model.ParseOutcome{}, false
}

// compiled returns a cached compiled regex for src, compiling on first use.
func (c *Classifier) compiled(src string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.cache[src]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[src] = re
	c.mu.Unlock()
	return re, nil
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
