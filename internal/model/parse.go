package model

// TransactionType is the direction of a parsed transaction.
type TransactionType string

// Transaction direction constants.
const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
	TypeUnknown TransactionType = "UNKNOWN"
)

// ParseErrorKind identifies why a classification attempt failed.
type ParseErrorKind string

// Classification failure kinds.
const (
	// ErrKindNoAmountMatch means the amount pattern did not match the text,
	// or matched with an empty digit capture.
	ErrKindNoAmountMatch ParseErrorKind = "NO_AMOUNT_MATCH"
	// ErrKindPatternTimeout means the match exceeded the per-call time budget.
	ErrKindPatternTimeout ParseErrorKind = "PATTERN_TIMEOUT"
	// ErrKindNoMatchingPattern means no enabled pattern handled the source app,
	// or every applicable pattern failed.
	ErrKindNoMatchingPattern ParseErrorKind = "NO_MATCHING_PATTERN"
)

// ParseOutcome is the result of classifying one notification against one
// pattern. It is transient and never persisted.
type ParseOutcome struct {
	Type       TransactionType `json:"type,omitempty"`
	Merchant   string          `json:"merchant,omitempty"`
	ErrKind    ParseErrorKind  `json:"error_kind,omitempty"`
	ErrMessage string          `json:"error_message,omitempty"`
	Amount     int64           `json:"amount"`
	Success    bool            `json:"success"`
}

// Failure builds a failed outcome with the given kind and message.
func Failure(kind ParseErrorKind, message string) ParseOutcome {
	return ParseOutcome{ErrKind: kind, ErrMessage: message}
}
