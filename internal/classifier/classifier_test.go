package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggoomipapa/fammoney-core/internal/model"
)

func TestClassify_EndToEnd(t *testing.T) {
	// The canonical KB card approval notification.
	pattern := &model.BankPattern{
		ID:               "kb",
		DisplayName:      "KB국민은행",
		SourceApps:       []string{"com.kbstar.kbbank"},
		AmountPattern:    `([0-9,]+)\s*원`,
		ExpenseKeywords:  []string{"승인"},
		MerchantPatterns: []string{`(\S+)\s+승인`},
	}

	outcome := New(0).Classify(pattern, "[KB국민] 12/25 쿠팡 승인 50,000원")

	require.True(t, outcome.Success)
	assert.Equal(t, int64(50000), outcome.Amount)
	assert.Equal(t, model.TypeExpense, outcome.Type)
	assert.Equal(t, "쿠팡", outcome.Merchant)
}

func TestClassify_Amount(t *testing.T) {
	tests := []struct {
		name       string
		amountPat  string
		text       string
		wantAmount int64
		wantKind   model.ParseErrorKind
	}{
		{
			name:       "plain digits",
			amountPat:  `([0-9,]+)원`,
			text:       "결제 5000원",
			wantAmount: 5000,
		},
		{
			name:       "grouping separators stripped",
			amountPat:  `([0-9,]+)원`,
			text:       "입금 1,234,567원",
			wantAmount: 1234567,
		},
		{
			name:      "no match",
			amountPat: `([0-9,]+)원`,
			text:      "잔액을 확인하세요",
			wantKind:  model.ErrKindNoAmountMatch,
		},
		{
			name:      "match with empty capture is no match",
			amountPat: `([0-9]*)원`,
			text:      "오늘의 환율은 원화 기준입니다",
			wantKind:  model.ErrKindNoAmountMatch,
		},
		{
			name:      "capture without digits is no match",
			amountPat: `(,+)원`,
			text:      ",,,원",
			wantKind:  model.ErrKindNoAmountMatch,
		},
		{
			name:      "pattern that does not compile",
			amountPat: `([0-9+원`,
			text:      "5000원",
			wantKind:  model.ErrKindNoAmountMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern := &model.BankPattern{AmountPattern: tt.amountPat}
			outcome := New(0).Classify(pattern, tt.text)

			if tt.wantKind != "" {
				require.False(t, outcome.Success)
				assert.Equal(t, tt.wantKind, outcome.ErrKind)
				assert.Zero(t, outcome.Amount)
				return
			}

			require.True(t, outcome.Success)
			assert.Equal(t, tt.wantAmount, outcome.Amount)
		})
	}
}

func TestClassify_TransactionType(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		income   []string
		expense  []string
		wantType model.TransactionType
	}{
		{
			name:     "income keyword first",
			text:     "입금 후 결제 5000원",
			income:   []string{"입금"},
			expense:  []string{"결제"},
			wantType: model.TypeIncome,
		},
		{
			name:     "expense keyword first",
			text:     "결제 완료, 입금 아님 5000원",
			income:   []string{"입금"},
			expense:  []string{"결제"},
			wantType: model.TypeExpense,
		},
		{
			name: "same index tie resolves to income",
			// Both keywords start at index 0: the expense keyword is a
			// prefix of the income keyword.
			text:     "승인취소 30,000원",
			income:   []string{"승인취소"},
			expense:  []string{"승인"},
			wantType: model.TypeIncome,
		},
		{
			name:     "no keyword present",
			text:     "5000원",
			income:   []string{"입금"},
			expense:  []string{"결제"},
			wantType: model.TypeUnknown,
		},
		{
			name:     "both keyword sets empty",
			text:     "입금 5000원",
			wantType: model.TypeUnknown,
		},
		{
			name:     "earliest of several keywords decides",
			text:     "체크카드 출금 3,000원 입금 대기",
			income:   []string{"입금"},
			expense:  []string{"결제", "출금"},
			wantType: model.TypeExpense,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern := &model.BankPattern{
				AmountPattern:   `([0-9,]+)원`,
				IncomeKeywords:  tt.income,
				ExpenseKeywords: tt.expense,
			}

			outcome := New(0).Classify(pattern, tt.text)
			require.True(t, outcome.Success)
			assert.Equal(t, tt.wantType, outcome.Type)
		})
	}
}

func TestClassify_TieBreakIsDeterministic(t *testing.T) {
	pattern := &model.BankPattern{
		AmountPattern:   `([0-9,]+)원`,
		IncomeKeywords:  []string{"승인취소"},
		ExpenseKeywords: []string{"승인"},
	}
	c := New(0)

	for i := 0; i < 100; i++ {
		outcome := c.Classify(pattern, "승인취소 30,000원")
		require.True(t, outcome.Success)
		require.Equal(t, model.TypeIncome, outcome.Type)
	}
}

func TestClassify_Merchant(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		merchantPats []string
		wantMerchant string
	}{
		{
			name:         "first matching pattern wins",
			text:         "스타벅스 승인 4,500원",
			merchantPats: []string{`(\S+)\s+입금`, `(\S+)\s+승인`},
			wantMerchant: "스타벅스",
		},
		{
			name:         "captured text is trimmed",
			text:         "GS25 승인 1,200원",
			merchantPats: []string{`^(.+?)승인`},
			wantMerchant: "GS25",
		},
		{
			name: "groupless match leaves merchant absent",
			text: "승인 1,200원",
			// Matches, but has no capture group: the merchant stays empty
			// and later patterns are not consulted.
			merchantPats: []string{`승인`, `(\S+)\s+승인`},
			wantMerchant: "",
		},
		{
			name:         "no pattern matches",
			text:         "승인 1,200원",
			merchantPats: []string{`(\S+)\s+취소`},
			wantMerchant: "",
		},
		{
			name:         "no merchant patterns at all",
			text:         "승인 1,200원",
			wantMerchant: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern := &model.BankPattern{
				AmountPattern:    `([0-9,]+)원`,
				MerchantPatterns: tt.merchantPats,
			}

			outcome := New(0).Classify(pattern, tt.text)
			require.True(t, outcome.Success)
			assert.Equal(t, tt.wantMerchant, outcome.Merchant)
		})
	}
}

func TestClassify_MatchBudget(t *testing.T) {
	pattern := &model.BankPattern{AmountPattern: `([0-9,]+)원`}

	// A one-nanosecond budget is exhausted by the first match.
	outcome := New(time.Nanosecond).Classify(pattern, "결제 5,000원")
	require.False(t, outcome.Success)
	assert.Equal(t, model.ErrKindPatternTimeout, outcome.ErrKind)

	// A disabled budget never times out.
	outcome = New(0).Classify(pattern, "결제 5,000원")
	assert.True(t, outcome.Success)
}
