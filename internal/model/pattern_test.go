package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBankPattern_Validate(t *testing.T) {
	valid := func() BankPattern {
		return BankPattern{
			ID:            "test",
			DisplayName:   "Test Bank",
			SourceApps:    []string{"com.example.bank"},
			AmountPattern: `([0-9,]+)원`,
		}
	}

	tests := []struct {
		mutate  func(*BankPattern)
		wantErr error
		name    string
	}{
		{
			name:   "valid minimal pattern",
			mutate: func(_ *BankPattern) {},
		},
		{
			name: "valid with merchant patterns",
			mutate: func(p *BankPattern) {
				p.MerchantPatterns = []string{`(\S+)\s+승인`, `승인완료`}
			},
		},
		{
			name:    "empty display name",
			mutate:  func(p *BankPattern) { p.DisplayName = "  " },
			wantErr: ErrEmptyDisplayName,
		},
		{
			name:    "no source apps",
			mutate:  func(p *BankPattern) { p.SourceApps = nil },
			wantErr: ErrNoSourceApps,
		},
		{
			name:    "amount pattern with zero groups",
			mutate:  func(p *BankPattern) { p.AmountPattern = `[0-9,]+원` },
			wantErr: ErrBadAmountPattern,
		},
		{
			name:    "amount pattern with two groups",
			mutate:  func(p *BankPattern) { p.AmountPattern = `([0-9]+),([0-9]+)원` },
			wantErr: ErrBadAmountPattern,
		},
		{
			name:    "amount pattern does not compile",
			mutate:  func(p *BankPattern) { p.AmountPattern = `([0-9+원` },
			wantErr: ErrPatternDoesNotCompile,
		},
		{
			name:    "merchant pattern with two groups",
			mutate:  func(p *BankPattern) { p.MerchantPatterns = []string{`(\S+) (\S+)`} },
			wantErr: ErrBadMerchantPattern,
		},
		{
			name:    "merchant pattern does not compile",
			mutate:  func(p *BankPattern) { p.MerchantPatterns = []string{`(\S+`} },
			wantErr: ErrPatternDoesNotCompile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)

			err := p.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestBankPattern_AppliesTo(t *testing.T) {
	p := BankPattern{SourceApps: []string{"com.kbstar.kbbank", "com.kbstar.starbanking"}}

	assert.True(t, p.AppliesTo("com.kbstar.kbbank"))
	assert.True(t, p.AppliesTo("com.kbstar.starbanking"))
	assert.False(t, p.AppliesTo("com.shinhan.sbanking"))
	assert.False(t, p.AppliesTo(""))
}
