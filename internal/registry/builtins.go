package registry

import "github.com/ggoomipapa/fammoney-core/internal/model"

// Builtins returns the vendor-seeded bank patterns in fixed seed order.
// Their IDs are stable so reseeding after an upgrade is idempotent; content
// is immutable at runtime, only the enabled flag may change.
func Builtins() []model.BankPattern {
	return []model.BankPattern{
		{
			ID:              "kb-bank",
			DisplayName:     "KB국민은행",
			SourceApps:      []string{"com.kbstar.kbbank", "com.kbstar.starbanking"},
			AmountPattern:   `([0-9,]+)\s*원`,
			IncomeKeywords:  []string{"입금"},
			ExpenseKeywords: []string{"출금", "승인", "결제"},
			MerchantPatterns: []string{
				`(\S+)\s+승인`,
				`(\S+)\s+입금`,
				`(\S+)\s+출금`,
			},
			SeedOrder: 1,
		},
		{
			ID:              "shinhan-bank",
			DisplayName:     "신한은행",
			SourceApps:      []string{"com.shinhan.sbanking"},
			AmountPattern:   `([0-9,]+)원`,
			IncomeKeywords:  []string{"입금"},
			ExpenseKeywords: []string{"출금", "이체"},
			MerchantPatterns: []string{
				`입금\s+(\S+)`,
				`출금\s+(\S+)`,
			},
			SeedOrder: 2,
		},
		{
			ID:              "woori-bank",
			DisplayName:     "우리은행",
			SourceApps:      []string{"com.wooribank.smart.npib"},
			AmountPattern:   `([0-9,]+)\s*원`,
			IncomeKeywords:  []string{"입금"},
			ExpenseKeywords: []string{"출금"},
			MerchantPatterns: []string{
				`(\S+)님`,
			},
			SeedOrder: 3,
		},
		{
			ID:              "kakao-bank",
			DisplayName:     "카카오뱅크",
			SourceApps:      []string{"com.kakaobank.channel"},
			AmountPattern:   `([0-9,]+)원`,
			IncomeKeywords:  []string{"입금", "받았어요"},
			ExpenseKeywords: []string{"출금", "보냈어요", "결제"},
			MerchantPatterns: []string{
				`(\S+)\s*→`,
				`→\s*(\S+)`,
			},
			SeedOrder: 4,
		},
		{
			ID:              "toss",
			DisplayName:     "토스",
			SourceApps:      []string{"viva.republica.toss"},
			AmountPattern:   `([0-9,]+)원`,
			IncomeKeywords:  []string{"입금", "받았어요", "캐시백"},
			ExpenseKeywords: []string{"결제", "보냈어요", "출금"},
			MerchantPatterns: []string{
				`(\S+)에서`,
				`(\S+)님이`,
			},
			SeedOrder: 5,
		},
		{
			ID:              "samsung-card",
			DisplayName:     "삼성카드",
			SourceApps:      []string{"kr.co.samsungcard.mpocket"},
			AmountPattern:   `([0-9,]+)원`,
			IncomeKeywords:  []string{"취소", "환불"},
			ExpenseKeywords: []string{"승인"},
			MerchantPatterns: []string{
				`원\s+(\S+)`,
			},
			SeedOrder: 6,
		},
	}
}
