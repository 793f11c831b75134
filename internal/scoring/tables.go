package scoring

import "github.com/shopspring/decimal"

// DefaultPointRules is the point-sum table used by the loan application
// path. Point budgets per category: payment consistency 30, disconnection
// history 20, monthly expenditure 15, purchase frequency 10, consumption
// level 10, monthly income 7, income stability 5, meter sharing 3.
func DefaultPointRules() map[string]PointRule {
	return map[string]PointRule{
		QPaymentConsistency: {
			Points: map[string]int{
				"Always on time": 30,
				"Often on time":  22,
				"Sometimes late": 12,
				"Mostly late":    5,
				"Never paid":     0,
			},
			Default: 12,
		},
		QDisconnectionHistory: {
			Points: map[string]int{
				"No disconnections":       20,
				"1–2 disconnections":      15,
				"3–4 disconnections":      8,
				">4 disconnections":       3,
				"Frequently disconnected": 0,
			},
			Default: 8,
		},
		QMonthlyExpenditure: {
			Points: map[string]int{
				"<50,000 UGX":         15,
				"50,000–100,000 UGX":  12,
				"100,001–200,000 UGX": 8,
				"200,001–300,000 UGX": 5,
				">300,000 UGX":        2,
			},
			Default: 8,
		},
		QPurchaseFrequency: {
			Points: map[string]int{
				"Daily":     10,
				"Weekly":    8,
				"Bi-weekly": 6,
				"Monthly":   4,
				"Rarely":    2,
			},
			Default: 4,
		},
		QConsumptionLevel: {
			Points: map[string]int{
				"Moderate (100–200 kWh)":    10,
				"Low (50–99 kWh)":           8,
				"High (>200 kWh)":           6,
				"Very low (<50 kWh)":        4,
				"Extremely high (>300 kWh)": 2,
			},
			Default: 8,
		},
		QMonthlyIncome: {
			Points: map[string]int{
				">1,000,000 UGX":      7,
				"500,000–999,999 UGX": 6,
				"200,000–499,999 UGX": 5,
				"100,000–199,999 UGX": 3,
				"<100,000 UGX":        1,
			},
			Default: 5,
		},
		QIncomeStability: {
			Points: map[string]int{
				"Fixed and stable":       5,
				"Regular but variable":   4,
				"Seasonal income":        3,
				"Irregular but frequent": 2,
				"Unstable income":        1,
			},
			Default: 4,
		},
		QMeterSharing: {
			Points: map[string]int{
				"No sharing":                3,
				"Shared with 1 household":   2,
				"Shared with 2+ households": 1,
				"Commercial sharing":        0,
			},
			Default: 3,
		},
	}
}

// DefaultIncomeMaximums maps an income band to the maximum recommended loan
// amount, feeding the point-sum amount factor.
func DefaultIncomeMaximums() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"<100,000 UGX":        decimal.NewFromInt(20000),
		"100,000–199,999 UGX": decimal.NewFromInt(50000),
		"200,000–499,999 UGX": decimal.NewFromInt(100000),
		"500,000–999,999 UGX": decimal.NewFromInt(150000),
		">1,000,000 UGX":      decimal.NewFromInt(200000),
	}
}

// DefaultWeightedRules is the 0-100 per-category table of the weighted
// scoring variant.
func DefaultWeightedRules() map[string]map[string]int {
	return map[string]map[string]int{
		QMonthlyExpenditure: {
			">100,000 UGX":       100,
			"50,000–100,000 UGX": 75,
			"20,000–49,999 UGX":  50,
			"<20,000 UGX":        25,
		},
		QPurchaseFrequency: {
			"Weekly":   100,
			"Biweekly": 75,
			"Monthly":  50,
			"Rarely":   25,
		},
		QPaymentConsistency: {
			"Always on time": 100,
			"Often on time":  75,
			"Sometimes late": 50,
			"Mostly late":    25,
		},
		QDisconnectionHistory: {
			"No disconnections":  100,
			"1–2 disconnections": 70,
			"3–4 disconnections": 40,
			">4 disconnections":  10,
		},
		QMeterSharing: {
			"No sharing": 100,
			"Shared":     50,
		},
		QMonthlyIncome: {
			">1,000,000 UGX":      100,
			"500,000–999,999 UGX": 75,
			"200,000–499,999 UGX": 50,
			"<200,000 UGX":        25,
		},
		QIncomeStability: {
			"Fixed and stable":       100,
			"Irregular but frequent": 75,
			"Seasonal income":        50,
			"Unstable income":        25,
		},
		QConsumptionLevel: {
			"High (>200 kWh)":      100,
			"Medium (100–200 kWh)": 75,
			"Low (50–99 kWh)":      50,
			"Very low (<50 kWh)":   25,
		},
	}
}

// DefaultWeights sum to 1.0 across the eight categories.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		QMonthlyExpenditure:   0.15,
		QPurchaseFrequency:    0.10,
		QPaymentConsistency:   0.30,
		QDisconnectionHistory: 0.20,
		QMeterSharing:         0.03,
		QMonthlyIncome:        0.07,
		QIncomeStability:      0.05,
		QConsumptionLevel:     0.10,
	}
}
