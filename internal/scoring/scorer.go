package scoring

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/ankunda/credit-engine/internal/domain"
)

// Questionnaire categories. Answers arrive keyed by these names.
const (
	QPaymentConsistency   = "payment_consistency"
	QDisconnectionHistory = "disconnection_history"
	QMonthlyExpenditure   = "monthly_expenditure"
	QPurchaseFrequency    = "purchase_frequency"
	QConsumptionLevel     = "consumption_level"
	QMonthlyIncome        = "monthly_income"
	QIncomeStability      = "income_stability"
	QMeterSharing         = "meter_sharing"
)

// Scorer turns questionnaire answers into a credit score in [0, 100].
// Two strategies coexist on purpose: the weighted and point-sum variants
// disagree and the product decision between them is still open, so the
// active one is chosen by configuration.
type Scorer interface {
	Score(answers map[string]string, amountRequested decimal.Decimal) int
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// PointSumScorer adds fixed per-answer points per category, substituting a
// documented mid-range default when an answer is missing or unrecognised,
// then applies a bonus/penalty for the requested amount relative to the
// income band's recommended maximum.
type PointSumScorer struct {
	rules       map[string]PointRule
	maxByIncome map[string]decimal.Decimal
	fallbackMax decimal.Decimal
}

// PointRule maps answers to points for one category. Default applies to
// unknown answers; it is deliberately non-zero.
type PointRule struct {
	Points  map[string]int
	Default int
}

func NewPointSumScorer(rules map[string]PointRule, maxByIncome map[string]decimal.Decimal, fallbackMax decimal.Decimal) *PointSumScorer {
	return &PointSumScorer{rules: rules, maxByIncome: maxByIncome, fallbackMax: fallbackMax}
}

// NewDefaultPointSumScorer builds the scorer with the production tables.
func NewDefaultPointSumScorer() *PointSumScorer {
	return NewPointSumScorer(DefaultPointRules(), DefaultIncomeMaximums(), decimal.NewFromInt(50000))
}

func (s *PointSumScorer) Score(answers map[string]string, amountRequested decimal.Decimal) int {
	score := 0
	for category, rule := range s.rules {
		if points, ok := rule.Points[answers[category]]; ok {
			score += points
		} else {
			score += rule.Default
		}
	}
	score += s.amountFactor(amountRequested, answers[QMonthlyIncome])
	return clampScore(score)
}

// amountFactor rewards borrowing well inside the income band's recommended
// maximum and penalises stretching past it.
func (s *PointSumScorer) amountFactor(requested decimal.Decimal, incomeAnswer string) int {
	maxRecommended, ok := s.maxByIncome[incomeAnswer]
	if !ok {
		maxRecommended = s.fallbackMax
	}
	half := maxRecommended.Div(decimal.NewFromInt(2))
	oneAndHalf := maxRecommended.Mul(decimal.NewFromFloat(1.5))
	switch {
	case requested.LessThanOrEqual(half):
		return 5
	case requested.LessThanOrEqual(maxRecommended):
		return 2
	case requested.LessThanOrEqual(oneAndHalf):
		return -5
	default:
		return -10
	}
}

// WeightedScorer combines per-category 0-100 rules with fixed weights
// summing to 1. Unrecognised answers contribute nothing; the requested
// amount plays no part in this variant.
type WeightedScorer struct {
	rules   map[string]map[string]int
	weights map[string]float64
}

func NewWeightedScorer(rules map[string]map[string]int, weights map[string]float64) *WeightedScorer {
	return &WeightedScorer{rules: rules, weights: weights}
}

// NewDefaultWeightedScorer builds the scorer with the production tables.
func NewDefaultWeightedScorer() *WeightedScorer {
	return NewWeightedScorer(DefaultWeightedRules(), DefaultWeights())
}

func (s *WeightedScorer) Score(answers map[string]string, _ decimal.Decimal) int {
	total := 0.0
	for category, rule := range s.rules {
		answer, ok := answers[category]
		if !ok {
			continue
		}
		if points, ok := rule[answer]; ok {
			total += float64(points) * s.weights[category]
		}
	}
	return clampScore(int(math.Round(total)))
}

// Tier is a credit-score band with its lending terms. Bands are closed on
// both ends: BRONZE is exactly 75-79 inclusive.
type Tier struct {
	Name         string
	MinScore     int
	MaxScore     int
	MaxAmount    decimal.Decimal
	InterestRate decimal.Decimal
}

var tiers = []Tier{
	{Name: domain.TierBronze, MinScore: 75, MaxScore: 79, MaxAmount: decimal.NewFromInt(50000), InterestRate: decimal.NewFromFloat(12.0)},
	{Name: domain.TierSilver, MinScore: 80, MaxScore: 84, MaxAmount: decimal.NewFromInt(100000), InterestRate: decimal.NewFromFloat(11.0)},
	{Name: domain.TierGold, MinScore: 85, MaxScore: 89, MaxAmount: decimal.NewFromInt(150000), InterestRate: decimal.NewFromFloat(10.0)},
	{Name: domain.TierPlatinum, MinScore: 90, MaxScore: 100, MaxAmount: decimal.NewFromInt(200000), InterestRate: decimal.NewFromFloat(9.0)},
}

// DetermineTier returns the tier whose band contains score, or nil when the
// score is below the 75 eligibility threshold.
func DetermineTier(score int) *Tier {
	for i := range tiers {
		if score >= tiers[i].MinScore && score <= tiers[i].MaxScore {
			t := tiers[i]
			return &t
		}
	}
	return nil
}

// ApprovedAmount caps the requested amount at the tier maximum.
func ApprovedAmount(tierMax, requested decimal.Decimal) decimal.Decimal {
	return decimal.Min(tierMax, requested)
}
