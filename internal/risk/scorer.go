package risk

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the transient evaluation input. It is never persisted by
// the core.
type Transaction struct {
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	Data            string `json:"data,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
}

// Level is a risk tier derived from the cumulative score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Analysis is the outcome of scoring a single transaction. Produced fresh per
// evaluation and never mutated after return.
type Analysis struct {
	RiskLevel      Level    `json:"riskLevel"`
	Threats        []string `json:"threats"`
	Recommendation string   `json:"recommendation"`
	ShouldBlock    bool     `json:"shouldBlock"`
	Score          int      `json:"score"`
}

// ScamChecker is the registry capability the scorer depends on.
type ScamChecker interface {
	IsKnownScam(address string) bool
}

// Score weights per check.
const (
	scoreKnownScam     = 100
	scoreValueExceeds  = 50
	scoreRiskyContract = 60
	scorePatternMatch  = 30
)

// Tier thresholds, evaluated descending; first match wins.
const (
	tierCritical = 100
	tierHigh     = 70
	tierMedium   = 40
)

const (
	reasonKnownScam     = "Recipient is a known scam address"
	reasonValueExceeds  = "Transaction value exceeds safety threshold"
	reasonRiskyContract = "Contract risk: Contract not verified or flagged as suspicious"
	reasonPatternMatch  = "Transaction matches suspicious pattern"
)

// lateNightStartHour..lateNightEndHour (inclusive) is the window the
// suspicious-pattern heuristic flags.
const (
	lateNightStartHour = 2
	lateNightEndHour   = 5
)

var riskyContractTokens = []string{"unknown", "unverified", "suspicious"}

// Options parameterise a Scorer.
type Options struct {
	// ValueThreshold is the safety ceiling for transaction values. Zero
	// applies the default of 10000.
	ValueThreshold float64
	// Now supplies the clock for the time-based pattern check. Defaults to
	// time.Now.
	Now func() time.Time
}

// Scorer derives a deterministic risk analysis from a transaction and the
// registry state at call time. The wall-clock hour is the only injected
// non-determinism.
type Scorer struct {
	registry  ScamChecker
	threshold decimal.Decimal
	now       func() time.Time
}

// NewScorer constructs a scorer over the given registry.
func NewScorer(registry ScamChecker, opts Options) *Scorer {
	threshold := decimal.NewFromFloat(opts.ValueThreshold)
	if threshold.Sign() <= 0 {
		threshold = decimal.NewFromInt(10000)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scorer{registry: registry, threshold: threshold, now: now}
}

// Score runs every check, accumulates the score, and classifies it into a
// tier. It never fails: malformed numeric values simply fail the threshold
// comparison.
func (s *Scorer) Score(tx Transaction) Analysis {
	var threats []string
	score := 0

	if s.registry != nil && s.registry.IsKnownScam(tx.To) {
		threats = append(threats, reasonKnownScam)
		score += scoreKnownScam
	}

	if s.exceedsValueThreshold(tx.Value) {
		threats = append(threats, reasonValueExceeds)
		score += scoreValueExceeds
	}

	if tx.ContractAddress != "" && isRiskyContract(tx.ContractAddress) {
		threats = append(threats, reasonRiskyContract)
		score += scoreRiskyContract
	}

	if s.isSuspiciousHour() {
		threats = append(threats, reasonPatternMatch)
		score += scorePatternMatch
	}

	analysis := classify(score)
	analysis.Threats = threats
	return analysis
}

func (s *Scorer) exceedsValueThreshold(value string) bool {
	v, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return v.GreaterThan(s.threshold)
}

func isRiskyContract(address string) bool {
	lowered := strings.ToLower(address)
	for _, token := range riskyContractTokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

func (s *Scorer) isSuspiciousHour() bool {
	hour := s.now().Hour()
	return hour >= lateNightStartHour && hour <= lateNightEndHour
}

func classify(score int) Analysis {
	switch {
	case score >= tierCritical:
		return Analysis{
			RiskLevel:      LevelCritical,
			Recommendation: "Block immediately - high confidence scam",
			ShouldBlock:    true,
			Score:          score,
		}
	case score >= tierHigh:
		return Analysis{
			RiskLevel:      LevelHigh,
			Recommendation: "Block and alert user for review",
			ShouldBlock:    true,
			Score:          score,
		}
	case score >= tierMedium:
		return Analysis{
			RiskLevel:      LevelMedium,
			Recommendation: "Flag for user approval before proceeding",
			ShouldBlock:    false,
			Score:          score,
		}
	default:
		return Analysis{
			RiskLevel:      LevelLow,
			Recommendation: "Transaction appears safe",
			ShouldBlock:    false,
			Score:          score,
		}
	}
}
