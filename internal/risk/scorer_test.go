package risk

import (
	"testing"
	"time"
)

type staticChecker map[string]bool

func (c staticChecker) IsKnownScam(address string) bool { return c[address] }

// noonClock pins scoring outside the late-night window.
func noonClock() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

// lateClock pins scoring inside the late-night window.
func lateClock() time.Time {
	return time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)
}

func TestScoreKnownScamRecipient(t *testing.T) {
	checker := staticChecker{"0xdead000000000000000000000000000000000000": true}
	scorer := NewScorer(checker, Options{Now: noonClock})

	res := scorer.Score(Transaction{
		From:  "0xA",
		To:    "0xdead000000000000000000000000000000000000",
		Value: "1",
	})

	if res.Score != 100 {
		t.Fatalf("expected score 100, got %d", res.Score)
	}
	if res.RiskLevel != LevelCritical {
		t.Fatalf("expected CRITICAL, got %s", res.RiskLevel)
	}
	if !res.ShouldBlock {
		t.Fatal("known scam recipient must be blocked")
	}
	if len(res.Threats) != 1 || res.Threats[0] != "Recipient is a known scam address" {
		t.Fatalf("unexpected threats: %v", res.Threats)
	}
	if res.Recommendation != "Block immediately - high confidence scam" {
		t.Fatalf("unexpected recommendation: %q", res.Recommendation)
	}
}

func TestScoreHighValueOnly(t *testing.T) {
	scorer := NewScorer(staticChecker{}, Options{Now: noonClock})

	res := scorer.Score(Transaction{From: "0xA", To: "0xB", Value: "15000"})

	if res.Score != 50 {
		t.Fatalf("expected score 50, got %d", res.Score)
	}
	if res.RiskLevel != LevelMedium {
		t.Fatalf("expected MEDIUM, got %s", res.RiskLevel)
	}
	if res.ShouldBlock {
		t.Fatal("value threshold alone must not block")
	}
	if len(res.Threats) != 1 || res.Threats[0] != "Transaction value exceeds safety threshold" {
		t.Fatalf("unexpected threats: %v", res.Threats)
	}
}

func TestScoreTierTable(t *testing.T) {
	cases := []struct {
		name       string
		tx         Transaction
		now        func() time.Time
		wantScore  int
		wantLevel  Level
		wantBlock  bool
		wantreason string
	}{
		{
			name:      "low",
			tx:        Transaction{From: "0xA", To: "0xB", Value: "10"},
			now:       noonClock,
			wantScore: 0, wantLevel: LevelLow, wantBlock: false,
			wantreason: "Transaction appears safe",
		},
		{
			name:      "medium via value",
			tx:        Transaction{From: "0xA", To: "0xB", Value: "10001"},
			now:       noonClock,
			wantScore: 50, wantLevel: LevelMedium, wantBlock: false,
			wantreason: "Flag for user approval before proceeding",
		},
		{
			name:      "high via value plus late night",
			tx:        Transaction{From: "0xA", To: "0xB", Value: "20000"},
			now:       lateClock,
			wantScore: 80, wantLevel: LevelHigh, wantBlock: true,
			wantreason: "Block and alert user for review",
		},
		{
			name:      "critical via value plus contract",
			tx:        Transaction{From: "0xA", To: "0xB", Value: "20000", ContractAddress: "0xunverified01"},
			now:       noonClock,
			wantScore: 110, wantLevel: LevelCritical, wantBlock: true,
			wantreason: "Block immediately - high confidence scam",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scorer := NewScorer(staticChecker{}, Options{Now: tc.now})
			res := scorer.Score(tc.tx)
			if res.Score != tc.wantScore {
				t.Fatalf("score = %d, want %d", res.Score, tc.wantScore)
			}
			if res.RiskLevel != tc.wantLevel {
				t.Fatalf("riskLevel = %s, want %s", res.RiskLevel, tc.wantLevel)
			}
			if res.ShouldBlock != tc.wantBlock {
				t.Fatalf("shouldBlock = %v, want %v", res.ShouldBlock, tc.wantBlock)
			}
			if res.Recommendation != tc.wantreason {
				t.Fatalf("recommendation = %q, want %q", res.Recommendation, tc.wantreason)
			}
		})
	}
}

func TestScoreRiskyContractTokens(t *testing.T) {
	scorer := NewScorer(staticChecker{}, Options{Now: noonClock})

	for _, addr := range []string{"0xUnknownToken", "0xcontract-unverified", "0xSUSPICIOUS-pool"} {
		res := scorer.Score(Transaction{From: "0xA", To: "0xB", Value: "1", ContractAddress: addr})
		if res.Score != 60 {
			t.Fatalf("contract %q: score = %d, want 60", addr, res.Score)
		}
	}

	res := scorer.Score(Transaction{From: "0xA", To: "0xB", Value: "1", ContractAddress: "0xverifiedpool"})
	if res.Score != 0 {
		t.Fatalf("benign contract address scored %d", res.Score)
	}
}

func TestScoreLateNightPattern(t *testing.T) {
	scorer := NewScorer(staticChecker{}, Options{Now: lateClock})

	res := scorer.Score(Transaction{From: "0xA", To: "0xB", Value: "1"})
	if res.Score != 30 {
		t.Fatalf("late-night transaction should score 30, got %d", res.Score)
	}
	if len(res.Threats) != 1 || res.Threats[0] != "Transaction matches suspicious pattern" {
		t.Fatalf("unexpected threats: %v", res.Threats)
	}

	// Window bounds are inclusive.
	for hour, want := range map[int]int{1: 0, 2: 30, 5: 30, 6: 0} {
		clock := func() time.Time { return time.Date(2024, 3, 1, hour, 30, 0, 0, time.UTC) }
		res := NewScorer(staticChecker{}, Options{Now: clock}).Score(Transaction{From: "0xA", To: "0xB", Value: "1"})
		if res.Score != want {
			t.Fatalf("hour %d: score = %d, want %d", hour, res.Score, want)
		}
	}
}

func TestScoreMalformedValueIsSafe(t *testing.T) {
	scorer := NewScorer(staticChecker{}, Options{Now: noonClock})

	for _, value := range []string{"", "abc", "12,000", "NaN", "1.2.3"} {
		res := scorer.Score(Transaction{From: "0xA", To: "0xB", Value: value})
		if res.Score != 0 {
			t.Fatalf("malformed value %q should fail the comparison silently, scored %d", value, res.Score)
		}
		if res.RiskLevel != LevelLow {
			t.Fatalf("malformed value %q should stay LOW, got %s", value, res.RiskLevel)
		}
	}
}

func TestScoreCaseInsensitiveRecipient(t *testing.T) {
	checker := staticChecker{"0xdead000000000000000000000000000000000000": true}
	// Checker implementations own case folding; the scorer passes through.
	scorer := NewScorer(checker, Options{Now: noonClock})
	res := scorer.Score(Transaction{From: "0xA", To: "0xdead000000000000000000000000000000000000", Value: "0"})
	if !res.ShouldBlock {
		t.Fatal("expected block for scam recipient")
	}
}
