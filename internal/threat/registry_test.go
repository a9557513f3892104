package threat

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestRegistry(opts Options) *Registry {
	return NewRegistry(opts, zerolog.Nop())
}

func TestIsKnownScamCaseInsensitive(t *testing.T) {
	reg := newTestRegistry(Options{ScamAddresses: []string{"0xDEAD000000000000000000000000000000000000"}})

	if !reg.IsKnownScam("0xdead000000000000000000000000000000000000") {
		t.Fatal("lowercased form should match")
	}
	if !reg.IsKnownScam("0xDead000000000000000000000000000000000000") {
		t.Fatal("mixed-case form should match")
	}
	if reg.IsKnownScam("0xdead000000000000000000000000000000000001") {
		t.Fatal("different address should not match")
	}
	if reg.IsKnownScam("not-an-address") {
		t.Fatal("malformed address should be treated as non-matching")
	}
}

func TestAddScamAddressRecordsThreat(t *testing.T) {
	reg := newTestRegistry(Options{})
	reg.AddScamAddress("0xABC0000000000000000000000000000000000000", "community report")

	if !reg.IsKnownScam("0xabc0000000000000000000000000000000000000") {
		t.Fatal("added address should be a known scam")
	}

	threats := reg.RecentThreats(1)
	if len(threats) != 1 {
		t.Fatalf("expected 1 threat, got %d", len(threats))
	}
	got := threats[0]
	if got.Type != TypeScamAddress || got.Severity != SeverityHigh {
		t.Fatalf("unexpected threat classification: %s/%s", got.Type, got.Severity)
	}
	if got.Description != "community report" {
		t.Fatalf("unexpected description: %q", got.Description)
	}

	// Re-insert is idempotent on the set.
	reg.AddScamAddress("0xABC0000000000000000000000000000000000000", "second report")
	if !reg.IsKnownScam("0xabc0000000000000000000000000000000000000") {
		t.Fatal("address should remain a known scam")
	}
}

func TestDetectPhishing(t *testing.T) {
	reg := newTestRegistry(Options{PhishingPatterns: []string{"metamask-secure", "wallet-verify", "claim-reward", "urgent-action"}})

	cases := []struct {
		url  string
		want bool
	}{
		{"https://metamask-secure.example.com/login", true},
		{"https://WALLET-VERIFY.example.com", true},
		{"https://docs.example.com/claim-reward-guide", true},
		{"https://example.com", false},
		{"", false},
	}

	for _, tc := range cases {
		res := reg.DetectPhishing(tc.url)
		if res.IsPhishing != tc.want {
			t.Fatalf("DetectPhishing(%q) = %v, want %v", tc.url, res.IsPhishing, tc.want)
		}
		if tc.want && res.Confidence != 0.95 {
			t.Fatalf("match should carry confidence 0.95, got %v", res.Confidence)
		}
		if !tc.want && res.Confidence != 0.05 {
			t.Fatalf("non-match should carry confidence 0.05, got %v", res.Confidence)
		}
	}

	threats := reg.RecentThreats(10)
	if len(threats) != 3 {
		t.Fatalf("expected 3 recorded phishing threats, got %d", len(threats))
	}
	for _, th := range threats {
		if th.Type != TypePhishing || th.Severity != SeverityCritical {
			t.Fatalf("unexpected classification: %s/%s", th.Type, th.Severity)
		}
	}
}

func TestAnalyzeContractCode(t *testing.T) {
	reg := newTestRegistry(Options{})

	padding := strings.Repeat("60806040", 30)

	res := reg.AnalyzeContractCode(padding + "selfdestruct" + padding)
	if !res.IsMalicious {
		t.Fatal("selfdestruct bytecode should be malicious")
	}
	if len(res.Risks) != 1 || res.Risks[0] != "Contract contains self-destruct functionality" {
		t.Fatalf("unexpected risks: %v", res.Risks)
	}

	res = reg.AnalyzeContractCode("6080")
	if res.IsMalicious {
		t.Fatal("small contract alone is not malicious")
	}
	if len(res.Risks) != 1 || res.Risks[0] != "Suspiciously small contract" {
		t.Fatalf("unexpected risks: %v", res.Risks)
	}

	res = reg.AnalyzeContractCode(padding + padding)
	if res.IsMalicious || len(res.Risks) != 0 {
		t.Fatalf("clean bytecode should carry no risks, got %v", res.Risks)
	}

	// Both heuristic hits recorded threats.
	if got := reg.Size(); got != 2 {
		t.Fatalf("expected 2 recorded threats, got %d", got)
	}
}

func TestRecentThreatsOrderAndDefaultLimit(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := newTestRegistry(Options{Now: func() time.Time { return clock }})

	for i := 0; i < 15; i++ {
		reg.AddScamAddress(fmt.Sprintf("0x%040d", i), fmt.Sprintf("report %d", i))
	}

	threats := reg.RecentThreats(0)
	if len(threats) != DefaultRecentLimit {
		t.Fatalf("default limit should truncate to %d, got %d", DefaultRecentLimit, len(threats))
	}
	if threats[0].Description != "report 14" {
		t.Fatalf("most recent threat should come first, got %q", threats[0].Description)
	}
	if threats[9].Description != "report 5" {
		t.Fatalf("unexpected ordering tail: %q", threats[9].Description)
	}
}

func TestRegistryEvictsBeyondCapacity(t *testing.T) {
	reg := newTestRegistry(Options{Capacity: 100})

	for i := 0; i < 150; i++ {
		reg.AddScamAddress(fmt.Sprintf("0x%040d", i), fmt.Sprintf("report %d", i))
	}

	if got := reg.Size(); got != 100 {
		t.Fatalf("registry should retain at most 100 threats, got %d", got)
	}

	all := reg.RecentThreats(100)
	if all[0].Description != "report 149" || all[99].Description != "report 50" {
		t.Fatalf("retained window should be the last 100 reports, got [%q .. %q]", all[0].Description, all[99].Description)
	}

	oldestRetained := all[99].ID
	if _, ok := reg.Lookup(oldestRetained); !ok {
		t.Fatal("retained threat should resolve by id")
	}
}

func TestRegistryConcurrentMutation(t *testing.T) {
	reg := newTestRegistry(Options{Capacity: 100})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				reg.AddScamAddress(fmt.Sprintf("0x%02d%038d", w, i), "load test")
				reg.RecentThreats(10)
				reg.IsKnownScam("0x0000000000000000000000000000000000000000")
			}
		}(w)
	}
	wg.Wait()

	if got := reg.Size(); got != 100 {
		t.Fatalf("capacity invariant violated under concurrency: %d", got)
	}
}
