package threat

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/theeagle2407/Vigil/internal/ring"
)

const (
	// DefaultCapacity bounds the rolling window of recent threats.
	DefaultCapacity = 100
	// DefaultRecentLimit is the truncation applied when callers pass no limit.
	DefaultRecentLimit = 10

	phishingConfidenceHigh = 0.95
	phishingConfidenceLow  = 0.05

	smallContractBytecodeLen = 100
)

// Sink receives every recorded threat, typically for archival. Implementations
// must not block.
type Sink interface {
	ArchiveThreat(t Threat)
}

// Options parameterise a Registry.
type Options struct {
	Capacity         int
	ScamAddresses    []string
	PhishingPatterns []string
	Sink             Sink
	Now              func() time.Time
}

// Registry is the authoritative in-memory set of known-bad addresses plus the
// bounded recent-threat history. All state is guarded by a single RWMutex so
// readers never observe a partially evicted window.
type Registry struct {
	mu       sync.RWMutex
	scams    map[string]struct{}
	recent   *ring.Buffer[Threat]
	byID     map[string]Threat
	patterns []string

	sink   Sink
	now    func() time.Time
	seq    atomic.Uint64
	logger zerolog.Logger
}

// NewRegistry constructs a registry seeded from opts.
func NewRegistry(opts Options, logger zerolog.Logger) *Registry {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	scams := make(map[string]struct{}, len(opts.ScamAddresses))
	for _, addr := range opts.ScamAddresses {
		scams[strings.ToLower(addr)] = struct{}{}
	}

	patterns := make([]string, 0, len(opts.PhishingPatterns))
	for _, p := range opts.PhishingPatterns {
		if p != "" {
			patterns = append(patterns, strings.ToLower(p))
		}
	}

	r := &Registry{
		scams:    scams,
		recent:   ring.New[Threat](capacity),
		byID:     make(map[string]Threat, capacity),
		patterns: patterns,
		sink:     opts.Sink,
		now:      now,
		logger:   logger.With().Str("component", "threat_registry").Logger(),
	}

	r.logger.Info().Int("known_scams", len(scams)).Int("capacity", capacity).Msg("threat registry initialized")
	return r
}

// IsKnownScam reports whether address is an exact, case-insensitive member of
// the scam set. Malformed addresses simply never match.
func (r *Registry) IsKnownScam(address string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.scams[strings.ToLower(address)]
	return ok
}

// AddScamAddress inserts address into the scam set and records a
// SCAM_ADDRESS threat. Re-inserting an already known address is idempotent
// with respect to the set but still records the report.
func (r *Registry) AddScamAddress(address, reason string) {
	t := Threat{
		ID:          r.nextID(),
		Type:        TypeScamAddress,
		Severity:    SeverityHigh,
		Description: reason,
		Address:     address,
		Timestamp:   r.now().UTC(),
	}

	r.mu.Lock()
	r.scams[strings.ToLower(address)] = struct{}{}
	r.record(t)
	r.mu.Unlock()

	r.dispatch(t)
}

// DetectPhishing matches url against the configured deny-list of phishing
// indicator tokens. A match records a PHISHING threat.
func (r *Registry) DetectPhishing(url string) PhishingResult {
	lowered := strings.ToLower(url)

	r.mu.RLock()
	matched := false
	for _, pattern := range r.patterns {
		if strings.Contains(lowered, pattern) {
			matched = true
			break
		}
	}
	r.mu.RUnlock()

	if !matched {
		return PhishingResult{IsPhishing: false, Confidence: phishingConfidenceLow}
	}

	t := Threat{
		ID:          r.nextID(),
		Type:        TypePhishing,
		Severity:    SeverityCritical,
		Description: fmt.Sprintf("Phishing attempt detected: %s", url),
		Timestamp:   r.now().UTC(),
	}

	r.mu.Lock()
	r.record(t)
	r.mu.Unlock()

	r.dispatch(t)
	return PhishingResult{IsPhishing: true, Confidence: phishingConfidenceHigh}
}

// AnalyzeContractCode flags destructive opcodes and suspiciously small code.
// Any flagged risk records a MALICIOUS_CONTRACT threat.
func (r *Registry) AnalyzeContractCode(bytecode string) ContractAnalysis {
	var risks []string
	malicious := false

	if strings.Contains(bytecode, "selfdestruct") {
		risks = append(risks, "Contract contains self-destruct functionality")
		malicious = true
	}
	if len(bytecode) < smallContractBytecodeLen {
		risks = append(risks, "Suspiciously small contract")
	}

	if len(risks) > 0 {
		t := Threat{
			ID:          r.nextID(),
			Type:        TypeMaliciousContract,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("Malicious contract detected: %s", strings.Join(risks, ", ")),
			Timestamp:   r.now().UTC(),
		}

		r.mu.Lock()
		r.record(t)
		r.mu.Unlock()

		r.dispatch(t)
	}

	return ContractAnalysis{IsMalicious: malicious, Risks: risks}
}

// RecentThreats returns up to limit threats, most recent first. A
// non-positive limit applies the default of 10.
func (r *Registry) RecentThreats(limit int) []Threat {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recent.Newest(limit)
}

// Size reports how many threats are currently retained.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recent.Len()
}

// Lookup resolves a retained threat by id.
func (r *Registry) Lookup(id string) (Threat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// record appends t to the rolling window, evicting the oldest entry once the
// capacity is exceeded. Callers must hold the write lock.
func (r *Registry) record(t Threat) {
	if evicted, ok := r.recent.Push(t); ok {
		delete(r.byID, evicted.ID)
	}
	r.byID[t.ID] = t

	r.logger.Warn().
		Str("threat_id", t.ID).
		Str("type", string(t.Type)).
		Str("severity", string(t.Severity)).
		Msg("threat detected")
}

func (r *Registry) dispatch(t Threat) {
	if r.sink != nil {
		r.sink.ArchiveThreat(t)
	}
}

func (r *Registry) nextID() string {
	return fmt.Sprintf("threat-%d-%d", r.now().UnixMilli(), r.seq.Add(1))
}
