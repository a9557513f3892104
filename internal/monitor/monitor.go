package monitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/theeagle2407/Vigil/internal/alerting"
	"github.com/theeagle2407/Vigil/internal/chaindata"
	"github.com/theeagle2407/Vigil/internal/ring"
	"github.com/theeagle2407/Vigil/internal/risk"
	"github.com/theeagle2407/Vigil/internal/scheduler"
)

const (
	// AuditTrailCapacity bounds the in-memory audit trail.
	AuditTrailCapacity = 100
	// DefaultCheckInterval paces the background security check.
	DefaultCheckInterval = 10 * time.Second
)

// Audit actions recorded by the monitor.
const (
	ActionTransactionBlocked = "TRANSACTION_BLOCKED"
	ActionRulesUpdated       = "SECURITY_RULES_UPDATED"
	ActionMonitoringStarted  = "MONITORING_STARTED"
)

// riskLevelInfo marks informational audit entries that carry no threat.
const riskLevelInfo = "INFO"

// AuditAction is one entry of the bounded, append-only audit trail.
type AuditAction struct {
	Timestamp       time.Time `json:"timestamp"`
	Action          string    `json:"action"`
	Reason          string    `json:"reason"`
	TransactionHash string    `json:"transactionHash,omitempty"`
	RiskLevel       string    `json:"riskLevel"`
}

// WalletProfile is a derived, read-only snapshot of the monitor's view of a
// wallet. Computed on demand, never stored.
type WalletProfile struct {
	Address           string    `json:"address"`
	LastChecked       time.Time `json:"lastChecked"`
	TotalTransactions int64     `json:"totalTransactions"`
	ThreatsBlocked    int64     `json:"threatsBlocked"`
	ActiveApprovals   int       `json:"activeApprovals"`
	RiskScore         float64   `json:"riskScore"`
}

// Status summarises the agent for the status endpoint.
type Status struct {
	Monitoring           bool      `json:"monitoring"`
	ThreatsDetected      int64     `json:"threatsDetected"`
	TransactionsAnalyzed int64     `json:"transactionsAnalyzed"`
	LastCheck            time.Time `json:"lastCheck"`
}

// AuditSink receives every recorded audit action, typically for archival.
// Implementations must not block.
type AuditSink interface {
	ArchiveAudit(a AuditAction)
}

// Locker lets a deployment ensure only one agent instance runs background
// checks against a shared archive.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(), acquired bool, err error)
}

// Options parameterise a Monitor.
type Options struct {
	Rules         Rules
	CheckInterval time.Duration
	AlertChannels []string
	Now           func() time.Time
	Sink          AuditSink
	Locker        Locker
}

// Monitor owns the mutable state of the security agent: lifecycle, counters,
// security rules, watched addresses, and the bounded audit trail. A single
// mutex guards all of it; every append-and-evict is one atomic unit.
type Monitor struct {
	scorer   *risk.Scorer
	provider chaindata.WalletDataProvider
	notifier alerting.Notifier
	sink     AuditSink
	locker   Locker
	logger   zerolog.Logger
	now      func() time.Time
	interval time.Duration
	channels []string

	mu          sync.Mutex
	rules       Rules
	trail       *ring.Buffer[AuditAction]
	watched     map[string]struct{}
	running     bool
	cancel      context.CancelFunc
	loopDone    chan struct{}
	threatCount int64
	txCount     int64
	lastCheck   time.Time
}

// New constructs a monitor around the given scorer and collaborators.
// provider and notifier may be nil; the corresponding features degrade to
// no-ops.
func New(scorer *risk.Scorer, provider chaindata.WalletDataProvider, notifier alerting.Notifier, opts Options, logger zerolog.Logger) *Monitor {
	interval := opts.CheckInterval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Monitor{
		scorer:   scorer,
		provider: provider,
		notifier: notifier,
		sink:     opts.Sink,
		locker:   opts.Locker,
		logger:   logger.With().Str("component", "security_monitor").Logger(),
		now:      now,
		interval: interval,
		channels: opts.AlertChannels,
		rules:    opts.Rules.clone(),
		trail:    ring.New[AuditAction](AuditTrailCapacity),
		watched:  make(map[string]struct{}),
	}
}

// StartMonitoring transitions to Running and schedules the periodic
// background check. Idempotent: a second call never starts a second loop.
func (m *Monitor) StartMonitoring() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.loopDone = make(chan struct{})
	done := m.loopDone
	m.mu.Unlock()

	sched := scheduler.New(scheduler.Options{Interval: m.interval}, m.logger)
	go func() {
		defer close(done)
		_ = sched.Run(ctx, func(ctx context.Context, at time.Time) error {
			m.performSecurityCheck(ctx)
			return nil
		})
	}()

	m.logger.Info().Dur("interval", m.interval).Msg("security monitoring started")
}

// Stop cancels pending background checks and waits for the loop to exit.
// In-flight foreground evaluations are unaffected.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.loopDone
	m.cancel = nil
	m.loopDone = nil
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Info().Msg("security monitoring stopped")
}

// performSecurityCheck is the periodic scan. The Running flag is checked at
// fire time, so a tick already scheduled when Stop lands is a no-op.
func (m *Monitor) performSecurityCheck(ctx context.Context) {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if !running {
		return
	}

	if m.locker != nil {
		unlock, acquired, err := m.locker.TryLock(ctx)
		if err != nil {
			m.logger.Error().Err(err).Msg("advisory lock check failed")
			return
		}
		if !acquired {
			m.logger.Debug().Msg("skip security check; lock held elsewhere")
			return
		}
		defer unlock()
	}

	m.mu.Lock()
	m.txCount++
	m.lastCheck = m.now().UTC()
	m.mu.Unlock()

	m.logger.Debug().Msg("security check completed")
}

// Evaluate scores tx and records the disposition. Blocking is an audited
// side effect, never a veto of the response: the analysis is returned
// regardless.
func (m *Monitor) Evaluate(tx risk.Transaction) risk.Analysis {
	res := m.scorer.Score(tx)

	if res.ShouldBlock {
		m.BlockTransaction(TxHash(tx), strings.Join(res.Threats, "; "))
	}

	m.maybeAlert(tx, res)
	return res
}

// BlockTransaction records a block decision: increments the threat counter
// and appends a TRANSACTION_BLOCKED audit entry. It never talks to a chain.
func (m *Monitor) BlockTransaction(txHash, reason string) {
	entry := AuditAction{
		Timestamp:       m.now().UTC(),
		Action:          ActionTransactionBlocked,
		Reason:          reason,
		TransactionHash: txHash,
		RiskLevel:       string(risk.LevelHigh),
	}

	m.mu.Lock()
	m.threatCount++
	m.trail.Push(entry)
	m.mu.Unlock()

	m.archive(entry)
	m.logger.Warn().Str("tx_hash", txHash).Str("reason", reason).Msg("transaction blocked")
}

// UpdateRules merges the partial update into the current rules and audits
// the replacement. Returns the resulting rules.
func (m *Monitor) UpdateRules(update RulesUpdate) Rules {
	entry := AuditAction{
		Timestamp: m.now().UTC(),
		Action:    ActionRulesUpdated,
		Reason:    "User updated security preferences",
		RiskLevel: riskLevelInfo,
	}

	m.mu.Lock()
	m.rules = m.rules.merge(update)
	merged := m.rules.clone()
	m.trail.Push(entry)
	m.mu.Unlock()

	m.archive(entry)
	m.logger.Info().Msg("security rules updated")
	return merged
}

// Rules returns a copy of the current security rules.
func (m *Monitor) Rules() Rules {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rules.clone()
}

// Watch registers an address for monitoring and audits the registration.
// Address format validation is the caller's concern.
func (m *Monitor) Watch(address string) {
	entry := AuditAction{
		Timestamp: m.now().UTC(),
		Action:    ActionMonitoringStarted,
		Reason:    "User initiated monitoring",
		RiskLevel: riskLevelInfo,
	}

	m.mu.Lock()
	m.watched[strings.ToLower(address)] = struct{}{}
	m.trail.Push(entry)
	m.mu.Unlock()

	m.archive(entry)
	m.logger.Info().Str("address", address).Msg("now monitoring address")
}

// WatchedAddresses returns the registered addresses, lowercased.
func (m *Monitor) WatchedAddresses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.watched))
	for addr := range m.watched {
		out = append(out, addr)
	}
	return out
}

// WalletProfile derives a read-only snapshot from current counters plus the
// injected wallet data source.
func (m *Monitor) WalletProfile(ctx context.Context, address string) WalletProfile {
	m.mu.Lock()
	threats := m.threatCount
	txs := m.txCount
	m.mu.Unlock()

	approvals := 0
	if m.provider != nil {
		if n, err := m.provider.ActiveApprovals(ctx, address); err == nil {
			approvals = n
		} else {
			m.logger.Debug().Err(err).Str("address", address).Msg("approval lookup failed")
		}
	}

	return WalletProfile{
		Address:           address,
		LastChecked:       m.now().UTC(),
		TotalTransactions: txs,
		ThreatsBlocked:    threats,
		ActiveApprovals:   approvals,
		RiskScore:         riskScore(threats, txs),
	}
}

// Status reports monitoring state and counters.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Monitoring:           m.running,
		ThreatsDetected:      m.threatCount,
		TransactionsAnalyzed: m.txCount,
		LastCheck:            m.lastCheck,
	}
}

// AuditTrail returns the retained audit actions in insertion order.
func (m *Monitor) AuditTrail() []AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trail.Items()
}

// ThreatCount reports the monotonic count of recorded block decisions.
func (m *Monitor) ThreatCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threatCount
}

// TransactionCount reports the monotonic count of completed background
// checks.
func (m *Monitor) TransactionCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txCount
}

func (m *Monitor) maybeAlert(tx risk.Transaction, res risk.Analysis) {
	if m.notifier == nil {
		return
	}

	m.mu.Lock()
	threshold := m.rules.AlertThreshold
	m.mu.Unlock()

	if !res.ShouldBlock && float64(res.Score) < threshold*100 {
		return
	}

	action := "TRANSACTION_FLAGGED"
	if res.ShouldBlock {
		action = ActionTransactionBlocked
	}
	note := alerting.Notification{
		At:              m.now().UTC(),
		Action:          action,
		Reason:          strings.Join(res.Threats, "; "),
		RiskLevel:       string(res.RiskLevel),
		Score:           res.Score,
		TransactionHash: TxHash(tx),
		Channels:        m.channels,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := m.notifier.Notify(ctx, note); err != nil {
			m.logger.Error().Err(err).Msg("failed to dispatch alert")
		}
	}()
}

func (m *Monitor) archive(entry AuditAction) {
	if m.sink != nil {
		m.sink.ArchiveAudit(entry)
	}
}

// riskScore condenses the counters into a [0,1] wallet risk figure.
func riskScore(threats, txs int64) float64 {
	if threats == 0 {
		return 0
	}
	total := threats + txs
	score := float64(threats) / float64(total)
	if score > 1 {
		score = 1
	}
	return score
}

// TxHash derives a stable identifier for an evaluated transaction, used when
// the caller supplies none.
func TxHash(tx risk.Transaction) string {
	payload := strings.Join([]string{tx.From, tx.To, tx.Value, tx.Data}, "|")
	return crypto.Keccak256Hash([]byte(payload)).Hex()
}
