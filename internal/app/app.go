package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/theeagle2407/Vigil/internal/alerting"
	"github.com/theeagle2407/Vigil/internal/api"
	"github.com/theeagle2407/Vigil/internal/chaindata"
	"github.com/theeagle2407/Vigil/internal/config"
	"github.com/theeagle2407/Vigil/internal/monitor"
	"github.com/theeagle2407/Vigil/internal/risk"
	"github.com/theeagle2407/Vigil/internal/storage"
	"github.com/theeagle2407/Vigil/internal/threat"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// ExportOptions hold parameters for exporting archived audit activity.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// SimulateOptions describe a synthetic transaction to evaluate.
type SimulateOptions struct {
	From            string
	To              string
	Value           string
	Data            string
	ContractAddress string
}

// SeedOptions configure the scam-address seed job.
type SeedOptions struct {
	File   string
	Reason string
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newProvider() chaindata.WalletDataProvider {
	if a.Config.Ethereum.RPCURL == "" {
		return nil
	}
	return chaindata.NewEthProvider(chaindata.EthOptions{
		RPCURL:           a.Config.Ethereum.RPCURL,
		ApprovalLookback: a.Config.Ethereum.ApprovalLookback,
		Timeout:          a.Config.Ethereum.RequestTimeout,
	}, a.Logger)
}

func (a *App) newRegistry(sink threat.Sink) *threat.Registry {
	return threat.NewRegistry(threat.Options{
		Capacity:         a.Config.Registry.Capacity,
		ScamAddresses:    a.Config.Registry.ScamAddresses,
		PhishingPatterns: a.Config.Registry.PhishingPatterns,
		Sink:             sink,
	}, a.Logger)
}

func (a *App) newMonitor(registry *threat.Registry, provider chaindata.WalletDataProvider, sink monitor.AuditSink, locker monitor.Locker) *monitor.Monitor {
	scorer := risk.NewScorer(registry, risk.Options{
		ValueThreshold: a.Config.Scoring.ValueThreshold,
	})

	return monitor.New(scorer, provider, a.newNotifier(), monitor.Options{
		Rules: monitor.Rules{
			MaxDailyAmount:   a.Config.Monitor.MaxDailyAmount,
			AutoBlockUnknown: a.Config.Monitor.AutoBlockUnknown,
			AlertThreshold:   a.Config.Monitor.AlertThreshold,
		},
		CheckInterval: a.Config.Monitor.CheckInterval,
		AlertChannels: a.Config.Alerting.Channels,
		Sink:          sink,
		Locker:        locker,
	}, a.Logger)
}

// Run executes the long-running agent: background monitoring plus the HTTP
// API, stopped by SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; audit archive disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	var (
		archiver   *storage.Archiver
		threatSink threat.Sink
		auditSink  monitor.AuditSink
		locker     monitor.Locker
	)

	archiveCtx, stopArchiver := context.WithCancel(context.Background())
	defer stopArchiver()

	if store != nil {
		archiver = storage.NewArchiver(store, store, a.Logger)
		go archiver.Start(archiveCtx)
		threatSink = threatArchiver{archiver}
		auditSink = auditArchiver{archiver}
		if key := a.Config.Monitor.AdvisoryLockKey; key != 0 {
			locker = advisoryLocker{store: store, key: key}
		}
	}

	registry := a.newRegistry(threatSink)
	if store != nil {
		a.loadArchivedScams(ctx, store, registry)
	}

	mon := a.newMonitor(registry, a.newProvider(), auditSink, locker)
	mon.StartMonitoring()
	defer mon.Stop()

	server := api.NewServer(mon, registry, a.Config.Server.Port, a.Logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	a.Logger.Info().Msg("vigil security agent started")

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("api shutdown failed")
	}

	mon.Stop()
	stopArchiver()
	if archiver != nil {
		archiver.Wait()
	}

	a.Logger.Info().Msg("vigil security agent stopped")
	return nil
}

// loadArchivedScams folds previously seeded scam addresses into the
// in-memory registry so restarts keep the learned set.
func (a *App) loadArchivedScams(ctx context.Context, store *storage.Store, registry *threat.Registry) {
	addresses, err := store.ListScamAddresses(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("failed to load archived scam addresses")
		return
	}
	for _, addr := range addresses {
		if !registry.IsKnownScam(addr) {
			registry.AddScamAddress(addr, "Restored from archive")
		}
	}
	if len(addresses) > 0 {
		a.Logger.Info().Int("count", len(addresses)).Msg("archived scam addresses loaded")
	}
}

type auditArchiver struct {
	arch *storage.Archiver
}

func (s auditArchiver) ArchiveAudit(entry monitor.AuditAction) {
	s.arch.EnqueueAudit(storage.AuditRecord{
		At:              entry.Timestamp,
		Action:          entry.Action,
		Reason:          entry.Reason,
		TransactionHash: entry.TransactionHash,
		RiskLevel:       entry.RiskLevel,
	})
}

type threatArchiver struct {
	arch *storage.Archiver
}

func (s threatArchiver) ArchiveThreat(t threat.Threat) {
	s.arch.EnqueueThreat(storage.ThreatRecord{
		ThreatID:    t.ID,
		Type:        string(t.Type),
		Severity:    string(t.Severity),
		Description: t.Description,
		Address:     t.Address,
		At:          t.Timestamp,
	})
}

type advisoryLocker struct {
	store *storage.Store
	key   int64
}

func (l advisoryLocker) TryLock(ctx context.Context) (func(), bool, error) {
	return l.store.TryAdvisoryLock(ctx, l.key)
}
