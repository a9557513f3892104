package storage

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	archiverChanSize  = 1024
	archiverFlushTick = 500 * time.Millisecond
	archiverOpTimeout = 5 * time.Second
)

type archiveMsg struct {
	audit  *AuditRecord
	threat *ThreatRecord
}

// Archiver asynchronously persists audit actions and threats. Enqueue never
// blocks the caller; messages are dropped (and counted) when the channel is
// full, since the archive is best effort by design.
type Archiver struct {
	audits  AuditStore
	threats ThreatStore
	logger  zerolog.Logger
	ch      chan archiveMsg
	done    chan struct{}
	dropped atomic.Int64
}

// NewArchiver creates an archiver over the given stores.
func NewArchiver(audits AuditStore, threats ThreatStore, logger zerolog.Logger) *Archiver {
	return &Archiver{
		audits:  audits,
		threats: threats,
		logger:  logger.With().Str("component", "archiver").Logger(),
		ch:      make(chan archiveMsg, archiverChanSize),
		done:    make(chan struct{}),
	}
}

// EnqueueAudit queues an audit record for archival.
func (a *Archiver) EnqueueAudit(rec AuditRecord) {
	select {
	case a.ch <- archiveMsg{audit: &rec}:
	default:
		a.dropped.Add(1)
	}
}

// EnqueueThreat queues a threat record for archival.
func (a *Archiver) EnqueueThreat(rec ThreatRecord) {
	select {
	case a.ch <- archiveMsg{threat: &rec}:
	default:
		a.dropped.Add(1)
	}
}

// Dropped reports how many records were dropped due to a full channel.
func (a *Archiver) Dropped() int64 {
	return a.dropped.Load()
}

// Start drains the queue until ctx is cancelled, then flushes what is left.
// Call in a goroutine.
func (a *Archiver) Start(ctx context.Context) {
	defer close(a.done)

	ticker := time.NewTicker(archiverFlushTick)
	defer ticker.Stop()

	var buf []archiveMsg

	for {
		select {
		case <-ctx.Done():
			a.flush(buf)
			a.drainRemaining()
			return
		case msg := <-a.ch:
			buf = append(buf, msg)
			if len(buf) >= 100 {
				a.flush(buf)
				buf = buf[:0]
			}
		case <-ticker.C:
			a.flush(buf)
			buf = buf[:0]
		}
	}
}

// Wait blocks until the drain loop has exited.
func (a *Archiver) Wait() {
	<-a.done
}

func (a *Archiver) drainRemaining() {
	for {
		select {
		case msg := <-a.ch:
			a.flush([]archiveMsg{msg})
		default:
			return
		}
	}
}

func (a *Archiver) flush(buf []archiveMsg) {
	if len(buf) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiverOpTimeout)
	defer cancel()

	for _, msg := range buf {
		switch {
		case msg.audit != nil:
			if _, err := a.audits.InsertAuditAction(ctx, *msg.audit); err != nil {
				a.logger.Error().Err(err).Str("action", msg.audit.Action).Msg("failed to archive audit action")
			}
		case msg.threat != nil:
			if err := a.threats.InsertThreat(ctx, *msg.threat); err != nil {
				a.logger.Error().Err(err).Str("threat_id", msg.threat.ThreatID).Msg("failed to archive threat")
			}
		}
	}
}
