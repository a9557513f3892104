package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertAuditSQL = `INSERT INTO audit_actions (
        at, action, reason, transaction_hash, risk_level
    ) VALUES ($1,$2,$3,$4,$5)
    RETURNING id;`

	listAuditBetweenSQL = `SELECT
        id, at, action, reason, transaction_hash, risk_level, created_at
    FROM audit_actions
    WHERE at >= $1
      AND at < $2
    ORDER BY at;`

	listRecentAuditSQL = `SELECT
        id, at, action, reason, transaction_hash, risk_level, created_at
    FROM audit_actions
    ORDER BY at DESC
    LIMIT $1;`

	countAuditSQL = `SELECT COUNT(*) FROM audit_actions;`

	deleteAuditBeforeSQL = `DELETE FROM audit_actions WHERE created_at < $1;`

	insertThreatSQL = `INSERT INTO threats (
        threat_id, type, severity, description, address, at
    ) VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (threat_id) DO NOTHING;`

	listScamAddressesSQL = `SELECT DISTINCT address
    FROM threats
    WHERE type = 'SCAM_ADDRESS'
      AND address <> '';`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AuditStore defines operations for audit archival.
type AuditStore interface {
	InsertAuditAction(ctx context.Context, rec AuditRecord) (int64, error)
	ListAuditBetween(ctx context.Context, from, to time.Time) ([]AuditRecord, error)
	ListRecentAudit(ctx context.Context, limit int) ([]AuditRecord, error)
	CountAuditActions(ctx context.Context) (int64, error)
	DeleteAuditBefore(ctx context.Context, olderThan time.Time) error
}

// ThreatStore defines operations for threat archival.
type ThreatStore interface {
	InsertThreat(ctx context.Context, rec ThreatRecord) error
	ListScamAddresses(ctx context.Context) ([]string, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to the audit and threat archive.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertAuditAction archives one audit action and returns its row id.
func (s *Store) InsertAuditAction(ctx context.Context, rec AuditRecord) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var hash interface{}
	if rec.TransactionHash != "" {
		hash = rec.TransactionHash
	}

	var id int64
	if scanErr := pool.QueryRow(ctx, insertAuditSQL,
		rec.At,
		rec.Action,
		rec.Reason,
		hash,
		rec.RiskLevel,
	).Scan(&id); scanErr != nil {
		return 0, fmt.Errorf("insert audit action: %w", scanErr)
	}
	return id, nil
}

// ListAuditBetween lists archived actions within a time window.
func (s *Store) ListAuditBetween(ctx context.Context, from, to time.Time) ([]AuditRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAuditBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list audit between: %w", queryErr)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

// ListRecentAudit lists the most recent archived actions, newest first.
func (s *Store) ListRecentAudit(ctx context.Context, limit int) ([]AuditRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAuditSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent audit: %w", queryErr)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

// CountAuditActions counts archived actions.
func (s *Store) CountAuditActions(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countAuditSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count audit actions: %w", scanErr)
	}
	return count, nil
}

// DeleteAuditBefore prunes archived actions older than the cutoff.
func (s *Store) DeleteAuditBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAuditBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete audit before: %w", execErr)
	}
	return nil
}

// InsertThreat archives one threat. Duplicate threat ids are ignored.
func (s *Store) InsertThreat(ctx context.Context, rec ThreatRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var address interface{}
	if rec.Address != "" {
		address = rec.Address
	}

	if _, execErr := pool.Exec(ctx, insertThreatSQL,
		rec.ThreatID,
		rec.Type,
		rec.Severity,
		rec.Description,
		address,
		rec.At,
	); execErr != nil {
		return fmt.Errorf("insert threat: %w", execErr)
	}
	return nil
}

// ListScamAddresses returns every archived scam address, for seeding the
// in-memory registry at startup.
func (s *Store) ListScamAddresses(ctx context.Context) ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listScamAddressesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list scam addresses: %w", queryErr)
	}
	defer rows.Close()

	addresses := make([]string, 0)
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return addresses, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a
// release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

type auditRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAuditRows(rows auditRows) ([]AuditRecord, error) {
	records := make([]AuditRecord, 0)
	for rows.Next() {
		var rec AuditRecord
		var hash *string
		if err := rows.Scan(
			&rec.ID,
			&rec.At,
			&rec.Action,
			&rec.Reason,
			&hash,
			&rec.RiskLevel,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if hash != nil {
			rec.TransactionHash = *hash
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

var (
	_ AuditStore     = (*Store)(nil)
	_ ThreatStore    = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
