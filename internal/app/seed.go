package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/theeagle2407/Vigil/internal/storage"
	"github.com/theeagle2407/Vigil/internal/threat"
)

// Seed bulk-loads scam addresses from a file into the threat archive so the
// agent picks them up on its next start. Lines are "address" or
// "address,reason"; blank lines and lines starting with # are skipped.
func (a *App) Seed(ctx context.Context, opts SeedOptions) error {
	if opts.File == "" {
		return errors.New("--file is required")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot seed scam addresses")
	}
	if closeStore != nil {
		defer closeStore()
	}

	file, err := os.Open(opts.File)
	if err != nil {
		return err
	}
	defer file.Close()

	defaultReason := opts.Reason
	if defaultReason == "" {
		defaultReason = "Seeded scam address"
	}

	now := time.Now().UTC()
	inserted := 0
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		address := line
		reason := defaultReason
		if idx := strings.IndexByte(line, ','); idx >= 0 {
			address = strings.TrimSpace(line[:idx])
			if r := strings.TrimSpace(line[idx+1:]); r != "" {
				reason = r
			}
		}

		address = strings.ToLower(address)
		if address == "" {
			continue
		}
		if _, dup := seen[address]; dup {
			continue
		}
		seen[address] = struct{}{}

		rec := storage.ThreatRecord{
			ThreatID:    fmt.Sprintf("seed-%d-%d", now.UnixMilli(), inserted),
			Type:        string(threat.TypeScamAddress),
			Severity:    string(threat.SeverityHigh),
			Description: reason,
			Address:     address,
			At:          now,
		}
		if err := store.InsertThreat(ctx, rec); err != nil {
			return fmt.Errorf("seed %s: %w", address, err)
		}
		inserted++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	a.Logger.Info().Int("count", inserted).Msg("scam addresses seeded")
	fmt.Fprintf(os.Stdout, "seeded %d scam addresses\n", inserted)
	return nil
}
