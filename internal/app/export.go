package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/theeagle2407/Vigil/internal/monitor"
	"github.com/theeagle2407/Vigil/internal/storage"
)

// activityBucket aggregates archived audit actions into an hourly bucket.
type activityBucket struct {
	Bucket  time.Time
	Total   int
	Blocked int
}

// Export renders archived audit activity as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-30 * 24 * time.Hour)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	records, err := store.ListAuditBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("no audit actions found for export window")
		return nil
	}

	buckets := bucketActivity(records)
	downsampled := downsampleBuckets(buckets, opts.MaxPoints)
	a.Logger.Info().Int("actions", len(records)).Int("exported", len(downsampled)).Msg("exporting audit activity")

	if opts.CSVPath != "" {
		if err := writeActivityCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeActivityPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func bucketActivity(records []storage.AuditRecord) []activityBucket {
	byHour := make(map[time.Time]*activityBucket)
	for _, rec := range records {
		hour := rec.At.UTC().Truncate(time.Hour)
		bucket, ok := byHour[hour]
		if !ok {
			bucket = &activityBucket{Bucket: hour}
			byHour[hour] = bucket
		}
		bucket.Total++
		if rec.Action == monitor.ActionTransactionBlocked {
			bucket.Blocked++
		}
	}

	buckets := make([]activityBucket, 0, len(byHour))
	for _, bucket := range byHour {
		buckets = append(buckets, *bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Bucket.Before(buckets[j].Bucket)
	})
	return buckets
}

func downsampleBuckets(buckets []activityBucket, max int) []activityBucket {
	if max <= 0 || len(buckets) <= max {
		return buckets
	}

	result := make([]activityBucket, 0, max)
	step := float64(len(buckets)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(buckets) {
			idx = len(buckets) - 1
		}
		result = append(result, buckets[idx])
	}
	return result
}

func writeActivityCSV(path string, buckets []activityBucket) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"bucket_ts", "audit_actions", "blocked_transactions"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, bucket := range buckets {
		record := []string{
			bucket.Bucket.Format(time.RFC3339),
			strconv.Itoa(bucket.Total),
			strconv.Itoa(bucket.Blocked),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeActivityPNG(path string, buckets []activityBucket) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(buckets))
	total := make([]float64, len(buckets))
	blocked := make([]float64, len(buckets))

	for i, bucket := range buckets {
		x[i] = bucket.Bucket
		total[i] = float64(bucket.Total)
		blocked[i] = float64(bucket.Blocked)
	}

	countFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Audit actions / hour",
			ValueFormatter: countFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "All actions",
				XValues: x,
				YValues: total,
			},
			chart.TimeSeries{
				Name:    "Blocked transactions",
				XValues: x,
				YValues: blocked,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
