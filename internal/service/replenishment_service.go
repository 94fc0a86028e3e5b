package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/cache"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/pipeline/replenishment"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

const defaultHistoryLimit = 50

// Export formats accepted by ExportResults.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// UploadPipeline is the part of the replenishment pipeline the service drives.
type UploadPipeline interface {
	Process(ctx context.Context, id domain.UploadID, filename string, table *tabular.Table) (*replenishment.Outcome, error)
	Fallback() *replenishment.FallbackDataset
}

// Export is a rendered results file.
type Export struct {
	Filename    string
	ContentType string
	Rows        int
	Data        []byte
}

// ReplenishmentService runs uploads through the pipeline and serves the
// cached results, trends, dashboards and exports.
type ReplenishmentService struct {
	pipeline UploadPipeline
	cache    cache.ResultCache

	historyMu    sync.Mutex
	history      []domain.UploadRecord
	historyLimit int
}

// NewReplenishmentService creates a service over p. A nil cache falls back
// to an in-memory one.
func NewReplenishmentService(p UploadPipeline, cacheImpl cache.ResultCache) *ReplenishmentService {
	if cacheImpl == nil {
		cacheImpl = cache.NewMemoryResultCache()
	}
	return &ReplenishmentService{
		pipeline:     p,
		cache:        cacheImpl,
		historyLimit: defaultHistoryLimit,
	}
}

// ProcessUpload parses an uploaded state file and runs the pipeline on it
// under a fresh upload id.
func (s *ReplenishmentService) ProcessUpload(ctx context.Context, filename string, r io.Reader) (*replenishment.Outcome, error) {
	table, err := tabular.Read(filename, r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	out, err := s.pipeline.Process(ctx, domain.NewUploadID(), filename, table)
	if err != nil {
		return nil, err
	}

	s.remember(domain.UploadRecord{
		UploadID:      out.UploadID,
		Filename:      filename,
		UploadedAt:    out.StartedAt,
		Provenance:    out.Provenance,
		MachineCount:  len(out.Results),
		CriticalCount: countCritical(out.Results),
	})
	return out, nil
}

// GetResults returns a copy of the cached results of an upload, or the
// fallback dataset when the upload is unknown.
func (s *ReplenishmentService) GetResults(ctx context.Context, id domain.UploadID) (*domain.ResultsView, error) {
	entry := s.lookup(ctx, id)
	if entry == nil {
		return &domain.ResultsView{
			UploadID:   id,
			Provenance: domain.ProvenanceFallback,
			Results:    s.pipeline.Fallback().Results(),
		}, nil
	}
	return &domain.ResultsView{
		UploadID:   id,
		Provenance: entry.Provenance,
		Results:    slices.Clone(entry.Results),
	}, nil
}

// GetTrends projects daily consumption per weighted machine over the window
// frozen at upload time. An empty id, an unknown upload or a fallback
// upload all yield the default series.
func (s *ReplenishmentService) GetTrends(ctx context.Context, id domain.UploadID) (*domain.TrendSeries, error) {
	if id != "" {
		entry := s.lookup(ctx, id)
		if entry != nil && entry.Provenance == domain.ProvenanceComputed {
			trends := replenishment.ProjectTrends(entry.RawJoins.Weights, entry.RawJoins.Forecasts, entry.WindowStart)
			return &trends, nil
		}
	}
	trends := s.pipeline.Fallback().TrendSeries()
	return &trends, nil
}

// GetDashboard returns results plus the KPIs and breakdowns built from them.
func (s *ReplenishmentService) GetDashboard(ctx context.Context, id domain.UploadID) (*domain.Dashboard, error) {
	view, err := s.GetResults(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildDashboard(view), nil
}

// ExportResults renders the critical machines that need cash. Unlike the
// read paths, an unknown upload is an error here.
func (s *ReplenishmentService) ExportResults(ctx context.Context, id domain.UploadID, format string) (*Export, error) {
	entry := s.lookup(ctx, id)
	if entry == nil {
		return nil, fmt.Errorf("export %s: %w", id, domain.ErrUploadNotFound)
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatXLSX
	}

	rows := ExportRows(entry.Results)
	header := []string{replenishment.ColMachineID, replenishment.ColToInvest}
	base := "a_investir_" + id.String()

	var buf bytes.Buffer
	switch format {
	case FormatXLSX:
		data := make([][]any, 0, len(rows))
		for _, r := range rows {
			data = append(data, []any{tabular.ParseCell(r.MachineID), r.Amount.InexactFloat64()})
		}
		if err := tabular.WriteXLSX(&buf, "A investir", header, data); err != nil {
			return nil, fmt.Errorf("export %s: %w", id, err)
		}
		return &Export{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Rows:        len(rows),
			Data:        buf.Bytes(),
		}, nil

	case FormatCSV:
		data := make([][]any, 0, len(rows))
		for _, r := range rows {
			data = append(data, []any{r.MachineID, r.Amount.StringFixed(2)})
		}
		if err := tabular.WriteCSV(&buf, header, data); err != nil {
			return nil, fmt.Errorf("export %s: %w", id, err)
		}
		return &Export{
			Filename:    base + ".csv",
			ContentType: "text/csv; charset=utf-8",
			Rows:        len(rows),
			Data:        buf.Bytes(),
		}, nil

	default:
		return nil, fmt.Errorf("%w: export format %q", domain.ErrUnsupportedFormat, format)
	}
}

// History lists recent uploads, newest first.
func (s *ReplenishmentService) History() []domain.UploadRecord {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	out := make([]domain.UploadRecord, len(s.history))
	for i, rec := range s.history {
		out[len(s.history)-1-i] = rec
	}
	return out
}

func (s *ReplenishmentService) remember(rec domain.UploadRecord) {
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now()
	}
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append(s.history, rec)
	if over := len(s.history) - s.historyLimit; over > 0 {
		s.history = append([]domain.UploadRecord(nil), s.history[over:]...)
	}
}

// lookup returns nil on a miss. Cache failures are logged and treated as misses.
func (s *ReplenishmentService) lookup(ctx context.Context, id domain.UploadID) *domain.CacheEntry {
	if id == "" {
		return nil
	}
	entry, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("upload_id", id.String()).Msg("replenishment: cache get failed")
		return nil
	}
	if !ok {
		return nil
	}
	return entry
}

// ExportRow is one line of the export file.
type ExportRow struct {
	MachineID string
	Amount    decimal.Decimal
}

// ExportRows keeps critical machines with a positive amount, rounded to cents.
func ExportRows(results []domain.ReplenishmentResult) []ExportRow {
	rows := make([]ExportRow, 0, len(results))
	for _, r := range results {
		if !r.IsCritical(replenishment.CriticalDaysThreshold) || r.AmountToInvest <= 0 {
			continue
		}
		rows = append(rows, ExportRow{
			MachineID: r.MachineID,
			Amount:    decimal.NewFromFloat(r.AmountToInvest).Round(2),
		})
	}
	return rows
}
