package service

import (
	"context"
	"io"

	"go.uber.org/zap"

	"vellum/backend/internal/analytics"
	"vellum/backend/internal/domain"
	"vellum/backend/internal/export"
	"vellum/backend/internal/ingest"
	"vellum/backend/internal/xid"
)

// IngestSales parses every file before appending anything; a file that cannot
// be read leaves the record set untouched.
func (s *Service) IngestSales(ctx context.Context, files []ingest.File) (domain.IngestReport, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.IngestReport{}, err
	}
	records, parsed, err := parseAll(ctx, files, ingest.ParseSales)
	if err != nil {
		return domain.IngestReport{}, err
	}

	report := domain.IngestReport{
		BatchID:  xid.New("batch"),
		Files:    len(files),
		Accepted: parsed.Accepted,
		Rejected: parsed.Rejected,
	}
	if len(records) > 0 {
		if err := s.repo.AppendSales(ctx, report.BatchID, records); err != nil {
			return domain.IngestReport{}, wrapStore("append sales", err)
		}
	}
	stored, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.IngestReport{}, wrapStore("list sales", err)
	}
	report.Total = len(stored)
	s.logIngest(ctx, "sales", report)
	return report, nil
}

func (s *Service) ClearSales(ctx context.Context) (int, error) {
	if err := requireAdmin(ctx); err != nil {
		return 0, err
	}
	removed, err := s.repo.ClearSales(ctx)
	if err != nil {
		return 0, wrapStore("clear sales", err)
	}
	s.logger.Info("sales records cleared", zap.String("actor", actorName(ctx)), zap.Int("removed", removed))
	return removed, nil
}

func (s *Service) SalesChannels(ctx context.Context) ([]string, error) {
	records, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, wrapStore("list sales", err)
	}
	return analytics.AvailableChannels(records), nil
}

// SalesSnapshot recomputes every sales view. A filter with both bounds is
// compared against the equally long window before it when that window has
// billed orders; otherwise channel growth is estimated.
func (s *Service) SalesSnapshot(ctx context.Context, filter domain.SalesFilter) (domain.SalesSnapshot, error) {
	records, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.SalesSnapshot{}, wrapStore("list sales", err)
	}

	engine := s.engine
	if window, ok := analytics.PreviousWindow(filter); ok {
		if previous := engine.ChannelTotals(records, window); len(previous) > 0 {
			engine = engine.ComparedTo(previous)
		}
	}
	return engine.Compute(records, filter), nil
}

// ExportSales writes one named snapshot view as CSV.
func (s *Service) ExportSales(ctx context.Context, filter domain.SalesFilter, view string, w io.Writer) error {
	snapshot, err := s.SalesSnapshot(ctx, filter)
	if err != nil {
		return err
	}
	rows, err := export.SalesView(snapshot, view)
	if err != nil {
		return err
	}
	return export.WriteCSV(w, rows)
}

func (s *Service) SampleSales() ([]byte, error) {
	return ingest.SampleSalesCSV()
}

func (s *Service) Insights(ctx context.Context, filter domain.SalesFilter, refresh bool) (domain.InsightResult, error) {
	snapshot, err := s.SalesSnapshot(ctx, filter)
	if err != nil {
		return domain.InsightResult{}, err
	}
	return s.insights.Insights(ctx, snapshot, refresh)
}

func (s *Service) InsightCacheInfo(ctx context.Context) (domain.CacheInfo, error) {
	return s.insights.CacheInfo(ctx)
}

func (s *Service) ClearInsightCache(ctx context.Context) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.insights.ClearCache(ctx)
}
