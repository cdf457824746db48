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

func (s *Service) IngestFunnel(ctx context.Context, files []ingest.File) (domain.IngestReport, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.IngestReport{}, err
	}
	records, parsed, err := parseAll(ctx, files, ingest.ParseFunnel)
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
		if err := s.repo.AppendFunnel(ctx, report.BatchID, records); err != nil {
			return domain.IngestReport{}, wrapStore("append funnel", err)
		}
	}
	stored, err := s.repo.ListFunnel(ctx)
	if err != nil {
		return domain.IngestReport{}, wrapStore("list funnel", err)
	}
	report.Total = len(stored)
	s.logIngest(ctx, "funnel", report)
	return report, nil
}

func (s *Service) ClearFunnel(ctx context.Context) (int, error) {
	if err := requireAdmin(ctx); err != nil {
		return 0, err
	}
	removed, err := s.repo.ClearFunnel(ctx)
	if err != nil {
		return 0, wrapStore("clear funnel", err)
	}
	s.logger.Info("funnel records cleared", zap.String("actor", actorName(ctx)), zap.Int("removed", removed))
	return removed, nil
}

func (s *Service) FunnelStatuses(ctx context.Context) ([]domain.FunnelStatus, error) {
	records, err := s.repo.ListFunnel(ctx)
	if err != nil {
		return nil, wrapStore("list funnel", err)
	}
	return analytics.AvailableStatuses(records), nil
}

func (s *Service) FunnelSnapshot(ctx context.Context, filter domain.FunnelFilter) (domain.FunnelSnapshot, error) {
	records, err := s.repo.ListFunnel(ctx)
	if err != nil {
		return domain.FunnelSnapshot{}, wrapStore("list funnel", err)
	}
	return s.engine.ComputeFunnel(records, filter), nil
}

func (s *Service) ExportFunnel(ctx context.Context, filter domain.FunnelFilter, view string, w io.Writer) error {
	snapshot, err := s.FunnelSnapshot(ctx, filter)
	if err != nil {
		return err
	}
	rows, err := export.FunnelView(snapshot, view)
	if err != nil {
		return err
	}
	return export.WriteCSV(w, rows)
}

func (s *Service) SampleFunnel() ([]byte, error) {
	return ingest.SampleFunnelXLSX()
}
