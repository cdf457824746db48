package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vellum/backend/internal/analytics"
	"vellum/backend/internal/domain"
	"vellum/backend/internal/ingest"
	"vellum/backend/internal/insight"
	"vellum/backend/internal/store"
)

var (
	ErrForbidden = errors.New("admin role required")
	ErrNoFiles   = errors.New("no files uploaded")
)

const parseConcurrency = 4

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service owns the raw record set and recomputes snapshots from it on every
// read. Snapshots are never stored.
type Service struct {
	repo     store.RecordStore
	engine   *analytics.Engine
	insights *insight.Service
	logger   *zap.Logger
}

func New(repo store.RecordStore, engine *analytics.Engine, insights *insight.Service, logger *zap.Logger) *Service {
	if engine == nil {
		engine = analytics.NewEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if insights == nil {
		insights = insight.NewService(nil, nil, logger)
	}

	return &Service{
		repo:     repo,
		engine:   engine,
		insights: insights,
		logger:   logger,
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Username
	}
	return ""
}

// parseAll parses every file concurrently and returns the records in upload
// order. Any file error fails the whole call.
func parseAll[T any](ctx context.Context, files []ingest.File, parse func(ingest.File) ([]T, ingest.Report, error)) ([]T, ingest.Report, error) {
	if len(files) == 0 {
		return nil, ingest.Report{}, ErrNoFiles
	}

	parsed := make([][]T, len(files))
	reports := make([]ingest.Report, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseConcurrency)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, report, err := parse(file)
			if err != nil {
				return err
			}
			parsed[i], reports[i] = records, report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ingest.Report{}, err
	}

	var all []T
	var total ingest.Report
	for i := range files {
		all = append(all, parsed[i]...)
		total = total.Add(reports[i])
	}
	return all, total, nil
}

func (s *Service) logIngest(ctx context.Context, kind string, report domain.IngestReport) {
	s.logger.Info("records ingested",
		zap.String("kind", kind),
		zap.String("batch_id", report.BatchID),
		zap.String("actor", actorName(ctx)),
		zap.Int("files", report.Files),
		zap.Int("accepted", report.Accepted),
		zap.Int("rejected", report.Rejected),
		zap.Int("total", report.Total),
	)
}

func wrapStore(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
