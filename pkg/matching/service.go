// Package matching resolves candidate identities across election records:
// it scores name similarity, aggregates per-candidate histories and ranks
// bulk name searches against a sample of the candidate table.
package matching

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	recomputeLockKey = "candidate-history-recompute"

	TriggerCreate    = "create"
	TriggerUpdate    = "update"
	TriggerRefresh   = "refresh"
	TriggerRecompute = "recompute"
)

// CandidateStore is the persistence the service reads pools from and writes histories to.
type CandidateStore interface {
	PoolSource
	GetByID(ctx context.Context, id string, includeDeleted bool) (*models.CandidateRecord, error)
	UpdateHistory(ctx context.Context, id string, history models.CandidateHistory) error
	// ListAfter returns up to limit records with id > afterID ordered by id, soft-deleted included.
	ListAfter(ctx context.Context, afterID string, limit int) ([]models.CandidateRecord, error)
	BulkUpdateHistories(ctx context.Context, updates []models.HistoryUpdate) (int, error)
}

// PoolCache stores bulk match samples by filter key.
type PoolCache interface {
	Get(ctx context.Context, key string) ([]models.PoolEntry, bool)
	Set(ctx context.Context, key string, entries []models.PoolEntry)
}

// RunLocker serializes fn across service instances.
type RunLocker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// Notifier is told about recomputed histories.
type Notifier interface {
	HistoryRecomputed(ctx context.Context, record *models.CandidateRecord)
	HistoriesRecomputed(ctx context.Context, result models.RecomputeResult)
}

type Config struct {
	History            HistoryConfig
	Bulk               BulkConfig
	RecomputeBatchSize int
	RecomputeLockTTL   time.Duration
}

func DefaultConfig() Config {
	return Config{
		History:            DefaultHistoryConfig(),
		Bulk:               DefaultBulkConfig(),
		RecomputeBatchSize: 500,
		RecomputeLockTTL:   30 * time.Minute,
	}
}

// Service is the single entry point for every history computation and bulk search.
type Service struct {
	log      ectologger.Logger
	store    CandidateStore
	aliases  AliasResolver
	cache    PoolCache
	locker   RunLocker
	notifier Notifier
	cfg      Config
}

func NewService(log ectologger.Logger, store CandidateStore, aliases AliasResolver, cfg Config) *Service {
	if cfg.RecomputeBatchSize <= 0 {
		cfg.RecomputeBatchSize = DefaultConfig().RecomputeBatchSize
	}
	return &Service{
		log:     log,
		store:   store,
		aliases: aliases,
		cfg:     cfg,
	}
}

// WithPoolCache enables caching of bulk match samples.
func (s *Service) WithPoolCache(cache PoolCache) *Service {
	s.cache = cache
	return s
}

// WithLocker guards RecomputeAll with a distributed lock.
func (s *Service) WithLocker(locker RunLocker) *Service {
	s.locker = locker
	return s
}

func (s *Service) WithNotifier(notifier Notifier) *Service {
	s.notifier = notifier
	return s
}

// ComputeHistory computes the history of record without persisting it.
func (s *Service) ComputeHistory(ctx context.Context, record *models.CandidateRecord, trigger string) (models.CandidateHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.ComputeHistory")
	defer span.End()

	history, err := ComputeHistory(ctx, s.store, *record, s.cfg.History)
	if err != nil {
		metrics.RecordHistory(trigger, "error")
		s.log.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"candidate_id": record.ID,
			"trigger":      trigger,
		}).Error("failed to compute candidate history")
		return models.CandidateHistory{}, err
	}

	history.ComputedAt = time.Now().UTC()
	metrics.RecordHistory(trigger, "success")
	return history, nil
}

// RefreshHistory recomputes and stores the history of one record. Soft-deleted records are refreshed too.
func (s *Service) RefreshHistory(ctx context.Context, id string, trigger string) (*models.CandidateRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.RefreshHistory")
	defer span.End()

	record, err := s.store.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "candidate not found")
	}

	history, err := s.ComputeHistory(ctx, record, trigger)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateHistory(ctx, record.ID, history); err != nil {
		return nil, err
	}
	record.CandidateHistory = database.NewJSONB(history)

	s.log.WithContext(ctx).WithFields(map[string]any{
		"candidate_id": record.ID,
		"times_stood":  history.TimesStood,
		"trigger":      trigger,
	}).Debug("refreshed candidate history")

	if s.notifier != nil {
		s.notifier.HistoryRecomputed(ctx, record)
	}

	return record, nil
}

// RecomputeAll rebuilds every record's history in id order, one batched write per page.
// Only one run may be active across instances when a locker is configured.
func (s *Service) RecomputeAll(ctx context.Context) (models.RecomputeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.RecomputeAll")
	defer span.End()

	log := s.log.WithContext(ctx)
	result := models.RecomputeResult{StartedAt: time.Now().UTC()}

	run := func() error {
		return s.recomputeAll(ctx, &result)
	}

	var err error
	if s.locker != nil {
		err = s.locker.WithLock(ctx, recomputeLockKey, s.cfg.RecomputeLockTTL, run)
	} else {
		err = run()
	}
	result.Duration = time.Since(result.StartedAt)

	if errors.Is(err, redis.ErrLockNotAcquired) {
		metrics.RecordRecompute("locked", 0)
		log.Warn("history recompute skipped, another run holds the lock")
		return result, ErrRecomputeInProgress
	}
	if err != nil {
		metrics.RecordRecompute("error", result.Duration.Seconds())
		log.WithError(err).WithFields(map[string]any{
			"processed": result.Processed,
			"updated":   result.Updated,
		}).Error("history recompute failed")
		return result, err
	}

	metrics.RecordRecompute("success", result.Duration.Seconds())
	log.WithFields(map[string]any{
		"processed":   result.Processed,
		"updated":     result.Updated,
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("recomputed candidate histories")

	if s.notifier != nil {
		s.notifier.HistoriesRecomputed(ctx, result)
	}

	return result, nil
}

func (s *Service) recomputeAll(ctx context.Context, result *models.RecomputeResult) error {
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := s.store.ListAfter(ctx, afterID, s.cfg.RecomputeBatchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		updates := make([]models.HistoryUpdate, 0, len(page))
		for i := range page {
			history, err := s.ComputeHistory(ctx, &page[i], TriggerRecompute)
			if err != nil {
				return err
			}
			updates = append(updates, models.HistoryUpdate{ID: page[i].ID, History: history})
		}

		updated, err := s.store.BulkUpdateHistories(ctx, updates)
		if err != nil {
			return err
		}

		result.Processed += len(page)
		result.Updated += updated
		afterID = page[len(page)-1].ID

		if len(page) < s.cfg.RecomputeBatchSize {
			return nil
		}
	}
}

// BulkMatch ranks matches for every requested name.
func (s *Service) BulkMatch(ctx context.Context, req models.BulkMatchRequest) (models.BulkMatchResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.BulkMatch")
	defer span.End()

	start := time.Now()

	var pool BulkPoolSource = s.store
	if s.cache != nil {
		pool = &cachedPool{source: s.store, cache: s.cache}
	}

	resp, err := BulkMatch(ctx, pool, s.aliases, req, s.cfg.Bulk)
	if err != nil {
		status := "error"
		if IsValidationError(err) {
			status = "invalid"
		}
		metrics.RecordBulkMatch(status, time.Since(start).Seconds(), 0)
		return models.BulkMatchResponse{}, err
	}

	metrics.RecordBulkMatch("success", time.Since(start).Seconds(), resp.Sampled)
	s.log.WithContext(ctx).WithFields(map[string]any{
		"names":        len(req.Names),
		"sampled":      resp.Sampled,
		"sample_limit": resp.SampleLimit,
		"threshold":    resp.Threshold,
	}).Debug("bulk match completed")

	return resp, nil
}

// cachedPool serves bulk samples from the pool cache, filling it on a miss.
type cachedPool struct {
	source BulkPoolSource
	cache  PoolCache
}

func (p *cachedPool) BulkPool(ctx context.Context, query BulkPoolQuery) ([]models.PoolEntry, error) {
	key := PoolCacheKey(query)
	if entries, ok := p.cache.Get(ctx, key); ok {
		metrics.RecordPoolCache(true)
		return entries, nil
	}
	metrics.RecordPoolCache(false)

	entries, err := p.source.BulkPool(ctx, query)
	if err != nil {
		return nil, err
	}
	p.cache.Set(ctx, key, entries)
	return entries, nil
}

// PoolCacheKey identifies a bulk pool query. Filters compare case-insensitively so the key does too.
func PoolCacheKey(query BulkPoolQuery) string {
	year := ""
	if query.Year != nil {
		year = fmt.Sprint(*query.Year)
	}
	return fmt.Sprintf("c=%s|s=%s|p=%s|y=%s|l=%d",
		keyPart(query.Constituency), keyPart(query.State), keyPart(query.Party), year, query.Limit)
}

func keyPart(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}
