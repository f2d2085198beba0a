// Package storage is the durable side of the dual-write discipline: every
// check result is appended to SQLite (GORM + glebarez driver) before the
// in-memory cache is updated. The database keeps all results until retention
// pruning removes entries older than the configured window, independent of
// the in-memory history cap.
package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/RainbowCandyX/sserver-status/internal/models"
)

// checkRecord is the durable schema for one check result. Timestamps are
// stored as ISO-8601 UTC strings so the (server_id, timestamp DESC) index
// orders correctly under string comparison.
type checkRecord struct {
	ID           uint   `gorm:"primaryKey"`
	ServerID     string `gorm:"not null;index:idx_results_server_time,priority:1"`
	Timestamp    string `gorm:"not null;index:idx_results_server_time,priority:2,sort:desc"`
	TCPReachable bool   `gorm:"not null"`
	TCPLatencyMs *float64
	TCPError     *string
	SSSuccess    *bool
	SSLatencyMs  *float64
	SSError      *string
}

func (checkRecord) TableName() string { return "check_results" }

// Storage wraps a single serialized database handle. SQLite does not support
// concurrent writers, so all operations go through one mutex; this bottleneck
// is scoped to persistence and never touches the hot read path.
type Storage struct {
	mu sync.Mutex
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path and migrates the schema.
func Open(path string) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.AutoMigrate(&checkRecord{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return &Storage{db: db}, nil
}

// Insert durably appends one check result. Failures are returned for the
// caller to log; by design they never abort the caller's flow.
func (s *Storage) Insert(result models.CheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := toRecord(result)
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("inserting check result: %w", err)
	}
	return nil
}

// LoadHistory returns up to limit most-recent results for a server,
// newest-first. Used at startup to warm the in-memory cache.
func (s *Storage) LoadHistory(id uuid.UUID, limit int) ([]models.CheckResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recs []checkRecord
	err := s.db.
		Where("server_id = ?", id.String()).
		Order("timestamp desc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	out := make([]models.CheckResult, 0, len(recs))
	for i := range recs {
		out = append(out, fromRecord(&recs[i]))
	}
	return out, nil
}

// PruneOlderThan deletes records older than now minus days and returns the
// number deleted. Idempotent: a second run with no new records deletes zero.
func (s *Storage) PruneOlderThan(days int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	res := s.db.Where("timestamp < ?", cutoff).Delete(&checkRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning old results: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func toRecord(r models.CheckResult) checkRecord {
	rec := checkRecord{
		ServerID:     r.ServerID.String(),
		Timestamp:    r.Timestamp.UTC().Format(time.RFC3339),
		TCPReachable: r.TCP.Reachable,
		TCPLatencyMs: r.TCP.LatencyMs,
		TCPError:     r.TCP.Error,
	}
	if r.Protocol != nil {
		success := r.Protocol.Success
		rec.SSSuccess = &success
		rec.SSLatencyMs = r.Protocol.LatencyMs
		rec.SSError = r.Protocol.Error
	}
	return rec
}

func fromRecord(rec *checkRecord) models.CheckResult {
	id, _ := uuid.Parse(rec.ServerID)
	ts, err := time.Parse(time.RFC3339, rec.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}
	out := models.CheckResult{
		ServerID:  id,
		Timestamp: ts,
		TCP: models.TCPResult{
			Reachable: rec.TCPReachable,
			LatencyMs: rec.TCPLatencyMs,
			Error:     rec.TCPError,
		},
	}
	if rec.SSSuccess != nil {
		out.Protocol = &models.ProtocolResult{
			Success:   *rec.SSSuccess,
			LatencyMs: rec.SSLatencyMs,
			Error:     rec.SSError,
		}
	}
	return out
}
