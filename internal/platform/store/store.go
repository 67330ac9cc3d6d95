// Package store persists run manifests and xva.csv rows to MySQL via
// GORM, caches run status in Redis for the HTTP progress surface, and
// ships finished report artifacts to S3, narrowed to this platform's
// three persistence needs.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/wyfcoding/ore/internal/oreerr"
)

// RunManifest is the persisted record of one run's lifecycle, keyed by
// RunID, as referenced by the GET /runs/:id HTTP surface.
type RunManifest struct {
	RunID         string `gorm:"primaryKey"`
	AsOfDate      time.Time
	PortfolioFile string
	Status        string // "running", "completed", "failed"
	StartedAt     time.Time
	CompletedAt   *time.Time
	ExitCode      int
	ErrorMessage  string
}

// XVARecord is one persisted row of the xva.csv report, one per trade or
// netting-set total (TradeID empty for a netting-set total row).
type XVARecord struct {
	ID              uint `gorm:"primaryKey;autoIncrement"`
	RunID           string
	TradeID         string
	NettingSetID    string
	CVA             float64
	DVA             float64
	FBA             float64
	FCA             float64
	MVA             float64
	COLVA           float64
	CollateralFloor float64
	AllocatedCVA    float64
	AllocatedDVA    float64
	KVACCR          float64
	KVACVA          float64
}

// Config collects the three backing stores' connection settings.
type Config struct {
	MySQLDSN     string
	RedisAddr    string
	RedisDB      int
	S3Bucket     string
	RunStatusTTL time.Duration
}

// Store wraps the GORM/MySQL manifest store, the Redis status cache, and
// an optional S3 artifact sink.
type Store struct {
	db        *gorm.DB
	redis     *redis.Client
	s3        *s3.Client
	bucket    string
	statusTTL time.Duration
}

// Open connects to MySQL and Redis and auto-migrates the manifest/XVA
// tables. The S3 client, if cfg.S3Bucket is set, is built from the
// ambient AWS config chain (env vars, shared config, IAM role).
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQLDSN), &gorm.Config{})
	if err != nil {
		return nil, oreerr.NewIO(err, "store: connecting to mysql")
	}
	if err := db.AutoMigrate(&RunManifest{}, &XVARecord{}); err != nil {
		return nil, oreerr.NewIO(err, "store: auto-migrating schema")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, oreerr.NewIO(err, "store: connecting to redis")
	}

	ttl := cfg.RunStatusTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	s := &Store{db: db, redis: rdb, bucket: cfg.S3Bucket, statusTTL: ttl}

	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, oreerr.NewIO(err, "store: loading AWS config")
		}
		s.s3 = s3.NewFromConfig(awsCfg)
	}

	return s, nil
}

// Close releases the MySQL and Redis connections.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return err
	}
	return s.redis.Close()
}

func (s *Store) statusKey(runID string) string { return "ore:run:" + runID + ":status" }

// SaveRunManifest upserts m and refreshes its status in the Redis cache.
func (s *Store) SaveRunManifest(ctx context.Context, m RunManifest) error {
	if err := s.db.WithContext(ctx).Save(&m).Error; err != nil {
		return oreerr.NewIO(err, "store: saving run manifest %q", m.RunID)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return oreerr.NewIO(err, "store: marshaling run manifest %q", m.RunID)
	}
	if err := s.redis.Set(ctx, s.statusKey(m.RunID), data, s.statusTTL).Err(); err != nil {
		return oreerr.NewIO(err, "store: caching run manifest %q", m.RunID)
	}
	return nil
}

// GetRunManifest reads the manifest from the Redis cache, falling back to
// MySQL (and repopulating the cache) on a miss.
func (s *Store) GetRunManifest(ctx context.Context, runID string) (*RunManifest, error) {
	if data, err := s.redis.Get(ctx, s.statusKey(runID)).Bytes(); err == nil {
		var m RunManifest
		if err := json.Unmarshal(data, &m); err == nil {
			return &m, nil
		}
	}

	var m RunManifest
	if err := s.db.WithContext(ctx).First(&m, "run_id = ?", runID).Error; err != nil {
		return nil, oreerr.NewIO(err, "store: loading run manifest %q", runID)
	}
	if data, err := json.Marshal(m); err == nil {
		_ = s.redis.Set(ctx, s.statusKey(runID), data, s.statusTTL).Err()
	}
	return &m, nil
}

// SaveXVARows bulk-inserts the xva.csv rows for one run.
func (s *Store) SaveXVARows(ctx context.Context, rows []XVARecord) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(rows, 500).Error; err != nil {
		return oreerr.NewIO(err, "store: saving %d xva rows", len(rows))
	}
	return nil
}

// UploadArtifact ships a finished report file (cube binary, exposure.csv,
// xva.csv) to the configured S3 bucket under key.
func (s *Store) UploadArtifact(ctx context.Context, key string, body []byte) error {
	if s.s3 == nil {
		return oreerr.NewConfig(nil, "store: no S3 bucket configured")
	}
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return oreerr.NewIO(err, "store: uploading artifact %q", key)
	}
	return nil
}
