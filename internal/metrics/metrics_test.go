package metrics_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/metrics"
	"codeberg.org/mutker/thermalctl/internal/throttle"
	"codeberg.org/mutker/thermalctl/internal/zone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(ts time.Time, deg float64, prev, cur zone.Index) throttle.Sample {
	return throttle.Sample{
		Time:        ts,
		Temperature: zone.FromCelsius(deg),
		Previous:    prev,
		Zone:        cur,
		Active:      cur != zone.Unthrottled,
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := metrics.DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Enabled = true
	cfg.DBPath = ""
	assert.True(t, errors.HasCode(cfg.Validate(), metrics.ErrInvalidDBPath))

	cfg.DBPath = "/tmp/x.db"
	cfg.BatchSize = -1
	assert.True(t, errors.HasCode(cfg.Validate(), metrics.ErrInvalidConfig))
}

func TestDisabledServiceIsNoop(t *testing.T) {
	svc, err := metrics.NewService(metrics.DefaultConfig(), logger.New())
	require.NoError(t, err)

	svc.Observe(sample(time.Now(), 50, zone.Unthrottled, 1))
	got, err := svc.Transitions(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, svc.Close())
}

func TestServiceRecordsTransitions(t *testing.T) {
	dir := t.TempDir()
	cfg := metrics.Config{
		DBPath:    filepath.Join(dir, "metrics.db"),
		Enabled:   true,
		BatchSize: 2,
	}

	svc, err := metrics.NewService(cfg, logger.New())
	require.NoError(t, err)

	base := time.UnixMilli(1_700_000_000_000)
	svc.Observe(sample(base, 38, zone.Unthrottled, zone.Unthrottled))
	svc.Observe(sample(base.Add(time.Second), 42, zone.Unthrottled, 0))
	svc.Observe(sample(base.Add(2*time.Second), 44, 0, 0))
	svc.Observe(sample(base.Add(3*time.Second), 51, 0, 1))

	got, err := svc.Transitions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, zone.Index(1), got[0].Zone)
	assert.Equal(t, zone.Index(0), got[0].Previous)
	assert.Equal(t, zone.FromCelsius(51), got[0].Temperature)
	assert.True(t, got[0].Active)
	assert.Equal(t, base.Add(3*time.Second), got[0].Timestamp)

	assert.Equal(t, zone.Unthrottled, got[1].Previous)
	assert.Equal(t, zone.Index(0), got[1].Zone)

	got, err = svc.Transitions(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, svc.Close())
}

func TestRecordRejectsInvalidSnapshot(t *testing.T) {
	cfg := metrics.Config{
		DBPath:  filepath.Join(t.TempDir(), "metrics.db"),
		Enabled: true,
	}
	svc, err := metrics.NewService(cfg, logger.New())
	require.NoError(t, err)
	defer svc.Close()

	assert.True(t, errors.HasCode(svc.Record(context.Background(), nil), metrics.ErrInvalidMetrics))
	assert.True(t, errors.HasCode(svc.Record(context.Background(), &metrics.Snapshot{Zone: 16}), metrics.ErrInvalidMetrics))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = svc.Record(ctx, metrics.FromSample(sample(time.Now(), 40, zone.Unthrottled, 0)))
	assert.True(t, errors.HasCode(err, metrics.ErrOperationTimeout))
}

func TestRepositoryFlushesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.db")
	repo, err := metrics.NewRepository(metrics.Config{DBPath: path, BatchSize: 100, BatchTimeout: 60}, logger.New())
	require.NoError(t, err)

	require.NoError(t, repo.Record(metrics.FromSample(sample(time.UnixMilli(1000), 40, zone.Unthrottled, 0))))
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	repo, err = metrics.NewRepository(metrics.Config{DBPath: path, BatchSize: 1}, logger.New())
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.Recent(context.Background(), 10, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, zone.Index(0), got[0].Zone)
}

func TestSchemaResetCreatesBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.db")
	backups := filepath.Join(dir, "old")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`
        CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
        INSERT INTO schema_versions VALUES (99, datetime('now'));`)
	require.NoError(t, err)

	version, err := metrics.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 99, version)
	require.NoError(t, db.Close())

	repo, err := metrics.NewRepository(metrics.Config{DBPath: path, BackupDir: backups}, logger.New())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	entries, err := os.ReadDir(backups)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "metrics_v99_")

	db, err = sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	version, err = metrics.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, metrics.SchemaVersion, version)

	exists, err := metrics.TableExists(db, "samples")
	require.NoError(t, err)
	assert.True(t, exists)
}
