package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationResetOverrunSnapshots = "2026-07-14_reset_overrun_snapshots"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationResetOverrunSnapshots, apply: resetOverrunSnapshots},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// resetOverrunSnapshots clears snapshot cursors that point past the highest
// stored event of their share, forcing a clean refold on the next read. Such
// rows can be left behind when a database file is restored from a backup
// taken mid-sync.
func resetOverrunSnapshots(db *gorm.DB) error {
	return db.Exec(`
		UPDATE share_snapshots
		SET last_event_id = 0, state_json = '[]'
		WHERE last_event_id > COALESCE(
			(SELECT MAX(e.event_id) FROM share_events e WHERE e.share_id = share_snapshots.share_id),
			0
		);`).Error
}
