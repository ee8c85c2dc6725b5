package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	gormlog "github.com/thomas-tacquet/gormv2-logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/workshop-app/models"
	"github.com/yeremiapane/workshop-app/utils"
)

// InitDB opens the configured database. Duplicate key errors are translated
// to gorm.ErrDuplicatedKey.
func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DBDSN)
	case "sqlite":
		if dir := filepath.Dir(cfg.DBDSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, errors.Wrapf(err, "failed to create directory for SQLite database at %s", cfg.DBDSN)
			}
		}
		dialector = sqlite.Open(cfg.DBDSN + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	default:
		return nil, errors.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(utils.InfoLogger),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", cfg.DBDriver)
	}
	return db, nil
}

func newGormLogger(base *logrus.Logger) logger.Interface {
	var ormLevel logger.LogLevel
	switch base.GetLevel() {
	case logrus.DebugLevel, logrus.TraceLevel:
		ormLevel = logger.Info
	case logrus.InfoLevel, logrus.WarnLevel:
		ormLevel = logger.Warn
	default:
		ormLevel = logger.Error
	}

	return gormlog.NewGormlog(
		gormlog.WithLogrusEntry(base.WithField("component", "gorm")),
		gormlog.WithGormOptions(gormlog.GormOptions{
			LogLatency: true,
			LogLevel:   ormLevel,
		}),
	)
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Worker{},
		&models.Counter{},
		&models.JobCard{},
		&models.JobCardImage{},
		&models.OnSiteJob{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to AutoMigrate")
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

func CloseDB(db *gorm.DB) error {
	sqldb, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get database instance from gorm")
	}
	return sqldb.Close()
}
