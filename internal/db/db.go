package db

import (
	"fmt"
	"runtime"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/roamline/roamline-server/internal/config"
	"github.com/roamline/roamline-server/internal/db/models"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func MakeDB(config *config.Config) (db *gorm.DB, err error) {
	var dialector gorm.Dialector
	switch config.Persistence.Database.Driver {
	case "sqlite":
		dsn := config.Persistence.Database.Database + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
		if config.Persistence.Database.ExtraParameters != "" {
			dsn += "&" + config.Persistence.Database.ExtraParameters
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d %s",
			config.Persistence.Database.Host,
			config.Persistence.Database.Username,
			config.Persistence.Database.Password,
			config.Persistence.Database.Database,
			config.Persistence.Database.Port,
			config.Persistence.Database.ExtraParameters)
		dialector = postgres.Open(dsn)
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=True&%s",
			config.Persistence.Database.Username,
			config.Persistence.Database.Password,
			config.Persistence.Database.Host,
			config.Persistence.Database.Port,
			config.Persistence.Database.Database,
			config.Persistence.Database.ExtraParameters)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", config.Persistence.Database.Driver)
	}

	db, err = gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return db, fmt.Errorf("failed to open database: %w", err)
	}
	if config.HTTP.Tracing.OTLPEndpoint != "" {
		if err = db.Use(otelgorm.NewPlugin()); err != nil {
			return db, fmt.Errorf("failed to trace database: %w", err)
		}
	}

	err = db.AutoMigrate(
		&models.Route{},
		&models.Waypoint{},
		&models.MediaItem{},
		&models.User{},
		&models.GuestbookEntry{},
		&models.Playlist{})
	if err != nil {
		return db, fmt.Errorf("failed to migrate database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return db, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxIdleConns(runtime.GOMAXPROCS(0))
	const connsPerCPU = 10
	sqlDB.SetMaxOpenConns(runtime.GOMAXPROCS(0) * connsPerCPU)
	const maxIdleTime = 10 * time.Minute
	sqlDB.SetConnMaxIdleTime(maxIdleTime)

	return
}
