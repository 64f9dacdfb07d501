package database

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xelth-com/clamflow-labels/internal/config"
	"github.com/xelth-com/clamflow-labels/internal/logger"
	"github.com/xelth-com/clamflow-labels/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is the gorm handle plus the local server it may own.
type DB struct {
	*gorm.DB
	local *localServer
	log   *logger.Logger
}

func wantsLocalServer(cfg config.DatabaseConfig) bool {
	return cfg.Host == "localhost" && cfg.Password == ""
}

// Connect opens the configured database. A postgres config pointing at
// localhost with no password gets an embedded server.
func Connect(cfg config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Driver == "sqlite" {
		return OpenSQLite(cfg.SQLitePath, log)
	}

	var local *localServer
	if wantsLocalServer(cfg) {
		local = newLocalServer(log)
		if err := local.start(cfg.Database, cfg.Username); err != nil {
			return nil, err
		}
		cfg.Port = strconv.Itoa(local.port)
		cfg.Password = localPassword
	} else {
		log.Info("using external postgres", "host", cfg.Host, "port", cfg.Port)
	}

	gdb, err := gorm.Open(postgres.Open(postgresDSN(cfg)), gormConfig(cfg.Alter))
	if err != nil {
		local.stop()
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pool, err := gdb.DB()
	if err == nil {
		pool.SetMaxIdleConns(10)
		pool.SetMaxOpenConns(100)
		pool.SetConnMaxLifetime(time.Hour)
	}

	log.Info("database ready", "driver", "postgres", "embedded", local != nil)
	return &DB{DB: gdb, local: local, log: log}, nil
}

func postgresDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
}

// OpenSQLite opens path, which may be a file or a memory DSN.
func OpenSQLite(path string, log *logger.Logger) (*DB, error) {
	if log == nil {
		log = logger.Nop()
	}
	gdb, err := gorm.Open(sqlite.Open(path), gormConfig(true))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	log.Info("database ready", "driver", "sqlite", "path", path)
	return &DB{DB: gdb, log: log}, nil
}

func gormConfig(quiet bool) *gorm.Config {
	mode := gormlogger.Warn
	if quiet {
		mode = gormlogger.Silent
	}
	return &gorm.Config{
		Logger:  gormlogger.Default.LogMode(mode),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Close releases the pool, then the embedded server if one was started.
func (db *DB) Close() error {
	pool, err := db.DB.DB()
	if err == nil {
		err = pool.Close()
	}
	db.local.stop()
	return err
}

// Migrate creates or updates the label tables.
func (db *DB) Migrate() error {
	return db.DB.AutoMigrate(
		&models.TemplateRecord{},
		&models.PlantRecord{},
		&models.LabelRecord{},
	)
}
