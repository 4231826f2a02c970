// Package store persists users, sharing sessions, transactions and the
// platform earnings aggregate in a relational database through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"datashare/internal/config"
	apperrors "datashare/internal/errors"
	"datashare/internal/models"
)

// SQLiteAmountDigits is the number of significant digits of a decimal amount
// that survive SQLite's NUMERIC affinity
const SQLiteAmountDigits = 15

// Store is the account store, session registry and ledger
type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// Open connects to the configured database
func Open(cfg config.DatabaseConfig, logger *logrus.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.URL)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.URL)
	default:
		return nil, &apperrors.ConfigError{Section: "database", Message: fmt.Sprintf("unsupported driver %q", cfg.Driver)}
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logger),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}

	// SQLite allows a single writer
	if cfg.Driver == config.DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		logger.Warnf("SQLite stores amounts as REAL with %d significant digits; use postgres outside development", SQLiteAmountDigits)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	logger.Infof("Connected to %s database", cfg.Driver)
	return New(db, logger), nil
}

// New wraps an existing gorm handle
func New(db *gorm.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Migrate creates the schema and the singleton earnings row
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.SharingSession{},
		&models.Transaction{},
		&models.AdminEarnings{},
	)
	if err != nil {
		return &apperrors.PersistenceError{Operation: "migrate", Err: err}
	}

	return s.EnsureAdminEarnings(ctx)
}

// EnsureAdminEarnings creates the aggregate row if it does not exist yet
func (s *Store) EnsureAdminEarnings(ctx context.Context) error {
	earnings := models.AdminEarnings{
		ID:          models.AdminEarningsID,
		LastUpdated: time.Now().UTC(),
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&earnings)
	if result.Error != nil {
		return &apperrors.PersistenceError{Operation: "ensure admin earnings", Err: result.Error}
	}

	if result.RowsAffected > 0 {
		s.logger.Info("Initialized platform earnings aggregate")
	}
	return nil
}

// WithTx runs fn inside a database transaction; any error rolls back every
// write fn made
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, logger: s.logger})
	})
}

// DB returns the underlying gorm handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// query returns a context-bound handle, row-locked for update when lock is set
func (s *Store) query(ctx context.Context, lock bool) *gorm.DB {
	q := s.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// wrapError converts gorm errors into the application taxonomy
func wrapError(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &apperrors.NotFoundError{Resource: resource, ID: id}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &apperrors.ConflictError{Resource: resource, Message: "already exists"}
	}
	return &apperrors.PersistenceError{Operation: operation, Err: err}
}

// gormLogger forwards gorm's SQL logging to logrus
type gormLogger struct {
	logger *logrus.Logger
	level  gormlogger.LogLevel
}

func newGormLogger(logger *logrus.Logger) gormlogger.Interface {
	level := gormlogger.Warn
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		level = gormlogger.Info
	}
	return &gormLogger{logger: logger, level: level}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{logger: l.logger, level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.logger.Infof(msg, args...)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.logger.Warnf(msg, args...)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.logger.Errorf(msg, args...)
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	sql, rows := fc()
	entry := l.logger.WithFields(logrus.Fields{
		"elapsed": time.Since(begin).String(),
		"rows":    rows,
	})

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		entry.WithError(err).Errorf("SQL failed: %s", sql)
	case l.level >= gormlogger.Info:
		entry.Debugf("SQL: %s", sql)
	}
}
