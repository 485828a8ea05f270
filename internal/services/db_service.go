package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DBService handles database connection and lifecycle management
type DBService interface {
	GetDB() *gorm.DB
	Close() error
}

type dbService struct {
	db *gorm.DB
}

func newGormLogger() logger.Interface {
	// Only log errors and slow queries
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      false,
			Colorful:                  false,
		},
	)
}

// NewSqliteDBService creates a new DBService backed by SQLite.
// Pass ":memory:" for an in-memory database.
func NewSqliteDBService(dbPath string) (DBService, error) {
	inMemory := dbPath == ":memory:"
	if !inMemory {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// every pooled connection to ":memory:" would otherwise get its own empty database
	if inMemory {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return newDBService(db)
}

// NewPostgresDBService creates a new DBService backed by PostgreSQL
func NewPostgresDBService(dsn string) (DBService, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres url is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newDBService(db)
}

func newDBService(db *gorm.DB) (DBService, error) {
	service := &dbService{db: db}
	if err := service.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return service, nil
}

// GetDB returns the underlying GORM database instance
func (s *dbService) GetDB() *gorm.DB {
	return s.db
}

// migrate runs database migrations
func (s *dbService) migrate() error {
	return s.db.AutoMigrate(
		&models.Chain{},
		&models.UniversalDeployment{},
		&models.SpokeDeployment{},
		&models.VerificationRequest{},
	)
}

// Close closes the database connection
func (s *dbService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
