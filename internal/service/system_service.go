package service

import (
	"database/sql"
	"fmt"

	"github.com/ndewijer/portfolio-valuation/internal/database"
	"github.com/ndewijer/portfolio-valuation/internal/model"
	"github.com/ndewijer/portfolio-valuation/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{
		db: db,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// CheckVersion reports the application version and the applied schema version.
// Migrations run at startup, so a pending migration is only reported when the
// schema is behind the embedded migrations.
func (s *SystemService) CheckVersion() (model.VersionInfo, error) {
	dbVersion, err := database.SchemaVersion(s.db)
	if err != nil {
		return model.VersionInfo{}, fmt.Errorf("failed to read schema version: %w", err)
	}

	latest, err := database.LatestMigration()
	if err != nil {
		return model.VersionInfo{}, err
	}

	info := model.VersionInfo{
		AppVersion: version.Version,
		DbVersion:  fmt.Sprintf("%d", dbVersion),
		Features: map[string]bool{
			"indexed_valuation":  true,
			"history_benchmarks": true,
			"rebalancing":        true,
		},
		MigrationNeeded: dbVersion < latest,
	}
	if info.MigrationNeeded {
		msg := fmt.Sprintf("database schema %d is behind %d; restart the server or run portfolioctl migrate", dbVersion, latest)
		info.MigrationMessage = &msg
	}
	return info, nil
}
