package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	affiliatedomain "github.com/smallbiznis/affiliate/internal/affiliate/domain"
	auditdomain "github.com/smallbiznis/affiliate/internal/audit/domain"
	conversiondomain "github.com/smallbiznis/affiliate/internal/conversion/domain"
	linkdomain "github.com/smallbiznis/affiliate/internal/link/domain"
	payoutdomain "github.com/smallbiznis/affiliate/internal/payout/domain"
	settingsdomain "github.com/smallbiznis/affiliate/internal/settings/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every table owned by the service.
func Models() []any {
	return []any{
		&settingsdomain.Settings{},
		&affiliatedomain.Affiliate{},
		&linkdomain.Link{},
		&linkdomain.Click{},
		&conversiondomain.Conversion{},
		&payoutdomain.Payout{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate creates the schema from the models. Used for sqlite and mysql,
// where the embedded postgres DDL does not apply.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
