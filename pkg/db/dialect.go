package db

import (
	"fmt"
	"net"
	"strings"

	"github.com/smallbiznis/affiliate/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultSQLiteFile = "affiliate.db"

// Dialect picks the gorm dialector for DATABASE_TYPE.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	driver, dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

// DSN returns the normalised driver name and its connection string.
func DSN(cfg config.Config) (string, string, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.DBType))
	switch driver {
	case "mysql":
		return driver, fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser,
			cfg.DBPassword,
			net.JoinHostPort(cfg.DBHost, cfg.DBPort),
			cfg.DBName,
		), nil
	case "postgres", "postgresql":
		pairs := [][2]string{
			{"host", cfg.DBHost},
			{"port", cfg.DBPort},
			{"user", cfg.DBUser},
			{"password", cfg.DBPassword},
			{"dbname", cfg.DBName},
			{"sslmode", cfg.DBSSLMode},
			{"application_name", cfg.AppName},
			{"TimeZone", "UTC"},
		}
		parts := make([]string, 0, len(pairs))
		for _, kv := range pairs {
			if kv[1] == "" {
				continue
			}
			parts = append(parts, kv[0]+"="+quotePG(kv[1]))
		}
		return "postgres", strings.Join(parts, " "), nil
	case "sqlite":
		name := strings.TrimSpace(cfg.DBName)
		if name == "" {
			name = defaultSQLiteFile
		}
		return driver, name, nil
	default:
		return "", "", fmt.Errorf("unsupported database type %q", cfg.DBType)
	}
}

// quotePG quotes a libpq keyword value containing a space, quote or backslash.
func quotePG(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
