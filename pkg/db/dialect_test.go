package db

import (
	"testing"

	"github.com/smallbiznis/affiliate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	base := config.Config{
		AppName:    "affiliate",
		DBHost:     "db",
		DBPort:     "5432",
		DBName:     "affiliate",
		DBUser:     "app",
		DBPassword: "s3cret",
		DBSSLMode:  "disable",
	}

	cases := []struct {
		name       string
		dbType     string
		password   string
		dbName     string
		wantDriver string
		wantDSN    string
	}{
		{"postgres", "postgres", "s3cret", "affiliate", "postgres",
			"host=db port=5432 user=app password=s3cret dbname=affiliate sslmode=disable application_name=affiliate TimeZone=UTC"},
		{"postgres mixed case", " Postgres ", "s3cret", "affiliate", "postgres",
			"host=db port=5432 user=app password=s3cret dbname=affiliate sslmode=disable application_name=affiliate TimeZone=UTC"},
		{"postgres quoted password", "postgresql", "it's a pass", "affiliate", "postgres",
			`host=db port=5432 user=app password='it\'s a pass' dbname=affiliate sslmode=disable application_name=affiliate TimeZone=UTC`},
		{"mysql", "mysql", "s3cret", "affiliate", "mysql",
			"app:s3cret@tcp(db:5432)/affiliate?charset=utf8mb4&parseTime=True&loc=UTC"},
		{"sqlite file", "sqlite", "", "local.db", "sqlite", "local.db"},
		{"sqlite default", "sqlite", "", "", "sqlite", "affiliate.db"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.DBType = tc.dbType
			cfg.DBPassword = tc.password
			cfg.DBName = tc.dbName

			driver, dsn, err := DSN(cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.wantDriver, driver)
			assert.Equal(t, tc.wantDSN, dsn)
		})
	}
}

func TestDSNRejectsUnknownType(t *testing.T) {
	_, _, err := DSN(config.Config{DBType: "oracle"})
	assert.ErrorContains(t, err, "oracle")

	_, err = Dialect(config.Config{DBType: ""})
	assert.Error(t, err)
}
