package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"pgconn", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"pgconn other code", &pgconn.PgError{Code: "23503"}, false},
		{"mysql", errors.New("Error 1062 (23000): Duplicate entry"), true},
		{"sqlite", errors.New("UNIQUE constraint failed: affiliates.email"), true},
		{"other", errors.New("connection refused"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}
