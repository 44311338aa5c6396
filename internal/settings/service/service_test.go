package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/affiliate/internal/audit/domain"
	"github.com/smallbiznis/affiliate/internal/settings/domain"
	"github.com/smallbiznis/affiliate/internal/settings/repository"
	"github.com/smallbiznis/affiliate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGetReturnsDefaultsUntilStored(t *testing.T) {
	env := testutil.NewEnv(t)

	settings, err := env.Settings.Get(env.Ctx())
	require.NoError(t, err)
	assert.True(t, settings.Enabled)
	assert.True(t, settings.CommissionRate.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 30, settings.CookieDays)
	assert.True(t, settings.MinPayout.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 10, settings.PayoutDay)
	assert.False(t, settings.AutoApprove)
	assert.Nil(t, settings.TermsURL)
}

func TestGetRequiresOrganization(t *testing.T) {
	env := testutil.NewEnv(t)

	_, err := env.Settings.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestUpdatePersistsAndAudits(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()

	rate := decimal.NewFromFloat(12.5)
	days := 7
	terms := "https://shop.example.com/affiliate-terms"
	autoApprove := true
	updated, err := env.Settings.Update(ctx, domain.UpdateSettingsRequest{
		CommissionRate: &rate,
		CookieDays:     &days,
		AutoApprove:    &autoApprove,
		TermsURL:       &terms,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.CookieDays)

	stored, err := env.Settings.Get(ctx)
	require.NoError(t, err)
	assert.True(t, stored.CommissionRate.Equal(rate))
	assert.Equal(t, 7, stored.CookieDays)
	assert.True(t, stored.AutoApprove)
	require.NotNil(t, stored.TermsURL)
	assert.Equal(t, terms, *stored.TermsURL)
	// untouched fields keep their defaults
	assert.Equal(t, 10, stored.PayoutDay)

	logs, err := env.Audit.List(ctx, auditdomain.ListAuditLogRequest{Action: auditdomain.ActionSettingsUpdated})
	require.NoError(t, err)
	assert.EqualValues(t, 1, logs.TotalElements)
}

func TestUpdateIsScopedToOrganization(t *testing.T) {
	env := testutil.NewEnv(t)

	days := 90
	_, err := env.Settings.Update(env.Ctx(), domain.UpdateSettingsRequest{CookieDays: &days})
	require.NoError(t, err)

	other, err := env.Settings.Get(env.CtxFor(env.Node.Generate()))
	require.NoError(t, err)
	assert.Equal(t, 30, other.CookieDays)
}

func TestUpdateValidation(t *testing.T) {
	intPtr := func(v int) *int { return &v }
	decPtr := func(v string) *decimal.Decimal {
		d := decimal.RequireFromString(v)
		return &d
	}
	strPtr := func(v string) *string { return &v }

	cases := []struct {
		name string
		req  domain.UpdateSettingsRequest
		want error
	}{
		{"rate above 100", domain.UpdateSettingsRequest{CommissionRate: decPtr("100.01")}, domain.ErrInvalidCommission},
		{"negative rate", domain.UpdateSettingsRequest{CommissionRate: decPtr("-1")}, domain.ErrInvalidCommission},
		{"zero cookie days", domain.UpdateSettingsRequest{CookieDays: intPtr(0)}, domain.ErrInvalidCookieDays},
		{"cookie days above a year", domain.UpdateSettingsRequest{CookieDays: intPtr(366)}, domain.ErrInvalidCookieDays},
		{"negative min payout", domain.UpdateSettingsRequest{MinPayout: decPtr("-0.01")}, domain.ErrInvalidMinPayout},
		{"payout day 29", domain.UpdateSettingsRequest{PayoutDay: intPtr(29)}, domain.ErrInvalidPayoutDay},
		{"relative terms url", domain.UpdateSettingsRequest{TermsURL: strPtr("/terms")}, domain.ErrInvalidTermsURL},
	}

	env := testutil.NewEnv(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Settings.Update(env.Ctx(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	settings, err := env.Settings.Get(env.Ctx())
	require.NoError(t, err)
	assert.Equal(t, 30, settings.CookieDays)
}

func TestUpdateAcceptsBoundaries(t *testing.T) {
	env := testutil.NewEnv(t)

	zero := decimal.Zero
	hundred := decimal.NewFromInt(100)
	one, year, lastDay := 1, 365, 28
	_, err := env.Settings.Update(env.Ctx(), domain.UpdateSettingsRequest{
		CommissionRate: &hundred,
		CookieDays:     &year,
		MinPayout:      &zero,
		PayoutDay:      &lastDay,
	})
	require.NoError(t, err)

	_, err = env.Settings.Update(env.Ctx(), domain.UpdateSettingsRequest{
		CommissionRate: &zero,
		CookieDays:     &one,
		PayoutDay:      &one,
	})
	require.NoError(t, err)
}

func TestGetTxSeesUncommittedSettings(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()
	repo := repository.Provide()
	rollback := errors.New("rollback")

	err := env.DB.Transaction(func(tx *gorm.DB) error {
		current, err := env.Settings.GetTx(ctx, tx)
		require.NoError(t, err)
		current.MinPayout = decimal.NewFromInt(5)
		require.NoError(t, repo.Upsert(ctx, tx, &current))

		seen, err := env.Settings.GetTx(ctx, tx)
		require.NoError(t, err)
		assert.True(t, seen.MinPayout.Equal(decimal.NewFromInt(5)), "min payout %s", seen.MinPayout)
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	after, err := env.Settings.Get(ctx)
	require.NoError(t, err)
	assert.True(t, after.MinPayout.Equal(decimal.NewFromInt(50)))
}
