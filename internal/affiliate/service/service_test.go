package service_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/affiliate/internal/audit/domain"
	"github.com/smallbiznis/affiliate/internal/affiliate/domain"
	"github.com/smallbiznis/affiliate/internal/config"
	"github.com/smallbiznis/affiliate/internal/testutil"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func TestCreateDefaultsFromProgramSettings(t *testing.T) {
	env := testutil.NewEnv(t)

	affiliate, err := env.Affiliates.Create(env.Ctx(), domain.CreateAffiliateRequest{
		Name:  "Ana Souza",
		Email: "  Ana@Example.com ",
	})
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", affiliate.Email)
	assert.Equal(t, "ANASOUZA", affiliate.ReferralCode)
	assert.Equal(t, domain.StatusPending, affiliate.Status)
	require.True(t, affiliate.CommissionRate.Valid)
	assert.True(t, affiliate.CommissionRate.Decimal.Equal(decimal.NewFromInt(10)))
	assert.Zero(t, affiliate.TotalClicks)
	assert.True(t, affiliate.TotalRevenue.IsZero())

	logs, err := env.Audit.List(env.Ctx(), auditdomain.ListAuditLogRequest{
		TargetType: "affiliate",
		TargetID:   affiliate.ID.String(),
	})
	require.NoError(t, err)
	require.Len(t, logs.Content, 1)
	assert.Equal(t, auditdomain.ActionAffiliateCreated, logs.Content[0].Action)
}

func TestCreateAutoApprove(t *testing.T) {
	defaults := config.DefaultProgramDefaults()
	defaults.AutoApprove = true
	env := testutil.NewEnv(t, testutil.WithDefaults(defaults))

	affiliate, err := env.Affiliates.Create(env.Ctx(), domain.CreateAffiliateRequest{Name: "Bia", Email: "bia@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, affiliate.Status)
}

func TestCreateValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	rate := decimal.NewFromInt(101)

	cases := []struct {
		name string
		req  domain.CreateAffiliateRequest
		want error
	}{
		{"missing name", domain.CreateAffiliateRequest{Email: "a@example.com"}, domain.ErrInvalidName},
		{"missing email", domain.CreateAffiliateRequest{Name: "A"}, domain.ErrInvalidEmail},
		{"malformed email", domain.CreateAffiliateRequest{Name: "A", Email: "not-an-email"}, domain.ErrInvalidEmail},
		{"email without domain dot", domain.CreateAffiliateRequest{Name: "A", Email: "a@localhost"}, domain.ErrInvalidEmail},
		{"bad referral code", domain.CreateAffiliateRequest{Name: "A", Email: "a@example.com", ReferralCode: strPtr("x")}, domain.ErrInvalidReferralCode},
		{"rate above 100", domain.CreateAffiliateRequest{Name: "A", Email: "a@example.com", CommissionRate: &rate}, domain.ErrInvalidCommission},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Affiliates.Create(env.Ctx(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateRejectsDuplicates(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()

	_, err := env.Affiliates.Create(ctx, domain.CreateAffiliateRequest{
		Name: "Ana", Email: "ana@example.com", ReferralCode: strPtr("promo10"),
	})
	require.NoError(t, err)

	_, err = env.Affiliates.Create(ctx, domain.CreateAffiliateRequest{Name: "Other", Email: "ANA@example.com"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = env.Affiliates.Create(ctx, domain.CreateAffiliateRequest{
		Name: "Other", Email: "other@example.com", ReferralCode: strPtr("PROMO10"),
	})
	assert.ErrorIs(t, err, domain.ErrReferralCodeTaken)

	// the same email is free in another org
	_, err = env.Affiliates.Create(env.CtxFor(env.Node.Generate()), domain.CreateAffiliateRequest{Name: "Ana", Email: "ana@example.com"})
	assert.NoError(t, err)
}

func TestCreateDerivesUniqueReferralCode(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()

	first, err := env.Affiliates.Create(ctx, domain.CreateAffiliateRequest{Name: "Ana Souza", Email: "a1@example.com"})
	require.NoError(t, err)
	second, err := env.Affiliates.Create(ctx, domain.CreateAffiliateRequest{Name: "Ana Souza", Email: "a2@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "ANASOUZA", first.ReferralCode)
	assert.NotEqual(t, first.ReferralCode, second.ReferralCode)
	assert.Regexp(t, `^ANASOUZA-[A-Z2-9]{4}$`, second.ReferralCode)
}

func TestUpdateStatusFollowsTransitionTable(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()

	affiliate, err := env.Affiliates.Create(ctx, domain.CreateAffiliateRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	id := affiliate.ID.String()

	_, err = env.Affiliates.UpdateStatus(ctx, id, domain.StatusSuspended)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	active, err := env.Affiliates.UpdateStatus(ctx, id, domain.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, active.Status)

	_, err = env.Affiliates.UpdateStatus(ctx, id, domain.StatusActive)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	suspended, err := env.Affiliates.UpdateStatus(ctx, id, domain.StatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuspended, suspended.Status)

	_, err = env.Affiliates.UpdateStatus(ctx, id, "UNKNOWN")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	logs, err := env.Audit.List(ctx, auditdomain.ListAuditLogRequest{Action: auditdomain.ActionAffiliateStatusChanged})
	require.NoError(t, err)
	assert.EqualValues(t, 2, logs.TotalElements)
}

func TestRejectedIsTerminal(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()

	affiliate, err := env.Affiliates.Create(ctx, domain.CreateAffiliateRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	_, err = env.Affiliates.UpdateStatus(ctx, affiliate.ID.String(), domain.StatusRejected)
	require.NoError(t, err)

	for _, next := range []domain.Status{domain.StatusActive, domain.StatusPending, domain.StatusSuspended} {
		_, err = env.Affiliates.UpdateStatus(ctx, affiliate.ID.String(), next)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	}
}

func TestUpdateFields(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()

	affiliate, err := env.Affiliates.Create(ctx, domain.CreateAffiliateRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)

	rate := decimal.NewFromInt(15)
	updated, err := env.Affiliates.Update(ctx, affiliate.ID.String(), domain.UpdateAffiliateRequest{
		Name:           strPtr("Ana Clara"),
		PixKey:         strPtr("ana@pix.example"),
		CommissionRate: &rate,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Clara", updated.Name)
	assert.True(t, updated.CommissionRate.Decimal.Equal(rate))
	assert.Equal(t, affiliate.ReferralCode, updated.ReferralCode)
	assert.Equal(t, affiliate.Email, updated.Email)

	got, err := env.Affiliates.Get(ctx, affiliate.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Ana Clara", got.Name)
	require.NotNil(t, got.PixKey)

	_, err = env.Affiliates.Update(ctx, affiliate.ID.String(), domain.UpdateAffiliateRequest{Name: strPtr("  ")})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestGetUnknownAndForeignAffiliate(t *testing.T) {
	env := testutil.NewEnv(t)

	affiliate, err := env.Affiliates.Create(env.Ctx(), domain.CreateAffiliateRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)

	_, err = env.Affiliates.Get(env.CtxFor(env.Node.Generate()), affiliate.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.Affiliates.Get(env.Ctx(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestListFiltersAndPaginates(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()

	for i, name := range []string{"Ana", "Bruno", "Carla"} {
		_, err := env.Affiliates.Create(ctx, domain.CreateAffiliateRequest{
			Name:  name,
			Email: string(rune('a'+i)) + "@example.com",
		})
		require.NoError(t, err)
		env.Clock.Advance(time.Second)
	}
	bruno, err := env.Affiliates.List(ctx, domain.ListAffiliateRequest{Search: "brun"})
	require.NoError(t, err)
	require.Len(t, bruno.Content, 1)
	_, err = env.Affiliates.UpdateStatus(ctx, bruno.Content[0].ID.String(), domain.StatusActive)
	require.NoError(t, err)

	page, err := env.Affiliates.List(ctx, domain.ListAffiliateRequest{Pagination: pagination.Pagination{Page: 0, Size: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Content, 2)
	assert.EqualValues(t, 3, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.First)
	assert.False(t, page.Last)
	assert.Equal(t, "Carla", page.Content[0].Name)

	active, err := env.Affiliates.List(ctx, domain.ListAffiliateRequest{Status: "active"})
	require.NoError(t, err)
	require.Len(t, active.Content, 1)
	assert.Equal(t, "Bruno", active.Content[0].Name)

	_, err = env.Affiliates.List(ctx, domain.ListAffiliateRequest{Status: "gone"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
