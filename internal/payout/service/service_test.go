package service_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	affiliatedomain "github.com/smallbiznis/affiliate/internal/affiliate/domain"
	conversiondomain "github.com/smallbiznis/affiliate/internal/conversion/domain"
	"github.com/smallbiznis/affiliate/internal/payout/domain"
	settingsdomain "github.com/smallbiznis/affiliate/internal/settings/domain"
	"github.com/smallbiznis/affiliate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func setMinPayout(t *testing.T, env *testutil.Env, v string) {
	t.Helper()
	min := money(v)
	_, err := env.Settings.Update(env.Ctx(), settingsdomain.UpdateSettingsRequest{MinPayout: &min})
	require.NoError(t, err)
}

// earning creates an active affiliate with one approved conversion worth
// commission at the default 10% rate.
func earning(t *testing.T, env *testutil.Env, email string, orderAmount string) affiliatedomain.Affiliate {
	t.Helper()
	ctx := env.Ctx()
	affiliate, err := env.Affiliates.Create(ctx, affiliatedomain.CreateAffiliateRequest{Name: "Ana Souza", Email: email})
	require.NoError(t, err)
	affiliate, err = env.Affiliates.UpdateStatus(ctx, affiliate.ID.String(), affiliatedomain.StatusActive)
	require.NoError(t, err)

	conversion, err := env.Conversions.Record(ctx, conversiondomain.RecordConversionRequest{
		AffiliateID: affiliate.ID.String(),
		OrderID:     "ORD-" + email,
		OrderAmount: money(orderAmount),
	})
	require.NoError(t, err)
	_, err = env.Conversions.Approve(ctx, conversion.ID.String())
	require.NoError(t, err)
	return affiliate
}

func TestPayoutLifecycleAgainstBalance(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()
	setMinPayout(t, env, "0")
	affiliate := earning(t, env, "ana@example.com", "200")

	_, err := env.Payouts.Create(ctx, domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("25"), Method: "PIX"})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	payout, err := env.Payouts.Create(ctx, domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("20"), Method: "pix"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, payout.Status)
	assert.Equal(t, domain.MethodPix, payout.Method)

	balance, err := env.Payouts.Balance(ctx, affiliate.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "20.00", balance.Approved.StringFixed(2))
	assert.Equal(t, "20.00", balance.Reserved.StringFixed(2))
	assert.Equal(t, "0.00", balance.Available.StringFixed(2))

	paid, err := env.Payouts.MarkPaid(ctx, payout.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	balance, err = env.Payouts.Balance(ctx, affiliate.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "0.00", balance.Reserved.StringFixed(2))
	assert.Equal(t, "20.00", balance.Paid.StringFixed(2))
	assert.Equal(t, "0.00", balance.Available.StringFixed(2))

	_, err = env.Payouts.MarkPaid(ctx, payout.ID.String())
	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
	_, err = env.Payouts.Advance(ctx, payout.ID.String())
	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
}

func TestPayoutAdvanceThenPay(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()
	setMinPayout(t, env, "0")
	affiliate := earning(t, env, "ana@example.com", "500")

	payout, err := env.Payouts.Create(ctx, domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("30"), Method: "BANK_TRANSFER"})
	require.NoError(t, err)

	processing, err := env.Payouts.Advance(ctx, payout.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, processing.Status)
	require.NotNil(t, processing.ProcessingAt)

	_, err = env.Payouts.Advance(ctx, payout.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	balance, err := env.Payouts.Balance(ctx, affiliate.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "30.00", balance.Reserved.StringFixed(2))
	assert.Equal(t, "20.00", balance.Available.StringFixed(2))

	paid, err := env.Payouts.MarkPaid(ctx, payout.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
}

func TestConcurrentPayoutsCannotOverdraw(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()
	setMinPayout(t, env, "0")
	affiliate := earning(t, env, "ana@example.com", "200")

	const attempts = 4
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Payouts.Create(ctx, domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("20"), Method: "PIX"})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	}
	assert.Equal(t, 1, succeeded)

	page, err := env.Payouts.List(ctx, domain.ListPayoutRequest{AffiliateID: affiliate.ID.String()})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalElements)
}

func TestCreatePayoutValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()
	affiliate := earning(t, env, "ana@example.com", "2000")

	cases := []struct {
		name string
		req  domain.CreatePayoutRequest
		want error
	}{
		{"bad affiliate", domain.CreatePayoutRequest{AffiliateID: "x", Amount: money("60"), Method: "PIX"}, domain.ErrInvalidAffiliate},
		{"zero amount", domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Method: "PIX"}, domain.ErrInvalidAmount},
		{"sub-cent amount", domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("0.004"), Method: "PIX"}, domain.ErrInvalidAmount},
		{"fraction of a cent", domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("60.005"), Method: "PIX"}, domain.ErrInvalidAmount},
		{"unknown method", domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("60"), Method: "CASH"}, domain.ErrInvalidMethod},
		{"below minimum", domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("49.99"), Method: "PIX"}, domain.ErrBelowMinPayout},
		{"unknown affiliate", domain.CreatePayoutRequest{AffiliateID: env.Node.Generate().String(), Amount: money("60"), Method: "PIX"}, affiliatedomain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Payouts.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	payout, err := env.Payouts.Create(ctx, domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("50"), Method: "OTHER"})
	require.NoError(t, err)
	assert.Equal(t, "50.00", payout.Amount.StringFixed(2))
}

func TestRejectedAffiliateCannotBePaid(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()
	affiliate, err := env.Affiliates.Create(ctx, affiliatedomain.CreateAffiliateRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	_, err = env.Affiliates.UpdateStatus(ctx, affiliate.ID.String(), affiliatedomain.StatusRejected)
	require.NoError(t, err)

	_, err = env.Payouts.Create(ctx, domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("60"), Method: "PIX"})
	assert.ErrorIs(t, err, domain.ErrAffiliateRejected)
}

func TestPayoutStatementIsPDF(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()
	affiliate := earning(t, env, "ana@example.com", "1000")

	payout, err := env.Payouts.Create(ctx, domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("100"), Method: "PIX"})
	require.NoError(t, err)

	statement, err := env.Payouts.Statement(ctx, payout.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", statement.ContentType)
	assert.Equal(t, "payout-"+payout.ID.String()+".pdf", statement.Filename)
	assert.True(t, bytes.HasPrefix(statement.Content, []byte("%PDF")))

	_, err = env.Payouts.Statement(ctx, env.Node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPayoutsByStatus(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()
	setMinPayout(t, env, "0")
	affiliate := earning(t, env, "ana@example.com", "1000")

	first, err := env.Payouts.Create(ctx, domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("10"), Method: "PIX"})
	require.NoError(t, err)
	_, err = env.Payouts.Create(ctx, domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("10"), Method: "PIX"})
	require.NoError(t, err)
	_, err = env.Payouts.MarkPaid(ctx, first.ID.String())
	require.NoError(t, err)

	paid, err := env.Payouts.List(ctx, domain.ListPayoutRequest{Status: "PAID"})
	require.NoError(t, err)
	require.Len(t, paid.Content, 1)
	assert.Equal(t, first.ID, paid.Content[0].ID)

	_, err = env.Payouts.List(ctx, domain.ListPayoutRequest{Status: "LOST"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestSubCentPayoutRejectedWithoutMinimum(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()
	setMinPayout(t, env, "0")
	affiliate := earning(t, env, "ana@example.com", "200")

	_, err := env.Payouts.Create(ctx, domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("0.004"), Method: "PIX"})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	page, err := env.Payouts.List(ctx, domain.ListPayoutRequest{AffiliateID: affiliate.ID.String()})
	require.NoError(t, err)
	assert.Zero(t, page.TotalElements)

	payout, err := env.Payouts.Create(ctx, domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("0.01"), Method: "PIX"})
	require.NoError(t, err)
	assert.Equal(t, "0.01", payout.Amount.StringFixed(2))
}

func TestMinPayoutReadsCurrentSettings(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := env.Ctx()
	affiliate := earning(t, env, "ana@example.com", "200")

	_, err := env.Payouts.Create(ctx, domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("10"), Method: "PIX"})
	require.ErrorIs(t, err, domain.ErrBelowMinPayout)

	setMinPayout(t, env, "5")
	_, err = env.Payouts.Create(ctx, domain.CreatePayoutRequest{AffiliateID: affiliate.ID.String(), Amount: money("10"), Method: "PIX"})
	require.NoError(t, err)
}
