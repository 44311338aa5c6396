package attribution_test

import (
	"testing"
	"time"

	affiliatedomain "github.com/smallbiznis/affiliate/internal/affiliate/domain"
	linkdomain "github.com/smallbiznis/affiliate/internal/link/domain"
	settingsdomain "github.com/smallbiznis/affiliate/internal/settings/domain"
	"github.com/smallbiznis/affiliate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clickFixture(t *testing.T, env *testutil.Env) (affiliatedomain.Affiliate, linkdomain.ClickResult) {
	t.Helper()
	ctx := env.Ctx()
	affiliate, err := env.Affiliates.Create(ctx, affiliatedomain.CreateAffiliateRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	affiliate, err = env.Affiliates.UpdateStatus(ctx, affiliate.ID.String(), affiliatedomain.StatusActive)
	require.NoError(t, err)

	slug := "promo-verao"
	_, err = env.Links.CreateLink(ctx, linkdomain.CreateLinkRequest{
		AffiliateID:    affiliate.ID.String(),
		Slug:           &slug,
		DestinationURL: "https://shop.example.com",
	})
	require.NoError(t, err)

	click, err := env.Links.ResolveClick(ctx, slug, linkdomain.Visitor{IP: "203.0.113.9"})
	require.NoError(t, err)
	return affiliate, click
}

func TestResolveWithinWindow(t *testing.T) {
	env := testutil.NewEnv(t)
	affiliate, click := clickFixture(t, env)

	got, ok, err := env.Attribution.Resolve(env.Ctx(), click.Token, env.Clock.Now().Add(30*24*time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, affiliate.ID, got.AffiliateID)
	assert.Equal(t, click.Link.ID, got.LinkID)
}

func TestResolveAfterWindowIsNotAttributed(t *testing.T) {
	env := testutil.NewEnv(t)
	_, click := clickFixture(t, env)

	_, ok, err := env.Attribution.Resolve(env.Ctx(), click.Token, env.Clock.Now().Add(31*24*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveUsesCurrentCookieWindow(t *testing.T) {
	env := testutil.NewEnv(t)
	_, click := clickFixture(t, env)

	days := 7
	_, err := env.Settings.Update(env.Ctx(), settingsdomain.UpdateSettingsRequest{CookieDays: &days})
	require.NoError(t, err)

	_, ok, err := env.Attribution.Resolve(env.Ctx(), click.Token, env.Clock.Now().Add(8*24*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveRejectsOrdersBeforeTheClick(t *testing.T) {
	env := testutil.NewEnv(t)
	_, click := clickFixture(t, env)

	_, ok, err := env.Attribution.Resolve(env.Ctx(), click.Token, env.Clock.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveIgnoresForeignAndGarbageTokens(t *testing.T) {
	env := testutil.NewEnv(t)
	_, click := clickFixture(t, env)
	at := env.Clock.Now().Add(time.Hour)

	_, ok, err := env.Attribution.Resolve(env.CtxFor(env.Node.Generate()), click.Token, at)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = env.Attribution.Resolve(env.Ctx(), "garbage", at)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = env.Attribution.Resolve(env.Ctx(), "", at)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveRequiresActiveAffiliateAndProgram(t *testing.T) {
	env := testutil.NewEnv(t)
	affiliate, click := clickFixture(t, env)
	at := env.Clock.Now().Add(time.Hour)

	_, err := env.Affiliates.UpdateStatus(env.Ctx(), affiliate.ID.String(), affiliatedomain.StatusSuspended)
	require.NoError(t, err)
	_, ok, err := env.Attribution.Resolve(env.Ctx(), click.Token, at)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = env.Affiliates.UpdateStatus(env.Ctx(), affiliate.ID.String(), affiliatedomain.StatusActive)
	require.NoError(t, err)
	disabled := false
	_, err = env.Settings.Update(env.Ctx(), settingsdomain.UpdateSettingsRequest{Enabled: &disabled})
	require.NoError(t, err)
	_, ok, err = env.Attribution.Resolve(env.Ctx(), click.Token, at)
	require.NoError(t, err)
	assert.False(t, ok)
}
