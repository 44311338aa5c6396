package attribution

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	affiliatedomain "github.com/smallbiznis/affiliate/internal/affiliate/domain"
	"github.com/smallbiznis/affiliate/internal/config"
	"github.com/smallbiznis/affiliate/internal/orgcontext"
	settingsdomain "github.com/smallbiznis/affiliate/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("attribution",
	fx.Provide(NewSignerFromConfig),
	fx.Provide(New),
)

func NewSignerFromConfig(cfg config.Config) (*Signer, error) {
	return NewSigner(cfg.Attribution.Secret)
}

// Attribution identifies the affiliate and link credited for an order.
type Attribution struct {
	AffiliateID snowflake.ID
	LinkID      snowflake.ID
	IssuedAt    time.Time
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Signer     *Signer
	Settings   settingsdomain.Service
	Affiliates affiliatedomain.Repository
}

type Engine struct {
	db         *gorm.DB
	log        *zap.Logger
	signer     *Signer
	settings   settingsdomain.Service
	affiliates affiliatedomain.Repository
}

func New(p Params) *Engine {
	return &Engine{
		db:         p.DB,
		log:        p.Log.Named("attribution.engine"),
		signer:     p.Signer,
		settings:   p.Settings,
		affiliates: p.Affiliates,
	}
}

func (e *Engine) Issue(orgID, affiliateID, linkID snowflake.ID, issuedAt time.Time, window time.Duration) (string, time.Time, error) {
	expiresAt := issuedAt.Add(window)
	token, err := e.signer.Issue(Token{
		OrgID:       orgID,
		AffiliateID: affiliateID,
		LinkID:      linkID,
		IssuedAt:    issuedAt,
		ExpiresAt:   expiresAt,
	})
	return token, expiresAt, err
}

// Resolve returns the attribution carried by rawToken for an order placed at
// orderAt. ok is false when the token is missing, malformed, foreign to the
// org, outside the cookie window, or when the program or affiliate is not
// active. Only infrastructure failures are returned as errors.
func (e *Engine) Resolve(ctx context.Context, rawToken string, orderAt time.Time) (Attribution, bool, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return Attribution{}, false, nil
	}
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return Attribution{}, false, err
	}

	token, err := e.signer.Parse(rawToken)
	if err != nil {
		e.log.Debug("attribution token rejected", zap.Error(err))
		return Attribution{}, false, nil
	}
	if token.OrgID != orgID {
		return Attribution{}, false, nil
	}

	settings, err := e.settings.Get(ctx)
	if err != nil {
		return Attribution{}, false, err
	}
	if !settings.Enabled {
		return Attribution{}, false, nil
	}
	age := orderAt.Sub(token.IssuedAt)
	if age < 0 || age > settings.CookieWindow() {
		return Attribution{}, false, nil
	}

	affiliate, err := e.affiliates.FindByID(ctx, e.db, orgID, token.AffiliateID)
	if err != nil {
		return Attribution{}, false, err
	}
	if affiliate == nil || affiliate.Status != affiliatedomain.StatusActive {
		return Attribution{}, false, nil
	}

	return Attribution{
		AffiliateID: token.AffiliateID,
		LinkID:      token.LinkID,
		IssuedAt:    token.IssuedAt,
	}, true, nil
}
