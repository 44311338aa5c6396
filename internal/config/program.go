package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ProgramDefaults are the process-wide program settings used for an org
// that has not stored its own settings yet.
type ProgramDefaults struct {
	Enabled        bool            `mapstructure:"enabled"`
	CommissionRate decimal.Decimal `mapstructure:"commissionRate"`
	CookieDays     int             `mapstructure:"cookieDays"`
	MinPayout      decimal.Decimal `mapstructure:"minPayout"`
	PayoutDay      int             `mapstructure:"payoutDay"`
	AutoApprove    bool            `mapstructure:"autoApprove"`
	TermsURL       string          `mapstructure:"termsUrl"`
}

func DefaultProgramDefaults() ProgramDefaults {
	return ProgramDefaults{
		Enabled:        true,
		CommissionRate: decimal.NewFromInt(10),
		CookieDays:     30,
		MinPayout:      decimal.NewFromInt(50),
		PayoutDay:      10,
		AutoApprove:    false,
	}
}

type ProgramDefaultsHolder struct {
	current atomic.Value // holds ProgramDefaults
}

// NewStaticProgramDefaultsHolder returns a holder that never reloads.
func NewStaticProgramDefaultsHolder(d ProgramDefaults) *ProgramDefaultsHolder {
	holder := &ProgramDefaultsHolder{}
	holder.current.Store(d)
	return holder
}

func NewProgramDefaultsHolder(cfg Config, log *zap.Logger) (*ProgramDefaultsHolder, error) {
	log = log.Named("program-config")
	v := viper.New()

	if cfg.ProgramConfigPath != "" {
		v.SetConfigFile(cfg.ProgramConfigPath)
	} else {
		v.SetConfigName("program")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/affiliate")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("AFFILIATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultProgramDefaults()
	v.SetDefault("program.enabled", defaults.Enabled)
	v.SetDefault("program.commissionRate", defaults.CommissionRate.String())
	v.SetDefault("program.cookieDays", defaults.CookieDays)
	v.SetDefault("program.minPayout", defaults.MinPayout.String())
	v.SetDefault("program.payoutDay", defaults.PayoutDay)
	v.SetDefault("program.autoApprove", defaults.AutoApprove)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	current, err := decodeProgramDefaults(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticProgramDefaultsHolder(current)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeProgramDefaults(v)
		if err != nil {
			log.Warn("program defaults reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("program defaults reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *ProgramDefaultsHolder) Get() ProgramDefaults {
	return h.current.Load().(ProgramDefaults)
}

func decodeProgramDefaults(v *viper.Viper) (ProgramDefaults, error) {
	rate, err := decimal.NewFromString(v.GetString("program.commissionRate"))
	if err != nil {
		return ProgramDefaults{}, errors.New("program.commissionRate must be a number")
	}
	minPayout, err := decimal.NewFromString(v.GetString("program.minPayout"))
	if err != nil {
		return ProgramDefaults{}, errors.New("program.minPayout must be a number")
	}

	d := ProgramDefaults{
		Enabled:        v.GetBool("program.enabled"),
		CommissionRate: rate,
		CookieDays:     v.GetInt("program.cookieDays"),
		MinPayout:      minPayout,
		PayoutDay:      v.GetInt("program.payoutDay"),
		AutoApprove:    v.GetBool("program.autoApprove"),
		TermsURL:       strings.TrimSpace(v.GetString("program.termsUrl")),
	}
	if err := validateProgramDefaults(d); err != nil {
		return ProgramDefaults{}, err
	}
	return d, nil
}

func validateProgramDefaults(d ProgramDefaults) error {
	if d.CommissionRate.IsNegative() || d.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("program.commissionRate must be between 0 and 100")
	}
	if d.CookieDays < 1 || d.CookieDays > 365 {
		return errors.New("program.cookieDays must be between 1 and 365")
	}
	if d.MinPayout.IsNegative() {
		return errors.New("program.minPayout cannot be negative")
	}
	if d.PayoutDay < 1 || d.PayoutDay > 28 {
		return errors.New("program.payoutDay must be between 1 and 28")
	}
	return nil
}
