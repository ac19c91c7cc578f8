package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/costing"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CostingFile mirrors the `costing` section of costing.yml. Numbers are read as
// strings so they reach decimal.Decimal without a float detour.
type CostingFile struct {
	CMV struct {
		ExcellentMax string `mapstructure:"excellentMax"`
		GoodMax      string `mapstructure:"goodMax"`
		Target       string `mapstructure:"target"`
	} `mapstructure:"cmv"`
	InactivePolicy string `mapstructure:"inactivePolicy"`
	Units          []struct {
		Symbol    string `mapstructure:"symbol"`
		Label     string `mapstructure:"label"`
		Dimension string `mapstructure:"dimension"`
		Factor    string `mapstructure:"factor"`
	} `mapstructure:"units"`
}

// Costing is the validated, ready-to-use costing configuration.
type Costing struct {
	Thresholds     costing.Thresholds
	TargetCMV      decimal.Decimal
	InactivePolicy costing.InactivePolicy
	Units          *costing.UnitTable
}

// Calculator builds a costing calculator for the current settings.
func (c Costing) Calculator() *costing.Calculator {
	return costing.NewCalculator(
		costing.WithUnits(c.Units),
		costing.WithThresholds(c.Thresholds),
		costing.WithInactivePolicy(c.InactivePolicy),
	)
}

func DefaultCosting() Costing {
	return Costing{
		Thresholds:     costing.DefaultThresholds(),
		TargetCMV:      decimal.NewFromInt(30),
		InactivePolicy: costing.InactiveWarn,
		Units:          costing.DefaultUnitTable(),
	}
}

type CostingConfigHolder struct {
	current atomic.Value // holds Costing
}

// NewStaticCostingHolder returns a holder that never reloads.
func NewStaticCostingHolder(c Costing) *CostingConfigHolder {
	h := &CostingConfigHolder{}
	h.current.Store(c)
	return h
}

func NewCostingConfigHolder(log *zap.Logger) (*CostingConfigHolder, error) {
	v := viper.New()

	if path := strings.TrimSpace(os.Getenv("RECIPECOST_CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("costing")
		v.SetConfigType("yml")
		v.AddConfigPath("/var/lib/recipecost/config")
		v.AddConfigPath("/etc/recipecost")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RECIPECOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCosting()
	v.SetDefault("costing.cmv.excellentMax", defaults.Thresholds.ExcellentMax.String())
	v.SetDefault("costing.cmv.goodMax", defaults.Thresholds.GoodMax.String())
	v.SetDefault("costing.cmv.target", defaults.TargetCMV.String())
	v.SetDefault("costing.inactivePolicy", string(defaults.InactivePolicy))

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := loadCosting(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticCostingHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := loadCosting(v)
		if err != nil {
			log.Warn("costing config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("costing config reloaded",
			zap.String("file", e.Name),
			zap.String("excellent_max", updated.Thresholds.ExcellentMax.String()),
			zap.String("good_max", updated.Thresholds.GoodMax.String()),
		)
	})

	return holder, nil
}

func (h *CostingConfigHolder) Get() Costing {
	return h.current.Load().(Costing)
}

func loadCosting(v *viper.Viper) (Costing, error) {
	var file CostingFile
	if err := v.UnmarshalKey("costing", &file); err != nil {
		return Costing{}, err
	}
	// UnmarshalKey only sees the nested map, so scalar leaves are read one by
	// one for RECIPECOST_* overrides to apply.
	file.CMV.ExcellentMax = v.GetString("costing.cmv.excellentMax")
	file.CMV.GoodMax = v.GetString("costing.cmv.goodMax")
	file.CMV.Target = v.GetString("costing.cmv.target")
	file.InactivePolicy = v.GetString("costing.inactivePolicy")
	return BuildCosting(file)
}

// BuildCosting validates a decoded costing section.
func BuildCosting(file CostingFile) (Costing, error) {
	out := DefaultCosting()

	var err error
	if out.Thresholds.ExcellentMax, err = parseDecimal("cmv.excellentMax", file.CMV.ExcellentMax, out.Thresholds.ExcellentMax); err != nil {
		return Costing{}, err
	}
	if out.Thresholds.GoodMax, err = parseDecimal("cmv.goodMax", file.CMV.GoodMax, out.Thresholds.GoodMax); err != nil {
		return Costing{}, err
	}
	if out.TargetCMV, err = parseDecimal("cmv.target", file.CMV.Target, out.TargetCMV); err != nil {
		return Costing{}, err
	}
	if err := out.Thresholds.Validate(); err != nil {
		return Costing{}, err
	}
	if !out.TargetCMV.IsPositive() || out.TargetCMV.GreaterThan(decimal.NewFromInt(100)) {
		return Costing{}, fmt.Errorf("costing.cmv.target must be within (0, 100], got %s", out.TargetCMV)
	}

	if policy := strings.ToLower(strings.TrimSpace(file.InactivePolicy)); policy != "" {
		out.InactivePolicy = costing.InactivePolicy(policy)
		if !out.InactivePolicy.Valid() {
			return Costing{}, fmt.Errorf("costing.inactivePolicy %q is not one of warn, reject", policy)
		}
	}

	if len(file.Units) > 0 {
		extra := make([]costing.Unit, 0, len(file.Units))
		for _, u := range file.Units {
			factor, err := decimal.NewFromString(strings.TrimSpace(u.Factor))
			if err != nil {
				return Costing{}, fmt.Errorf("costing.units %q factor: %w", u.Symbol, err)
			}
			extra = append(extra, costing.Unit{
				Symbol:    u.Symbol,
				Label:     u.Label,
				Dimension: costing.Dimension(strings.ToLower(strings.TrimSpace(u.Dimension))),
				Factor:    factor,
			})
		}
		table, err := out.Units.With(extra...)
		if err != nil {
			return Costing{}, err
		}
		out.Units = table
	}

	return out, nil
}

func parseDecimal(key, raw string, def decimal.Decimal) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("costing.%s: %w", key, err)
	}
	return d, nil
}
