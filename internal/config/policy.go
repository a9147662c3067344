package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	gstdomain "github.com/smallbiznis/gstengine/internal/gst/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// GSTPolicy carries the tax-law constants that change by notification rather
// than by code: the Union-Territory list, the composition ratio, rounding and zones.
type GSTPolicy struct {
	UnionTerritories []string                         `mapstructure:"unionTerritories"`
	CompositionRatio float64                          `mapstructure:"compositionRatio"`
	RoundingScale    int32                            `mapstructure:"roundingScale"`
	Strategy         gstdomain.RateResolutionStrategy `mapstructure:"strategy"`
	Zones            map[string][]string              `mapstructure:"zones"`
}

// PolicyProvider returns the policy snapshot in force right now.
type PolicyProvider interface {
	Get() GSTPolicy
}

// StaticPolicy is a fixed PolicyProvider.
type StaticPolicy GSTPolicy

func (p StaticPolicy) Get() GSTPolicy { return GSTPolicy(p) }

func DefaultGSTPolicy() GSTPolicy {
	return GSTPolicy{
		UnionTerritories: []string{"AN", "CH", "DN", "DD", "DL", "JK", "LA", "LD", "PY"},
		CompositionRatio: 0.6,
		RoundingScale:    4,
		Strategy:         gstdomain.StrategyHalfSplit,
		Zones: map[string][]string{
			"NORTH":           {"HR", "HP", "JK", "LA", "PB", "RJ", "UP", "UK", "DL", "CH"},
			"SOUTH":           {"AP", "KA", "KL", "TN", "TS", "PY", "LD"},
			"EAST":            {"BR", "JH", "OD", "WB", "AN"},
			"WEST":            {"GA", "GJ", "MH", "DN", "DD"},
			"NORTH_EAST":      {"AR", "AS", "MN", "ML", "MZ", "NL", "SK", "TR"},
			"CENTRAL":         {"CG", "MP"},
			"UNION_TERRITORY": {"AN", "CH", "DN", "DD", "DL", "JK", "LA", "LD", "PY"},
		},
	}
}

// CompositionRatioDecimal returns the composition ratio as an exact decimal.
func (p GSTPolicy) CompositionRatioDecimal() decimal.Decimal {
	return decimal.NewFromFloat(p.CompositionRatio)
}

// IsUnionTerritory reports whether stateCode is in the Union-Territory list.
func (p GSTPolicy) IsUnionTerritory(stateCode string) bool {
	code := strings.ToUpper(strings.TrimSpace(stateCode))
	if code == "" {
		return false
	}
	for _, ut := range p.UnionTerritories {
		if strings.EqualFold(ut, code) {
			return true
		}
	}
	return false
}

type PolicyHolder struct {
	current atomic.Value // holds GSTPolicy
}

// NewPolicyHolder loads gst.yml from the standard search paths. A missing file
// means defaults; a present but invalid file is a startup error.
func NewPolicyHolder(log *zap.Logger) (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("gst")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/gstengine/config")
	v.AddConfigPath("/etc/gstengine")
	v.AddConfigPath(".")

	return newPolicyHolder(v, log, true)
}

// NewPolicyHolderFromFile loads the policy from an explicit path without watching it.
func NewPolicyHolderFromFile(path string, log *zap.Logger) (*PolicyHolder, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return newPolicyHolder(v, log, false)
}

func newPolicyHolder(v *viper.Viper, log *zap.Logger, watch bool) (*PolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("gst.policy")

	v.SetEnvPrefix("GSTENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultGSTPolicy()
	v.SetDefault("gst.unionTerritories", defaults.UnionTerritories)
	v.SetDefault("gst.compositionRatio", defaults.CompositionRatio)
	v.SetDefault("gst.roundingScale", defaults.RoundingScale)
	v.SetDefault("gst.strategy", string(defaults.Strategy))

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodePolicy(v)
	if err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(cfg)

	if watch && fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodePolicy(v)
			if err != nil {
				log.Warn("policy reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("policy reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *PolicyHolder) Get() GSTPolicy {
	return h.current.Load().(GSTPolicy)
}

// decodePolicy goes through Unmarshal rather than UnmarshalKey so defaults,
// file values and env overrides merge per leaf key.
func decodePolicy(v *viper.Viper) (GSTPolicy, error) {
	var wrapper struct {
		GST GSTPolicy `mapstructure:"gst"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return GSTPolicy{}, err
	}
	cfg := wrapper.GST
	if len(cfg.Zones) == 0 {
		cfg.Zones = DefaultGSTPolicy().Zones
	}
	cfg = normalizePolicy(cfg)
	if err := ValidatePolicy(cfg); err != nil {
		return GSTPolicy{}, err
	}
	return cfg, nil
}

// normalizePolicy upper-cases zone names and state codes; viper folds map keys to lower case.
func normalizePolicy(cfg GSTPolicy) GSTPolicy {
	uts := make([]string, 0, len(cfg.UnionTerritories))
	for _, code := range cfg.UnionTerritories {
		uts = append(uts, strings.ToUpper(strings.TrimSpace(code)))
	}
	cfg.UnionTerritories = uts

	zones := make(map[string][]string, len(cfg.Zones))
	for name, codes := range cfg.Zones {
		normalized := make([]string, 0, len(codes))
		for _, code := range codes {
			normalized = append(normalized, strings.ToUpper(strings.TrimSpace(code)))
		}
		zones[strings.ToUpper(strings.TrimSpace(name))] = normalized
	}
	cfg.Zones = zones
	cfg.Strategy = gstdomain.RateResolutionStrategy(strings.ToLower(strings.TrimSpace(string(cfg.Strategy))))
	return cfg
}

func ValidatePolicy(cfg GSTPolicy) error {
	if len(cfg.UnionTerritories) == 0 {
		return errors.New("gst.unionTerritories cannot be empty")
	}
	for _, code := range cfg.UnionTerritories {
		if len(code) != 2 {
			return fmt.Errorf("gst.unionTerritories: invalid state code %q", code)
		}
	}
	if cfg.CompositionRatio <= 0 || cfg.CompositionRatio > 1 {
		return fmt.Errorf("gst.compositionRatio must be in (0, 1], got %v", cfg.CompositionRatio)
	}
	if cfg.RoundingScale < 0 || cfg.RoundingScale > 8 {
		return fmt.Errorf("gst.roundingScale must be between 0 and 8, got %d", cfg.RoundingScale)
	}
	if !cfg.Strategy.Valid() {
		return fmt.Errorf("gst.strategy: unknown strategy %q", cfg.Strategy)
	}
	for name, codes := range cfg.Zones {
		if name == "" || name == "ALL_INDIA" {
			return fmt.Errorf("gst.zones: %q cannot carry an explicit state list", name)
		}
		if len(codes) == 0 {
			return fmt.Errorf("gst.zones.%s cannot be empty", name)
		}
	}
	return nil
}
