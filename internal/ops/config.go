// Package ops loads and validates the runtime configuration. All
// validation is fatal at startup; nothing downstream re-checks.
package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"main/internal/engine"
	"main/internal/model"
	"main/internal/risk"
	"main/internal/schema"
	"main/pkg/conn"
)

// FileConfig mirrors the JSON config layout. Prices are decimal
// strings parsed at the configured scale; credentials and the database
// password are never in the file, only the env var names are.
type FileConfig struct {
	Strategy  StrategyConfig  `json:"strategy"`
	Risk      RiskConfig      `json:"risk"`
	Venue     VenueConfig     `json:"venue"`
	Journal   JournalConfig   `json:"journal"`
	Profiling ProfilingConfig `json:"profiling"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// StrategyConfig describes the traded instrument and wave parameters.
type StrategyConfig struct {
	Policy     string `json:"policy"` // gapwave (default) or optionsell
	Symbol     string `json:"symbol"`
	Underlying string `json:"underlying"`
	Class      string `json:"class"` // FUT, CE or PE

	BuyGap  string `json:"buyGap"`
	SellGap string `json:"sellGap"`
	Qty     int64  `json:"qty"`
	LotSize int64  `json:"lotSize"`

	CoolOffSeconds        int `json:"coolOffSeconds"`
	ReconcileSeconds      int `json:"reconcileSeconds"`
	DeferredMaxAgeSeconds int `json:"deferredMaxAgeSeconds"`

	GapScale []float64 `json:"gapScale"`
}

// RiskConfig describes the delta bounds and option pricing inputs.
type RiskConfig struct {
	MinDelta         float64 `json:"minDelta"`
	MaxDelta         float64 `json:"maxDelta"`
	ExpiryWindowDays int     `json:"expiryWindowDays"`
	RiskFreeRate     float64 `json:"riskFreeRate"`
	Volatility       float64 `json:"volatility"`
	MinPremium       string  `json:"minPremium"`
	PriceScale       int     `json:"priceScale"`
	QtyScale         int     `json:"qtyScale"`
}

// VenueConfig names the execution venue and the env vars holding
// credentials. Kite is the only execution venue; the Fyers socket is an
// optional secondary order-update feed.
type VenueConfig struct {
	Name           string `json:"name"` // kite
	APIKeyEnv      string `json:"apiKeyEnv"`
	AccessTokenEnv string `json:"accessTokenEnv"`
	FyersTokenEnv  string `json:"fyersTokenEnv"`
}

// JournalConfig describes the trade-history database.
type JournalConfig struct {
	Enabled     bool   `json:"enabled"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	User        string `json:"user"`
	Database    string `json:"database"`
	PasswordEnv string `json:"passwordEnv"`
}

// ProfilingConfig enables continuous profiling.
type ProfilingConfig struct {
	Enabled       bool   `json:"enabled"`
	ServerAddress string `json:"serverAddress"`
	AppName       string `json:"appName"`
}

// MetricsConfig configures the metrics listener.
type MetricsConfig struct {
	Listen string `json:"listen"`
}

// VenueSpec is the resolved venue selection with credentials.
type VenueSpec struct {
	Name        string
	APIKey      string
	AccessToken string
	FyersToken  string
}

// JournalSpec is the resolved journal connection.
type JournalSpec struct {
	Enabled bool
	Option  conn.Option
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Engine     engine.Config
	Policy     engine.Policy
	Risk       risk.Config
	Venue      VenueSpec
	Journal    JournalSpec
	Profiling  ProfilingConfig
	Metrics    MetricsConfig
	PriceScale int
	QtyScale   int
}

// Load reads a JSON config file and resolves it. Any invalid field is
// an error; the caller is expected to treat it as fatal.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}

	riskCfg, err := resolveRisk(cfg.Risk)
	if err != nil {
		return Loaded{}, err
	}
	engineCfg, policy, err := resolveStrategy(cfg.Strategy, cfg.Risk.PriceScale)
	if err != nil {
		return Loaded{}, err
	}
	venueSpec, err := resolveVenue(cfg.Venue)
	if err != nil {
		return Loaded{}, err
	}
	journalSpec, err := resolveJournal(cfg.Journal)
	if err != nil {
		return Loaded{}, err
	}

	metrics := cfg.Metrics
	if metrics.Listen == "" {
		metrics.Listen = ":9100"
	}

	return Loaded{
		Engine:     engineCfg,
		Policy:     policy,
		Risk:       riskCfg,
		Venue:      venueSpec,
		Journal:    journalSpec,
		Profiling:  cfg.Profiling,
		Metrics:    metrics,
		PriceScale: cfg.Risk.PriceScale,
		QtyScale:   cfg.Risk.QtyScale,
	}, nil
}

func resolveStrategy(cfg StrategyConfig, priceScale int) (engine.Config, engine.Policy, error) {
	var zero engine.Config

	if cfg.Symbol == "" {
		return zero, nil, fmt.Errorf("strategy symbol is empty")
	}
	if cfg.Underlying == "" {
		return zero, nil, fmt.Errorf("strategy underlying is empty")
	}
	class, err := parseClass(cfg.Class)
	if err != nil {
		return zero, nil, err
	}

	policy, err := resolvePolicy(cfg.Policy)
	if err != nil {
		return zero, nil, err
	}
	if _, ok := policy.(engine.OptionSellPolicy); ok && !class.IsOption() {
		return zero, nil, fmt.Errorf("optionsell policy requires an option instrument, got %s", class)
	}

	buyGap, err := model.ParsePrice(cfg.BuyGap, priceScale)
	if err != nil {
		return zero, nil, fmt.Errorf("strategy buyGap: %w", err)
	}
	sellGap, err := model.ParsePrice(cfg.SellGap, priceScale)
	if err != nil {
		return zero, nil, fmt.Errorf("strategy sellGap: %w", err)
	}
	if buyGap <= 0 || sellGap <= 0 {
		return zero, nil, fmt.Errorf("strategy gaps must be > 0")
	}
	if cfg.Qty <= 0 {
		return zero, nil, fmt.Errorf("strategy qty must be > 0")
	}
	if cfg.LotSize <= 0 {
		return zero, nil, fmt.Errorf("strategy lotSize must be > 0")
	}
	if cfg.CoolOffSeconds < 0 {
		return zero, nil, fmt.Errorf("strategy coolOffSeconds must be >= 0")
	}
	if cfg.ReconcileSeconds <= 0 {
		return zero, nil, fmt.Errorf("strategy reconcileSeconds must be > 0")
	}
	if cfg.DeferredMaxAgeSeconds <= 0 {
		return zero, nil, fmt.Errorf("strategy deferredMaxAgeSeconds must be > 0")
	}

	// An omitted table disables scaling entirely.
	scale := engine.GapScaleTable(cfg.GapScale)
	if len(scale) > 0 {
		if err := scale.Validate(); err != nil {
			return zero, nil, fmt.Errorf("strategy gapScale: %w", err)
		}
	}

	return engine.Config{
		Symbol:          cfg.Symbol,
		Underlying:      cfg.Underlying,
		Class:           class,
		BaseBuyGap:      buyGap,
		BaseSellGap:     sellGap,
		Qty:             model.Quantity(cfg.Qty),
		LotSize:         cfg.LotSize,
		CoolOff:         time.Duration(cfg.CoolOffSeconds) * time.Second,
		ReconcilePeriod: time.Duration(cfg.ReconcileSeconds) * time.Second,
		DeferredMaxAge:  time.Duration(cfg.DeferredMaxAgeSeconds) * time.Second,
		GapScale:        scale,
	}, policy, nil
}

func resolvePolicy(name string) (engine.Policy, error) {
	switch name {
	case "", "gapwave":
		return engine.GapWavePolicy{}, nil
	case "optionsell":
		return engine.OptionSellPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown policy: %s", name)
	}
}

func parseClass(s string) (schema.InstrumentClass, error) {
	switch s {
	case "FUT":
		return schema.InstrumentFuture, nil
	case "CE":
		return schema.InstrumentCall, nil
	case "PE":
		return schema.InstrumentPut, nil
	default:
		return schema.InstrumentUnknown, fmt.Errorf("unknown instrument class: %q", s)
	}
}

func resolveRisk(cfg RiskConfig) (risk.Config, error) {
	var zero risk.Config

	if cfg.MinDelta > cfg.MaxDelta {
		return zero, fmt.Errorf("risk minDelta %v > maxDelta %v", cfg.MinDelta, cfg.MaxDelta)
	}
	if cfg.ExpiryWindowDays < 0 {
		return zero, fmt.Errorf("risk expiryWindowDays must be >= 0")
	}
	if cfg.Volatility <= 0 {
		return zero, fmt.Errorf("risk volatility must be > 0")
	}
	if cfg.PriceScale < 0 || cfg.QtyScale < 0 {
		return zero, fmt.Errorf("scale must be >= 0")
	}

	minPremium := model.Price(0)
	if cfg.MinPremium != "" {
		p, err := model.ParsePrice(cfg.MinPremium, cfg.PriceScale)
		if err != nil {
			return zero, fmt.Errorf("risk minPremium: %w", err)
		}
		if p < 0 {
			return zero, fmt.Errorf("risk minPremium must be >= 0")
		}
		minPremium = p
	}

	return risk.Config{
		MinDelta:         cfg.MinDelta,
		MaxDelta:         cfg.MaxDelta,
		ExpiryWindowDays: cfg.ExpiryWindowDays,
		RiskFreeRate:     cfg.RiskFreeRate,
		Volatility:       cfg.Volatility,
		MinPremium:       minPremium,
		PriceScale:       cfg.PriceScale,
	}, nil
}

func resolveVenue(cfg VenueConfig) (VenueSpec, error) {
	if cfg.Name != "kite" {
		return VenueSpec{}, fmt.Errorf("unsupported execution venue: %q", cfg.Name)
	}

	spec := VenueSpec{Name: cfg.Name}
	if cfg.APIKeyEnv != "" {
		spec.APIKey = os.Getenv(cfg.APIKeyEnv)
		if spec.APIKey == "" {
			return VenueSpec{}, fmt.Errorf("env %s is empty", cfg.APIKeyEnv)
		}
	}
	if cfg.AccessTokenEnv == "" {
		return VenueSpec{}, fmt.Errorf("venue accessTokenEnv is empty")
	}
	spec.AccessToken = os.Getenv(cfg.AccessTokenEnv)
	if spec.AccessToken == "" {
		return VenueSpec{}, fmt.Errorf("env %s is empty", cfg.AccessTokenEnv)
	}
	if cfg.FyersTokenEnv != "" {
		spec.FyersToken = os.Getenv(cfg.FyersTokenEnv)
		if spec.FyersToken == "" {
			return VenueSpec{}, fmt.Errorf("env %s is empty", cfg.FyersTokenEnv)
		}
	}
	return spec, nil
}

func resolveJournal(cfg JournalConfig) (JournalSpec, error) {
	if !cfg.Enabled {
		return JournalSpec{}, nil
	}
	if cfg.Database == "" {
		return JournalSpec{}, fmt.Errorf("journal database is empty")
	}
	password := ""
	if cfg.PasswordEnv != "" {
		password = os.Getenv(cfg.PasswordEnv)
		if password == "" {
			return JournalSpec{}, fmt.Errorf("env %s is empty", cfg.PasswordEnv)
		}
	}
	return JournalSpec{
		Enabled: true,
		Option: conn.Option{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: password,
			Database: cfg.Database,
		},
	}, nil
}
