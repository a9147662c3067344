package observability

import (
	"strings"

	"github.com/smallbiznis/gstengine/internal/config"
)

// Config is the slice of the application config the logger, tracer and
// meter providers need.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled   bool
	OTLPEndpoint  string
	OTLPProtocol  string
	SamplingRatio float64
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "gstengine"
	}
	ratio := cfg.OtelSamplingRatio
	if ratio < 0 || ratio > 1 {
		ratio = 0.1
	}
	return Config{
		ServiceName:   name,
		Environment:   strings.TrimSpace(cfg.Environment),
		Version:       strings.TrimSpace(cfg.AppVersion),
		LogLevel:      cfg.LogLevel,
		LogFormat:     cfg.LogFormat,
		OtelEnabled:   cfg.OtelEnabled,
		OTLPEndpoint:  cfg.OTLPEndpoint,
		OTLPProtocol:  cfg.OTLPProtocol,
		SamplingRatio: ratio,
	}
}

// Verbose is true for debug logging and for non-production environments,
// where stack traces on errors are worth their noise.
func (c Config) Verbose() bool {
	if strings.EqualFold(c.LogLevel, "debug") {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
