package observability

import (
	"strings"

	"github.com/smallbiznis/sitebuilder/internal/config"
	"github.com/smallbiznis/sitebuilder/internal/observability/logger"
	"github.com/smallbiznis/sitebuilder/internal/observability/metrics"
	"github.com/smallbiznis/sitebuilder/internal/observability/tracing"
)

const defaultServiceName = "sitebuilder"

// Config is the observability view of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	tel := cfg.Telemetry
	return Config{
		ServiceName:          firstNonEmpty(cfg.AppName, defaultServiceName),
		Environment:          firstNonEmpty(tel.DeploymentEnv, cfg.Environment),
		Version:              firstNonEmpty(tel.ServiceVersion, cfg.AppVersion),
		LogLevel:             firstNonEmpty(tel.LogLevel, "info"),
		LogFormat:            firstNonEmpty(tel.LogFormat, "json"),
		OtelEnabled:          tel.OtelEnabled,
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: firstNonEmpty(tel.OtelProtocol, "grpc"),
		OtelSamplingRatio:    tel.SamplingRatio,
	}
}

// Debug enables verbose logs and stack traces for debug level or any non-production environment.
func (c Config) Debug() bool {
	if strings.EqualFold(c.LogLevel, "debug") {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Logger adds caller info always and stack traces in debug mode.
func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		Debug:               c.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.OtelEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OtelExporterEndpoint,
		ExporterProtocol: c.OtelExporterProtocol,
		SamplingRatio:    c.OtelSamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.OtelEnabled,
		ExporterEndpoint: c.OtelExporterEndpoint,
		ExporterProtocol: c.OtelExporterProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
