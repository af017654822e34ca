package observability

import (
	"errors"
	"fmt"
)

// Config параметры OpenTelemetry для storefront и notification
type Config struct {
	Enabled               bool
	OTLPEndpoint          string  // host:port OTLP gRPC collector
	SamplingRatio         float64 // 0..1, вне диапазона считается 1
	ServiceName           string
	DeploymentEnvironment string // local / docker
	ServiceVersion        string
}

const defaultServiceVersion = "dev"

func (c Config) validate() error {
	if c.ServiceName == "" {
		return errors.New("observability: service name is required")
	}
	if c.Enabled && c.OTLPEndpoint == "" {
		return fmt.Errorf("observability: otlp endpoint is required for %s", c.ServiceName)
	}
	return nil
}

// withDefaults нормализует ratio и версию
func (c Config) withDefaults() Config {
	if c.SamplingRatio <= 0 || c.SamplingRatio > 1 {
		c.SamplingRatio = 1
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = defaultServiceVersion
	}
	return c
}
