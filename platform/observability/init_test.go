package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ValidateAndDefaults(t *testing.T) {
	require.Error(t, Config{}.validate())
	require.Error(t, Config{ServiceName: "storefront", Enabled: true}.validate())
	require.NoError(t, Config{ServiceName: "storefront"}.validate())

	cfg := Config{ServiceName: "notification", SamplingRatio: 5}.withDefaults()
	assert.Equal(t, 1.0, cfg.SamplingRatio)
	assert.Equal(t, defaultServiceVersion, cfg.ServiceVersion)

	cfg = Config{ServiceName: "notification", SamplingRatio: 0.25, ServiceVersion: "1.2.0"}.withDefaults()
	assert.Equal(t, 0.25, cfg.SamplingRatio)
	assert.Equal(t, "1.2.0", cfg.ServiceVersion)
}

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "storefront"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = Init(context.Background(), Config{})
	assert.Error(t, err)
}
