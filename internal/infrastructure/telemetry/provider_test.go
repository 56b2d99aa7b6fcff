package telemetry

import (
	"context"
	"testing"

	"github.com/gdugdh24/swipematch/internal/config"
	"github.com/stretchr/testify/require"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), &config.TelemetryConfig{ServiceName: "swipematch"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
