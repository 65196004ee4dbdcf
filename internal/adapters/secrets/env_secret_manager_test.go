package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnvSecretManager(t *testing.T) {
	t.Setenv("SECRET_PAYSTATION_POSTBACK_SECRET", "s3cret")

	manager := NewEnvSecretManager("SECRET", zap.NewNop())

	value, err := manager.GetSecret(context.Background(), "paystation/postback-secret")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", value)
}

func TestEnvSecretManagerMissing(t *testing.T) {
	manager := NewEnvSecretManager("SECRET", zap.NewNop())

	_, err := manager.GetSecret(context.Background(), "paystation/nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_PAYSTATION_NONEXISTENT")
}

func TestEnvSecretManagerNoPrefix(t *testing.T) {
	t.Setenv("API_KEY", "k")

	manager := NewEnvSecretManager("", zap.NewNop())

	value, err := manager.GetSecret(context.Background(), "api.key")
	require.NoError(t, err)
	assert.Equal(t, "k", value)
}
