package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Paystation/paystation-gravity-forms/internal/domain/ports"
	"go.uber.org/zap"
)

// envSecretManager resolves secrets from environment variables. Intended for
// development and simple deployments; use the AWS or Vault backends when the
// postback secret must live outside the process environment.
type envSecretManager struct {
	prefix string
	logger *zap.Logger
}

// NewEnvSecretManager creates a secret manager that maps a secret name like
// "paystation/postback-secret" to an environment variable like
// "PAYSTATION_POSTBACK_SECRET" (with the given prefix prepended).
func NewEnvSecretManager(prefix string, logger *zap.Logger) ports.SecretManager {
	return &envSecretManager{
		prefix: prefix,
		logger: logger,
	}
}

func (m *envSecretManager) GetSecret(ctx context.Context, name string) (string, error) {
	envKey := m.envKey(name)

	value, ok := os.LookupEnv(envKey)
	if !ok || value == "" {
		return "", fmt.Errorf("secret not found: %s (env %s)", name, envKey)
	}

	m.logger.Debug("secret resolved from environment",
		zap.String("name", name),
		zap.String("env_key", envKey),
	)
	return value, nil
}

func (m *envSecretManager) envKey(name string) string {
	key := strings.ToUpper(name)
	replacer := strings.NewReplacer("/", "_", "-", "_", ".", "_")
	key = replacer.Replace(key)
	if m.prefix != "" {
		key = m.prefix + "_" + key
	}
	return key
}
