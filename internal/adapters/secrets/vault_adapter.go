package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/Paystation/paystation-gravity-forms/internal/domain/ports"
	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// VaultConfig configures the HashiCorp Vault KV backend.
type VaultConfig struct {
	// Address is the Vault server address.
	Address string

	// Token authenticates the client. Token auth only; this service reads a
	// handful of static secrets at startup and on cache expiry.
	Token string

	// MountPath is the KV secrets engine mount, default "secret".
	MountPath string

	// KVVersion is "v1" or "v2", default "v2".
	KVVersion string

	CacheTTL    time.Duration
	EnableCache bool
}

// DefaultVaultConfig returns the standard configuration for an address.
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:     address,
		MountPath:   "secret",
		KVVersion:   "v2",
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

type vaultSecretManager struct {
	client    *vault.Client
	mountPath string
	kvVersion string
	logger    *zap.Logger
	cache     *secretCache
}

// NewVaultSecretManager creates a read-only secret manager backed by a Vault
// KV engine. Secrets are expected to carry their value under the "value" key.
func NewVaultSecretManager(cfg *VaultConfig, logger *zap.Logger) (ports.SecretManager, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("vault token is required")
	}
	client.SetToken(cfg.Token)

	logger.Info("Vault backend initialized",
		zap.String("address", cfg.Address),
		zap.String("mount_path", cfg.MountPath),
		zap.String("kv_version", cfg.KVVersion),
	)

	return &vaultSecretManager{
		client:    client,
		mountPath: cfg.MountPath,
		kvVersion: cfg.KVVersion,
		logger:    logger,
		cache:     newSecretCache(cfg.CacheTTL, cfg.EnableCache),
	}, nil
}

func (m *vaultSecretManager) GetSecret(ctx context.Context, name string) (string, error) {
	if cached, ok := m.cache.get(name); ok {
		return cached, nil
	}

	fullPath := fmt.Sprintf("%s/%s", m.mountPath, name)
	if m.kvVersion == "v2" {
		fullPath = fmt.Sprintf("%s/data/%s", m.mountPath, name)
	}

	secret, err := m.client.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		m.logger.Error("failed to read secret from Vault",
			zap.String("name", name),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to read secret from Vault: %w", err)
	}
	if secret == nil {
		return "", fmt.Errorf("secret not found: %s", name)
	}

	data := secret.Data
	if m.kvVersion == "v2" {
		inner, ok := secret.Data["data"].(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("invalid secret format from Vault for %s", name)
		}
		data = inner
	}

	value, ok := data["value"].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("secret %s has no value", name)
	}

	m.cache.set(name, value)
	return value, nil
}
