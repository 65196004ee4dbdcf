package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/Paystation/paystation-gravity-forms/internal/domain/ports"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"
)

// AWSConfig configures the AWS Secrets Manager backend.
type AWSConfig struct {
	// Region is the AWS region, e.g. "ap-southeast-2".
	Region string

	// Profile selects a shared-config profile for local development. Empty
	// uses the default credentials chain (IAM role in production).
	Profile string

	// Endpoint overrides the service endpoint, for LocalStack.
	Endpoint string

	CacheTTL    time.Duration
	EnableCache bool
}

// DefaultAWSConfig returns the standard configuration for a region.
func DefaultAWSConfig(region string) *AWSConfig {
	return &AWSConfig{
		Region:      region,
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

type awsSecretManager struct {
	client *secretsmanager.Client
	logger *zap.Logger
	cache  *secretCache
}

// NewAWSSecretManager creates a read-only secret manager backed by AWS
// Secrets Manager.
func NewAWSSecretManager(ctx context.Context, cfg *AWSConfig, logger *zap.Logger) (ports.SecretManager, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := []func(*secretsmanager.Options){}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Info("AWS Secrets Manager backend initialized",
		zap.String("region", cfg.Region),
		zap.Bool("cache_enabled", cfg.EnableCache),
	)

	return &awsSecretManager{
		client: secretsmanager.NewFromConfig(awsCfg, clientOpts...),
		logger: logger,
		cache:  newSecretCache(cfg.CacheTTL, cfg.EnableCache),
	}, nil
}

func (m *awsSecretManager) GetSecret(ctx context.Context, name string) (string, error) {
	if cached, ok := m.cache.get(name); ok {
		return cached, nil
	}

	start := time.Now()
	result, err := m.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		m.logger.Error("failed to retrieve secret",
			zap.String("name", name),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}

	m.logger.Debug("secret retrieved",
		zap.String("name", name),
		zap.Duration("elapsed", time.Since(start)),
	)

	value := aws.ToString(result.SecretString)
	m.cache.set(name, value)
	return value, nil
}
