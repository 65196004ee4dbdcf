package ports

import "context"

// SecretManager resolves named secrets (gateway credentials, the postback
// shared secret) from whichever backend the deployment uses.
type SecretManager interface {
	GetSecret(ctx context.Context, name string) (string, error)
}
