package idmint

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/scy"
	_ "github.com/viant/scy/kms/blowfish"
)

// LoadOperator decrypts the operator identity stored at URL with key.
func LoadOperator(ctx context.Context, URL, key string) (string, error) {
	resource := scy.NewResource(nil, URL, key)
	secret, err := scy.New().Load(ctx, resource)
	if err != nil {
		return "", fmt.Errorf("failed to load operator secret from %s: %w", URL, err)
	}
	operator := strings.TrimSpace(secret.String())
	if operator == "" {
		return "", fmt.Errorf("operator secret %s is empty", URL)
	}
	return operator, nil
}

// StoreOperator encrypts operator with key and stores it at URL.
func StoreOperator(ctx context.Context, URL, key, operator string) error {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return fmt.Errorf("operator is required")
	}
	resource := scy.NewResource(nil, URL, key)
	if err := scy.New().Store(ctx, scy.NewSecret(operator, resource)); err != nil {
		return fmt.Errorf("failed to store operator secret at %s: %w", URL, err)
	}
	return nil
}
