// Package auth defines the API key lookup contract for service-to-service
// authentication.
package auth

import "context"

// APIKeyInfo is a stored, HMAC-hashed API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
}

// Repository looks up active API keys by their hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
