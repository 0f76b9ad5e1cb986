package domain

import (
	"errors"

	"github.com/stellapay/stellapay/internal/config"
)

var (
	ErrProviderNotFound = errors.New("escrow_provider_not_found")
	ErrInvalidConfig    = errors.New("invalid_escrow_config")
)

// Factory builds a Client for one escrow provider.
type Factory interface {
	Provider() string
	NewClient(cfg config.EscrowConfig) (Client, error)
}
