package testutil

import (
	"cemetery-go/internal/cemetery"
	"cemetery-go/internal/vault"
)

// NewTestVault creates a new in-memory archive vault for testing.
func NewTestVault(name string) cemetery.Vault {
	if name == "" {
		name = "test-vault"
	}
	return vault.NewMemoryVault(name)
}
