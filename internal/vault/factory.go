package vault

import (
	"context"
	"fmt"

	"cemetery-go/internal/cemetery"
	"cemetery-go/internal/config"
)

// NewVaultFromConfig creates a Vault implementation based on the archive config type.
func NewVaultFromConfig(ctx context.Context, cfg config.ArchiveConfig) (cemetery.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "s3":
		v, err := NewS3Vault(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem archive requires fs_root to be set")
		}
		v, err := NewFileSystemVault(cfg.Name, cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}

// NewVaultsFromConfig creates every configured archive.
func NewVaultsFromConfig(ctx context.Context, cfgs []config.ArchiveConfig) ([]cemetery.Vault, error) {
	vaults := make([]cemetery.Vault, 0, len(cfgs))
	for _, cfg := range cfgs {
		v, err := NewVaultFromConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("archive %q: %w", cfg.Name, err)
		}
		vaults = append(vaults, v)
	}
	return vaults, nil
}
