package testutil

import (
	"cemetery-go/internal/cemetery"
	"cemetery-go/internal/encryption"
)

// NewTestEncryptor creates a configured, non-cryptographic encryptor for
// archive tests. Its passphrase is anything but "wrong".
func NewTestEncryptor() cemetery.Encryptor {
	return encryption.NewTestEncryptor()
}
