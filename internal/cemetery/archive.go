package cemetery

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// sealedSuffix marks archived documents that were encrypted before upload.
const sealedSuffix = ".age"

// Archiver copies the registry documents to one or more vaults and back.
type Archiver struct {
	store     Store
	vaults    []Vault
	encryptor Encryptor // nil uploads plaintext
	hostID    string
	logger    Logger
}

// NewArchiver creates an Archiver. Documents are encrypted unless
// encryptor is nil.
func NewArchiver(store Store, vaults []Vault, encryptor Encryptor, hostID string, logger Logger) *Archiver {
	return &Archiver{store: store, vaults: vaults, encryptor: encryptor, hostID: hostID, logger: logger}
}

// Push uploads every existing registry document to every vault, tagged
// with version. Returns the number of documents uploaded per vault.
// With an encryptor whose keys are not set up yet, nothing is uploaded.
func (a *Archiver) Push(version int64) (int, error) {
	if len(a.vaults) == 0 {
		return 0, nil
	}
	sealing := a.encryptor != nil
	if sealing && !a.encryptor.IsConfigured() {
		return 0, fmt.Errorf("archive encryption keys are not set up")
	}

	pushed := 0
	for _, name := range RegistryDocuments {
		data, ok, err := readDocument(a.store, name)
		if err != nil {
			return pushed, err
		}
		if !ok {
			continue
		}

		archivedName := name
		if sealing {
			var sealed bytes.Buffer
			if err := a.encryptor.Encrypt(bytes.NewReader(data), &sealed); err != nil {
				return pushed, fmt.Errorf("encrypting %s: %w", name, err)
			}
			data = sealed.Bytes()
			archivedName = name + sealedSuffix
		}

		for _, v := range a.vaults {
			if err := v.PutDocument(a.hostID, archivedName, bytes.NewReader(data), int64(len(data)), version); err != nil {
				return pushed, fmt.Errorf("uploading %s to vault %s: %w", archivedName, v.Name(), err)
			}
		}
		pushed++
	}

	a.logger.Info("registry archived", "documents", pushed, "vaults", len(a.vaults), "version", version)
	return pushed, nil
}

// LatestVersion returns the highest document version held by any vault.
func (a *Archiver) LatestVersion() (int64, error) {
	var latest int64
	for _, v := range a.vaults {
		for _, name := range RegistryDocuments {
			for _, archivedName := range []string{name, name + sealedSuffix} {
				version, err := v.DocumentVersion(a.hostID, archivedName)
				if err != nil {
					return 0, fmt.Errorf("reading version of %s from vault %s: %w", archivedName, v.Name(), err)
				}
				latest = max(latest, version)
			}
		}
	}
	return latest, nil
}

// NeedsUnlock reports whether the first vault holds sealed documents.
func (a *Archiver) NeedsUnlock() (bool, error) {
	if len(a.vaults) == 0 {
		return false, nil
	}
	for _, name := range RegistryDocuments {
		version, err := a.vaults[0].DocumentVersion(a.hostID, name+sealedSuffix)
		if err != nil {
			return false, err
		}
		if version > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Pull restores the registry documents from the first vault. Sealed
// documents need dec; pass nil when none are sealed. Each document is
// checked to be valid JSON before it replaces the local copy.
func (a *Archiver) Pull(dec DecryptionContext) (int, error) {
	if len(a.vaults) == 0 {
		return 0, fmt.Errorf("no vaults configured")
	}
	v := a.vaults[0]

	pulled := 0
	for _, name := range RegistryDocuments {
		data, found, err := a.fetch(v, name, dec)
		if err != nil {
			return pulled, err
		}
		if !found {
			continue
		}
		if !json.Valid(data) {
			return pulled, fmt.Errorf("%w: archived %s is not valid JSON", ErrParse, name)
		}
		if err := a.store.Write(name, data); err != nil {
			return pulled, &StorageError{Op: "write", Document: name, Err: err}
		}
		pulled++
	}

	a.logger.Info("registry restored", "documents", pulled, "vault", v.Name())
	return pulled, nil
}

func (a *Archiver) fetch(v Vault, name string, dec DecryptionContext) ([]byte, bool, error) {
	sealedVersion, err := v.DocumentVersion(a.hostID, name+sealedSuffix)
	if err != nil {
		return nil, false, fmt.Errorf("reading version of %s: %w", name, err)
	}
	if sealedVersion > 0 {
		if dec == nil {
			return nil, false, fmt.Errorf("archived %s is encrypted; unlock required", name)
		}
		var sealed, plain bytes.Buffer
		if err := v.GetDocument(a.hostID, name+sealedSuffix, &sealed); err != nil {
			return nil, false, fmt.Errorf("downloading %s: %w", name, err)
		}
		if err := dec.Decrypt(&sealed, &plain); err != nil {
			return nil, false, fmt.Errorf("decrypting %s: %w", name, err)
		}
		return plain.Bytes(), true, nil
	}

	version, err := v.DocumentVersion(a.hostID, name)
	if err != nil {
		return nil, false, fmt.Errorf("reading version of %s: %w", name, err)
	}
	if version == 0 {
		return nil, false, nil
	}
	var buf bytes.Buffer
	if err := v.GetDocument(a.hostID, name, &buf); err != nil {
		return nil, false, fmt.Errorf("downloading %s: %w", name, err)
	}
	return buf.Bytes(), true, nil
}
