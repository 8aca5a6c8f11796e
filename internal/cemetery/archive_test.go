package cemetery_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cemetery-go/internal/cemetery"
	"cemetery-go/internal/encryption"
	"cemetery-go/internal/testutil"
)

const hostID = "host-1"

func seedRegistries(t *testing.T, f *fixture) {
	t.Helper()
	require.NoError(t, f.tombstones().Upsert(tombstone("legacy", f.clock.DaysAgo(300))))
	_, err := f.alerts().Record([]*cemetery.ZombieAlert{alert("z1", "acme/legacy", false, f.clock.Now())})
	require.NoError(t, err)
}

func TestArchiver_SealedRoundTrip(t *testing.T) {
	f := newFixture(t)
	seedRegistries(t, f)
	primary, secondary := testutil.NewTestVault("primary"), testutil.NewTestVault("secondary")
	enc := testutil.NewTestEncryptor()
	archiver := cemetery.NewArchiver(f.store, []cemetery.Vault{primary, secondary}, enc, hostID, f.logger)

	pushed, err := archiver.Push(7)
	require.NoError(t, err)
	assert.Equal(t, 2, pushed, "absent asset index is skipped")

	for _, v := range []cemetery.Vault{primary, secondary} {
		version, err := v.DocumentVersion(hostID, cemetery.TombstoneRegistryDocument+".age")
		require.NoError(t, err)
		assert.Equal(t, int64(7), version, v.Name())

		plain, err := v.DocumentVersion(hostID, cemetery.TombstoneRegistryDocument)
		require.NoError(t, err)
		assert.Zero(t, plain, "no plaintext copy when sealing")
	}

	var sealed bytes.Buffer
	require.NoError(t, primary.GetDocument(hostID, cemetery.TombstoneRegistryDocument+".age", &sealed))
	assert.True(t, strings.HasPrefix(sealed.String(), "CEMSEAL"))

	latest, err := archiver.LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(7), latest)

	needs, err := archiver.NeedsUnlock()
	require.NoError(t, err)
	assert.True(t, needs)

	// Restore into an empty store on another machine.
	target := newFixture(t)
	restorer := cemetery.NewArchiver(target.store, []cemetery.Vault{primary}, enc, hostID, target.logger)

	_, err = restorer.Pull(nil)
	assert.Error(t, err, "sealed documents need a decryption context")

	dec, err := enc.Unlock("passphrase")
	require.NoError(t, err)
	pulled, err := restorer.Pull(dec)
	require.NoError(t, err)
	assert.Equal(t, 2, pulled)

	want, err := f.store.Read(cemetery.TombstoneRegistryDocument)
	require.NoError(t, err)
	got, err := target.store.Read(cemetery.TombstoneRegistryDocument)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, target.alerts().Get().TotalAlerts)
}

func TestArchiver_PlainRoundTrip(t *testing.T) {
	f := newFixture(t)
	seedRegistries(t, f)
	vault := testutil.NewTestVault("")
	archiver := cemetery.NewArchiver(f.store, []cemetery.Vault{vault}, nil, hostID, f.logger)

	_, err := archiver.Push(3)
	require.NoError(t, err)
	needs, err := archiver.NeedsUnlock()
	require.NoError(t, err)
	assert.False(t, needs)

	target := newFixture(t)
	pulled, err := cemetery.NewArchiver(target.store, []cemetery.Vault{vault}, nil, hostID, target.logger).Pull(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, pulled)
	assert.Equal(t, []string{"legacy"}, ids(target.tombstones().List(10)))
}

func TestArchiver_PullRejectsInvalidJSON(t *testing.T) {
	f := newFixture(t)
	vault := testutil.NewTestVault("")
	data := []byte("{truncated")
	require.NoError(t, vault.PutDocument(hostID, cemetery.AssetIndexDocument, bytes.NewReader(data), int64(len(data)), 1))

	_, err := cemetery.NewArchiver(f.store, []cemetery.Vault{vault}, nil, hostID, f.logger).Pull(nil)
	assert.ErrorIs(t, err, cemetery.ErrParse)
	assert.Zero(t, f.store.Writes())
}

func TestArchiver_NoVaults(t *testing.T) {
	f := newFixture(t)
	archiver := cemetery.NewArchiver(f.store, nil, nil, hostID, f.logger)

	pushed, err := archiver.Push(1)
	require.NoError(t, err)
	assert.Zero(t, pushed)

	latest, err := archiver.LatestVersion()
	require.NoError(t, err)
	assert.Zero(t, latest)

	_, err = archiver.Pull(nil)
	assert.Error(t, err)
}

func TestArchiver_RefusesPlaintextWhenKeysMissing(t *testing.T) {
	f := newFixture(t)
	seedRegistries(t, f)
	vault := testutil.NewTestVault("")
	archiver := cemetery.NewArchiver(f.store, []cemetery.Vault{vault}, &encryption.TestEncryptor{}, hostID, f.logger)

	_, err := archiver.Push(1)
	require.Error(t, err)

	latest, err := archiver.LatestVersion()
	require.NoError(t, err)
	assert.Zero(t, latest)
}
