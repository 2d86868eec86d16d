package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreSaveReadCleanup(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("2024-03-04/attendance.csv", []byte("Schedule,Student\n"))
	require.NoError(t, err)
	data, err := store.Read(rel)
	require.NoError(t, err)
	assert.Equal(t, "Schedule,Student\n", string(data))

	old := filepath.Join(store.baseDir, "2024-03-04", "attendance.csv")
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	_, err = store.Save("2024-03-05/attendance.csv", []byte("fresh"))
	require.NoError(t, err)

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-04/attendance.csv"}, deleted)
}

func TestLocalStoreRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.csv", []byte("x"))
	assert.Error(t, err)
	_, err = store.Read("/etc/passwd")
	assert.Error(t, err)
}

func TestLinkSignerRoundTrip(t *testing.T) {
	signer := NewLinkSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("2024-03-04/attendance.pdf")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	path, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04/attendance.pdf", path)

	_, err = NewLinkSigner("other", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = signer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLinkSignerExpiry(t *testing.T) {
	signer := NewLinkSigner("secret", time.Minute)
	token, _, err := signer.Sign("sheet.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestLinkSignerRequiresSecret(t *testing.T) {
	_, _, err := NewLinkSigner("", time.Minute).Sign("sheet.csv")
	assert.Error(t, err)
}
