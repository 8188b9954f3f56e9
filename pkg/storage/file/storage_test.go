// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sessionsign.
//
// go-sessionsign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package file

import (
	"testing"

	"github.com/jeremyhahn/go-sessionsign/pkg/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStorage(t *testing.T) (storage.Backend, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	s, err := New(fsys, "/data")
	require.NoError(t, err)
	return s, fsys
}

func TestNew(t *testing.T) {
	_, err := New(afero.NewMemMapFs(), "")
	assert.Error(t, err)

	s, err := New(nil, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestPutGetDelete(t *testing.T) {
	s, fsys := newMemStorage(t)

	require.NoError(t, s.Put("credentials/jsmith.json", []byte(`{"a":1}`), nil))

	got, err := s.Get("credentials/jsmith.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got)

	info, err := fsys.Stat("/data/credentials/jsmith.json")
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())

	ok, err := s.Exists("credentials/jsmith.json")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete("credentials/jsmith.json"))

	_, err = s.Get("credentials/jsmith.json")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete("credentials/jsmith.json"), storage.ErrNotFound)

	ok, err = s.Exists("credentials/jsmith.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutOverwrites(t *testing.T) {
	s, _ := newMemStorage(t)

	require.NoError(t, s.Put("k", []byte("one"), nil))
	require.NoError(t, s.Put("k", []byte("two"), storage.DefaultOptions()))

	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

func TestList(t *testing.T) {
	s, _ := newMemStorage(t)

	for _, k := range []string{"credentials/bob.json", "credentials/alice.json", "other/x"} {
		require.NoError(t, s.Put(k, []byte("v"), nil))
	}

	keys, err := s.List("credentials/")
	require.NoError(t, err)
	assert.Equal(t, []string{"credentials/alice.json", "credentials/bob.json"}, keys)

	all, err := s.List("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	users, err := storage.ListCredentials(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)
}

func TestInvalidKeys(t *testing.T) {
	s, _ := newMemStorage(t)

	for _, key := range []string{"", "../escape", "a/../../b", "/etc/passwd", "nul\x00byte", ".."} {
		t.Run(key, func(t *testing.T) {
			err := s.Put(key, []byte("v"), nil)
			assert.ErrorIs(t, err, storage.ErrInvalidKey)

			_, err = s.Get(key)
			assert.ErrorIs(t, err, storage.ErrInvalidKey)
		})
	}
}

func TestClosed(t *testing.T) {
	s, _ := newMemStorage(t)
	require.NoError(t, s.Close())

	_, err := s.Get("k")
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.ErrorIs(t, s.Put("k", nil, nil), storage.ErrClosed)
	_, err = s.List("")
	assert.ErrorIs(t, err, storage.ErrClosed)
}
