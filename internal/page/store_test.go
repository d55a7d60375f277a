package page

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreEmptyFileHasZeroEndPID(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "idx.db"), ReadWrite)
	require.NoError(t, err)
	defer s.Close()

	end, err := s.EndPID()
	require.NoError(t, err)
	require.Equal(t, ID(0), end)
}

func TestStoreWriteAtEndPIDAppends(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "idx.db"), ReadWrite)
	require.NoError(t, err)
	defer s.Close()

	buf := GetBuf()
	defer PutBuf(buf)
	copy(buf, []byte("hello"))

	end, err := s.EndPID()
	require.NoError(t, err)
	require.NoError(t, s.WritePage(end, buf))

	end2, err := s.EndPID()
	require.NoError(t, err)
	require.Equal(t, end+1, end2)

	readBack := GetBuf()
	defer PutBuf(readBack)
	require.NoError(t, s.ReadPage(end, readBack))
	require.Equal(t, buf, readBack)
}

func TestStoreReopenPreservesContent(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "idx.db")

	s, err := Open(name, ReadWrite)
	require.NoError(t, err)
	buf := GetBuf()
	copy(buf, []byte("persisted"))
	require.NoError(t, s.WritePage(0, buf))
	require.NoError(t, s.Close())
	PutBuf(buf)

	s2, err := Open(name, ReadWrite)
	require.NoError(t, err)
	defer s2.Close()

	readBack := GetBuf()
	defer PutBuf(readBack)
	require.NoError(t, s2.ReadPage(0, readBack))
	require.Equal(t, byte('p'), readBack[0])
}
