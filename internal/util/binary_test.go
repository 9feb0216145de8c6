package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBinaryExplicitPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "fakeenc")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	got, err := FindBinary("fakeenc", bin, "")
	require.NoError(t, err)
	assert.Equal(t, bin, got)
}

func TestFindBinaryExplicitPathNotExecutable(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "fakeenc")
	require.NoError(t, os.WriteFile(bin, []byte("data"), 0o644))

	_, err := FindBinary("fakeenc", bin, "")
	require.Error(t, err)
}

func TestFindBinaryEnvVar(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "fakeenc")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("CASTARR_TEST_BINARY", bin)

	got, err := FindBinary("fakeenc", "", "CASTARR_TEST_BINARY")
	require.NoError(t, err)
	assert.Equal(t, bin, got)
}

func TestFindBinaryNotFound(t *testing.T) {
	_, err := FindBinary("definitely-not-a-real-binary-name", "", "")
	require.Error(t, err)
}

func TestIsExecutable(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsExecutable(dir), "directories are not executables")
	assert.False(t, IsExecutable(filepath.Join(dir, "missing")))
}
