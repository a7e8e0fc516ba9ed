package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/emberglow"
)

func TestOpenLogOutput(t *testing.T) {
	out, err := openLogOutput(emberglow.SerialOutput, "")
	require.NoError(t, err)
	assert.Equal(t, nopCloser{os.Stderr}, out)

	out, err = openLogOutput(emberglow.TerminalOutput, "")
	require.NoError(t, err)
	assert.Equal(t, nopCloser{io.Discard}, out, "logs must not draw over the terminal preview")
}

func TestOpenLogOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emberglow.log")

	out, err := openLogOutput(emberglow.TerminalOutput, path)
	require.NoError(t, err)
	_, err = io.WriteString(out, "hello\n")
	require.NoError(t, err)
	require.NoError(t, out.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(b))
}
