package iotools

import (
	"bytes"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestRandFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := rand.New(rand.NewSource(1))

	fname, sum, err := RandFile(fs, "/tmp", "hello", src, 10240)
	require.Nil(t, err)
	require.True(t, strings.HasPrefix(fname, "/tmp/hello-10 KiB-"))

	content, err := afero.ReadFile(fs, fname)
	require.Nil(t, err)
	require.Len(t, content, 10240)
	require.Equal(t, sum, MD5(content))

	_, _, err = RandFile(fs, "/tmp", "short", bytes.NewReader(make([]byte, 10)), 20)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestMD5(t *testing.T) {
	require.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", MD5(nil))
	require.Equal(t, "5d41402abc4b2a76b9719d911017c592", MD5([]byte("hello")))
}
