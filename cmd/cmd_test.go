package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := &cli.App{
		Name:           "blockfile",
		Writer:         &out,
		Commands:       []*cli.Command{CmdRead(), CmdWrite(), CmdStat(), CmdVerify()},
		ExitErrHandler: func(*cli.Context, error) {},
	}
	err := app.Run(append([]string{"blockfile"}, args...))
	return out.String(), err
}

func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	old := Fs
	Fs = afero.NewMemMapFs()
	t.Cleanup(func() { Fs = old })
	return Fs
}

func TestWriteReadStat(t *testing.T) {
	fs := useMemFs(t)

	_, err := runApp(t, "write", "-f", "/data.bin", "-d", "hello block file")
	require.Error(t, err)

	out, err := runApp(t, "write", "-f", "/data.bin", "-d", "hello block file", "--create", "--bs", "4")
	require.NoError(t, err)
	require.Contains(t, out, "next offset 16")

	require.NoError(t, afero.WriteFile(fs, "/input.bin", []byte("BLOCK"), 0o644))
	_, err = runApp(t, "write", "-f", "/data.bin", "-i", "/input.bin", "-o", "6", "--bs", "4")
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, "/data.bin")
	require.NoError(t, err)
	require.Equal(t, "hello BLOCK file", string(content))

	out, err = runApp(t, "read", "-f", "/data.bin", "-o", "6", "-l", "5", "--bs", "4")
	require.NoError(t, err)
	require.Contains(t, out, "BLOCK")

	out, err = runApp(t, "stat", "-f", "/data.bin", "--scan", "--bs", "4", "--bd", "2", "--ra", "1")
	require.NoError(t, err)
	for _, want := range []string{"/data.bin", "16 B", "BLOCK-SIZE", "EVICTIONS", "CUMULATIVE, INCL. EVICTED"} {
		require.Contains(t, strings.ToUpper(out), strings.ToUpper(want))
	}

	_, err = runApp(t, "write", "-f", "/data.bin", "-d", "gap", "-o", "100")
	require.Error(t, err)

	_, err = runApp(t, "write", "-f", "/data.bin")
	require.Error(t, err)

	_, err = runApp(t, "read", "-f", "/missing.bin")
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	fs := useMemFs(t)

	out, err := runApp(t, "verify", "-f", "/scratch.bin", "-s", "64K", "-n", "8", "--seed", "42", "--bs", "1000", "--bd", "8", "--ra", "2")
	require.NoError(t, err)
	require.Contains(t, out, "seed 42")
	require.NotContains(t, out, "false")

	ok, err := afero.Exists(fs, "/scratch.bin")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = runApp(t, "verify", "-f", "/scratch.bin", "-s", "4K", "--bd", "2", "--ra", "4")
	require.Error(t, err)
}
