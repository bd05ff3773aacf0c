package iotools

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/afeish/blockfile/pkg/util/size"
	"github.com/spf13/afero"
)

// RandFile copies sz bytes from src into a new temp file under dir and
// returns the file name and the md5 of what was written.
func RandFile(fs afero.Fs, dir, prefix string, src io.Reader, sz int64) (string, string, error) {
	fOut, err := afero.TempFile(fs, dir, fmt.Sprintf("%s-%s-", prefix, size.SizeSuffix(sz).String()))
	if err != nil {
		return "", "", err
	}
	defer fOut.Close()

	h := md5.New()
	n, err := io.Copy(fOut, io.TeeReader(io.LimitReader(src, sz), h))
	if err != nil {
		return "", "", err
	}
	if n != sz {
		return "", "", io.ErrUnexpectedEOF
	}

	return fOut.Name(), hex.EncodeToString(h.Sum(nil)), nil
}

// MD5 returns the hex encoded md5 of p.
func MD5(p []byte) string {
	sum := md5.Sum(p)
	return hex.EncodeToString(sum[:])
}
