package fileop

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// ErrVerifyMismatch is returned when a copied file does not hash the same as
// its source.
var ErrVerifyMismatch = errors.New("checksum mismatch")

// HashFile computes the BLAKE3 hash of the file at path, returning the hex-encoded digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func verifyCopy(src, dst string) error {
	want, err := HashFile(src)
	if err != nil {
		return err
	}
	got, err := HashFile(dst)
	if err != nil {
		return err
	}
	if want != got {
		return fmt.Errorf("%w: %s (src %s, dst %s)", ErrVerifyMismatch, src, want[:16], got[:16])
	}
	return nil
}
