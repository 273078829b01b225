package codec

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ReadFile reads a document file, transparently decompressing `.gz` files.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip.NewReader failed: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(r)
}

// WriteFile writes data to path, gzip-compressing it for `.gz` paths.
func WriteFile(path string, data []byte) error {
	if !strings.HasSuffix(path, ".gz") {
		return os.WriteFile(path, data, 0644)
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
