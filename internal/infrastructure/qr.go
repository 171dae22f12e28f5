package infrastructure

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mdp/qrterminal/v3"
	"github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// QRWriter renders pairing codes to the terminal and to a PNG file that the
// HTTP API can serve while pairing is pending.
type QRWriter struct {
	path     string
	terminal io.Writer // nil disables terminal output
	mu       sync.Mutex
}

// NewQRWriter creates a writer for the PNG at path
func NewQRWriter(path string, terminal io.Writer) *QRWriter {
	return &QRWriter{path: path, terminal: terminal}
}

// Path returns the PNG location
func (w *QRWriter) Path() string {
	return w.path
}

// Show prints code as half-block art and replaces the PNG artifact
func (w *QRWriter) Show(code string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.terminal != nil {
		qrterminal.GenerateHalfBlock(code, qrterminal.L, w.terminal)
	}

	if w.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create QR directory: %w", err)
	}

	png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
	if err != nil {
		return fmt.Errorf("failed to encode QR code: %w", err)
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, png, 0644); err != nil {
		return fmt.Errorf("failed to write QR code: %w", err)
	}
	return os.Rename(tmp, w.path)
}

// Clear removes the PNG artifact. A missing file is not an error.
func (w *QRWriter) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.path == "" {
		return nil
	}
	if err := os.Remove(w.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Available reports whether a PNG artifact currently exists
func (w *QRWriter) Available() bool {
	return w.path != "" && fileExists(w.path)
}
