package lib

import (
	"fmt"
	"os"
	"path"

	"github.com/yeqown/go-qrcode"
)

// GenerateQRCode writes text as a jpeg QR image into dir and returns the file path.
func GenerateQRCode(text string, dir string, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	qrc, err := qrcode.New(text)
	if err != nil {
		return "", fmt.Errorf("encode qrcode: %w", err)
	}
	filepath := path.Join(dir, fmt.Sprintf("%s.jpeg", name))
	if err := qrc.Save(filepath); err != nil {
		return "", fmt.Errorf("save qrcode to %s: %w", filepath, err)
	}
	return filepath, nil
}
