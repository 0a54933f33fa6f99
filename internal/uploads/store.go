// Package uploads stores vehicle photos and maintenance receipts on
// disk. Files are renamed on save; the original filename is never
// trusted.
package uploads

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

const (
	vehiclesDir = "vehicles"
	receiptsDir = "receipts"
	thumbsDir   = "thumbs"

	// URLPrefix is where the HTTP layer mounts the upload root.
	URLPrefix = "/uploads"

	thumbnailWidth = 320
)

var ErrUnsupportedType = errors.New("unsupported media type")

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Store writes uploads under a single root directory.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	for _, dir := range []string{vehiclesDir, receiptsDir, thumbsDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return nil, fmt.Errorf("create upload directory: %w", err)
		}
	}
	return &Store{root: root}, nil
}

func (s *Store) Root() string {
	return s.root
}

// SaveVehiclePhoto stores an image for a vehicle and returns its URL
// path. Both the declared content type and the sniffed bytes must be an
// allowed image format.
func (s *Store) SaveVehiclePhoto(vehicleID int64, r io.Reader, declaredType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	mt, err := sniff(data, declaredType, imageTypes)
	if err != nil {
		return "", err
	}

	name := uploadName(vehicleID, mt.Extension())
	if err := s.write(vehiclesDir, name, data); err != nil {
		return "", err
	}
	s.writeThumbnail(name, data)

	return path.Join(URLPrefix, vehiclesDir, name), nil
}

// SaveReceipt stores a receipt for a maintenance record. Receipts accept
// the vehicle photo formats plus PDF.
func (s *Store) SaveReceipt(maintenanceID int64, r io.Reader, declaredType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	allowed := make(map[string]bool, len(imageTypes)+1)
	for t := range imageTypes {
		allowed[t] = true
	}
	allowed["application/pdf"] = true

	mt, err := sniff(data, declaredType, allowed)
	if err != nil {
		return "", err
	}

	name := uploadName(maintenanceID, mt.Extension())
	if err := s.write(receiptsDir, name, data); err != nil {
		return "", err
	}

	return path.Join(URLPrefix, receiptsDir, name), nil
}

// sniff validates both the declared type and the detected type against
// the allow-list. A mismatching declaration is rejected even when the
// bytes themselves would pass.
func sniff(data []byte, declaredType string, allowed map[string]bool) (*mimetype.MIME, error) {
	declared := declaredType
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = declared[:i]
	}
	declared = strings.TrimSpace(strings.ToLower(declared))
	if !allowed[declared] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, declaredType)
	}

	mt := mimetype.Detect(data)
	if !allowed[mt.String()] {
		return nil, fmt.Errorf("%w: content detected as %s", ErrUnsupportedType, mt.String())
	}
	return mt, nil
}

// uploadName builds `<ownerID>_<random8><ext>`. The owner prefix keeps
// the directory greppable by hand.
func uploadName(ownerID int64, ext string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d_%s%s", ownerID, suffix, ext)
}

func (s *Store) write(dir, name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(s.root, dir, name), data, 0644); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	return nil
}

// writeThumbnail renders a fixed-width JPEG preview. Failures are logged
// and swallowed; the original upload is already on disk.
func (s *Store) writeThumbnail(name string, data []byte) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Skipping thumbnail", "file", name, "error", err)
		return
	}

	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	dst := filepath.Join(s.root, thumbsDir, strings.TrimSuffix(name, filepath.Ext(name))+".jpg")
	if err := imaging.Save(thumb, dst, imaging.JPEGQuality(85)); err != nil {
		slog.Warn("Thumbnail save failed", "file", name, "error", err)
	}
}
