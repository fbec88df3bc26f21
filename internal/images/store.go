package images

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/hpungsan/daybook/internal/errors"
)

const (
	// ImagesDir holds originals.
	ImagesDir = "images"

	// ThumbnailsDir holds the webp thumbnails.
	ThumbnailsDir = "thumbnails"
)

// supportedExts maps accepted extensions to the decoder format name.
var supportedExts = map[string]string{
	"png":  "png",
	"jpg":  "jpeg",
	"jpeg": "jpeg",
	"gif":  "gif",
	"webp": "webp",
}

// Saved describes a stored original.
type Saved struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	ThumbURL string `json:"thumbUrl"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Store saves and resolves image files under a data directory.
type Store struct {
	baseDir   string
	maxBytes  int64
	maxPixels int64
}

// NewStore returns a Store rooted at baseDir. maxBytes <= 0 disables the size
// limit and maxPixels <= 0 the width*height limit.
func NewStore(baseDir string, maxBytes, maxPixels int64) *Store {
	return &Store{baseDir: baseDir, maxBytes: maxBytes, maxPixels: maxPixels}
}

// Dir returns the directory for originals or thumbnails.
func (s *Store) Dir(thumb bool) string {
	if thumb {
		return filepath.Join(s.baseDir, ThumbnailsDir)
	}
	return filepath.Join(s.baseDir, ImagesDir)
}

// NormalizeExt lowercases ext, strips a leading dot and validates it.
func NormalizeExt(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if _, ok := supportedExts[ext]; !ok {
		return "", errors.NewUnsupportedImage(fmt.Sprintf("extension %q (want png, jpg, jpeg, gif or webp)", ext))
	}
	return ext, nil
}

// Save validates data and writes it as a new original. No reference is
// counted here: the id only becomes referenced once a saved field embeds it.
func (s *Store) Save(data []byte, ext string) (*Saved, error) {
	ext, err := NormalizeExt(ext)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.NewInvalidRequest("image data is empty")
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, errors.NewImageTooLarge(s.maxBytes, int64(len(data)))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewUnsupportedImage(fmt.Sprintf("cannot decode %s data: %v", ext, err))
	}
	if format != supportedExts[ext] {
		return nil, errors.NewUnsupportedImage(fmt.Sprintf("data is %s but extension is %s", format, ext))
	}
	if err := s.checkPixels(cfg); err != nil {
		return nil, err
	}

	ref := Ref{ID: uuid.NewString(), Ext: ext}
	dir := s.Dir(false)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := writeFileAtomic(filepath.Join(dir, ref.FileName()), data); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &Saved{
		ID:       ref.ID,
		URL:      ref.URL(),
		ThumbURL: ThumbnailURL(ref.ID),
		FileName: ref.FileName(),
		Size:     int64(len(data)),
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

func (s *Store) checkPixels(cfg image.Config) error {
	if s.maxPixels <= 0 {
		return nil
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > s.maxPixels {
		return errors.NewUnsupportedImage(fmt.Sprintf("%dx%d is %d pixels, limit is %d", cfg.Width, cfg.Height, pixels, s.maxPixels))
	}
	return nil
}

// SaveFile reads path and stores it using the file's extension.
func (s *Store) SaveFile(path string) (*Saved, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	if s.maxBytes > 0 && info.Size() > s.maxBytes {
		return nil, errors.NewImageTooLarge(s.maxBytes, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s.Save(data, filepath.Ext(path))
}

// ResolvePath maps a diary-image:// URL or bare file name to its file path.
// Only names of the reference shape resolve, so traversal is impossible.
func (s *Store) ResolvePath(urlOrFile string) (string, error) {
	ref, err := ParseRef(urlOrFile)
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	path := filepath.Join(s.Dir(ref.Thumb), ref.FileName())
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewFileNotFound(ref.FileName())
		}
		return "", errors.NewInternal(err)
	}
	return path, nil
}

// Paths returns every file an image id may occupy: originals of each
// supported extension and the thumbnail.
func (s *Store) Paths(id string) []string {
	paths := make([]string, 0, len(supportedExts)+1)
	for ext := range supportedExts {
		paths = append(paths, filepath.Join(s.Dir(false), Ref{ID: id, Ext: ext}.FileName()))
	}
	return append(paths, filepath.Join(s.Dir(true), Ref{ID: id, Thumb: true}.FileName()))
}

// writeFileAtomic writes to a temp file in the same directory and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return err
	}
	tmp := path + ".tmp-" + hex.EncodeToString(suffix)

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
