// Package images owns the diary-image:// reference scheme: extracting ids
// from stored fields, saving and resolving files, generating thumbnails and
// deleting released files in the background.
package images

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// Scheme is the internal URL scheme the renderer resolves through a protocol handler.
	Scheme = "diary-image://"

	// ThumbSuffix marks the thumbnail variant of an image id.
	ThumbSuffix = "_thumb"

	// ThumbExt is the only thumbnail format.
	ThumbExt = "webp"
)

const uuidPattern = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`

var (
	refRegex  = regexp.MustCompile(`diary-image://(` + uuidPattern + `)(_thumb)?\.([A-Za-z0-9]+)`)
	fileRegex = regexp.MustCompile(`^(` + uuidPattern + `)(_thumb)?\.([A-Za-z0-9]+)$`)
)

// ExtractImageIDs returns the distinct image ids referenced by the given field
// values, in order of first appearance. Originals and thumbnails of one image
// yield a single id. Text without references yields an empty slice.
func ExtractImageIDs(values ...string) []string {
	seen := make(map[string]bool)
	ids := []string{}
	for _, v := range values {
		if !strings.Contains(v, Scheme) {
			continue
		}
		for _, m := range refRegex.FindAllStringSubmatch(v, -1) {
			id := strings.ToLower(m[1])
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Ref is a parsed image reference or file name.
type Ref struct {
	ID    string
	Ext   string
	Thumb bool
}

// FileName is the on-disk name inside images/ or thumbnails/.
func (r Ref) FileName() string {
	if r.Thumb {
		return r.ID + ThumbSuffix + "." + ThumbExt
	}
	return r.ID + "." + r.Ext
}

// URL is the diary-image:// reference for r.
func (r Ref) URL() string {
	return Scheme + r.FileName()
}

// ParseRef accepts either a full diary-image:// URL or a bare file name.
func ParseRef(s string) (Ref, error) {
	name := strings.TrimPrefix(strings.TrimSpace(s), Scheme)
	m := fileRegex.FindStringSubmatch(name)
	if m == nil {
		return Ref{}, fmt.Errorf("not an image reference: %q", s)
	}
	ref := Ref{ID: strings.ToLower(m[1]), Ext: strings.ToLower(m[3]), Thumb: m[2] != ""}
	if ref.Thumb && ref.Ext != ThumbExt {
		return Ref{}, fmt.Errorf("thumbnail must be .%s: %q", ThumbExt, s)
	}
	return ref, nil
}

// OriginalURL builds the reference for a stored original.
func OriginalURL(id, ext string) string {
	return Ref{ID: id, Ext: ext}.URL()
}

// ThumbnailURL builds the reference for an image's thumbnail.
func ThumbnailURL(id string) string {
	return Ref{ID: id, Thumb: true}.URL()
}
