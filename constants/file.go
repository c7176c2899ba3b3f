package constants

import "strings"

// MaxImageBytes is the default cap on a decoded roster image.
const MaxImageBytes = 10 << 20

// AllowedImageTypes holds the MIME types the vision backends accept.
var AllowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/heic": {},
	"image/heif": {},
	"image/gif":  {},
}

// NormalizeMIME lowercases a MIME type and drops any parameters.
func NormalizeMIME(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsAllowedImage reports whether mt is an accepted image type.
func IsAllowedImage(mt string) bool {
	_, ok := AllowedImageTypes[NormalizeMIME(mt)]
	return ok
}

// ImageExtensions maps lowercase file extensions (no dot) to their MIME type.
var ImageExtensions = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"heic": "image/heic",
	"heif": "image/heif",
	"gif":  "image/gif",
}

// NormalizeExt lowercases an extension and strips the leading dot.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// IsHEIC reports whether mt is a HEIC or HEIF image.
func IsHEIC(mt string) bool {
	mt = NormalizeMIME(mt)
	return mt == "image/heic" || mt == "image/heif"
}
