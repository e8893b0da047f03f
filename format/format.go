// Package format maps user supplied tokens and file extensions to the
// image encodings imco knows about.
package format

import (
	"path/filepath"
	"sort"
	"strings"

	"imco/imerr"
)

// Format identifies an image encoding. The zero value means "not known".
type Format int

const (
	Unknown Format = iota
	AVIF
	JPEG
	PNG
	GIF
	WEBP
	TIFF
	TGA
	DDS
	BMP
	ICO
	HDR
	OpenEXR
	PNM
	Farbfeld
	QOI
	PCX
)

// extensions lists the filename suffixes of every format. The first entry
// is the canonical one used for derived output names.
var extensions = map[Format][]string{
	AVIF:     {"avif"},
	JPEG:     {"jpg", "jpeg"},
	PNG:      {"png"},
	GIF:      {"gif"},
	WEBP:     {"webp"},
	TIFF:     {"tiff", "tif"},
	TGA:      {"tga"},
	DDS:      {"dds"},
	BMP:      {"bmp"},
	ICO:      {"ico"},
	HDR:      {"hdr"},
	OpenEXR:  {"exr"},
	PNM:      {"pbm", "pam", "ppm", "pgm"},
	Farbfeld: {"ff"},
	QOI:      {"qoi"},
	PCX:      {"pcx"},
}

var tokens = map[string]Format{
	"avif": AVIF,
	"jpg":  JPEG,
	"jpeg": JPEG,
	"jfif": JPEG,
	"png":  PNG,
	"apng": PNG,
	"gif":  GIF,
	"webp": WEBP,
	"tif":  TIFF,
	"tiff": TIFF,
	"tga":  TGA,
	"dds":  DDS,
	"bmp":  BMP,
	"ico":  ICO,
	"hdr":  HDR,
	"exr":  OpenEXR,
	"pbm":  PNM,
	"pam":  PNM,
	"ppm":  PNM,
	"pgm":  PNM,
	"ff":   Farbfeld,
	"qoi":  QOI,
	"pcx":  PCX,
}

// Known reports whether f is a real format rather than the zero value.
func (f Format) Known() bool {
	_, ok := extensions[f]
	return ok
}

// Extension returns the canonical extension without a leading dot.
func (f Format) Extension() string {
	if exts, ok := extensions[f]; ok {
		return exts[0]
	}
	return ""
}

func (f Format) String() string {
	if !f.Known() {
		return "unknown"
	}
	return f.Extension()
}

// Normalize lower-cases a token and strips surrounding whitespace and a
// single leading dot.
func Normalize(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	return strings.TrimPrefix(t, ".")
}

// Lookup returns the format registered for token, if any.
func Lookup(token string) (Format, bool) {
	f, ok := tokens[Normalize(token)]
	return f, ok
}

// FromPath infers a format from the extension of path.
func FromPath(path string) (Format, bool) {
	ext := filepath.Ext(path)
	if ext == "" || ext == "." {
		return Unknown, false
	}
	return Lookup(ext)
}

// Supported lists every accepted token, grouped by format.
func Supported() []string {
	out := make([]string, 0, len(tokens))
	for f := AVIF; f <= PCX; f++ {
		var group []string
		for tok, tf := range tokens {
			if tf == f {
				group = append(group, tok)
			}
		}
		sort.Strings(group)
		out = append(out, group...)
	}
	return out
}

// Resolve maps a user supplied token such as "png", ".JPG" or "tif".
func Resolve(token string) (Format, error) {
	f, ok := Lookup(token)
	if !ok {
		return Unknown, imerr.InvalidFormat(token)
	}
	return f, nil
}

// ResolveFromPath maps the extension of path. The error carries the whole
// path so the user can tell which argument was rejected.
func ResolveFromPath(path string) (Format, error) {
	f, ok := FromPath(path)
	if !ok {
		return Unknown, imerr.InvalidFormat(path)
	}
	return f, nil
}
