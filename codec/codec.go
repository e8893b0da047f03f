// Package codec decodes and encodes images on behalf of the conversion
// pipeline. It wraps the standard library decoders, golang.org/x/image,
// disintegration/imaging and gen2brain/avif behind one reader/image API.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"imco/format"
	"imco/imerr"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

type Options struct {
	AVIF        avif.Options
	JPEGQuality int
}

// Limits bounds what a decoder may allocate. Zero fields are unlimited.
type Limits struct {
	MaxWidth  int
	MaxHeight int
	MaxAlloc  uint64
}

const DefaultMaxAlloc = 512 << 20

func DefaultOptions() Options {
	return Options{
		AVIF: avif.Options{
			Quality:           80,
			QualityAlpha:      80,
			Speed:             6,
			ChromaSubsampling: image.YCbCrSubsampleRatio420,
		},
		JPEGQuality: 90,
	}
}

func DefaultLimits() Limits {
	return Limits{MaxAlloc: DefaultMaxAlloc}
}

type Codec struct {
	Options Options
	Limits  Limits
}

func New(opts Options, limits Limits) *Codec {
	return &Codec{Options: opts, Limits: limits}
}

type decoder struct {
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
}

var decoders = map[format.Format]decoder{
	format.PNG:  {png.Decode, png.DecodeConfig},
	format.JPEG: {jpeg.Decode, jpeg.DecodeConfig},
	format.GIF:  {gif.Decode, gif.DecodeConfig},
	format.WEBP: {webp.Decode, webp.DecodeConfig},
	format.BMP:  {bmp.Decode, bmp.DecodeConfig},
	format.TIFF: {tiff.Decode, tiff.DecodeConfig},
	format.AVIF: {avif.Decode, avif.DecodeConfig},
}

var imagingFormats = map[format.Format]imaging.Format{
	format.PNG:  imaging.PNG,
	format.JPEG: imaging.JPEG,
	format.GIF:  imaging.GIF,
	format.TIFF: imaging.TIFF,
	format.BMP:  imaging.BMP,
}

// Reader holds the raw bytes of one input file.
type Reader struct {
	codec  *Codec
	data   []byte
	format format.Format
}

// Open reads path into memory. The returned error is the operating system
// error, untouched, so callers can classify it.
func (c *Codec) Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{codec: c, data: data}
	if f, ok := format.FromPath(path); ok {
		r.format = f
	} else {
		r.format = Sniff(data)
	}
	return r, nil
}

// SetFormat forces the decoder used by Decode.
func (r *Reader) SetFormat(f format.Format) { r.format = f }

// Format is the format Decode will use, or format.Unknown.
func (r *Reader) Format() format.Format { return r.format }

// Size is the number of bytes read from disk.
func (r *Reader) Size() int64 { return int64(len(r.data)) }

func (r *Reader) Decode() (*Image, error) {
	if !r.format.Known() {
		return nil, unsupportedFormat(format.Unknown, "Unknown")
	}
	dec, ok := decoders[r.format]
	if !ok {
		return nil, unsupportedFormat(r.format, r.format.String())
	}

	cfg, err := dec.decodeConfig(bytes.NewReader(r.data))
	if err != nil {
		return nil, decodeError(r.format, err)
	}
	if err := r.codec.Limits.check(cfg); err != nil {
		return nil, err
	}

	img, err := dec.decode(bytes.NewReader(r.data))
	if err != nil {
		return nil, decodeError(r.format, err)
	}
	return &Image{codec: r.codec, img: img}, nil
}

func (l Limits) check(cfg image.Config) error {
	if l.MaxWidth > 0 && cfg.Width > l.MaxWidth {
		return &Error{Kind: imerr.CodecLimits, Detail: fmt.Sprintf("width %d > %d", cfg.Width, l.MaxWidth)}
	}
	if l.MaxHeight > 0 && cfg.Height > l.MaxHeight {
		return &Error{Kind: imerr.CodecLimits, Detail: fmt.Sprintf("height %d > %d", cfg.Height, l.MaxHeight)}
	}
	need := uint64(cfg.Width) * uint64(cfg.Height) * bytesPerPixel(cfg.ColorModel)
	if l.MaxAlloc > 0 && need > l.MaxAlloc {
		return &Error{Kind: imerr.CodecLimits, Detail: fmt.Sprintf("%d bytes > %d", need, l.MaxAlloc)}
	}
	return nil
}

func bytesPerPixel(m color.Model) uint64 {
	switch m {
	case color.GrayModel, color.AlphaModel:
		return 1
	case color.Gray16Model, color.Alpha16Model:
		return 2
	case color.RGBA64Model, color.NRGBA64Model:
		return 8
	}
	return 4
}

// Image is a decoded image ready to be written out.
type Image struct {
	codec *Codec
	img   image.Image
}

func (i *Image) Bounds() image.Rectangle { return i.img.Bounds() }

// Save writes the image to path in the format named by its extension.
func (i *Image) Save(path string) (int64, error) {
	f, ok := format.FromPath(path)
	if !ok {
		return 0, unsupportedFormat(format.Unknown, path)
	}
	return i.SaveWithFormat(path, f)
}

// SaveWithFormat encodes into memory and writes path once, so a failed
// encode never leaves a file behind. It returns the number of bytes written.
func (i *Image) SaveWithFormat(path string, f format.Format) (int64, error) {
	var buf bytes.Buffer
	if err := i.encode(&buf, f); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return 0, &Error{Kind: imerr.CodecWriteIO, Format: f, Err: err}
	}
	return int64(buf.Len()), nil
}

func (i *Image) encode(w io.Writer, f format.Format) error {
	if i.img.Bounds().Empty() {
		return &Error{Kind: imerr.CodecParameter, Format: f, Err: fmt.Errorf("empty image %v", i.img.Bounds())}
	}

	var err error
	if f == format.AVIF {
		err = avif.Encode(w, i.img, i.codec.Options.AVIF)
	} else if imf, ok := imagingFormats[f]; ok {
		err = imaging.Encode(w, i.img, imf, imaging.JPEGQuality(i.codec.Options.JPEGQuality))
	} else {
		return unsupportedFormat(f, f.String())
	}
	if err != nil {
		return &Error{Kind: imerr.CodecEncoding, Format: f, Err: err}
	}
	return nil
}
