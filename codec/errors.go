package codec

import (
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"

	"imco/format"
	"imco/imerr"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// UnsupportedKind narrows down an unsupported error.
type UnsupportedKind int

const (
	UnsupportedOther UnsupportedKind = iota
	UnsupportedFormat
	UnsupportedFeature
)

// Error is returned by every Reader and Image operation.
type Error struct {
	Kind        imerr.CodecKind
	Format      format.Format
	Unsupported UnsupportedKind
	// Detail is the format hint or feature an unsupported error refers to.
	Detail string
	Err    error
}

func (e *Error) Error() string { return e.Hint() }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) CodecKind() imerr.CodecKind { return e.Kind }

func (e *Error) Hint() string {
	switch e.Kind {
	case imerr.CodecUnsupported:
		switch e.Unsupported {
		case UnsupportedFormat:
			return fmt.Sprintf("Unsupported image format or not allowed format (%s)", e.Detail)
		case UnsupportedFeature:
			return e.Detail
		}
		return "Other"
	case imerr.CodecDecoding:
		return fmt.Sprintf("Format error decoding %s: %v", e.Format, e.Err)
	case imerr.CodecEncoding:
		return fmt.Sprintf("Format error encoding %s: %v", e.Format, e.Err)
	case imerr.CodecParameter:
		return fmt.Sprintf("invalid parameter: %v", e.Err)
	case imerr.CodecLimits:
		return fmt.Sprintf("limits exceeded: %s", e.Detail)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown codec error"
}

func unsupportedFormat(f format.Format, detail string) *Error {
	return &Error{Kind: imerr.CodecUnsupported, Format: f, Unsupported: UnsupportedFormat, Detail: detail}
}

// decodeError sorts a decoder failure into unsupported features and
// structural decoding errors.
func decodeError(f format.Format, err error) *Error {
	var (
		pngUnsupported  png.UnsupportedError
		jpegUnsupported jpeg.UnsupportedError
		tiffUnsupported tiff.UnsupportedError
	)
	switch {
	case errors.As(err, &pngUnsupported), errors.As(err, &jpegUnsupported), errors.As(err, &tiffUnsupported):
		return &Error{Kind: imerr.CodecUnsupported, Format: f, Unsupported: UnsupportedFeature, Detail: err.Error(), Err: err}
	case errors.Is(err, bmp.ErrUnsupported):
		return &Error{Kind: imerr.CodecUnsupported, Format: f, Unsupported: UnsupportedFeature, Detail: err.Error(), Err: err}
	case errors.Is(err, io.EOF):
		err = io.ErrUnexpectedEOF
	}
	return &Error{Kind: imerr.CodecDecoding, Format: f, Err: err}
}
