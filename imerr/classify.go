package imerr

import (
	"errors"
	"io/fs"
	"syscall"
)

// CodecKind is the failure class reported by the codec collaborator.
type CodecKind int

const (
	CodecDecoding CodecKind = iota + 1
	CodecEncoding
	CodecParameter
	CodecLimits
	CodecUnsupported
	CodecReadIO
	CodecWriteIO
)

// CodecFailure is implemented by the errors the codec collaborator returns.
// Hint is the human readable explanation shown after the path.
type CodecFailure interface {
	error
	CodecKind() CodecKind
	Hint() string
}

// ReasonOf maps an I/O error onto the bounded reason vocabulary.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, fs.ErrNotExist):
		return ReasonNotFound
	case errors.Is(err, fs.ErrPermission):
		return ReasonPermissionDenied
	case errors.Is(err, fs.ErrExist):
		return ReasonAlreadyExists
	case errors.Is(err, syscall.ENOTDIR):
		return ReasonNotADirectory
	case errors.Is(err, syscall.EISDIR):
		return ReasonIsADirectory
	case errors.Is(err, syscall.ENOSPC):
		return ReasonStorageFull
	case errors.Is(err, syscall.EFBIG):
		return ReasonFileTooLarge
	}
	return ReasonUnknown
}

// ClassifyIO turns an operating system error on path into FailedFileRead or
// FailedFileWrite.
func ClassifyIO(err error, path string, isRead bool) *Error {
	if isRead {
		return FailedFileRead(ReasonOf(err), path)
	}
	return FailedFileWrite(ReasonOf(err), path)
}

// ClassifyCodec maps a codec failure on path. Errors already in the
// taxonomy pass through; anything the codec did not tag is treated as an
// unclassified write failure.
func ClassifyCodec(err error, path string) *Error {
	var ie *Error
	if errors.As(err, &ie) {
		return ie
	}

	var cf CodecFailure
	if !errors.As(err, &cf) {
		return FailedFileWrite(ReasonOf(err), path)
	}

	switch cf.CodecKind() {
	case CodecDecoding:
		return Decoding(path, cf.Hint())
	case CodecEncoding:
		return Encoding(path, cf.Hint())
	case CodecParameter:
		return InternalConversion(path)
	case CodecLimits:
		return ResourceLimitReached(path)
	case CodecUnsupported:
		return Unsupported(path, cf.Hint())
	case CodecReadIO:
		return ClassifyIO(errors.Unwrap(cf), path, true)
	case CodecWriteIO:
		return ClassifyIO(errors.Unwrap(cf), path, false)
	}
	return FailedFileWrite(ReasonUnknown, path)
}
