// Package imerr holds the closed set of failures imco reports, the pure
// formatter that renders them and the classifiers that map low level I/O
// and codec errors onto them.
package imerr

import "fmt"

// Kind tags an Error. The set is closed: every switch over Kind in this
// module is expected to list all of them.
type Kind int

const (
	KindFailedFileRead Kind = iota + 1
	KindFailedFileWrite
	KindInvalidFormat
	KindNoDestFormat
	KindInvalidBatching
	KindDecoding
	KindEncoding
	KindUnsupported
	KindInternalConversion
	KindResourceLimit
	KindBatchPattern
	KindBatchReadEntry
)

var kindNames = map[Kind]string{
	KindFailedFileRead:     "FailedFileRead",
	KindFailedFileWrite:    "FailedFileWrite",
	KindInvalidFormat:      "InvalidFormat",
	KindNoDestFormat:       "NoDestFormat",
	KindInvalidBatching:    "InvalidBatching",
	KindDecoding:           "Decoding",
	KindEncoding:           "Encoding",
	KindUnsupported:        "Unsupported",
	KindInternalConversion: "InternalConversionError",
	KindResourceLimit:      "ResourceLimitReached",
	KindBatchPattern:       "BatchPattern",
	KindBatchReadEntry:     "BatchReadEntry",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Reason is the bounded vocabulary used to describe I/O failures.
type Reason string

const (
	ReasonNotFound         Reason = "Not found"
	ReasonPermissionDenied Reason = "Permission denied"
	ReasonAlreadyExists    Reason = "Already exists"
	ReasonNotADirectory    Reason = "Is not a directory"
	ReasonIsADirectory     Reason = "Is a directory"
	ReasonStorageFull      Reason = "Storage is full"
	ReasonFileTooLarge     Reason = "File is too large"
	ReasonUnknown          Reason = "Unknown (unhandled)"

	// ReasonBadPattern is the only reason a BatchPattern error carries.
	ReasonBadPattern Reason = "Syntax error in pattern"
)

// Error is a single imco failure. Which fields are meaningful depends on Kind:
//
//	FailedFileRead, FailedFileWrite   Reason, Path
//	InvalidFormat                     Token
//	NoDestFormat, InvalidBatching     -
//	Decoding, Encoding, Unsupported   Path, Hint
//	InternalConversionError           Path
//	ResourceLimitReached              Path
//	BatchPattern                      Reason, Pattern
//	BatchReadEntry                    Reason
type Error struct {
	Kind    Kind
	Reason  Reason
	Path    string
	Token   string
	Hint    string
	Pattern string
}

func (e *Error) Error() string { return Message(e) }

// Is matches errors of the same kind, so errors.Is(err, &Error{Kind: k})
// works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func FailedFileRead(reason Reason, path string) *Error {
	return &Error{Kind: KindFailedFileRead, Reason: reason, Path: path}
}

func FailedFileWrite(reason Reason, path string) *Error {
	return &Error{Kind: KindFailedFileWrite, Reason: reason, Path: path}
}

func InvalidFormat(token string) *Error {
	return &Error{Kind: KindInvalidFormat, Token: token}
}

func NoDestFormat() *Error {
	return &Error{Kind: KindNoDestFormat}
}

func InvalidBatching() *Error {
	return &Error{Kind: KindInvalidBatching}
}

func Decoding(path, hint string) *Error {
	return &Error{Kind: KindDecoding, Path: path, Hint: hint}
}

func Encoding(path, hint string) *Error {
	return &Error{Kind: KindEncoding, Path: path, Hint: hint}
}

func Unsupported(path, hint string) *Error {
	return &Error{Kind: KindUnsupported, Path: path, Hint: hint}
}

func InternalConversion(path string) *Error {
	return &Error{Kind: KindInternalConversion, Path: path}
}

func ResourceLimitReached(path string) *Error {
	return &Error{Kind: KindResourceLimit, Path: path}
}

func BatchPattern(reason Reason, pattern string) *Error {
	return &Error{Kind: KindBatchPattern, Reason: reason, Pattern: pattern}
}

func BatchReadEntry(reason Reason) *Error {
	return &Error{Kind: KindBatchReadEntry, Reason: reason}
}

// Message renders e as the single line shown to the user.
func Message(e *Error) string {
	switch e.Kind {
	case KindFailedFileRead:
		return fmt.Sprintf("Failed reading '%s' => %s", e.Path, e.Reason)
	case KindFailedFileWrite:
		return fmt.Sprintf("Failed writing '%s' => %s", e.Path, e.Reason)
	case KindInvalidFormat:
		return fmt.Sprintf("Unknown format %s, use --help for a list", e.Token)
	case KindNoDestFormat:
		return "No output format provided (use --output-format)"
	case KindInvalidBatching:
		return "Batch processing requires an output format (use --output-format)"
	case KindDecoding:
		return fmt.Sprintf("Error during decoding of '%s' => %s", e.Path, e.Hint)
	case KindEncoding:
		return fmt.Sprintf("Error during encoding of '%s' => %s", e.Path, e.Hint)
	case KindUnsupported:
		return fmt.Sprintf("%s during conversion of '%s'", e.Hint, e.Path)
	case KindInternalConversion:
		return fmt.Sprintf("Internal error during conversion of '%s'", e.Path)
	case KindResourceLimit:
		return fmt.Sprintf("Exceeded resource limitation during conversion of '%s'", e.Path)
	case KindBatchPattern:
		return fmt.Sprintf("Invalid batch pattern '%s' => %s", e.Pattern, e.Reason)
	case KindBatchReadEntry:
		return fmt.Sprintf("Failed reading batch entry => %s", e.Reason)
	}
	return fmt.Sprintf("unknown error kind %d", int(e.Kind))
}
