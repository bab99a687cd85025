package fossilize

import "errors"

// Sentinel errors returned across the fossilize packages. Callers should
// match against these with errors.Is rather than string comparison.

// ErrUnknownChainLink is returned by a pNext chain walker when it
// encounters an sType it does not have a registered decoder for and the
// walker is running in strict mode.
var ErrUnknownChainLink = errors.New("fossilize: unknown pNext chain link")

// ErrMissingCrossReference is returned during replay when a serialized
// document references a hash that is absent from the archive being read.
var ErrMissingCrossReference = errors.New("fossilize: missing cross-referenced hash")

// ErrHandleNotRegistered is returned when a recorder API is called with a
// handle that was never returned by a corresponding Record* call.
var ErrHandleNotRegistered = errors.New("fossilize: handle not registered")

// ErrFormatVersionUnsupported is returned when opening an archive stamped
// with a FormatVersion outside [FormatMinCompat, CurrentFormatVersion].
var ErrFormatVersionUnsupported = errors.New("fossilize: archive format version unsupported")

// ErrEntryAlreadyExists is returned by WriteEntry when the (tag, hash) pair
// is already present and the caller did not request overwrite.
var ErrEntryAlreadyExists = errors.New("fossilize: entry already exists")

// ErrTruncatedRecord is returned when an archive ends in the middle of a
// record header or payload.
var ErrTruncatedRecord = errors.New("fossilize: truncated record")

// ErrChecksumMismatch is returned when a FOZ payload's stored CRC-32 does
// not match its bytes. A stored checksum of zero is treated as "unchecked"
// and never produces this error.
var ErrChecksumMismatch = errors.New("fossilize: checksum mismatch")

// ErrArchiveClosed is returned by any Database method invoked after Close.
var ErrArchiveClosed = errors.New("fossilize: archive closed")

// ErrInvalidMagic is returned when a FOZ file's leading bytes do not match
// the expected magic.
var ErrInvalidMagic = errors.New("fossilize: invalid archive magic")
