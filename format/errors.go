package format

import "github.com/pkg/errors"

// Decoding errors. Every error returned by this package wraps exactly one
// of these, so callers classify with errors.Is.
var (
	// ErrMalformed reports a truncated or unrecognized container header.
	ErrMalformed = errors.New("malformed minidump")

	// ErrDirectoryCorrupt reports a stream directory outside the file.
	ErrDirectoryCorrupt = errors.New("stream directory corrupt")

	// ErrStreamMissing reports that the requested stream is not in the directory.
	ErrStreamMissing = errors.New("stream missing")

	// ErrStreamCorrupt reports a stream that is present but cannot be decoded.
	ErrStreamCorrupt = errors.New("stream corrupt")
)

func streamMissing(t StreamType) error {
	return errors.Wrapf(ErrStreamMissing, "%s", t)
}

func streamCorrupt(t StreamType, format string, args ...interface{}) error {
	return errors.Wrapf(errors.Wrapf(ErrStreamCorrupt, format, args...), "%s", t)
}
