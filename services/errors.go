package services

import "errors"

var (
	ErrMetadataParse = errors.New("metadata parse failed")
	ErrDecode        = errors.New("image decode failed")
	ErrEncode        = errors.New("image encode failed")
	ErrNoExif        = errors.New("no exif segment")
)

// MetadataParseError is soft: callers fall back to an empty table.
type MetadataParseError struct {
	Err error
}

func (e *MetadataParseError) Error() string { return "metadata: " + e.Err.Error() }
func (e *MetadataParseError) Unwrap() error { return e.Err }
func (e *MetadataParseError) Is(target error) bool {
	return target == ErrMetadataParse
}

// DecodeError means the pixel data could not be decoded. It fails the
// export of that one image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// EncodeError means the rotated bitmap could not be re-encoded.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "encode: " + e.Err.Error() }
func (e *EncodeError) Unwrap() error { return e.Err }
func (e *EncodeError) Is(target error) bool {
	return target == ErrEncode
}
