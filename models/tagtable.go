package models

import (
	"bytes"
	"encoding/binary"

	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// Namespace identifies one IFD of an EXIF block.
type Namespace int

const (
	NamespaceImage Namespace = iota
	NamespaceCapture
	NamespaceLocation
	NamespaceInterop
	NamespaceThumbnail
)

// Namespaces lists every namespace in serialization order.
var Namespaces = []Namespace{
	NamespaceImage,
	NamespaceCapture,
	NamespaceLocation,
	NamespaceInterop,
	NamespaceThumbnail,
}

func (n Namespace) String() string {
	switch n {
	case NamespaceImage:
		return "Image"
	case NamespaceCapture:
		return "Capture"
	case NamespaceLocation:
		return "Location"
	case NamespaceInterop:
		return "Interop"
	case NamespaceThumbnail:
		return "Thumbnail"
	}
	return "Unknown"
}

// EXIF types that go-exif does not name.
const (
	TypeSignedByte  exifcommon.TagTypePrimitive = 6
	TypeSignedShort exifcommon.TagTypePrimitive = 8
)

// TypeSize returns the byte width of one unit of t, or 0 if t is not a TIFF type.
func TypeSize(t exifcommon.TagTypePrimitive) int {
	switch t {
	case exifcommon.TypeByte, exifcommon.TypeAscii, exifcommon.TypeUndefined, TypeSignedByte:
		return 1
	case exifcommon.TypeShort, TypeSignedShort:
		return 2
	case exifcommon.TypeLong, exifcommon.TypeSignedLong, exifcommon.TypeFloat:
		return 4
	case exifcommon.TypeRational, exifcommon.TypeSignedRational, exifcommon.TypeDouble:
		return 8
	}
	return 0
}

// Value is one tag value. Exactly one of the payload fields is used,
// selected by Type.
type Value struct {
	Type            exifcommon.TagTypePrimitive
	Text            string
	Ints            []int64
	Rationals       []exifcommon.Rational
	SignedRationals []exifcommon.SignedRational
	Bytes           []byte
}

func TextValue(s string) Value {
	return Value{Type: exifcommon.TypeAscii, Text: s}
}

func IntValue(t exifcommon.TagTypePrimitive, v ...int64) Value {
	return Value{Type: t, Ints: v}
}

func ShortValue(v ...int64) Value {
	return IntValue(exifcommon.TypeShort, v...)
}

func LongValue(v ...int64) Value {
	return IntValue(exifcommon.TypeLong, v...)
}

func RationalValue(v ...exifcommon.Rational) Value {
	return Value{Type: exifcommon.TypeRational, Rationals: v}
}

func SignedRationalValue(v ...exifcommon.SignedRational) Value {
	return Value{Type: exifcommon.TypeSignedRational, SignedRationals: v}
}

// BytesValue holds payloads kept opaque: UNDEFINED, FLOAT and DOUBLE.
func BytesValue(t exifcommon.TagTypePrimitive, b []byte) Value {
	return Value{Type: t, Bytes: b}
}

// Count is the unit count written to the IFD entry.
func (v Value) Count() int {
	switch v.Type {
	case exifcommon.TypeAscii:
		return len(v.Text) + 1
	case exifcommon.TypeRational:
		return len(v.Rationals)
	case exifcommon.TypeSignedRational:
		return len(v.SignedRationals)
	case exifcommon.TypeUndefined, exifcommon.TypeFloat, exifcommon.TypeDouble:
		if size := TypeSize(v.Type); size > 0 {
			return len(v.Bytes) / size
		}
		return 0
	}
	return len(v.Ints)
}

func (v Value) clone() Value {
	out := v
	if v.Ints != nil {
		out.Ints = append([]int64(nil), v.Ints...)
	}
	if v.Rationals != nil {
		out.Rationals = append([]exifcommon.Rational(nil), v.Rationals...)
	}
	if v.SignedRationals != nil {
		out.SignedRationals = append([]exifcommon.SignedRational(nil), v.SignedRationals...)
	}
	if v.Bytes != nil {
		out.Bytes = bytes.Clone(v.Bytes)
	}
	return out
}

// Tags maps a tag id to its value within one namespace.
type Tags map[uint16]Value

func (t Tags) clone() Tags {
	if t == nil {
		return nil
	}
	out := make(Tags, len(t))
	for id, v := range t {
		out[id] = v.clone()
	}
	return out
}

// TagTable is the structured form of an EXIF block. A namespace is present
// when its map is non-nil; a present namespace may be empty.
type TagTable struct {
	ByteOrder     binary.ByteOrder
	Image         Tags
	Capture       Tags
	Location      Tags
	Interop       Tags
	Thumbnail     Tags
	ThumbnailData []byte
}

// NewTagTable returns an empty big-endian table with only the Image
// namespace present.
func NewTagTable() *TagTable {
	return &TagTable{
		ByteOrder: binary.BigEndian,
		Image:     Tags{},
	}
}

// Namespace returns the map backing ns (nil when absent).
func (t *TagTable) Namespace(ns Namespace) Tags {
	switch ns {
	case NamespaceImage:
		return t.Image
	case NamespaceCapture:
		return t.Capture
	case NamespaceLocation:
		return t.Location
	case NamespaceInterop:
		return t.Interop
	case NamespaceThumbnail:
		return t.Thumbnail
	}
	return nil
}

// Len counts tags across all namespaces.
func (t *TagTable) Len() int {
	n := 0
	for _, ns := range Namespaces {
		n += len(t.Namespace(ns))
	}
	return n
}

// Clone deep-copies the table.
func (t *TagTable) Clone() *TagTable {
	if t == nil {
		return nil
	}
	out := &TagTable{
		ByteOrder: t.ByteOrder,
		Image:     t.Image.clone(),
		Capture:   t.Capture.clone(),
		Location:  t.Location.clone(),
		Interop:   t.Interop.clone(),
		Thumbnail: t.Thumbnail.clone(),
	}
	if t.ThumbnailData != nil {
		out.ThumbnailData = bytes.Clone(t.ThumbnailData)
	}
	return out
}
