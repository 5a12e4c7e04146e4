package services

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/yourusername/exifsnap/models"
)

// Structural tags hold offsets into the TIFF block. They are dropped on read
// and rebuilt on write, so a TagTable never carries them.
const (
	tagExifIFDPointer    uint16 = 0x8769
	tagGPSIFDPointer     uint16 = 0x8825
	tagInteropIFDPointer uint16 = 0xA005
	tagThumbnailOffset   uint16 = 0x0201
	tagThumbnailLength   uint16 = 0x0202
)

const (
	tiffHeaderSize = 8
	ifdEntrySize   = 12
)

var structuralTags = map[models.Namespace][]uint16{
	models.NamespaceImage:     {tagExifIFDPointer, tagGPSIFDPointer},
	models.NamespaceCapture:   {tagInteropIFDPointer},
	models.NamespaceThumbnail: {tagThumbnailOffset, tagThumbnailLength},
}

func isStructural(ns models.Namespace, tag uint16) bool {
	for _, t := range structuralTags[ns] {
		if t == tag {
			return true
		}
	}
	return false
}

// ----- reading -----

type ifd struct {
	tags     models.Tags
	pointers map[uint16]uint32
	next     uint32
}

type tiffReader struct {
	data  []byte
	order binary.ByteOrder
	seen  map[uint32]bool
}

// decodeTIFF reads IFD0, its Exif/GPS/Interop children and IFD1 with the
// embedded thumbnail.
func decodeTIFF(data []byte) (*models.TagTable, error) {
	if len(data) < tiffHeaderSize {
		return nil, errors.New("tiff header truncated")
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("bad byte order mark %q", data[:2])
	}
	if order.Uint16(data[2:4]) != 42 {
		return nil, errors.New("bad tiff magic")
	}

	r := &tiffReader{data: data, order: order, seen: map[uint32]bool{}}
	table := &models.TagTable{ByteOrder: order}

	ifd0, err := r.readIFD(models.NamespaceImage, order.Uint32(data[4:8]))
	if err != nil {
		return nil, fmt.Errorf("ifd0: %w", err)
	}
	table.Image = ifd0.tags

	if off, ok := ifd0.pointers[tagExifIFDPointer]; ok {
		exifIFD, err := r.readIFD(models.NamespaceCapture, off)
		if err != nil {
			return nil, fmt.Errorf("exif ifd: %w", err)
		}
		table.Capture = exifIFD.tags
		if off, ok := exifIFD.pointers[tagInteropIFDPointer]; ok {
			interop, err := r.readIFD(models.NamespaceInterop, off)
			if err != nil {
				return nil, fmt.Errorf("interop ifd: %w", err)
			}
			table.Interop = interop.tags
		}
	}

	if off, ok := ifd0.pointers[tagGPSIFDPointer]; ok {
		gps, err := r.readIFD(models.NamespaceLocation, off)
		if err != nil {
			return nil, fmt.Errorf("gps ifd: %w", err)
		}
		table.Location = gps.tags
	}

	if ifd0.next != 0 {
		ifd1, err := r.readIFD(models.NamespaceThumbnail, ifd0.next)
		if err != nil {
			return nil, fmt.Errorf("ifd1: %w", err)
		}
		table.Thumbnail = ifd1.tags
		off, hasOff := ifd1.pointers[tagThumbnailOffset]
		n, hasLen := ifd1.pointers[tagThumbnailLength]
		if hasOff && hasLen {
			end := uint64(off) + uint64(n)
			if end > uint64(len(data)) {
				return nil, errors.New("thumbnail out of range")
			}
			table.ThumbnailData = bytes.Clone(data[off:end])
		}
	}

	return table, nil
}

func (r *tiffReader) readIFD(ns models.Namespace, offset uint32) (*ifd, error) {
	if r.seen[offset] {
		return nil, fmt.Errorf("ifd loop at offset %d", offset)
	}
	r.seen[offset] = true

	start := uint64(offset)
	size := uint64(len(r.data))
	if start+2 > size {
		return nil, fmt.Errorf("offset %d out of range", offset)
	}
	n := uint64(r.order.Uint16(r.data[start:]))
	end := start + 2 + n*ifdEntrySize
	if end > size {
		return nil, fmt.Errorf("%d entries overrun the block", n)
	}

	out := &ifd{tags: models.Tags{}, pointers: map[uint16]uint32{}}
	for i := uint64(0); i < n; i++ {
		e := r.data[start+2+i*ifdEntrySize : start+2+(i+1)*ifdEntrySize]
		tag := r.order.Uint16(e[0:2])
		typ := exifcommon.TagTypePrimitive(r.order.Uint16(e[2:4]))
		count := r.order.Uint32(e[4:8])

		unit := models.TypeSize(typ)
		if unit == 0 {
			// Unknown type: the value cannot be sized, so it cannot be carried.
			continue
		}
		total := uint64(unit) * uint64(count)
		var payload []byte
		if total <= 4 {
			payload = e[8 : 8+total]
		} else {
			off := uint64(r.order.Uint32(e[8:12]))
			if off+total > size {
				return nil, fmt.Errorf("tag 0x%04x value out of range", tag)
			}
			payload = r.data[off : off+total]
		}

		if isStructural(ns, tag) {
			if v, ok := firstUint(typ, payload, r.order); ok {
				out.pointers[tag] = v
			}
			continue
		}
		v, err := decodeValue(typ, count, payload, r.order)
		if err != nil {
			return nil, fmt.Errorf("tag 0x%04x: %w", tag, err)
		}
		out.tags[tag] = v
	}

	if end+4 <= size {
		out.next = r.order.Uint32(r.data[end : end+4])
	}
	return out, nil
}

func firstUint(typ exifcommon.TagTypePrimitive, p []byte, order binary.ByteOrder) (uint32, bool) {
	switch {
	case typ == exifcommon.TypeLong && len(p) >= 4:
		return order.Uint32(p), true
	case typ == exifcommon.TypeShort && len(p) >= 2:
		return uint32(order.Uint16(p)), true
	}
	return 0, false
}

var valueParser = new(exifcommon.Parser)

// decodeValue turns a raw entry payload into a Value. ASCII keeps everything
// before its terminating NUL, embedded NULs included; a string stored without
// one is read whole. SBYTE and SSHORT are read here since the go-exif parser
// has no signed 8/16-bit forms.
func decodeValue(typ exifcommon.TagTypePrimitive, count uint32, p []byte, order binary.ByteOrder) (models.Value, error) {
	switch typ {
	case exifcommon.TypeAscii:
		if count == 0 {
			return models.TextValue(""), nil
		}
		if p[count-1] != 0 {
			s, err := valueParser.ParseAsciiNoNul(p, count)
			return models.TextValue(s), err
		}
		s, err := valueParser.ParseAscii(p, count)
		return models.TextValue(s), err
	case exifcommon.TypeByte:
		b, err := valueParser.ParseBytes(p, count)
		if err != nil {
			return models.Value{}, err
		}
		ints := make([]int64, len(b))
		for i, n := range b {
			ints[i] = int64(n)
		}
		return models.IntValue(typ, ints...), nil
	case exifcommon.TypeShort:
		shorts, err := valueParser.ParseShorts(p, count, order)
		if err != nil {
			return models.Value{}, err
		}
		ints := make([]int64, len(shorts))
		for i, n := range shorts {
			ints[i] = int64(n)
		}
		return models.IntValue(typ, ints...), nil
	case exifcommon.TypeLong:
		longs, err := valueParser.ParseLongs(p, count, order)
		if err != nil {
			return models.Value{}, err
		}
		ints := make([]int64, len(longs))
		for i, n := range longs {
			ints[i] = int64(n)
		}
		return models.IntValue(typ, ints...), nil
	case exifcommon.TypeSignedLong:
		longs, err := valueParser.ParseSignedLongs(p, count, order)
		if err != nil {
			return models.Value{}, err
		}
		ints := make([]int64, len(longs))
		for i, n := range longs {
			ints[i] = int64(n)
		}
		return models.IntValue(typ, ints...), nil
	case exifcommon.TypeRational:
		rs, err := valueParser.ParseRationals(p, count, order)
		if err != nil {
			return models.Value{}, err
		}
		return models.RationalValue(rs...), nil
	case exifcommon.TypeSignedRational:
		rs, err := valueParser.ParseSignedRationals(p, count, order)
		if err != nil {
			return models.Value{}, err
		}
		return models.SignedRationalValue(rs...), nil
	case models.TypeSignedByte:
		ints := make([]int64, count)
		for i := range ints {
			ints[i] = int64(int8(p[i]))
		}
		return models.IntValue(typ, ints...), nil
	case models.TypeSignedShort:
		ints := make([]int64, count)
		for i := range ints {
			ints[i] = int64(int16(order.Uint16(p[2*i:])))
		}
		return models.IntValue(typ, ints...), nil
	}
	return models.BytesValue(typ, bytes.Clone(p)), nil
}

// ----- writing -----

func encodeValue(v models.Value, order binary.ByteOrder) ([]byte, error) {
	var raw interface{}
	switch v.Type {
	case exifcommon.TypeAscii:
		raw = v.Text
	case exifcommon.TypeByte:
		b := make([]byte, len(v.Ints))
		for i, n := range v.Ints {
			b[i] = byte(n)
		}
		raw = b
	case exifcommon.TypeShort:
		shorts := make([]uint16, len(v.Ints))
		for i, n := range v.Ints {
			shorts[i] = uint16(n)
		}
		raw = shorts
	case exifcommon.TypeLong:
		longs := make([]uint32, len(v.Ints))
		for i, n := range v.Ints {
			longs[i] = uint32(n)
		}
		raw = longs
	case exifcommon.TypeSignedLong:
		longs := make([]int32, len(v.Ints))
		for i, n := range v.Ints {
			longs[i] = int32(n)
		}
		raw = longs
	case exifcommon.TypeRational:
		raw = append([]exifcommon.Rational{}, v.Rationals...)
	case exifcommon.TypeSignedRational:
		raw = append([]exifcommon.SignedRational{}, v.SignedRationals...)
	case models.TypeSignedByte:
		b := make([]byte, len(v.Ints))
		for i, n := range v.Ints {
			b[i] = byte(int8(n))
		}
		return b, nil
	case models.TypeSignedShort:
		b := make([]byte, 2*len(v.Ints))
		for i, n := range v.Ints {
			order.PutUint16(b[2*i:], uint16(int16(n)))
		}
		return b, nil
	case exifcommon.TypeUndefined, exifcommon.TypeFloat, exifcommon.TypeDouble:
		if len(v.Bytes)%models.TypeSize(v.Type) != 0 {
			return nil, fmt.Errorf("%d bytes is not a whole number of units", len(v.Bytes))
		}
		return v.Bytes, nil
	default:
		return nil, fmt.Errorf("unsupported tag type %d", v.Type)
	}

	ed, err := exifcommon.NewValueEncoder(order).Encode(raw)
	if err != nil {
		return nil, err
	}
	return ed.Encoded, nil
}

type ifdEntry struct {
	tag     uint16
	typ     exifcommon.TagTypePrimitive
	count   uint32
	payload []byte
}

type ifdBlock struct {
	entries []ifdEntry
	offset  uint32
}

func newIFDBlock(ns models.Namespace, tags models.Tags, order binary.ByteOrder) (*ifdBlock, error) {
	b := &ifdBlock{}
	for tag, v := range tags {
		if isStructural(ns, tag) {
			continue
		}
		payload, err := encodeValue(v, order)
		if err != nil {
			return nil, fmt.Errorf("%s tag 0x%04x: %w", ns, tag, err)
		}
		b.entries = append(b.entries, ifdEntry{tag: tag, typ: v.Type, count: uint32(v.Count()), payload: payload})
	}
	return b, nil
}

// setPointer adds or updates a LONG structural entry. Entries keep the same
// size whatever the value, so layout can be computed before offsets are known.
func (b *ifdBlock) setPointer(tag uint16, value uint32, order binary.ByteOrder) {
	p := make([]byte, 4)
	order.PutUint32(p, value)
	for i := range b.entries {
		if b.entries[i].tag == tag {
			b.entries[i].payload = p
			return
		}
	}
	b.entries = append(b.entries, ifdEntry{tag: tag, typ: exifcommon.TypeLong, count: 1, payload: p})
}

func (b *ifdBlock) size() int {
	n := 2 + ifdEntrySize*len(b.entries) + 4
	for _, e := range b.entries {
		if len(e.payload) > 4 {
			n += len(e.payload) + len(e.payload)%2
		}
	}
	return n
}

func (b *ifdBlock) encode(order binary.ByteOrder, next uint32) []byte {
	sort.Slice(b.entries, func(i, j int) bool { return b.entries[i].tag < b.entries[j].tag })

	buf := make([]byte, b.size())
	order.PutUint16(buf, uint16(len(b.entries)))
	data := 2 + ifdEntrySize*len(b.entries) + 4
	for i, e := range b.entries {
		p := buf[2+ifdEntrySize*i:]
		order.PutUint16(p[0:], e.tag)
		order.PutUint16(p[2:], uint16(e.typ))
		order.PutUint32(p[4:], e.count)
		if len(e.payload) <= 4 {
			copy(p[8:12], e.payload)
			continue
		}
		order.PutUint32(p[8:], b.offset+uint32(data))
		copy(buf[data:], e.payload)
		data += len(e.payload) + len(e.payload)%2
	}
	order.PutUint32(buf[2+ifdEntrySize*len(b.entries):], next)
	return buf
}

// encodeTIFF lays the table out deterministically: header, IFD0, Exif, GPS,
// Interop, IFD1, thumbnail. Each block is followed by its own value area.
func encodeTIFF(t *models.TagTable) ([]byte, error) {
	order := t.ByteOrder
	if order == nil {
		order = binary.BigEndian
	}

	ifd0, err := newIFDBlock(models.NamespaceImage, t.Image, order)
	if err != nil {
		return nil, err
	}
	var exifB, gpsB, interopB, ifd1 *ifdBlock
	if t.Capture != nil || t.Interop != nil {
		if exifB, err = newIFDBlock(models.NamespaceCapture, t.Capture, order); err != nil {
			return nil, err
		}
		ifd0.setPointer(tagExifIFDPointer, 0, order)
	}
	if t.Interop != nil {
		if interopB, err = newIFDBlock(models.NamespaceInterop, t.Interop, order); err != nil {
			return nil, err
		}
		exifB.setPointer(tagInteropIFDPointer, 0, order)
	}
	if t.Location != nil {
		if gpsB, err = newIFDBlock(models.NamespaceLocation, t.Location, order); err != nil {
			return nil, err
		}
		ifd0.setPointer(tagGPSIFDPointer, 0, order)
	}
	if t.Thumbnail != nil || len(t.ThumbnailData) > 0 {
		if ifd1, err = newIFDBlock(models.NamespaceThumbnail, t.Thumbnail, order); err != nil {
			return nil, err
		}
		if len(t.ThumbnailData) > 0 {
			ifd1.setPointer(tagThumbnailOffset, 0, order)
			ifd1.setPointer(tagThumbnailLength, uint32(len(t.ThumbnailData)), order)
		}
	}

	var blocks []*ifdBlock
	for _, b := range []*ifdBlock{ifd0, exifB, gpsB, interopB, ifd1} {
		if b != nil {
			blocks = append(blocks, b)
		}
	}
	offset := uint32(tiffHeaderSize)
	for _, b := range blocks {
		b.offset = offset
		offset += uint32(b.size())
	}

	if exifB != nil {
		ifd0.setPointer(tagExifIFDPointer, exifB.offset, order)
	}
	if interopB != nil {
		exifB.setPointer(tagInteropIFDPointer, interopB.offset, order)
	}
	if gpsB != nil {
		ifd0.setPointer(tagGPSIFDPointer, gpsB.offset, order)
	}
	if ifd1 != nil && len(t.ThumbnailData) > 0 {
		ifd1.setPointer(tagThumbnailOffset, offset, order)
	}

	out := make([]byte, tiffHeaderSize, int(offset)+len(t.ThumbnailData))
	if order == binary.LittleEndian {
		copy(out, "II")
	} else {
		copy(out, "MM")
	}
	order.PutUint16(out[2:], 42)
	order.PutUint32(out[4:], tiffHeaderSize)
	for _, b := range blocks {
		var next uint32
		if b == ifd0 && ifd1 != nil {
			next = ifd1.offset
		}
		out = append(out, b.encode(order, next)...)
	}
	out = append(out, t.ThumbnailData...)
	return out, nil
}
