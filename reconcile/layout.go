package reconcile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/sharedcode/storeengine"
)

// cellType tags the single byte every cell opens with, so a page image can be decoded without
// positional knowledge of its neighbors.
type cellType uint8

const (
	cellKey cellType = iota
	cellValue
	cellDeletedRLE
	cellOff
	cellColInt
	cellKeyOverflow
	cellValueOverflow
	cellRawOverflow
	cellFixed
)

const headerSize = 1 + 3 + 8 + 4 + 4 // type + pad + starting_recno + entries + data_len

// pageHeader is the fixed-size prefix of every on-disk page image.
type pageHeader struct {
	Type          uint8
	_             [3]byte
	StartingRecno uint64
	Entries       uint32
	DataLen       uint32
}

func encodeHeader(typ PageType, startingRecno int64, entries int, data []byte) []byte {
	hdr := pageHeader{
		Type:          uint8(typ),
		StartingRecno: uint64(startingRecno),
		Entries:       uint32(entries),
		DataLen:       uint32(len(data)),
	}
	var buf bytes.Buffer
	buf.Grow(headerSize + len(data))
	_ = binary.Write(&buf, binary.LittleEndian, hdr)
	buf.Write(data)
	return buf.Bytes()
}

func decodeHeader(image []byte) (PageType, int64, int, []byte, error) {
	if len(image) < headerSize {
		return 0, 0, 0, nil, storeengine.Error{Code: storeengine.Corruption, Err: fmt.Errorf("page image shorter than header (%d bytes)", len(image))}
	}
	var hdr pageHeader
	if err := binary.Read(bytes.NewReader(image[:headerSize]), binary.LittleEndian, &hdr); err != nil {
		return 0, 0, 0, nil, storeengine.Error{Code: storeengine.Corruption, Err: err}
	}
	data := image[headerSize:]
	if int(hdr.DataLen) != len(data) {
		return 0, 0, 0, nil, storeengine.Error{Code: storeengine.Corruption, Err: fmt.Errorf("page data_len %d does not match image (%d bytes)", hdr.DataLen, len(data))}
	}
	return PageType(hdr.Type), int64(hdr.StartingRecno), int(hdr.Entries), data, nil
}

func encodeKeyCell(prefixLen uint8, suffix []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(cellKey))
	buf.WriteByte(prefixLen)
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(suffix)))
	buf.Write(lenBuf[:])
	buf.Write(suffix)
	return buf.Bytes()
}

func encodeValueCell(rle uint32, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(cellValue))
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], rle)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(data)))
	buf.Write(hdr[:])
	buf.Write(data)
	return buf.Bytes()
}

func encodeDeletedRLECell(rle uint32) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(cellDeletedRLE))
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], rle)
	buf.Write(hdr[:])
	return buf.Bytes()
}

func encodeOffCell(off Off) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(cellOff))
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(off.Addr))
	binary.LittleEndian.PutUint32(hdr[4:8], off.Size)
	buf.Write(hdr[:])
	return buf.Bytes()
}

func encodeColIntCell(off Off, recno int64) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(cellColInt))
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(off.Addr))
	binary.LittleEndian.PutUint32(hdr[4:8], off.Size)
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(recno))
	buf.Write(hdr[:])
	return buf.Bytes()
}

func encodeOverflowCell(kind cellType, off Off, rle uint32) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(kind))
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(off.Addr))
	binary.LittleEndian.PutUint32(hdr[4:8], off.Size)
	binary.LittleEndian.PutUint32(hdr[8:12], rle)
	buf.Write(hdr[:])
	return buf.Bytes()
}

func encodeRawOverflowPassthrough(raw []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(cellRawOverflow))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(raw)))
	buf.Write(lenBuf[:])
	buf.Write(raw)
	return buf.Bytes()
}

func encodeFixedCell(data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(cellFixed))
	buf.Write(data)
	return buf.Bytes()
}

func sharedPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
