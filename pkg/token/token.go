// Package token implements the GDS binary token codec: encoding and
// decoding the tagged, variable-width units that make up a GDS payload,
// each annotated with its absolute byte location in the file.
//
// Grounded on the original decompiler's low-level token read/write
// helpers in gds.py (read_token/write_token and the TAG_* constants),
// using encoding/binary.LittleEndian for every multi-byte field in the
// idiom the teacher repo already applies to its own little-endian
// fields (pkg/cpu/hibernate.go).
package token

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Tag identifies a token's wire shape.
type Tag uint16

const (
	TagCommand Tag = 0x00
	TagInt     Tag = 0x01
	TagFloat   Tag = 0x02
	TagString  Tag = 0x03
	TagLongStr Tag = 0x04
	TagUnused5 Tag = 0x05
	TagSAddr   Tag = 0x06
	TagTAddr   Tag = 0x07
	TagNot     Tag = 0x08
	TagAnd     Tag = 0x09
	TagOr      Tag = 0x0A
	TagBreak   Tag = 0x0B
	TagFileEnd Tag = 0x0C
)

func (t Tag) String() string {
	switch t {
	case TagCommand:
		return "command"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagString:
		return "string"
	case TagLongStr:
		return "longstr"
	case TagUnused5:
		return "unused5"
	case TagSAddr:
		return "saddr"
	case TagTAddr:
		return "taddr"
	case TagNot:
		return "NOT"
	case TagAnd:
		return "AND"
	case TagOr:
		return "OR"
	case TagBreak:
		return "BREAK"
	case TagFileEnd:
		return "fileend"
	default:
		return fmt.Sprintf("Tag(0x%02X)", uint16(t))
	}
}

// Token is one decoded unit of the binary stream, tagged with the
// absolute byte offset (including the 4-byte length header) at which
// its tag word begins.
type Token struct {
	Tag Tag
	Loc int

	// Exactly one of the following is populated, selected by Tag.
	CommandID int     // TagCommand
	Int       int64   // TagInt, sign-extended from the 4-byte LE payload
	Float     float32 // TagFloat
	Str       string  // TagString, TagLongStr
	Addr      int     // TagSAddr, TagTAddr
}

// HeaderSize is the length of the leading file-length header.
const HeaderSize = 4

// ReadHeader reads and validates the 4-byte little-endian payload length
// header, returning the declared payload length.
func ReadHeader(data []byte) (payloadLen int, err error) {
	if len(data) < HeaderSize {
		return 0, fmt.Errorf("file too short for header: %d bytes", len(data))
	}
	n := binary.LittleEndian.Uint32(data[:HeaderSize])
	return int(n), nil
}

// Decode reads one token starting at *cursor (an absolute offset into
// data, including the header), advancing *cursor past it.
func Decode(data []byte, cursor *int) (Token, error) {
	start := *cursor
	if start+2 > len(data) {
		return Token{}, fmt.Errorf("truncated token at offset %d", start)
	}
	tag := Tag(binary.LittleEndian.Uint16(data[start : start+2]))
	pos := start + 2

	tok := Token{Tag: tag, Loc: start}

	switch tag {
	case TagCommand:
		if pos+2 > len(data) {
			return Token{}, fmt.Errorf("truncated command token at offset %d", start)
		}
		tok.CommandID = int(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2
	case TagInt:
		if pos+4 > len(data) {
			return Token{}, fmt.Errorf("truncated int token at offset %d", start)
		}
		tok.Int = int64(int32(binary.LittleEndian.Uint32(data[pos : pos+4])))
		pos += 4
	case TagFloat:
		if pos+4 > len(data) {
			return Token{}, fmt.Errorf("truncated float token at offset %d", start)
		}
		bits := binary.LittleEndian.Uint32(data[pos : pos+4])
		tok.Float = math.Float32frombits(bits)
		pos += 4
	case TagString, TagLongStr:
		if pos+2 > len(data) {
			return Token{}, fmt.Errorf("truncated string length at offset %d", start)
		}
		length := int(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2
		if length < 1 || pos+length > len(data) {
			return Token{}, fmt.Errorf("truncated string body at offset %d", start)
		}
		// length includes the trailing NUL.
		tok.Str = string(data[pos : pos+length-1])
		pos += length
	case TagSAddr, TagTAddr:
		if pos+4 > len(data) {
			return Token{}, fmt.Errorf("truncated address token at offset %d", start)
		}
		tok.Addr = int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4
	case TagUnused5, TagNot, TagAnd, TagOr, TagBreak, TagFileEnd:
		// No payload.
	default:
		return Token{}, fmt.Errorf("invalid tag 0x%02X at offset %d", uint16(tag), start)
	}

	*cursor = pos
	return tok, nil
}

// Encode appends the wire representation of tok to buf. It never fails
// on a well-formed Token; type/range mismatches are caught earlier, by
// the value-type registry and the reader/writer that construct tok.
func Encode(buf *bytes.Buffer, tok Token) {
	var tagBytes [2]byte
	binary.LittleEndian.PutUint16(tagBytes[:], uint16(tok.Tag))
	buf.Write(tagBytes[:])

	switch tok.Tag {
	case TagCommand:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(tok.CommandID))
		buf.Write(b[:])
	case TagInt:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(int32(tok.Int)))
		buf.Write(b[:])
	case TagFloat:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(tok.Float))
		buf.Write(b[:])
	case TagString, TagLongStr:
		body := append([]byte(tok.Str), 0)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(len(body)))
		buf.Write(b[:])
		buf.Write(body)
	case TagSAddr, TagTAddr:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(tok.Addr))
		buf.Write(b[:])
	case TagUnused5, TagNot, TagAnd, TagOr, TagBreak, TagFileEnd:
		// No payload.
	}
}

// WriteHeader prepends the 4-byte little-endian payload length header
// to payload.
func WriteHeader(payload []byte) []byte {
	out := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out[:HeaderSize], uint32(len(payload)))
	copy(out[HeaderSize:], payload)
	return out
}
