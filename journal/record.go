package journal

import (
	"encoding/binary"
	"hash/crc32"
	"io"
)

// Record framing, per the journal's on-disk layout:
//
//	record  := magic_u32 header body? padding? tail
//	header  := opcode_u32 opversion_u32 data_size_u32 reserved_u32
//	tail    := data_size_u32 crc32_u32
//	body    := data_size bytes
//	padding := zero bytes bringing header + body to a multiple of 8 bytes (the leading magic is not counted)
//
// All multi-byte integers are little-endian. CRC32 covers header + body +
// padding + the tail's data_size field, but not the record's leading magic
// and not the CRC field itself. Bodyless operations omit padding entirely:
// the tail follows the header directly.
//
// The header's reserved_u32 field carries the target's generation epoch at
// the time the operation was appended, so replay can select "operations
// with generation >= the checkpoint's generation" per spec.md's replay rule.

const (
	magicSize  = 4
	headerSize = 16 // opcode, opversion, data_size, reserved
	tailSize   = 8  // data_size, crc32
)

func padLen(n int) int {
	return (8 - n%8) % 8
}

// EncodeRecord serializes op, tagged with generation, into one on-disk
// record framed with magic.
func EncodeRecord(magic uint32, generation uint32, op Operation) []byte {
	dataSize := uint32(len(op.Body))

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], op.Opcode)
	binary.LittleEndian.PutUint32(header[4:8], op.Opversion)
	binary.LittleEndian.PutUint32(header[8:12], dataSize)
	binary.LittleEndian.PutUint32(header[12:16], generation)

	var body, padding []byte
	if !op.Bodyless() {
		body = op.Body
		padding = make([]byte, padLen(headerSize+len(body)))
	}

	tailDataSize := make([]byte, 4)
	binary.LittleEndian.PutUint32(tailDataSize, dataSize)

	crcInput := make([]byte, 0, len(header)+len(body)+len(padding)+4)
	crcInput = append(crcInput, header...)
	crcInput = append(crcInput, body...)
	crcInput = append(crcInput, padding...)
	crcInput = append(crcInput, tailDataSize...)
	crc := crc32.ChecksumIEEE(crcInput)

	out := make([]byte, 0, magicSize+len(crcInput)+4)
	magicBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(magicBytes, magic)
	out = append(out, magicBytes...)
	out = append(out, crcInput...)
	crcBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(crcBytes, crc)
	out = append(out, crcBytes...)
	return out
}

// DecodeRecord reads and validates one record from r, checking its magic,
// verifying header/tail data_size agreement, and verifying the CRC32. It
// returns the decoded operation and the generation it was tagged with.
func DecodeRecord(r io.Reader, expectMagic uint32) (Operation, uint32, error) {
	var magicBytes [4]byte
	if _, err := io.ReadFull(r, magicBytes[:]); err != nil {
		return Operation{}, 0, err
	}
	if binary.LittleEndian.Uint32(magicBytes[:]) != expectMagic {
		return Operation{}, 0, ErrBadMagic
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Operation{}, 0, err
	}
	opcode := binary.LittleEndian.Uint32(header[0:4])
	opversion := binary.LittleEndian.Uint32(header[4:8])
	dataSize := binary.LittleEndian.Uint32(header[8:12])
	generation := binary.LittleEndian.Uint32(header[12:16])

	var body, padding []byte
	if dataSize > 0 {
		body = make([]byte, dataSize)
		if _, err := io.ReadFull(r, body); err != nil {
			return Operation{}, 0, err
		}
		padding = make([]byte, padLen(headerSize+int(dataSize)))
		if len(padding) > 0 {
			if _, err := io.ReadFull(r, padding); err != nil {
				return Operation{}, 0, err
			}
		}
	}

	tail := make([]byte, tailSize)
	if _, err := io.ReadFull(r, tail); err != nil {
		return Operation{}, 0, err
	}
	tailDataSize := binary.LittleEndian.Uint32(tail[0:4])
	crc := binary.LittleEndian.Uint32(tail[4:8])
	if tailDataSize != dataSize {
		return Operation{}, 0, ErrSizeMismatch
	}

	crcInput := make([]byte, 0, len(header)+len(body)+len(padding)+4)
	crcInput = append(crcInput, header...)
	crcInput = append(crcInput, body...)
	crcInput = append(crcInput, padding...)
	crcInput = append(crcInput, tail[0:4]...)
	if crc32.ChecksumIEEE(crcInput) != crc {
		return Operation{}, 0, ErrCRCMismatch
	}

	var op Operation
	op.Opcode = opcode
	op.Opversion = opversion
	if dataSize > 0 {
		op.Body = body
	}
	return op, generation, nil
}
