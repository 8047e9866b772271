package packfile

import (
	"encoding/binary"

	"golang.org/x/xerrors"
)

// ErrDeltaCorrupt is returned when a delta instruction stream is
// malformed, or its header disagrees with the base object it's being
// applied against.
var ErrDeltaCorrupt = xerrors.New("corrupt delta")

// applyDelta reconstructs an object's content by replaying the
// instruction stream in delta against base.
//
// A delta is a header (the source size, then the target size, both
// variable-length encoded) followed by a sequence of COPY and INSERT
// instructions. COPY instructions (MSB set) copy a byte range out of
// base; INSERT instructions (MSB unset) carry their own literal bytes
// to append.
func applyDelta(base, delta []byte) ([]byte, error) {
	sourceSize, sourceSizeLen, err := readVarSize(delta)
	if err != nil {
		return nil, xerrors.Errorf("could not read delta source size: %w", err)
	}
	if int(sourceSize) != len(base) {
		return nil, xerrors.Errorf("delta expects a base of size %d, got %d: %w", sourceSize, len(base), ErrDeltaCorrupt)
	}

	targetSize, targetSizeLen, err := readVarSize(delta[sourceSizeLen:])
	if err != nil {
		return nil, xerrors.Errorf("could not read delta target size: %w", err)
	}

	instructions := delta[sourceSizeLen+targetSizeLen:]
	out := make([]byte, 0, targetSize)

	for i := 0; i < len(instructions); i++ {
		instr := instructions[i]

		if isMSBSet(instr) {
			// COPY: the low 4 bits say which of the 4 offset bytes
			// follow, the next 3 bits say which of the 3 size bytes
			// follow.
			offsetInfo := uint(instr & 0b_0000_1111)
			offsetBytes := make([]byte, 4)
			read := 0
			for j := uint(0); j < 4; j++ {
				if (offsetInfo>>j)&1 == 1 {
					if i+1+read >= len(instructions) {
						return nil, xerrors.Errorf("truncated copy offset: %w", ErrDeltaCorrupt)
					}
					offsetBytes[j] = instructions[i+1+read]
					read++
				}
			}
			offset := binary.LittleEndian.Uint32(offsetBytes)
			i += read

			sizeInfo := uint((instr & 0b_0111_0000) >> 4)
			sizeBytes := make([]byte, 4)
			read = 0
			for j := uint(0); j < 3; j++ {
				if (sizeInfo>>j)&1 == 1 {
					if i+1+read >= len(instructions) {
						return nil, xerrors.Errorf("truncated copy size: %w", ErrDeltaCorrupt)
					}
					sizeBytes[j] = instructions[i+1+read]
					read++
				}
			}
			copyLen := binary.LittleEndian.Uint32(sizeBytes)
			// a zero-length COPY actually means 0x10000 bytes, per the
			// pack format spec
			if copyLen == 0 {
				copyLen = 0x10000
			}
			i += read

			if uint64(offset)+uint64(copyLen) > uint64(len(base)) {
				return nil, xerrors.Errorf("copy instruction reads past the base object: %w", ErrDeltaCorrupt)
			}
			out = append(out, base[offset:offset+copyLen]...)
		} else {
			// INSERT: the low 7 bits are the number of literal bytes
			// that follow. 0x00 is reserved and must never appear.
			if instr == 0 {
				return nil, xerrors.Errorf("reserved opcode 0x00: %w", ErrDeltaCorrupt)
			}
			n := int(instr)
			start := i + 1
			end := start + n
			if end > len(instructions) {
				return nil, xerrors.Errorf("truncated insert instruction: %w", ErrDeltaCorrupt)
			}
			out = append(out, instructions[start:end]...)
			i += n
		}
	}

	if uint64(len(out)) != targetSize {
		return nil, xerrors.Errorf("delta produced %d bytes, expected %d: %w", len(out), targetSize, ErrDeltaCorrupt)
	}
	return out, nil
}
