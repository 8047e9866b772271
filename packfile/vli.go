package packfile

import "errors"

// ErrIntOverflow is an error thrown when the packfile couldn't
// be parsed because some data couldn't fit in a uint64
var ErrIntOverflow = errors.New("int64 overflow")

// isMSBSet checks if the MSB of a byte is set to 1.
// The MSB is the first bit on the left
func isMSBSet(b byte) bool {
	return b >= 0b_1000_0000
}

// unsetMSB sets the most left bit of the byte to 0
func unsetMSB(b byte) byte {
	// To make any bit turn to 0 we can use a mask and an AND operator.
	// Example:
	// value       : XXXX_XXXX
	// & 0111_1111 : 0XXX_XXXX
	return b & 0b_0111_1111
}

// insertLittleEndian7 inserts $chunk into $base from the left.
// The chunk is inserted whole; callers clear its MSB first.
// Example:
// base   = 1110_1010_1111_1100
// chunk  = 1010_1011
// Result = 1010_1011_1110_1010_1111_1100 [chunk][base]
func insertLittleEndian7(base uint64, chunk, position uint8) uint64 {
	return (uint64(chunk) << (position * 7)) | base
}

// insertBigEndian7 inserts $chunk into $base from the right.
// The chunk is inserted whole; callers clear its MSB first.
// Example:
// base   = 1110_1010_1111_1100
// chunk  = 1010_1011
// Result = 1110_1010_1111_1100_1010_1011 [base][chunk]
func insertBigEndian7(base uint64, chunk uint8) uint64 {
	return base<<7 | uint64(chunk)
}

// readVarSize reads a little-endian variable-length size, 7 bits per
// byte, from the start of data. It is used for the continuation chunks
// of a record's size (after the initial metadata byte) and for a
// delta's source and target sizes.
func readVarSize(data []byte) (size uint64, bytesRead int, err error) {
	for i, b := range data {
		bytesRead++

		// We make sure to remove the MSB because it's not part of the size
		chunk := unsetMSB(b)

		// Sizes are little-endian encoded
		size = insertLittleEndian7(size, chunk, uint8(i))

		// No more MSB? Then we're done reading the size
		if !isMSBSet(b) {
			break
		}
	}

	if bytesRead == 0 {
		return 0, 0, ErrIntOverflow
	}
	// if the last byte read has its MSB set it means that we have an
	// overflow (bytesRead - 1 is also == to len(data))
	if isMSBSet(data[bytesRead-1]) {
		return 0, 0, ErrIntOverflow
	}

	return size, bytesRead, nil
}

// readDeltaOffset reads the given bytes to extract an OFS-delta base
// offset.
// The format of each byte is:
// - 1 bit (MSB) that is used to know if we need to read the next byte
// - 7 bits that contain a chunk of the offset
// The offset is big-endian encoded. Each chunk of offset (except the
// last one) is stored -1, so 1 is added back to the value read so far
// before the next chunk is appended.
func readDeltaOffset(data []byte) (offset uint64, bytesRead int, err error) {
	for i, b := range data {
		bytesRead++

		// We set the MSB to 0 since it's not part of the offset
		chunk := unsetMSB(b)

		// To save space, all chunks besides the last one are stored -1
		if i > 0 {
			offset++
		}

		// Offsets are big-endian encoded
		offset = insertBigEndian7(offset, chunk)

		// No more MSB? Then we're done reading the offset
		if !isMSBSet(b) {
			break
		}
	}
	if bytesRead == 0 {
		return 0, 0, ErrIntOverflow
	}
	if isMSBSet(data[bytesRead-1]) {
		return 0, 0, ErrIntOverflow
	}

	return offset, bytesRead, nil
}
