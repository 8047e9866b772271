package packfile

import (
	"bytes"
	"testing"

	"github.com/goclone/gogit/object"
	"github.com/goclone/gogit/objcodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeTypeSizeForTest mirrors the leading metadata byte(s) of a record:
// type in the first byte's middle 3 bits, size split 4-then-7 bits.
func encodeTypeSizeForTest(kind object.Type, size uint64) []byte {
	first := byte(kind)<<4 | byte(size&0x0f)
	rest := size >> 4
	if rest == 0 {
		return []byte{first}
	}
	first |= 0x80
	out := []byte{first}
	for rest > 0 {
		chunk := byte(rest & 0x7f)
		rest >>= 7
		if rest > 0 {
			chunk |= 0x80
		}
		out = append(out, chunk)
	}
	return out
}

func TestResyncFindsNextValidRecord(t *testing.T) {
	t.Parallel()

	content := []byte("recovered content")
	var compressed bytes.Buffer
	require.NoError(t, objcodec.Deflate(&compressed, content))

	record := append(encodeTypeSizeForTest(object.TypeBlob, uint64(len(content))), compressed.Bytes()...)

	junk := bytes.Repeat([]byte{0xff}, 5)
	data := append(append([]byte{}, junk...), record...)

	ok, newOffset := resync(data, 0)
	require.True(t, ok)
	assert.Equal(t, uint64(len(junk)), newOffset)

	rec, err := ReadRecord(data, newOffset)
	require.NoError(t, err)
	assert.Equal(t, content, rec.Data)
}

func TestResyncGivesUpPastWindow(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte{0xff}, resyncWindow+10)
	ok, _ := resync(data, 0)
	assert.False(t, ok)
}
