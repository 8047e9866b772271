package pktline_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/goclone/gogit/transport/pktline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadLineRoundTrip(t *testing.T) {
	t.Parallel()

	line, err := pktline.WriteLine([]byte("want deadbeef\n"))
	require.NoError(t, err)
	assert.Equal(t, "0012want deadbeef\n", string(line))

	r := bufio.NewReader(bytes.NewReader(line))
	payload, flush, err := pktline.ReadLine(r)
	require.NoError(t, err)
	assert.False(t, flush)
	assert.Equal(t, []byte("want deadbeef\n"), payload)
}

func TestReadLineFlush(t *testing.T) {
	t.Parallel()

	r := bufio.NewReader(bytes.NewReader(pktline.FlushLine))
	payload, flush, err := pktline.ReadLine(r)
	require.NoError(t, err)
	assert.True(t, flush)
	assert.Nil(t, payload)
}

func TestReadLineInvalidLength(t *testing.T) {
	t.Parallel()

	r := bufio.NewReader(bytes.NewReader([]byte("zzzzdata")))
	_, _, err := pktline.ReadLine(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, pktline.ErrInvalidLength)
}

func TestDemuxSideBandSplitsChannels(t *testing.T) {
	t.Parallel()

	packChunk, err := pktline.WriteLine(append([]byte{0x01}, []byte("PACKdata")...))
	require.NoError(t, err)
	progressChunk, err := pktline.WriteLine(append([]byte{0x02}, []byte("Counting objects")...))
	require.NoError(t, err)

	var stream bytes.Buffer
	stream.Write(progressChunk)
	stream.Write(packChunk)
	stream.Write(pktline.FlushLine)

	pack, progress, err := pktline.Demux(&stream)
	require.NoError(t, err)
	assert.Equal(t, []byte("PACKdata"), pack)
	require.Len(t, progress, 1)
	assert.Equal(t, "Counting objects", progress[0])
}

func TestDemuxFatalError(t *testing.T) {
	t.Parallel()

	fatalChunk, err := pktline.WriteLine(append([]byte{0x03}, []byte("upload-pack: not our ref")...))
	require.NoError(t, err)

	_, _, err = pktline.Demux(bytes.NewReader(fatalChunk))
	require.Error(t, err)
	assert.ErrorIs(t, err, pktline.ErrRemoteFatal)
}

func TestDemuxFallsBackWithoutSideBand(t *testing.T) {
	t.Parallel()

	line, err := pktline.WriteLine([]byte("PACKrawdata"))
	require.NoError(t, err)

	var stream bytes.Buffer
	stream.Write(line)
	stream.Write(pktline.FlushLine)

	pack, _, err := pktline.Demux(&stream)
	require.NoError(t, err)
	assert.Equal(t, []byte("PACKrawdata"), pack)
}
