package transport_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/goclone/gogit/githash"
	"github.com/goclone/gogit/transport"
	"github.com/goclone/gogit/transport/pktline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pktLine(t *testing.T, payload string) []byte {
	t.Helper()
	line, err := pktline.WriteLine([]byte(payload))
	require.NoError(t, err)
	return line
}

func TestDiscoverRefsWithSymref(t *testing.T) {
	t.Parallel()

	headOid := "a94a8fe5ccb19ba61c4c0873d391e987982fbbd3"
	var body bytes.Buffer
	body.Write(pktLine(t, "# service=git-upload-pack\n"))
	body.Write(pktline.FlushLine)
	body.Write(pktLine(t, headOid+" HEAD\x00multi_ack symref=HEAD:refs/heads/main agent=git/2.0\n"))
	body.Write(pktLine(t, headOid+" refs/heads/main\n"))
	body.Write(pktline.FlushLine)

	adv, err := transport.DiscoverRefs(body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/main", adv.HeadRef)

	wantOid, err := githash.FromHex(headOid)
	require.NoError(t, err)
	assert.Equal(t, wantOid, adv.HeadOid)
	assert.Equal(t, wantOid, adv.Refs["refs/heads/main"])
}

func TestDiscoverRefsWithoutSymrefFallsBackToHEAD(t *testing.T) {
	t.Parallel()

	headOid := "0123456789abcdef0123456789abcdef01234567"
	var body bytes.Buffer
	body.Write(pktLine(t, "# service=git-upload-pack\n"))
	body.Write(pktline.FlushLine)
	body.Write(pktLine(t, headOid+" HEAD\x00multi_ack\n"))
	body.Write(pktline.FlushLine)

	adv, err := transport.DiscoverRefs(body.Bytes())
	require.NoError(t, err)
	assert.Empty(t, adv.HeadRef)

	wantOid, err := githash.FromHex(headOid)
	require.NoError(t, err)
	assert.Equal(t, wantOid, adv.HeadOid)
}

func TestDiscoverRefsMissingHEAD(t *testing.T) {
	t.Parallel()

	var body bytes.Buffer
	body.Write(pktLine(t, "# service=git-upload-pack\n"))
	body.Write(pktline.FlushLine)
	body.Write(pktline.FlushLine)

	_, err := transport.DiscoverRefs(body.Bytes())
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrMalformedAdvertisement)
}

func TestBuildWantRequest(t *testing.T) {
	t.Parallel()

	oid, err := githash.FromHex("a94a8fe5ccb19ba61c4c0873d391e987982fbbd3")
	require.NoError(t, err)

	body := transport.BuildWantRequest(oid)

	br := bufio.NewReader(bytes.NewReader(body))
	payload, flush, err := pktline.ReadLine(br)
	require.NoError(t, err)
	assert.False(t, flush)
	assert.Equal(t, "want a94a8fe5ccb19ba61c4c0873d391e987982fbbd3 multi_ack_detailed side-band-64k thin-pack ofs-delta\n", string(payload))

	_, flush, err = pktline.ReadLine(br)
	require.NoError(t, err)
	assert.True(t, flush)

	payload, flush, err = pktline.ReadLine(br)
	require.NoError(t, err)
	assert.False(t, flush)
	assert.Equal(t, "done\n", string(payload))
}
