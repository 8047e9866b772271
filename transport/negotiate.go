package transport

import (
	"bytes"
	"fmt"

	"github.com/goclone/gogit/githash"
	"github.com/goclone/gogit/transport/pktline"
)

// capabilities is the capability list sent with the single want line of a
// full clone. thin-pack is requested for parity with real git clients, but
// this module's packfile ingestion rejects any REF-delta whose base is in
// neither the same pack nor the destination store — see the packfile
// package's orchestrator.
const capabilities = "multi_ack_detailed side-band-64k thin-pack ofs-delta"

// BuildWantRequest builds the POST git-upload-pack request body for a full
// clone of headOid: a single want line carrying the capability list, a
// flush-pkt, and a done line. No "have" lines are sent, since a full clone
// has nothing already on hand.
func BuildWantRequest(headOid githash.Oid) []byte {
	var buf bytes.Buffer

	want, err := pktline.WriteLine([]byte(fmt.Sprintf("want %s %s\n", headOid.String(), capabilities)))
	if err != nil {
		// headOid.String() is always 40 hex chars and capabilities is a
		// fixed constant, so the line can never exceed MaxDataSize.
		panic(err)
	}
	buf.Write(want)
	buf.Write(pktline.FlushLine)

	done, err := pktline.WriteLine([]byte("done\n"))
	if err != nil {
		panic(err)
	}
	buf.Write(done)

	return buf.Bytes()
}
