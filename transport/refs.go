// Package transport implements the client side of a smart-HTTP v0
// upload-pack exchange: parsing the ref advertisement and building the
// want/done request body that drives the subsequent fetch.
package transport

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/goclone/gogit/githash"
	"github.com/goclone/gogit/transport/pktline"
	"golang.org/x/xerrors"
)

// ErrMalformedAdvertisement is returned when the upload-pack advertisement
// body can't be parsed as a sequence of pkt-lines, or is missing HEAD.
var ErrMalformedAdvertisement = xerrors.New("malformed ref advertisement")

// Advertisement is the result of parsing an upload-pack ref advertisement:
// the full set of refs the remote offered, plus the symbolic target of
// HEAD when the remote's first ref line carries a symref capability.
type Advertisement struct {
	// Refs maps ref name to the identity it points at, including the
	// pseudo-ref "HEAD" itself if the remote advertised one directly.
	Refs map[string]githash.Oid
	// HeadRef is the ref HEAD resolves to, taken from the first ref
	// line's "symref=HEAD:<target>" capability. Empty if the remote
	// didn't advertise one.
	HeadRef string
	// HeadOid is the identity HeadRef (or HEAD, if HeadRef is empty)
	// points at.
	HeadOid githash.Oid
}

// DiscoverRefs parses the body of a GET info/refs?service=git-upload-pack
// response.
//
// The first pkt-line announces the service (e.g. "# service=git-upload-pack\n")
// followed by a flush-pkt, then one pkt-line per ref: "<40-hex-sha> <name>\0<capabilities>"
// for the first ref, "<40-hex-sha> <name>" for the rest, terminated by a
// final flush-pkt.
func DiscoverRefs(body []byte) (*Advertisement, error) {
	r := bufio.NewReader(bytes.NewReader(body))

	// service announcement line, then its flush-pkt.
	if _, _, err := pktline.ReadLine(r); err != nil {
		return nil, xerrors.Errorf("reading service line: %w: %s", ErrMalformedAdvertisement, err)
	}
	if _, flush, err := pktline.ReadLine(r); err != nil || !flush {
		return nil, xerrors.Errorf("expected flush after service line: %w", ErrMalformedAdvertisement)
	}

	adv := &Advertisement{Refs: make(map[string]githash.Oid)}
	first := true

	for {
		line, flush, err := pktline.ReadLine(r)
		if err != nil {
			return nil, xerrors.Errorf("reading ref line: %w: %s", ErrMalformedAdvertisement, err)
		}
		if flush {
			break
		}

		payload := line
		var capabilities string
		if first {
			if nul := bytes.IndexByte(payload, 0); nul >= 0 {
				capabilities = string(payload[nul+1:])
				payload = payload[:nul]
			}
		}

		fields := strings.Fields(string(bytes.TrimRight(payload, "\n")))
		if len(fields) != 2 {
			return nil, xerrors.Errorf("ref line %q: %w", payload, ErrMalformedAdvertisement)
		}

		oid, err := githash.FromHex(fields[0])
		if err != nil {
			return nil, xerrors.Errorf("ref identity %q: %w: %s", fields[0], ErrMalformedAdvertisement, err)
		}
		name := fields[1]
		adv.Refs[name] = oid

		if first {
			first = false
			if target, ok := parseSymrefHead(capabilities); ok {
				adv.HeadRef = target
			}
		}
	}

	if adv.HeadRef != "" {
		oid, ok := adv.Refs[adv.HeadRef]
		if !ok {
			return nil, xerrors.Errorf("symref target %q not advertised: %w", adv.HeadRef, ErrMalformedAdvertisement)
		}
		adv.HeadOid = oid
	} else if oid, ok := adv.Refs["HEAD"]; ok {
		adv.HeadOid = oid
	} else {
		return nil, xerrors.Errorf("no HEAD in advertisement: %w", ErrMalformedAdvertisement)
	}

	return adv, nil
}

// parseSymrefHead scans a capability string for "symref=HEAD:<target-ref>".
func parseSymrefHead(capabilities string) (target string, ok bool) {
	for _, field := range strings.Fields(capabilities) {
		const prefix = "symref=HEAD:"
		if strings.HasPrefix(field, prefix) {
			return strings.TrimPrefix(field, prefix), true
		}
	}
	return "", false
}
