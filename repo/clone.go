package repo

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goclone/gogit/packfile"
	"github.com/goclone/gogit/transport"
	"github.com/goclone/gogit/transport/pktline"
	"github.com/goclone/gogit/worktree"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// userAgent is sent on every request, matching the value real git clients
// use for the smart-HTTP v0 protocol this module speaks.
const userAgent = "git/2.0"

// HTTPDoer is satisfied by *http.Client. It exists so tests can
// substitute a fake transport instead of making real network calls.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CloneOptions configures Clone.
type CloneOptions struct {
	// HTTPClient is used to perform the info/refs and upload-pack
	// requests. Defaults to http.DefaultClient.
	HTTPClient HTTPDoer
}

// Clone fetches repoURL's default branch over smart-HTTP v0 and
// materializes it at dest on fs: discover refs, negotiate a full-clone
// want request, ingest the returned packfile into the object store, then
// write the working tree and update refs/HEAD to match.
func Clone(fs afero.Fs, repoURL, dest string, opts CloneOptions) (*Repository, error) {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	base := strings.TrimRight(repoURL, "/")
	if !strings.HasSuffix(base, ".git") {
		base += ".git"
	}

	adv, err := discoverRefs(client, base)
	if err != nil {
		return nil, xerrors.Errorf("discovering refs: %w", err)
	}

	packData, err := fetchPack(client, base, adv)
	if err != nil {
		return nil, xerrors.Errorf("fetching pack: %w", err)
	}

	r, err := Init(fs, dest, false)
	if err != nil {
		return nil, xerrors.Errorf("initializing destination repository: %w", err)
	}

	if _, err := packfile.Ingest(r.store, packData); err != nil {
		return nil, xerrors.Errorf("ingesting packfile: %w", err)
	}

	branch := defaultBranch
	if adv.HeadRef != "" {
		branch = adv.HeadRef
	}
	if err := r.UpdateRef(branch, adv.HeadOid); err != nil {
		return nil, xerrors.Errorf("updating %s: %w", branch, err)
	}
	if err := afero.WriteFile(fs, r.gitDir+"/HEAD", []byte("ref: "+branch+"\n"), 0o644); err != nil {
		return nil, xerrors.Errorf("updating HEAD: %w", err)
	}

	if err := worktree.Materialize(fs, r.store, adv.HeadOid, dest); err != nil {
		return nil, xerrors.Errorf("materializing worktree: %w", err)
	}

	return r, nil
}

func discoverRefs(client HTTPDoer, base string) (*transport.Advertisement, error) {
	u, err := url.Parse(base + "/info/refs")
	if err != nil {
		return nil, xerrors.Errorf("invalid repository URL: %w", err)
	}
	q := u.Query()
	q.Set("service", "git-upload-pack")
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("unexpected status %s fetching %s", resp.Status, u.String())
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, xerrors.Errorf("reading response: %w", err)
	}

	return transport.DiscoverRefs(body)
}

func fetchPack(client HTTPDoer, base string, adv *transport.Advertisement) ([]byte, error) {
	want := transport.BuildWantRequest(adv.HeadOid)

	req, err := http.NewRequest(http.MethodPost, base+"/git-upload-pack", bytes.NewReader(want))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-git-upload-pack-request")

	resp, err := client.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("unexpected status %s fetching pack", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, xerrors.Errorf("reading response: %w", err)
	}

	packData, _, err := pktline.Demux(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return packData, nil
}
