// Package ranger implements an io.ReaderAt over HTTP, using Range
// requests to pull back only the bytes a caller actually asked for.
// It exists so gsip and tarfs can treat a remote object the same way
// they treat a local file or an mmap: as something you seek into, not
// something you stream start-to-finish.
package ranger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ErrRangeUnsupported is the sentinel every StatusError wraps: the
// remote end answered a Range request with something other than 206
// Partial Content or a redirect, so it either ignores Range entirely
// or is refusing this particular request.
var ErrRangeUnsupported = errors.New("ranger: server does not support range requests")

// StatusError reports the HTTP status that made ReadAt give up on a
// URI. It satisfies errors.Is(err, ErrRangeUnsupported).
type StatusError struct {
	URI  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ranger: %q returned status %d for a range request", e.URI, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrRangeUnsupported }

// errTooManyRedirects guards against a server that redirects forever;
// see maxRedirects.
var errTooManyRedirects = errors.New("ranger: too many redirects")

// maxRedirects bounds how many 3xx hops ReadAt will chase for a single
// read before giving up, the same way tarfs.maxHops bounds symlink
// chases. Without a limit a misbehaving or misconfigured server could
// redirect a ReadAt call forever.
const maxRedirects = 10

// Reader is an io.ReaderAt backed by HTTP Range requests against uri.
// A redirect response updates uri in place, so later reads skip the
// hop that's already been resolved.
type Reader struct {
	ctx context.Context
	rt  http.RoundTripper
	uri string
}

// New constructs a Reader that issues its requests through rt (for
// example, an *http.Client's Transport), scoped to ctx.
func New(ctx context.Context, uri string, rt http.RoundTripper) *Reader {
	return &Reader{
		ctx: ctx,
		rt:  rt,
		uri: uri,
	}
}

// ReadAt implements io.ReaderAt with a single HTTP Range request per
// call (plus however many redirects it takes to land on a server that
// actually answers with 206).
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	return r.readAt(p, off, 0)
}

func (r *Reader) readAt(p []byte, off int64, redirects int) (int, error) {
	if redirects > maxRedirects {
		return 0, fmt.Errorf("ranger: resolving %q: %w", r.uri, errTooManyRedirects)
	}

	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.uri, nil)
	if err != nil {
		return 0, fmt.Errorf("ranger: building request for %q: %w", r.uri, err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1))

	res, err := r.rt.RoundTrip(req)
	if err != nil {
		return 0, fmt.Errorf("ranger: requesting %q: %w", r.uri, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusPartialContent {
		n, err := io.ReadFull(res.Body, p)
		if err != nil {
			return n, fmt.Errorf("ranger: reading bytes [%d,%d) from %q: %w", off, off+int64(len(p)), r.uri, err)
		}
		return n, nil
	}

	if res.StatusCode/100 != 3 {
		return 0, &StatusError{URI: r.uri, Code: res.StatusCode}
	}

	redir := res.Header.Get("Location")
	if redir == "" {
		return 0, &StatusError{URI: r.uri, Code: res.StatusCode}
	}

	u, err := url.Parse(redir)
	if err != nil {
		return 0, fmt.Errorf("ranger: parsing redirect target %q: %w", redir, err)
	}

	r.uri = req.URL.ResolveReference(u).String()
	return r.readAt(p, off, redirects+1)
}
