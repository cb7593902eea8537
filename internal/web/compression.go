package web

import (
	"compress/flate"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// decompressTransport advertises br/gzip/deflate and decodes the response
// body. Setting Accept-Encoding ourselves switches off net/http's built-in
// gzip handling, so every encoding we offer must be handled here.
type decompressTransport struct {
	next http.RoundTripper
}

func newDecompressTransport(next http.RoundTripper) *decompressTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &decompressTransport{next: next}
}

func (t *decompressTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", "br, gzip, deflate")
	}
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := decodeBody(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

type wrappedBody struct {
	io.Reader
	closers []io.Closer
}

func (w *wrappedBody) Close() error {
	var errs []error
	for _, c := range w.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func decodeBody(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}
	encodings := resp.Header.Values("Content-Encoding")
	if len(encodings) == 0 {
		return nil
	}

	body := &wrappedBody{Reader: resp.Body, closers: []io.Closer{resp.Body}}
	// Encodings are listed in the order they were applied.
	for i := len(encodings) - 1; i >= 0; i-- {
		for _, enc := range reverse(strings.Split(encodings[i], ",")) {
			switch strings.ToLower(strings.TrimSpace(enc)) {
			case "", "identity":
			case "br":
				body.Reader = brotli.NewReader(body.Reader)
			case "gzip", "x-gzip":
				zr, err := gzip.NewReader(body.Reader)
				if err != nil {
					return fmt.Errorf("gzip response: %w", err)
				}
				body.Reader = zr
				body.closers = append([]io.Closer{zr}, body.closers...)
			case "deflate":
				fr := flate.NewReader(body.Reader)
				body.Reader = fr
				body.closers = append([]io.Closer{fr}, body.closers...)
			default:
				return fmt.Errorf("unsupported Content-Encoding %q", enc)
			}
		}
	}

	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

func reverse(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}
