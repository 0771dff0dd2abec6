package source

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"resty.dev/v3"

	"github.com/g5becks/mex/internal/config"
)

//nolint:gochecknoglobals // Test-only exports
var (
	FilenameFromURL = filenameFromURL
	MatchesAny      = matchesAny
)

// Reply is a canned response of a stubbed url source.
type Reply struct {
	Status int
	Body   string
	Header http.Header
}

type stubTransport func(*http.Request) Reply

func (f stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reply := f(req)
	if reply.Header == nil {
		reply.Header = http.Header{}
	}

	return &http.Response{
		Status:        http.StatusText(reply.Status),
		StatusCode:    reply.Status,
		Header:        reply.Header,
		Body:          io.NopCloser(strings.NewReader(reply.Body)),
		ContentLength: int64(len(reply.Body)),
		Request:       req,
	}, nil
}

// NewStubbedURL returns a url source whose requests are answered by serve
// instead of the network.
func NewStubbedURL(t *testing.T, name string, cfg config.Source, serve func(*http.Request) Reply) Source {
	t.Helper()

	src, err := NewURL(name, cfg)
	if err != nil {
		t.Fatalf("NewURL() error = %v", err)
	}

	u, ok := src.(*urlSource)
	if !ok {
		t.Fatalf("NewURL() returned %T", src)
	}
	u.client = resty.New().SetTransport(stubTransport(serve))

	return u
}
