package source

import (
	"context"
	"io"
	"net/http"
	neturl "net/url"
	"path"
	"time"

	"github.com/samber/oops"
	"resty.dev/v3"

	"github.com/g5becks/mex/internal/config"
	"github.com/g5becks/mex/internal/lockfile"
)

const (
	acceptMarkdown = "text/markdown, text/plain;q=0.9, */*;q=0.5"
	fetchTimeout   = time.Minute
)

// urlSource is a single remote document, revalidated with the ETag and
// Last-Modified values stored in the lock entry.
type urlSource struct {
	name     string
	url      string
	filename string
	client   *resty.Client
}

func NewURL(name string, cfg config.Source) (Source, error) {
	filename := cfg.Filename
	if filename == "" {
		filename = filenameFromURL(name, cfg.URL)
	}

	return &urlSource{
		name:     name,
		url:      cfg.URL,
		filename: filename,
		client:   resty.New().SetHeader("Accept", acceptMarkdown).SetTimeout(fetchTimeout),
	}, nil
}

func (s *urlSource) Fetch(ctx context.Context, prevLock *lockfile.LockEntry, opts FetchOptions) (*FetchResult, error) {
	fail := oops.Code("DOWNLOAD_FAILED").With("source", s.name).With("url", s.url)

	request := s.client.R().SetContext(ctx)
	if !opts.Force {
		request.SetHeaders(conditionalHeaders(prevLock))
	}

	response, err := request.Get(s.url)
	if err != nil {
		return nil, fail.Wrapf(err, "downloading url source")
	}

	status := response.StatusCode()
	switch {
	case status == http.StatusNotModified:
		return s.notModified(prevLock), nil
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return nil, fail.With("status", status).Errorf("url source returned non-success status %d", status)
	}

	content, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fail.Wrapf(err, "reading response body")
	}

	etag := response.Header().Get("ETag")
	lastMod := response.Header().Get("Last-Modified")

	result := &FetchResult{
		Documents: []Document{newDocument(s.filename, content, modifiedAt(lastMod))},
	}
	result.LockEntry = &lockfile.LockEntry{
		Type:    config.SourceTypeURL,
		ETag:    etag,
		LastMod: lastMod,
		BuiltAt: time.Now().UTC(),
		Files:   result.Files(),
	}

	return result, nil
}

// notModified keeps the previous entry so the stored hashes and
// validators survive into the next lock file.
func (s *urlSource) notModified(prevLock *lockfile.LockEntry) *FetchResult {
	lock := prevLock.Clone()
	if lock == nil {
		lock = &lockfile.LockEntry{}
	}
	lock.Type = config.SourceTypeURL

	return &FetchResult{NotModified: true, LockEntry: lock}
}

func conditionalHeaders(prevLock *lockfile.LockEntry) map[string]string {
	headers := map[string]string{}
	if prevLock == nil {
		return headers
	}

	if prevLock.ETag != "" {
		headers["If-None-Match"] = prevLock.ETag
	}
	if prevLock.LastMod != "" {
		headers["If-Modified-Since"] = prevLock.LastMod
	}

	return headers
}

// modifiedAt parses a Last-Modified header, falling back to now.
func modifiedAt(lastMod string) time.Time {
	if parsed, err := http.ParseTime(lastMod); lastMod != "" && err == nil {
		return parsed.UTC()
	}

	return time.Now().UTC()
}

// filenameFromURL names the document after the last URL path segment,
// or after the source when the path has none.
func filenameFromURL(sourceName string, rawURL string) string {
	if parsed, err := neturl.Parse(rawURL); err == nil {
		if base := path.Base(parsed.Path); base != "." && base != "/" {
			return base
		}
	}

	return sourceName + ".md"
}
