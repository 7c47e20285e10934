// Package downloader fetches event banner images next to an export.
package downloader

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/zyniel/westie/internal/event"
	"github.com/zyniel/westie/internal/ratelimit"
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "westie/0.1 (+https://github.com/zyniel/westie)"

// Job is one banner to fetch.
type Job struct {
	Index int
	Name  string
	URL   string
}

// Result represents the result of a download operation
type Result struct {
	Job      Job
	FilePath string
	Size     int64
	Err      error
	Duration time.Duration
}

// Options configures the downloader.
type Options struct {
	Dir         string
	Timeout     time.Duration
	UserAgent   string
	Concurrency int
	// RatePerHost caps requests per second to a single host. Zero disables it.
	RatePerHost float64
}

// Downloader handles concurrent banner downloads with streaming I/O
type Downloader struct {
	client  *http.Client
	limiter *ratelimit.HostLimiter
	opts    Options
}

// New returns a Downloader writing into opts.Dir.
func New(opts Options) *Downloader {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Concurrency > 16 {
		opts.Concurrency = 16
	}

	return &Downloader{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: opts.Concurrency,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: ratelimit.NewHostLimiter(opts.RatePerHost, 1),
		opts:    opts,
	}
}

// JobsFromTable lists the events of table that carry a banner, by index.
func JobsFromTable(table *event.Table) []Job {
	var jobs []Job
	for _, entry := range table.Entries() {
		if u := entry.Event.BannerURL(); u != nil {
			jobs = append(jobs, Job{Index: entry.Index, Name: entry.Event.Name(), URL: u.String()})
		}
	}
	return jobs
}

// Download fetches one banner. The file is named after the list index and
// the event name; the extension follows the response content type.
func (d *Downloader) Download(ctx context.Context, job Job) Result {
	started := time.Now()
	res := Result{Job: job}
	fail := func(err error) Result {
		res.Err = err
		res.Duration = time.Since(started)
		return res
	}

	if err := os.MkdirAll(d.opts.Dir, 0o755); err != nil {
		return fail(fmt.Errorf("failed to create output directory: %w", err))
	}
	if err := d.limiter.Wait(ctx, job.URL); err != nil {
		return fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("bad status: %s", resp.Status))
	}

	ext, err := extension(resp.Header.Get("Content-Type"), job.URL)
	if err != nil {
		return fail(err)
	}
	res.FilePath = filepath.Join(d.opts.Dir, FileName(job)+ext)

	tmp, err := os.CreateTemp(d.opts.Dir, ".banner-*")
	if err != nil {
		return fail(fmt.Errorf("failed to create file: %w", err))
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fail(fmt.Errorf("failed to write file: %w", err))
	}
	if err := os.Rename(tmp.Name(), res.FilePath); err != nil {
		os.Remove(tmp.Name())
		return fail(fmt.Errorf("failed to move file into place: %w", err))
	}

	res.Size = n
	res.Duration = time.Since(started)

	zerolog.Ctx(ctx).Debug().
		Int("index", job.Index).
		Str("url", job.URL).
		Str("file", res.FilePath).
		Int64("bytes", n).
		Dur("duration", res.Duration).
		Msg("Banner downloaded")

	return res
}

// extension picks the file extension from the content type, falling back to
// the URL path. Non-image responses are rejected.
func extension(contentType, rawURL string) (string, error) {
	media, _, err := mime.ParseMediaType(contentType)
	if err == nil && !strings.HasPrefix(media, "image/") {
		return "", fmt.Errorf("not an image: %s", media)
	}
	switch media {
	case "image/jpeg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/webp":
		return ".webp", nil
	case "image/gif":
		return ".gif", nil
	}
	if ext := strings.ToLower(path.Ext(strings.SplitN(rawURL, "?", 2)[0])); ext != "" && len(ext) <= 5 {
		return ext, nil
	}
	return ".img", nil
}

// FileName is the extension-less file name for job: "<index>-<slug>".
func FileName(job Job) string {
	return strconv.Itoa(job.Index) + "-" + slug(job.Name)
}

// slug keeps ASCII letters and digits of name, accents stripped, joined by
// dashes. The result can never contain a path separator.
func slug(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	s := strings.TrimSuffix(b.String(), "-")
	if len(s) > 60 {
		s = strings.TrimSuffix(s[:60], "-")
	}
	if s == "" {
		s = "event"
	}
	return s
}
