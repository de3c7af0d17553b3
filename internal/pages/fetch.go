package pages

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	applog "github.com/csheth/folio/internal/log"
)

// ErrUnsupportedScheme is returned for page URLs that are neither local
// paths nor http(s).
var ErrUnsupportedScheme = errors.New("pages: unsupported url scheme")

const (
	partialSuffix      = ".part"
	metaSuffix         = ".meta"
	defaultTTL         = 24 * time.Hour
	defaultHTTPTimeout = 60 * time.Second
)

// Fetcher opens page bitmaps by URL. Local files are opened in place;
// remote ones go through an on-disk cache with conditional revalidation.
type Fetcher struct {
	dir    string
	client *http.Client
	ttl    time.Duration

	mu        sync.Mutex
	freshFrom time.Time
}

type fetchMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
}

// NewFetcher creates the cache dir. A nil client gets a default timeout and
// a non-positive ttl means 24h.
func NewFetcher(dir string, client *http.Client, ttl time.Duration) (*Fetcher, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, "folio", "pages")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Fetcher{dir: dir, client: client, ttl: ttl}, nil
}

// Open returns a reader over the bitmap at rawURL.
func (f *Fetcher) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	p, err := f.Local(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Revalidate makes every cached remote bitmap check back with its server on
// next use, whatever its age.
func (f *Fetcher) Revalidate() {
	f.mu.Lock()
	f.freshFrom = time.Now()
	f.mu.Unlock()
}

// Version names the revision of the bitmap served for rawURL: the server's
// validator for remote pages, modification time and size otherwise.
func (f *Fetcher) Version(ctx context.Context, rawURL string) (string, error) {
	p, err := f.Local(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if strings.Contains(rawURL, "://") {
		bodyPath, metaPath, _ := f.pathsFor(cacheKey(rawURL), rawURL)
		if p == bodyPath {
			if meta, err := readMeta(metaPath); err == nil {
				if meta.ETag != "" {
					return meta.ETag, nil
				}
				if meta.LastModified != "" {
					return meta.LastModified, nil
				}
			}
		}
	}
	info, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size()), nil
}

func (f *Fetcher) fresh(mod time.Time) bool {
	f.mu.Lock()
	from := f.freshFrom
	f.mu.Unlock()
	return time.Since(mod) < f.ttl && !mod.Before(from)
}

// Local returns a filesystem path holding the bitmap at rawURL, downloading
// it first when remote.
func (f *Fetcher) Local(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("%w: empty url", ErrUnsupportedScheme)
	}
	if !strings.Contains(rawURL, "://") {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "file":
		return u.Path, nil
	case "http", "https":
		return f.fetch(ctx, rawURL)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (string, error) {
	key := cacheKey(rawURL)
	bodyPath, metaPath, partialPath := f.pathsFor(key, rawURL)

	if info, err := os.Stat(bodyPath); err == nil && f.fresh(info.ModTime()) && info.Size() > 0 {
		return bodyPath, nil
	}

	meta, _ := readMeta(metaPath)
	info, _ := os.Stat(bodyPath)
	p, err := f.download(ctx, rawURL, bodyPath, metaPath, partialPath, meta, info)
	if err == nil {
		return p, nil
	}
	if info != nil && info.Size() > 0 {
		applog.WithComponent("source").Warn("serving stale page bitmap",
			slog.String("url", rawURL), slog.Any("err", err))
		return bodyPath, nil
	}
	return "", err
}

func (f *Fetcher) download(ctx context.Context, rawURL, bodyPath, metaPath, partialPath string, meta fetchMeta, current os.FileInfo) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if current != nil && current.Size() > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	var partialSize int64
	if info, err := os.Stat(partialPath); err == nil && info.Size() > 0 {
		partialSize = info.Size()
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", partialSize))
		if meta.ETag != "" {
			req.Header.Set("If-Range", meta.ETag)
		} else if meta.LastModified != "" {
			req.Header.Set("If-Range", meta.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if current != nil && current.Size() > 0 {
			meta.CachedAt = time.Now().UTC()
			_ = writeMeta(metaPath, meta)
			// bump mtime so the ttl window restarts
			now := time.Now()
			_ = os.Chtimes(bodyPath, now, now)
			return bodyPath, nil
		}
		return f.download(ctx, rawURL, bodyPath, metaPath, partialPath, fetchMeta{}, nil)
	case http.StatusOK:
		return f.saveBody(resp, bodyPath, metaPath, partialPath, false)
	case http.StatusPartialContent:
		return f.saveBody(resp, bodyPath, metaPath, partialPath, partialSize > 0)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("page download failed: %s (%s)", resp.Status, strings.TrimSpace(string(body)))
	}
}

func (f *Fetcher) saveBody(resp *http.Response, bodyPath, metaPath, partialPath string, appendExisting bool) (string, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendExisting {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(partialPath, flags, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(partialPath, bodyPath); err != nil {
		return "", err
	}

	meta := fetchMeta{
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		CachedAt:     time.Now().UTC(),
	}
	if info, err := os.Stat(bodyPath); err == nil {
		meta.Size = info.Size()
	}
	if err := writeMeta(metaPath, meta); err != nil {
		return "", err
	}
	return bodyPath, nil
}

func (f *Fetcher) pathsFor(key, rawURL string) (string, string, string) {
	ext := ".img"
	if u, err := url.Parse(rawURL); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); imageExts[e] {
			ext = e
		}
	}
	return filepath.Join(f.dir, key+ext), filepath.Join(f.dir, key+metaSuffix), filepath.Join(f.dir, key+partialSuffix)
}

func cacheKey(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

func readMeta(p string) (fetchMeta, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return fetchMeta{}, err
	}
	var meta fetchMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return fetchMeta{}, err
	}
	return meta, nil
}

func writeMeta(p string, meta fetchMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}
