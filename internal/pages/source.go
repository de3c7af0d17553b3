package pages

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	applog "github.com/csheth/folio/internal/log"
)

// Source supplies the ordered page list and optional audit trail.
type Source interface {
	Pages(ctx context.Context) ([]Ref, error)
	AuditEvents(ctx context.Context) ([]string, error)
	Name() string
}

// Resolved is the outcome of resolving a Source once.
type Resolved struct {
	Set    *Set
	Audit  []string
	Title  string
	Source string
}

// Resolve lists pages and audit events and builds a new arena. An empty
// listing is not an error: the result has a zero-length Set.
func Resolve(ctx context.Context, src Source) (Resolved, error) {
	l := applog.WithOperation(applog.WithComponent("source"), "resolve")
	refs, err := src.Pages(ctx)
	if err != nil && !errors.Is(err, ErrNoPages) {
		return Resolved{}, fmt.Errorf("list pages from %s: %w", src.Name(), err)
	}
	audit, err := src.AuditEvents(ctx)
	if err != nil {
		// the audit trail is display-only; losing it must not block the pages
		l.Warn("audit events unavailable", slog.String("source", src.Name()), slog.Any("err", err))
		audit = nil
	}
	res := Resolved{Set: NewSet(refs), Audit: audit, Source: src.Name()}
	if t, ok := src.(interface{ Title() string }); ok {
		res.Title = t.Title()
	}
	l.Info("source resolved", slog.String("source", src.Name()), slog.Int("pages", res.Set.Len()), slog.Int("audit", len(audit)))
	return res, nil
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// DirSource lists the raster files of a directory in natural order.
// An audit.log file next to them supplies one audit event per line.
type DirSource struct {
	Dir string
}

func (d DirSource) Name() string { return "dir:" + d.Dir }

func (d DirSource) Title() string { return filepath.Base(filepath.Clean(d.Dir)) }

func (d DirSource) Pages(ctx context.Context) ([]Ref, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })
	refs := make([]Ref, 0, len(names))
	for _, n := range names {
		refs = append(refs, Ref{ID: strings.TrimSuffix(n, filepath.Ext(n)), URL: filepath.Join(d.Dir, n)})
	}
	if len(refs) == 0 {
		return nil, ErrNoPages
	}
	return refs, nil
}

func (d DirSource) AuditEvents(_ context.Context) ([]string, error) {
	f, err := os.Open(filepath.Join(d.Dir, "audit.log"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var events []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			events = append(events, line)
		}
	}
	return events, sc.Err()
}

// Manifest is the document a ManifestSource or HTTPSource reads.
type Manifest struct {
	Title       string   `json:"title" yaml:"title"`
	Pages       []Ref    `json:"pages" yaml:"pages"`
	AuditEvents []string `json:"auditEvents" yaml:"audit"`
}

// ManifestSource reads a YAML or JSON manifest file. Relative page URLs
// resolve against the manifest's directory.
type ManifestSource struct {
	Path string

	loaded *Manifest
}

func (m *ManifestSource) Name() string { return "manifest:" + m.Path }

func (m *ManifestSource) Title() string {
	if m.loaded == nil {
		return ""
	}
	return m.loaded.Title
}

func (m *ManifestSource) load() (*Manifest, error) {
	if m.loaded != nil {
		return m.loaded, nil
	}
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return nil, err
	}
	var man Manifest
	// YAML is a superset of JSON, but JSON manifests use the auditEvents key.
	if strings.EqualFold(filepath.Ext(m.Path), ".json") {
		err = json.Unmarshal(data, &man)
	} else {
		err = yaml.Unmarshal(data, &man)
	}
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", m.Path, err)
	}
	base := filepath.Dir(m.Path)
	for i, p := range man.Pages {
		man.Pages[i].URL = resolveLocal(base, p.URL)
		if man.Pages[i].ID == "" {
			man.Pages[i].ID = fmt.Sprintf("page-%d", i+1)
		}
	}
	m.loaded = &man
	return m.loaded, nil
}

func (m *ManifestSource) Pages(_ context.Context) ([]Ref, error) {
	man, err := m.load()
	if err != nil {
		return nil, err
	}
	if len(man.Pages) == 0 {
		return nil, ErrNoPages
	}
	return append([]Ref(nil), man.Pages...), nil
}

func (m *ManifestSource) AuditEvents(_ context.Context) ([]string, error) {
	man, err := m.load()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), man.AuditEvents...), nil
}

func resolveLocal(base, ref string) string {
	if ref == "" || strings.Contains(ref, "://") || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(base, ref)
}

const defaultSourceTimeout = 15 * time.Second

// HTTPSource fetches a JSON manifest from an endpoint. Relative page URLs
// resolve against the endpoint URL.
type HTTPSource struct {
	Endpoint string
	Client   *http.Client

	loaded *Manifest
}

func (h *HTTPSource) Name() string { return "http:" + h.Endpoint }

func (h *HTTPSource) Title() string {
	if h.loaded == nil {
		return ""
	}
	return h.loaded.Title
}

func (h *HTTPSource) fetch(ctx context.Context) (*Manifest, error) {
	if h.loaded != nil {
		return h.loaded, nil
	}
	base, err := url.Parse(h.Endpoint)
	if err != nil {
		return nil, err
	}
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: defaultSourceTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.Endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("page source error: %s (%s)", resp.Status, strings.TrimSpace(string(body)))
	}
	var man Manifest
	if err := json.NewDecoder(resp.Body).Decode(&man); err != nil {
		return nil, fmt.Errorf("decode page listing: %w", err)
	}
	for i, p := range man.Pages {
		ref, err := url.Parse(p.URL)
		if err != nil {
			return nil, fmt.Errorf("page %d url: %w", i+1, err)
		}
		man.Pages[i].URL = base.ResolveReference(ref).String()
		if man.Pages[i].ID == "" {
			man.Pages[i].ID = fmt.Sprintf("page-%d", i+1)
		}
	}
	h.loaded = &man
	return h.loaded, nil
}

func (h *HTTPSource) Pages(ctx context.Context) ([]Ref, error) {
	man, err := h.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(man.Pages) == 0 {
		return nil, ErrNoPages
	}
	return append([]Ref(nil), man.Pages...), nil
}

func (h *HTTPSource) AuditEvents(ctx context.Context) ([]string, error) {
	man, err := h.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), man.AuditEvents...), nil
}

// Refresh drops any cached listing so the next call fetches again.
func (h *HTTPSource) Refresh() { h.loaded = nil }

// Refresh drops any cached listing so the next call reads the file again.
func (m *ManifestSource) Refresh() { m.loaded = nil }

// naturalLess orders digit runs numerically so page2 sorts before page10.
func naturalLess(a, b string) bool {
	ar, br := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ar) && j < len(br) {
		if unicode.IsDigit(ar[i]) && unicode.IsDigit(br[j]) {
			si := i
			for i < len(ar) && unicode.IsDigit(ar[i]) {
				i++
			}
			sj := j
			for j < len(br) && unicode.IsDigit(br[j]) {
				j++
			}
			na := strings.TrimLeft(string(ar[si:i]), "0")
			nb := strings.TrimLeft(string(br[sj:j]), "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		ca, cb := unicode.ToLower(ar[i]), unicode.ToLower(br[j])
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(ar)-i < len(br)-j
}
