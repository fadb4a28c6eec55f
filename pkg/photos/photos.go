// Package photos searches stock-photo providers for slide illustrations.
package photos

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// Photo is a provider-neutral stock photo.
type Photo struct {
	ID              string `json:"id"`
	URL             string `json:"url"`
	ThumbnailURL    string `json:"thumbnailUrl"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	Photographer    string `json:"photographer"`
	PhotographerURL string `json:"photographerUrl"`
	Source          string `json:"source"`
}

// Attribution returns the credit line for the photo.
func (p Photo) Attribution() string {
	if p.Photographer == "" {
		return p.Source
	}
	return fmt.Sprintf("Photo by %s on %s", p.Photographer, p.Source)
}

// Searcher finds photos for a query.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, perPage int) ([]Photo, error)
}

// StatusError is a non-2xx answer from a photo provider.
type StatusError struct {
	Provider   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
}

func getJSON(ctx context.Context, client *http.Client, provider, endpoint string, header http.Header) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header = header

	resp, err := client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: read response: %w", provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, &StatusError{Provider: provider, StatusCode: resp.StatusCode}
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s: invalid JSON response", provider)
	}
	return gjson.ParseBytes(body), nil
}

func searchURL(base, path, query string, perPage int) string {
	v := url.Values{}
	v.Set("query", query)
	v.Set("per_page", strconv.Itoa(perPage))
	v.Set("orientation", "landscape")
	return base + path + "?" + v.Encode()
}

// Unsplash searches api.unsplash.com.
type Unsplash struct {
	key     string
	baseURL string
	client  *http.Client
}

// NewUnsplash creates an Unsplash searcher. baseURL may be empty.
func NewUnsplash(key, baseURL string, timeout time.Duration) *Unsplash {
	if baseURL == "" {
		baseURL = "https://api.unsplash.com"
	}
	return &Unsplash{key: key, baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

// Name returns "unsplash".
func (u *Unsplash) Name() string { return "unsplash" }

// Search returns landscape photos matching query.
func (u *Unsplash) Search(ctx context.Context, query string, perPage int) ([]Photo, error) {
	header := http.Header{}
	header.Set("Authorization", "Client-ID "+u.key)
	header.Set("Accept-Version", "v1")

	doc, err := getJSON(ctx, u.client, u.Name(), searchURL(u.baseURL, "/search/photos", query, perPage), header)
	if err != nil {
		return nil, err
	}

	var photos []Photo
	doc.Get("results").ForEach(func(_, r gjson.Result) bool {
		photos = append(photos, Photo{
			ID:              "unsplash-" + r.Get("id").String(),
			URL:             r.Get("urls.regular").String(),
			ThumbnailURL:    r.Get("urls.thumb").String(),
			Width:           int(r.Get("width").Int()),
			Height:          int(r.Get("height").Int()),
			Photographer:    r.Get("user.name").String(),
			PhotographerURL: r.Get("user.links.html").String(),
			Source:          "unsplash",
		})
		return true
	})
	return photos, nil
}

// Pexels searches api.pexels.com.
type Pexels struct {
	key     string
	baseURL string
	client  *http.Client
}

// NewPexels creates a Pexels searcher. baseURL may be empty.
func NewPexels(key, baseURL string, timeout time.Duration) *Pexels {
	if baseURL == "" {
		baseURL = "https://api.pexels.com"
	}
	return &Pexels{key: key, baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

// Name returns "pexels".
func (p *Pexels) Name() string { return "pexels" }

// Search returns landscape photos matching query.
func (p *Pexels) Search(ctx context.Context, query string, perPage int) ([]Photo, error) {
	header := http.Header{}
	header.Set("Authorization", p.key)

	doc, err := getJSON(ctx, p.client, p.Name(), searchURL(p.baseURL, "/v1/search", query, perPage), header)
	if err != nil {
		return nil, err
	}

	var photos []Photo
	doc.Get("photos").ForEach(func(_, r gjson.Result) bool {
		photos = append(photos, Photo{
			ID:              "pexels-" + r.Get("id").String(),
			URL:             r.Get("src.large").String(),
			ThumbnailURL:    r.Get("src.medium").String(),
			Width:           int(r.Get("width").Int()),
			Height:          int(r.Get("height").Int()),
			Photographer:    r.Get("photographer").String(),
			PhotographerURL: r.Get("photographer_url").String(),
			Source:          "pexels",
		})
		return true
	})
	return photos, nil
}

// Multi queries several searchers concurrently and interleaves their
// results. A failing searcher is logged and skipped.
type Multi struct {
	searchers []Searcher
}

// NewMulti combines searchers. Nil entries are ignored.
func NewMulti(searchers ...Searcher) *Multi {
	m := &Multi{}
	for _, s := range searchers {
		if s != nil {
			m.searchers = append(m.searchers, s)
		}
	}
	return m
}

// Empty reports whether no searcher is configured.
func (m *Multi) Empty() bool {
	return m == nil || len(m.searchers) == 0
}

// Name returns "multi".
func (m *Multi) Name() string { return "multi" }

// Search fans out to every searcher and merges the results round-robin.
func (m *Multi) Search(ctx context.Context, query string, perPage int) ([]Photo, error) {
	if m.Empty() {
		return nil, nil
	}

	results := make([][]Photo, len(m.searchers))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range m.searchers {
		g.Go(func() error {
			photos, err := s.Search(gctx, query, perPage)
			if err != nil {
				slog.Warn("photo search failed", "provider", s.Name(), "query", query, "error", err)
				return nil
			}
			results[i] = photos
			return nil
		})
	}
	_ = g.Wait()

	var merged []Photo
	for i := 0; ; i++ {
		added := false
		for _, r := range results {
			if i < len(r) {
				merged = append(merged, r[i])
				added = true
			}
		}
		if !added {
			break
		}
	}
	return merged, nil
}
