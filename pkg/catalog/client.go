package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/bookcase/pkg/config"
	"github.com/shishobooks/bookcase/pkg/errcodes"
)

const (
	// MaxResults caps how many volumes a single search returns.
	MaxResults = 40

	serviceName = "Google Books API"
	isbn13Type  = "ISBN_13"

	DefaultTitle         = "Unknown Title"
	DefaultAuthor        = "Unknown Author"
	DefaultGenre         = "Unknown Genre"
	DefaultDescription   = "No description available."
	DefaultPublisher     = "Unknown Publisher"
	DefaultPublishedDate = "Unknown Date"
)

// CatalogEntry is a search result normalized from a Google Books volume. Its
// JSON shape is the payload accepted when adding a book to a library.
type CatalogEntry struct {
	GoogleBooksID string   `json:"google_books_id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Genres        []string `json:"genres"`
	Description   string   `json:"description"`
	Thumbnail     string   `json:"thumbnail"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
	PageCount     int      `json:"pageCount"`
	ISBN          string   `json:"isbn"`
}

type volumesResponse struct {
	Items []*volume `json:"items"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               *string      `json:"title"`
	Authors             []string     `json:"authors"`
	Categories          []string     `json:"categories"`
	Description         *string      `json:"description"`
	ImageLinks          *imageLinks  `json:"imageLinks"`
	Publisher           *string      `json:"publisher"`
	PublishedDate       *string      `json:"publishedDate"`
	PageCount           *int         `json:"pageCount"`
	IndustryIdentifiers []identifier `json:"industryIdentifiers"`
}

type imageLinks struct {
	Thumbnail string `json:"thumbnail"`
}

type identifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// Client talks to the Google Books volumes API. It never retries or caches.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GoogleBooksBaseURL, "/"),
		apiKey:  cfg.GoogleBooksAPIKey,
		httpClient: &http.Client{
			Timeout: cfg.CatalogTimeout,
		},
	}
}

// Search returns up to MaxResults entries matching query, with missing
// volume fields replaced by their defaults.
func (c *Client) Search(ctx context.Context, query string) ([]*CatalogEntry, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", c.apiKey)
	params.Set("maxResults", strconv.Itoa(MaxResults))

	resp := volumesResponse{}
	if err := c.get(ctx, "/volumes?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	entries := make([]*CatalogEntry, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		entries = append(entries, newCatalogEntry(item))
	}
	return entries, nil
}

// Thumbnail looks up a single volume and returns its thumbnail URL.
func (c *Client) Thumbnail(ctx context.Context, googleBooksID string) (string, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)

	v := volume{}
	if err := c.get(ctx, "/volumes/"+url.PathEscape(googleBooksID)+"?"+params.Encode(), &v); err != nil {
		return "", err
	}

	if v.VolumeInfo.ImageLinks == nil || v.VolumeInfo.ImageLinks.Thumbnail == "" {
		return "", errcodes.NotFound("Thumbnail")
	}
	return v.VolumeInfo.ImageLinks.Thumbnail, nil
}

func (c *Client) get(ctx context.Context, path string, dst interface{}) error {
	log := logger.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Err(err).Warn("catalog request failed")
		return errcodes.Upstream(serviceName)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errcodes.NotFound("Volume")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("catalog returned non-success status", logger.Data{"status": resp.StatusCode})
		return errcodes.Upstream(serviceName)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		log.Err(err).Warn("catalog returned malformed json")
		return errcodes.Upstream(serviceName)
	}
	return nil
}

func newCatalogEntry(v *volume) *CatalogEntry {
	info := v.VolumeInfo
	entry := &CatalogEntry{
		GoogleBooksID: v.ID,
		Title:         stringOr(info.Title, DefaultTitle),
		Authors:       info.Authors,
		Genres:        info.Categories,
		Description:   stringOr(info.Description, DefaultDescription),
		Publisher:     stringOr(info.Publisher, DefaultPublisher),
		PublishedDate: stringOr(info.PublishedDate, DefaultPublishedDate),
		ISBN:          isbn13(info.IndustryIdentifiers),
	}
	if entry.Authors == nil {
		entry.Authors = []string{DefaultAuthor}
	}
	if entry.Genres == nil {
		entry.Genres = []string{DefaultGenre}
	}
	if info.ImageLinks != nil {
		entry.Thumbnail = info.ImageLinks.Thumbnail
	}
	if info.PageCount != nil {
		entry.PageCount = *info.PageCount
	}
	return entry
}

// isbn13 returns the first ISBN-13 identifier, or "" when there is none.
func isbn13(ids []identifier) string {
	for _, id := range ids {
		if id.Type == isbn13Type {
			return id.Identifier
		}
	}
	return ""
}

func stringOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
