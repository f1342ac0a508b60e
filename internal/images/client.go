// Package images downloads the portraits, book covers and artwork images the
// timeline datasets point at, resolving each entry through Wikipedia, Wikidata and
// Wikimedia Commons (and Open Library for books).
package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "TimelineBot/0.3 (https://github.com/shrine-timeline/timeline-web)"
)

// ErrNoImage is returned when a lookup succeeds but yields no image.
var ErrNoImage = errors.New("images: no image found")

// Endpoints are the upstream services. Tests point them at a local server.
type Endpoints struct {
	WikipediaAPI      string // https://en.wikipedia.org/w/api.php
	WikidataEntity    string // prefix, entity id and ".json" are appended
	CommonsFilePath   string // prefix, the file name is appended
	OpenLibrarySearch string // https://openlibrary.org/search.json
	OpenLibraryCover  string // prefix, "<id>-L.jpg" is appended
}

// DefaultEndpoints returns the public Wikimedia and Open Library endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		WikipediaAPI:      "https://en.wikipedia.org/w/api.php",
		WikidataEntity:    "https://www.wikidata.org/wiki/Special:EntityData/",
		CommonsFilePath:   "https://commons.wikimedia.org/wiki/Special:FilePath/",
		OpenLibrarySearch: "https://openlibrary.org/search.json",
		OpenLibraryCover:  "https://covers.openlibrary.org/b/id/",
	}
}

// Client talks to the lookup services.
type Client struct {
	endpoints Endpoints
	userAgent string
	http      *http.Client
}

// NewClient constructs a client. A nil httpClient gets a default with a timeout.
func NewClient(endpoints Endpoints, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{endpoints: endpoints, userAgent: defaultUserAgent, http: httpClient}
}

// WikidataID returns the Wikidata item id (e.g. "Q937") for a Wikipedia page title.
// Redirects are followed.
func (c *Client) WikidataID(ctx context.Context, title string) (string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("titles", title)
	q.Set("prop", "pageprops")
	q.Set("redirects", "1")

	var payload struct {
		Query struct {
			Pages map[string]struct {
				PageProps struct {
					WikibaseItem string `json:"wikibase_item"`
				} `json:"pageprops"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.getJSON(ctx, c.endpoints.WikipediaAPI+"?"+q.Encode(), &payload); err != nil {
		return "", err
	}
	for _, p := range payload.Query.Pages {
		if p.PageProps.WikibaseItem != "" {
			return p.PageProps.WikibaseItem, nil
		}
	}
	return "", fmt.Errorf("%w: no wikidata item for %q", ErrNoImage, title)
}

// ImageFile returns the Commons file name held in the item's P18 (image) claim.
func (c *Client) ImageFile(ctx context.Context, qid string) (string, error) {
	var payload struct {
		Entities map[string]struct {
			Claims map[string][]struct {
				MainSnak struct {
					DataValue struct {
						Value json.RawMessage `json:"value"`
					} `json:"datavalue"`
				} `json:"mainsnak"`
			} `json:"claims"`
		} `json:"entities"`
	}
	if err := c.getJSON(ctx, c.endpoints.WikidataEntity+url.PathEscape(qid)+".json", &payload); err != nil {
		return "", err
	}
	entity, ok := payload.Entities[qid]
	if !ok {
		// merged items come back under their new id
		for _, e := range payload.Entities {
			entity = e
			break
		}
	}
	claims := entity.Claims["P18"]
	if len(claims) == 0 {
		return "", fmt.Errorf("%w: %s has no P18 claim", ErrNoImage, qid)
	}
	var file string
	if err := json.Unmarshal(claims[0].MainSnak.DataValue.Value, &file); err != nil || file == "" {
		return "", fmt.Errorf("%w: %s has a malformed P18 claim", ErrNoImage, qid)
	}
	return file, nil
}

// CommonsURL returns the Special:FilePath URL that redirects to the file itself.
func (c *Client) CommonsURL(file string) string {
	return c.endpoints.CommonsFilePath + url.PathEscape(strings.ReplaceAll(file, " ", "_"))
}

// CoverURL searches Open Library for a book and returns its large cover URL.
func (c *Client) CoverURL(ctx context.Context, title, author string) (string, error) {
	q := url.Values{}
	q.Set("title", title)
	if author != "" {
		q.Set("author", author)
	}
	q.Set("limit", "1")
	var payload struct {
		Docs []struct {
			CoverID int64 `json:"cover_i"`
		} `json:"docs"`
	}
	if err := c.getJSON(ctx, c.endpoints.OpenLibrarySearch+"?"+q.Encode(), &payload); err != nil {
		return "", err
	}
	if len(payload.Docs) == 0 || payload.Docs[0].CoverID == 0 {
		return "", fmt.Errorf("%w: no open library cover for %q", ErrNoImage, title)
	}
	return c.endpoints.OpenLibraryCover + strconv.FormatInt(payload.Docs[0].CoverID, 10) + "-L.jpg", nil
}

// Download streams rawURL into w.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) error {
	resp, err := c.do(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := c.do(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("images: decode %s: %w", rawURL, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("images: GET %s: status %d", rawURL, resp.StatusCode)
	}
	return resp, nil
}
