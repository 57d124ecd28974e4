package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/retry"

	logx "relaybot/pkg/logx"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3/search"

// Item is the newest published entry of a feed source.
type Item struct {
	ID           string
	Title        string
	Description  string
	ChannelTitle string
	Thumbnail    string
	PublishedAt  time.Time
}

// URL returns the public watch link for the item.
func (it Item) URL() string {
	return "https://youtu.be/" + it.ID
}

// Client queries the upstream video search API for the latest upload of a
// channel.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     logx.Logger
}

func NewClient(apiKey string, log logx.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// searchResponse mirrors the slice of the API response we care about.
type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
			Thumbnails   struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string { return fmt.Sprintf("HTTP %d", e.code) }

// Latest returns the most recently published item of sourceID, or nil when
// the source has no items.
func (c *Client) Latest(ctx context.Context, sourceID string) (*Item, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("channelId", sourceID)
	q.Set("part", "snippet,id")
	q.Set("order", "date")
	q.Set("maxResults", "1")
	reqURL := c.baseURL + "?" + q.Encode()

	var body searchResponse
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				serr := &httpStatusError{code: resp.StatusCode}
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					// Bad key or quota exhausted will not heal on retry.
					return retry.Unrecoverable(serr)
				}
				return serr
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
			return nil
		},
		retry.Attempts(4),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.MaxJitter(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug("feed fetch retry", logx.String("source", sourceID), logx.Any("attempt", n), logx.Err(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch latest for %s: %w", sourceID, err)
	}

	if len(body.Items) == 0 {
		return nil, nil
	}
	raw := body.Items[0]
	item := &Item{
		ID:           raw.ID.VideoID,
		Title:        raw.Snippet.Title,
		Description:  raw.Snippet.Description,
		ChannelTitle: raw.Snippet.ChannelTitle,
		Thumbnail:    raw.Snippet.Thumbnails.High.URL,
	}
	if ts, err := time.Parse(time.RFC3339, raw.Snippet.PublishedAt); err == nil {
		item.PublishedAt = ts
	}
	return item, nil
}
