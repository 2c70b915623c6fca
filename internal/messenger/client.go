package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Client talks to the messaging platform: direct pushes to a user and
// threaded replies under a feed comment.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: client,
	}
}

type pushRequest struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

type replyRequest struct {
	Content string `json:"content"`
}

func (c *Client) PushMessage(ctx context.Context, to, content string) error {
	return c.post(ctx, c.baseURL+"/push", pushRequest{To: to, Content: content})
}

func (c *Client) ReplyInThread(ctx context.Context, feedID, commentID, content string) error {
	endpoint := fmt.Sprintf("%s/feeds/%s/comments/%s/replies", c.baseURL, url.PathEscape(feedID), url.PathEscape(commentID))
	return c.post(ctx, endpoint, replyRequest{Content: content})
}

func (c *Client) post(ctx context.Context, endpoint string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("messenger returned status %d", resp.StatusCode)
	}

	return nil
}
