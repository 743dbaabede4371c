package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/transfer"
)

const instagramBaseURL = "https://graph.instagram.com/v21.0"

type instagramAdapter struct {
	tokens       TokenProvider
	client       *http.Client
	baseURL      string
	pollInterval time.Duration
	pollAttempts int
}

// NewInstagramAdapter publishes reels through the Instagram Graph API. Video
// containers are polled until Instagram finishes processing them.
func NewInstagramAdapter(tokens TokenProvider, client *http.Client, baseURL string) Adapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = instagramBaseURL
	}
	return &instagramAdapter{
		tokens:       tokens,
		client:       client,
		baseURL:      strings.TrimRight(baseURL, "/"),
		pollInterval: 5 * time.Second,
		pollAttempts: 24,
	}
}

func (ig *instagramAdapter) Platform() string { return PlatformInstagram }

func (ig *instagramAdapter) Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	creds, err := ig.tokens.Credentials(ctx, PlatformInstagram)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"media_type":   "REELS",
		"video_url":    req.AssetURL,
		"caption":      req.Description(),
		"access_token": creds.AccessToken,
	}
	if req.ThumbnailURL != "" {
		payload["cover_url"] = req.ThumbnailURL
	}

	var container transfer.InstagramIDResponse
	if msg, err := ig.post(ctx, "/"+creds.AccountID+"/media", payload, &container); err != nil || msg != "" {
		return failedOrErr(msg, err)
	}
	if container.ID == "" {
		return Failed("instagram: no container id returned"), nil
	}

	if msg, err := ig.waitForContainer(ctx, container.ID, creds.AccessToken); err != nil || msg != "" {
		return failedOrErr(msg, err)
	}

	var published transfer.InstagramIDResponse
	publish := map[string]any{
		"creation_id":  container.ID,
		"access_token": creds.AccessToken,
	}
	if msg, err := ig.post(ctx, "/"+creds.AccountID+"/media_publish", publish, &published); err != nil || msg != "" {
		return failedOrErr(msg, err)
	}
	if published.ID == "" {
		return Failed("instagram: no media id returned"), nil
	}

	result := &PublishResult{Success: true, PlatformPostID: published.ID}

	var media transfer.InstagramMedia
	q := url.Values{"fields": {"permalink"}, "access_token": {creds.AccessToken}}
	if msg, err := ig.get(ctx, "/"+published.ID, q, &media); err == nil && msg == "" {
		result.PostURL = media.Permalink
	} else {
		slog.Info("instagram permalink lookup failed", "media_id", published.ID, "error", err, "message", msg)
	}
	return result, nil
}

func (ig *instagramAdapter) waitForContainer(ctx context.Context, containerID, accessToken string) (string, error) {
	q := url.Values{"fields": {"status_code,status"}, "access_token": {accessToken}}
	for attempt := 0; attempt < ig.pollAttempts; attempt++ {
		var status transfer.InstagramContainerStatus
		msg, err := ig.get(ctx, "/"+containerID, q, &status)
		if err != nil || msg != "" {
			return msg, err
		}

		switch status.StatusCode {
		case "FINISHED", "PUBLISHED":
			return "", nil
		case "ERROR", "EXPIRED":
			return fmt.Sprintf("instagram container %s: %s", status.StatusCode, status.Status), nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(ig.pollInterval):
		}
	}
	return "instagram: container still processing, giving up", nil
}

func (ig *instagramAdapter) FetchMetrics(ctx context.Context, platformPostID string) (*MetricsSnapshot, error) {
	creds, err := ig.tokens.Credentials(ctx, PlatformInstagram)
	if err != nil {
		return nil, err
	}

	var insights transfer.InstagramInsightsResponse
	q := url.Values{"metric": {"views,likes,comments,shares,saved"}, "access_token": {creds.AccessToken}}
	msg, err := ig.get(ctx, "/"+platformPostID+"/insights", q, &insights)
	if err != nil {
		return nil, err
	}
	if msg != "" {
		return nil, fmt.Errorf("instagram insights: %s", msg)
	}

	snap := &MetricsSnapshot{
		Platform:       PlatformInstagram,
		PlatformPostID: platformPostID,
		Extra:          map[string]int64{},
		FetchedAt:      time.Now(),
	}
	for _, d := range insights.Data {
		if len(d.Values) == 0 {
			continue
		}
		v := d.Values[0].Value
		switch d.Name {
		case "views":
			snap.Views = v
		case "likes":
			snap.Likes = v
		case "comments":
			snap.Comments = v
		case "shares":
			snap.Shares = v
		default:
			snap.Extra[d.Name] = v
		}
	}
	return snap, nil
}

func (ig *instagramAdapter) FetchComments(ctx context.Context, platformPostID string, limit int) ([]Comment, error) {
	creds, err := ig.tokens.Credentials(ctx, PlatformInstagram)
	if err != nil {
		return nil, err
	}

	var resp transfer.InstagramCommentsResponse
	q := url.Values{
		"fields":       {"id,text,username,like_count,timestamp"},
		"limit":        {strconv.Itoa(limit)},
		"access_token": {creds.AccessToken},
	}
	msg, err := ig.get(ctx, "/"+platformPostID+"/comments", q, &resp)
	if err != nil {
		return nil, err
	}
	if msg != "" {
		return nil, fmt.Errorf("instagram comments: %s", msg)
	}

	comments := make([]Comment, 0, len(resp.Data))
	for _, c := range resp.Data {
		created, _ := time.Parse("2006-01-02T15:04:05-0700", c.Timestamp)
		comments = append(comments, Comment{
			ID:        c.ID,
			Author:    c.Username,
			Text:      c.Text,
			LikeCount: c.LikeCount,
			CreatedAt: created,
		})
	}
	return comments, nil
}

func (ig *instagramAdapter) post(ctx context.Context, path string, payload map[string]any, out any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ig.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return ig.do(req, out)
}

func (ig *instagramAdapter) get(ctx context.Context, path string, q url.Values, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ig.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	return ig.do(req, out)
}

// do returns a non-empty message when Instagram answered with an error body,
// and an error when the call itself failed.
func (ig *instagramAdapter) do(req *http.Request, out any) (string, error) {
	resp, err := ig.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var igErr transfer.InstagramErrorResponse
		if json.Unmarshal(respBody, &igErr) == nil && igErr.Error.Message != "" {
			return fmt.Sprintf("instagram: %s", igErr.Error.Message), nil
		}
		return fmt.Sprintf("unexpected status code from Instagram: %d", resp.StatusCode), nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	return "", nil
}

func failedOrErr(msg string, err error) (*PublishResult, error) {
	if err != nil {
		return nil, err
	}
	return Failed(msg), nil
}
