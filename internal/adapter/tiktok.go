package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/transfer"
)

const tiktokBaseURL = "https://open.tiktokapis.com"

type tiktokAdapter struct {
	tokens  TokenProvider
	client  *http.Client
	baseURL string
}

// NewTikTokAdapter publishes through the TikTok content posting API. An empty
// baseURL targets production.
func NewTikTokAdapter(tokens TokenProvider, client *http.Client, baseURL string) Adapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = tiktokBaseURL
	}
	return &tiktokAdapter{tokens: tokens, client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (t *tiktokAdapter) Platform() string { return PlatformTikTok }

func (t *tiktokAdapter) Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	creds, err := t.tokens.Credentials(ctx, PlatformTikTok)
	if err != nil {
		return nil, err
	}

	var creator transfer.TiktokCreatorInfoResponse
	if err := t.call(ctx, creds.AccessToken, "/v2/post/publish/creator_info/query/", nil, &creator); err != nil {
		return nil, err
	}
	if !creator.Error.OK() {
		return Failed(fmt.Sprintf("tiktok creator info: %s", creator.Error.Message)), nil
	}

	privacy := "PUBLIC_TO_EVERYONE"
	if len(creator.Data.PrivacyLevelOptions) > 0 && !slices.Contains(creator.Data.PrivacyLevelOptions, privacy) {
		privacy = creator.Data.PrivacyLevelOptions[0]
	}

	upload := transfer.VideoUploadRequest{
		PostInfo: transfer.VideoPostInfo{
			Title:                 truncate(req.Description(), 2200),
			PrivacyLevel:          privacy,
			DisableDuet:           creator.Data.DuetDisabled,
			DisableComment:        creator.Data.CommentDisabled,
			DisableStitch:         creator.Data.StitchDisabled,
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: transfer.VideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: req.AssetURL,
		},
	}

	var result transfer.TikTokUploadResponse
	if err := t.call(ctx, creds.AccessToken, "/v2/post/publish/video/init/", upload, &result); err != nil {
		return nil, err
	}
	if !result.Error.OK() {
		slog.Info("tiktok publish rejected", "code", result.Error.Code, "log_id", result.Error.LogID)
		return Failed(fmt.Sprintf("tiktok: %s", result.Error.Message)), nil
	}
	if result.Data.PublishID == "" {
		return Failed("tiktok: no publish id returned"), nil
	}

	return &PublishResult{Success: true, PlatformPostID: result.Data.PublishID}, nil
}

func (t *tiktokAdapter) FetchMetrics(ctx context.Context, platformPostID string) (*MetricsSnapshot, error) {
	creds, err := t.tokens.Credentials(ctx, PlatformTikTok)
	if err != nil {
		return nil, err
	}

	var query transfer.TiktokVideoQueryRequest
	query.Filters.VideoIDs = []string{platformPostID}

	var result transfer.TiktokVideoQueryResponse
	path := "/v2/video/query/?fields=id,share_url,view_count,like_count,comment_count,share_count"
	if err := t.call(ctx, creds.AccessToken, path, query, &result); err != nil {
		return nil, err
	}
	if !result.Error.OK() {
		return nil, fmt.Errorf("tiktok video query: %s", result.Error.Message)
	}
	if len(result.Data.Videos) == 0 {
		return nil, fmt.Errorf("tiktok video %s not found", platformPostID)
	}

	v := result.Data.Videos[0]
	return &MetricsSnapshot{
		Platform:       PlatformTikTok,
		PlatformPostID: platformPostID,
		Views:          v.ViewCount,
		Likes:          v.LikeCount,
		Comments:       v.CommentCount,
		Shares:         v.ShareCount,
		FetchedAt:      time.Now(),
	}, nil
}

// FetchComments is not offered by the TikTok posting API.
func (t *tiktokAdapter) FetchComments(_ context.Context, _ string, _ int) ([]Comment, error) {
	return []Comment{}, nil
}

func (t *tiktokAdapter) call(ctx context.Context, accessToken, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshalling tiktok request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("tiktok request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding tiktok response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
