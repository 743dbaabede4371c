package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

type youtubeAdapter struct {
	tokens   TokenProvider
	download *http.Client
	opts     []option.ClientOption
}

// NewYouTubeAdapter uploads videos with the YouTube Data API. Extra client
// options are appended when building the API service, e.g. a test endpoint.
func NewYouTubeAdapter(tokens TokenProvider, download *http.Client, opts ...option.ClientOption) Adapter {
	if download == nil {
		download = &http.Client{Timeout: 10 * time.Minute}
	}
	return &youtubeAdapter{tokens: tokens, download: download, opts: opts}
}

func (y *youtubeAdapter) Platform() string { return PlatformYouTube }

func (y *youtubeAdapter) service(ctx context.Context) (*youtube.Service, error) {
	creds, err := y.tokens.Credentials(ctx, PlatformYouTube)
	if err != nil {
		return nil, err
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken}))
	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, y.opts...)
	return youtube.NewService(ctx, opts...)
}

func (y *youtubeAdapter) Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	svc, err := y.service(ctx)
	if err != nil {
		return nil, err
	}

	tempFile, err := y.downloadAsset(ctx, req.AssetURL)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	head := make([]byte, 261)
	n, _ := io.ReadFull(file, head)
	if !filetype.IsVideo(head[:n]) {
		return Failed("youtube: asset is not a video"), nil
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	title := req.Title
	if title == "" {
		title = req.Caption
	}
	if !req.LongForm && !strings.Contains(strings.ToLower(title), "#shorts") {
		title = strings.TrimSpace(title + " #Shorts")
	}

	tags := make([]string, 0, len(req.Hashtags))
	for _, h := range req.Hashtags {
		if h = strings.TrimPrefix(strings.TrimSpace(h), "#"); h != "" {
			tags = append(tags, h)
		}
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       truncate(title, 100),
			Description: req.Description(),
			Tags:        tags,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           "public",
			SelfDeclaredMadeForKids: false,
		},
	}

	response, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(file).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return Failed(fmt.Sprintf("youtube: %s", apiErr.Message)), nil
		}
		return nil, err
	}

	slog.Info("youtube video uploaded", "video_id", response.Id)
	return &PublishResult{
		Success:        true,
		PlatformPostID: response.Id,
		PostURL:        "https://youtu.be/" + response.Id,
	}, nil
}

func (y *youtubeAdapter) downloadAsset(ctx context.Context, assetURL string) (string, error) {
	tempFile, err := os.CreateTemp("", "video-*")
	if err != nil {
		return "", fmt.Errorf("error creating temporary file: %w", err)
	}
	defer tempFile.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		os.Remove(tempFile.Name())
		return "", err
	}
	resp, err := y.download.Do(req)
	if err != nil {
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("error downloading asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}
	if _, err := io.Copy(tempFile, resp.Body); err != nil {
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("error saving asset to temporary file: %w", err)
	}
	return tempFile.Name(), nil
}

func (y *youtubeAdapter) FetchMetrics(ctx context.Context, platformPostID string) (*MetricsSnapshot, error) {
	svc, err := y.service(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Videos.List([]string{"statistics"}).Id(platformPostID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 || resp.Items[0].Statistics == nil {
		return nil, fmt.Errorf("youtube video %s not found", platformPostID)
	}

	stats := resp.Items[0].Statistics
	return &MetricsSnapshot{
		Platform:       PlatformYouTube,
		PlatformPostID: platformPostID,
		Views:          int64(stats.ViewCount),
		Likes:          int64(stats.LikeCount),
		Comments:       int64(stats.CommentCount),
		Extra:          map[string]int64{"favorites": int64(stats.FavoriteCount)},
		FetchedAt:      time.Now(),
	}, nil
}

func (y *youtubeAdapter) FetchComments(ctx context.Context, platformPostID string, limit int) ([]Comment, error) {
	svc, err := y.service(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := svc.CommentThreads.List([]string{"snippet"}).
		VideoId(platformPostID).
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	comments := make([]Comment, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
			continue
		}
		top := item.Snippet.TopLevelComment
		created, _ := time.Parse(time.RFC3339, top.Snippet.PublishedAt)
		comments = append(comments, Comment{
			ID:        top.Id,
			Author:    top.Snippet.AuthorDisplayName,
			Text:      top.Snippet.TextDisplay,
			LikeCount: top.Snippet.LikeCount,
			CreatedAt: created,
		})
	}
	return comments, nil
}
