package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTikTokPublish(t *testing.T) {
	var gotUpload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		switch r.URL.Path {
		case "/v2/post/publish/creator_info/query/":
			w.Write([]byte(`{"data":{"privacy_level_options":["SELF_ONLY"]},"error":{"code":"ok"}}`))
		case "/v2/post/publish/video/init/":
			json.NewDecoder(r.Body).Decode(&gotUpload)
			w.Write([]byte(`{"data":{"publish_id":"v_pub_1"},"error":{"code":"ok"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	a := NewTikTokAdapter(staticTokens{creds: &Credentials{AccessToken: "tok"}}, srv.Client(), srv.URL)
	res, err := a.Publish(context.Background(), &PublishRequest{AssetURL: "https://cdn/x.mp4", Caption: "hi"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !res.Success || res.PlatformPostID != "v_pub_1" {
		t.Fatalf("result = %+v", res)
	}

	postInfo := gotUpload["post_info"].(map[string]any)
	if postInfo["privacy_level"] != "SELF_ONLY" {
		t.Errorf("privacy_level = %v, want creator's only option", postInfo["privacy_level"])
	}
	source := gotUpload["source_info"].(map[string]any)
	if source["video_url"] != "https://cdn/x.mp4" {
		t.Errorf("video_url = %v", source["video_url"])
	}
}

func TestTikTokPublishRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "creator_info") {
			w.Write([]byte(`{"error":{"code":"ok"}}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"spam_risk_too_many_posts","message":"too many posts"}}`))
	}))
	defer srv.Close()

	a := NewTikTokAdapter(staticTokens{creds: &Credentials{AccessToken: "tok"}}, srv.Client(), srv.URL)
	res, err := a.Publish(context.Background(), &PublishRequest{AssetURL: "u"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Success || !strings.Contains(res.ErrorMessage, "too many posts") {
		t.Fatalf("result = %+v", res)
	}
}

func TestInstagramPublishWaitsForContainer(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/1784/media":
			w.Write([]byte(`{"id":"c1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/c1":
			polls++
			if polls < 2 {
				w.Write([]byte(`{"id":"c1","status_code":"IN_PROGRESS"}`))
				return
			}
			w.Write([]byte(`{"id":"c1","status_code":"FINISHED"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/1784/media_publish":
			w.Write([]byte(`{"id":"m9"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/m9":
			w.Write([]byte(`{"id":"m9","permalink":"https://instagram.com/reel/m9"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	a := NewInstagramAdapter(staticTokens{creds: &Credentials{AccountID: "1784", AccessToken: "tok"}}, srv.Client(), srv.URL)
	a.(*instagramAdapter).pollInterval = time.Millisecond

	res, err := a.Publish(context.Background(), &PublishRequest{AssetURL: "https://cdn/x.mp4"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !res.Success || res.PlatformPostID != "m9" || res.PostURL != "https://instagram.com/reel/m9" {
		t.Fatalf("result = %+v", res)
	}
	if polls != 2 {
		t.Fatalf("polled %d times, want 2", polls)
	}
}

func TestInstagramPublishErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid video url","code":100}}`))
	}))
	defer srv.Close()

	a := NewInstagramAdapter(staticTokens{creds: &Credentials{AccountID: "1", AccessToken: "tok"}}, srv.Client(), srv.URL)
	res, err := a.Publish(context.Background(), &PublishRequest{AssetURL: "bad"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Success || res.ErrorMessage != "instagram: Invalid video url" {
		t.Fatalf("result = %+v", res)
	}
}

func TestInstagramFetchMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"name":"views","values":[{"value":120}]},
			{"name":"likes","values":[{"value":7}]},
			{"name":"saved","values":[{"value":2}]}
		]}`))
	}))
	defer srv.Close()

	a := NewInstagramAdapter(staticTokens{creds: &Credentials{AccessToken: "tok"}}, srv.Client(), srv.URL)
	snap, err := a.FetchMetrics(context.Background(), "m9")
	if err != nil {
		t.Fatalf("FetchMetrics: %v", err)
	}
	if snap.Views != 120 || snap.Likes != 7 || snap.Extra["saved"] != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestYouTubeRejectsNonVideoAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text, not a video"))
	}))
	defer srv.Close()

	a := NewYouTubeAdapter(staticTokens{creds: &Credentials{AccessToken: "tok"}}, srv.Client())
	res, err := a.Publish(context.Background(), &PublishRequest{AssetURL: srv.URL + "/asset"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Success || res.ErrorMessage != "youtube: asset is not a video" {
		t.Fatalf("result = %+v", res)
	}
}
