package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/IsaiahDupree/MediaPoster-sub001/configs"
	"github.com/IsaiahDupree/MediaPoster-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

func newAuthApp(cfg config.Config) *fiber.App {
	app := fiber.New()
	app.Use(NewAuthMiddleware(cfg).AuthMiddleware())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("operator").(string))
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	cfg := config.Config{SecretKey: "s3cret", CookieName: "session", APIKey: "automation-key"}
	app := newAuthApp(cfg)

	valid, err := utils.GenerateToken(cfg.SecretKey, "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	forged, _ := utils.GenerateToken("other", "mallory", time.Hour)

	tests := []struct {
		name   string
		setup  func(r *fiberRequest)
		status int
	}{
		{"nothing", func(r *fiberRequest) {}, fiber.StatusUnauthorized},
		{"cookie", func(r *fiberRequest) { r.cookie = valid }, fiber.StatusOK},
		{"bearer", func(r *fiberRequest) { r.header["Authorization"] = "Bearer " + valid }, fiber.StatusOK},
		{"forged bearer", func(r *fiberRequest) { r.header["Authorization"] = "Bearer " + forged }, fiber.StatusUnauthorized},
		{"api key header", func(r *fiberRequest) { r.header["X-API-Key"] = "automation-key" }, fiber.StatusOK},
		{"api key query", func(r *fiberRequest) { r.query = "?api_key=automation-key" }, fiber.StatusOK},
		{"wrong api key", func(r *fiberRequest) { r.header["X-API-Key"] = "guess" }, fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fiberRequest{header: map[string]string{}}
			tt.setup(r)

			req := httptest.NewRequest("GET", "/whoami"+r.query, nil)
			for k, v := range r.header {
				req.Header.Set(k, v)
			}
			if r.cookie != "" {
				req.Header.Set("Cookie", cfg.CookieName+"="+r.cookie)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestAPIKeyDisabledWhenUnset(t *testing.T) {
	app := newAuthApp(config.Config{SecretKey: "s3cret", CookieName: "session"})

	req := httptest.NewRequest("GET", "/whoami?api_key=", nil)
	req.Header.Set("X-API-Key", "anything")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

type fiberRequest struct {
	header map[string]string
	cookie string
	query  string
}
