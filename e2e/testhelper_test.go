package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/mscandco/distribution-api/internal/auth"
	"github.com/mscandco/distribution-api/internal/handler"
	"github.com/mscandco/distribution-api/internal/middleware"
	"github.com/mscandco/distribution-api/internal/model"
	"github.com/mscandco/distribution-api/internal/notify"
	"github.com/mscandco/distribution-api/internal/service"
	"github.com/mscandco/distribution-api/internal/store"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app    *fiber.App
	events *notify.Recorder
}

// setupApp creates a Fiber app wired like main.go, on the memory store and
// with events recorded instead of queued.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	releaseStore := store.NewMemory()
	t.Cleanup(func() { releaseStore.Close() })
	events := &notify.Recorder{}
	validate := handler.NewValidator()

	// Services
	releaseService := service.NewReleaseService(releaseStore, events, nil)
	reportService := service.NewReportService(releaseStore, events)
	changeRequestService := service.NewChangeRequestService(releaseStore, events)

	// Handlers
	releaseHandler := handler.NewReleaseHandler(releaseService, validate)
	reportHandler := handler.NewReportHandler(reportService, validate)
	changeRequestHandler := handler.NewChangeRequestHandler(changeRequestService, validate)
	authenticator := auth.NewAuthenticator(nil, testJWTSecret)
	authHandler := handler.NewAuthHandler(authenticator)

	// Auth middleware (legacy HMAC only); no redis, so no rate limiting
	authMiddleware := middleware.NewLegacyAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(nil)

	app := fiber.New()

	// Base routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"store": fiber.Map{"driver": releaseStore.Driver(), "up": releaseStore.Ping(c.UserContext()) == nil},
				"redis": false,
				"r2":    false,
				"auth":  authenticator.Configured(),
			},
		})
	})
	app.Get("/auth/verify", authHandler.Verify)

	api := app.Group("/api", authMiddleware.Authenticate(), rateLimiter.MutationLimit(10000))

	releases := api.Group("/releases")
	releases.Post("/", releaseHandler.Create)
	releases.Get("/", releaseHandler.List)
	releases.Get("/:id", releaseHandler.Get)
	releases.Patch("/:id", releaseHandler.Update)
	releases.Post("/:id/transition", releaseHandler.Transition)
	releases.Post("/:id/amendment", releaseHandler.ProposeAmendment)
	releases.Get("/:id/amendment", releaseHandler.GetAmendment)
	releases.Post("/:id/amendment/resolve", releaseHandler.ResolveAmendment)
	releases.Get("/:id/manifest", releaseHandler.Manifest)
	releases.Post("/:id/change-requests", changeRequestHandler.Create)
	releases.Get("/:id/change-requests", changeRequestHandler.List)
	releases.Get("/:id/change-requests/:requestId", changeRequestHandler.Get)
	releases.Post("/:id/change-requests/:requestId/approve", changeRequestHandler.Approve)
	releases.Post("/:id/change-requests/:requestId/reject", changeRequestHandler.Reject)

	reports := api.Group("/reports")
	reports.Post("/", reportHandler.Submit)
	reports.Get("/", reportHandler.List)
	reports.Get("/:id", reportHandler.Get)
	reports.Post("/:id/approve", reportHandler.Approve)
	reports.Post("/:id/reject", reportHandler.Reject)

	return &testApp{app: app, events: events}
}

// Test callers, one per role.
var (
	artistUser  = auth.Identity{UserID: "artist-1", Email: "artist@example.com", Role: model.RoleArtist}
	otherArtist = auth.Identity{UserID: "artist-2", Role: model.RoleArtist}
	labelUser   = auth.Identity{UserID: "label-admin-1", Role: model.RoleLabelAdmin, LabelID: "label-1"}
	partnerUser = auth.Identity{UserID: "partner-1", Role: model.RoleDistributionPartner}
	companyUser = auth.Identity{UserID: "company-1", Role: model.RoleCompanyAdmin}
)

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T, id auth.Identity) string {
	t.Helper()
	signed, err := auth.SignLegacyToken(testJWTSecret, id)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAs performs a request authenticated as id.
func doAs(t *testing.T, app *fiber.App, id auth.Identity, method, path, body string) *http.Response {
	t.Helper()
	resp, err := doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + generateToken(t, id),
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// decode parses the response body into v.
func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	body := readBody(t, resp)
	if err := json.Unmarshal([]byte(body), v); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode extracts error.code from an error envelope.
func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := parseJSON(t, resp)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	code, _ := errObj["code"].(string)
	return code
}
