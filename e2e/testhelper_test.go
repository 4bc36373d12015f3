package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/slidereel/api/internal/auth"
	"github.com/slidereel/api/internal/catalog"
	"github.com/slidereel/api/internal/client"
	"github.com/slidereel/api/internal/handler"
	"github.com/slidereel/api/internal/middleware"
	"github.com/slidereel/api/internal/service"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for handler-level tests.
type testApp struct {
	app  *fiber.App
	runs *service.RunService
}

// setupApp creates a Fiber app wired like main.go but with local storage and
// no Asynq worker: submitted runs stay queued, which is exactly what the
// handler tests assert on. Requires Redis on localhost (test DB 15).
func setupApp(t *testing.T) *testApp {
	t.Helper()

	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping: Redis not reachable on localhost:6379: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { asynqClient.Close() })

	validate := validator.New()

	// Local filesystem storage, wiped with the test tempdir.
	storageClient, err := client.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	catalogs := loadTestCatalogs(t)

	assetService := service.NewAssetService(storageClient)
	runService := service.NewRunService(redisClient, asynqClient)

	assemblyHandler := handler.NewAssemblyHandler(runService, assetService, validate, 10*1024*1024)
	catalogHandler := handler.NewCatalogHandler(catalogs)
	authHandler := handler.NewAuthHandler(testJWTSecret)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		BodyLimit: 400 * 1024 * 1024,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": time.Now().Unix()})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":    redisClient.Ping(c.Context()).Err() == nil,
				"storage":  "local",
				"encoder":  "ffmpeg",
				"catalogs": len(catalogs.Soundtracks()) + len(catalogs.Filters()),
				"auth":     true,
			},
		})
	})
	app.Get("/auth/verify", authHandler.Verify)

	api := app.Group("/api", authMiddleware.Authenticate())

	// Use very high rate limits so tests don't get blocked
	asm := api.Group("/assembly")
	asm.Post("/start", rateLimiter.AssemblyLimit(10000), assemblyHandler.Start)
	asm.Get("/status/:runId", rateLimiter.StatusLimit(10000), assemblyHandler.Status)
	asm.Get("/result/:runId", assemblyHandler.Result)
	asm.Post("/cancel/:runId", assemblyHandler.Cancel)

	cat := api.Group("/catalog")
	cat.Get("/soundtracks", catalogHandler.Soundtracks)
	cat.Get("/filters", catalogHandler.Filters)

	return &testApp{app: app, runs: runService}
}

// loadTestCatalogs reads the catalogs shipped with the repo.
func loadTestCatalogs(t *testing.T) *catalog.Catalog {
	t.Helper()
	_, filename, _, _ := runtime.Caller(0)
	base := filepath.Join(filepath.Dir(filename), "..", "catalogs")

	catalogs, err := catalog.Load(
		filepath.Join(base, "soundtracks.json"),
		filepath.Join(base, "filters.json"),
	)
	if err != nil {
		t.Fatalf("failed to load catalogs: %v", err)
	}
	return catalogs
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	claims := auth.Claims{
		UserID: "test-user-123",
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "slidereel-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// submission describes one multipart assembly request under construction.
type submission struct {
	projectName  string
	imageCount   int
	images       [][]byte
	narration    []byte
	thumbnail    []byte
	soundtrackID string
	filterID     string
}

func defaultSubmission() *submission {
	return &submission{
		projectName: "e2e slideshow",
		imageCount:  30,
		narration:   []byte("fake-narration-bytes"),
	}
}

// buildMultipart renders the submission into a multipart body. Image parts
// carry image/jpeg, narration audio/mpeg, matching real client uploads.
func buildMultipart(t *testing.T, sub *submission) (body *bytes.Buffer, contentType string) {
	t.Helper()
	body = &bytes.Buffer{}
	w := multipart.NewWriter(body)

	writeField := func(name, value string) {
		if value == "" {
			return
		}
		if err := w.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	writeFile := func(field, filename, partType string, data []byte) {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		h.Set("Content-Type", partType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part %s: %v", field, err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write part %s: %v", field, err)
		}
	}

	writeField("projectName", sub.projectName)
	writeField("soundtrackId", sub.soundtrackID)
	writeField("filterId", sub.filterID)

	for i := 0; i < sub.imageCount; i++ {
		data := []byte("fake-image-bytes")
		if i < len(sub.images) {
			data = sub.images[i]
		}
		writeFile("images", "slide.jpg", "image/jpeg", data)
	}
	if sub.narration != nil {
		writeFile("narration", "narration.mp3", "audio/mpeg", sub.narration)
	}
	if sub.thumbnail != nil {
		writeFile("thumbnail", "cover.jpg", "image/jpeg", sub.thumbnail)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, w.FormDataContentType()
}

// startAssembly submits the multipart request with auth and returns the
// response.
func startAssembly(t *testing.T, ta *testApp, sub *submission) *http.Response {
	t.Helper()
	body, contentType := buildMultipart(t, sub)

	req, err := http.NewRequest(http.MethodPost, "/api/assembly/start", body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+generateToken(t))

	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
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

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
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

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorDetails digs the details map out of an error response.
func errorDetails(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %v", body)
	}
	details, _ := errObj["details"].(map[string]interface{})
	return details
}

// errorCode digs the code out of an error response.
func errorCode(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %v", body)
	}
	code, _ := errObj["code"].(string)
	return code
}
