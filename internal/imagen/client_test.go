package imagen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

// setTestEnv sets the GEMINI_API_KEY env var for the test.
func setTestEnv(t *testing.T) {
	t.Helper()
	if err := os.Setenv("GEMINI_API_KEY", "test-key"); err != nil {
		t.Fatalf("failed to set env: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Unsetenv("GEMINI_API_KEY")
	})
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	_ = os.Unsetenv("GEMINI_API_KEY")

	_, err := NewClient()
	if !errors.Is(err, ErrAPIKeyRequired) {
		t.Errorf("expected ErrAPIKeyRequired, got %v", err)
	}
}

func TestNewClient_APIKeyFromEnv(t *testing.T) {
	setTestEnv(t)

	client, err := NewClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.apiKey != "test-key" {
		t.Errorf("expected apiKey 'test-key', got %q", client.apiKey)
	}
}

func TestGenerateImage_Success(t *testing.T) {
	setTestEnv(t)

	imageBytes := []byte("fake png bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("expected x-goog-api-key test-key, got %s", r.Header.Get("x-goog-api-key"))
		}
		if r.URL.Path != "/models/gemini-2.0-flash-preview-image-generation:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "a lighthouse at dawn" {
			t.Errorf("unexpected contents: %+v", req.Contents)
		}
		if len(req.GenerationConfig.ResponseModalities) != 1 || req.GenerationConfig.ResponseModalities[0] != "IMAGE" {
			t.Errorf("expected IMAGE response modality, got %v", req.GenerationConfig.ResponseModalities)
		}

		_ = json.NewEncoder(w).Encode(generateResponse{
			Candidates: []candidate{{
				Content: content{Parts: []part{{
					InlineData: &inlineData{
						MimeType: "image/png",
						Data:     base64.StdEncoding.EncodeToString(imageBytes),
					},
				}}},
			}},
		})
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL))

	got, err := client.GenerateImage(context.Background(), "gemini-2.0-flash-preview-image-generation", "a lighthouse at dawn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(imageBytes) {
		t.Errorf("image content mismatch: got %q", got)
	}
}

func TestGenerateImage_MissingModel(t *testing.T) {
	setTestEnv(t)

	client, _ := NewClient()
	_, err := client.GenerateImage(context.Background(), "", "a")
	if !errors.Is(err, ErrModelRequired) {
		t.Errorf("expected ErrModelRequired, got %v", err)
	}
}

func TestGenerateImage_NoImageReturned(t *testing.T) {
	setTestEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Text-only candidate, no inline image
		_ = json.NewEncoder(w).Encode(generateResponse{
			Candidates: []candidate{{
				Content: content{Parts: []part{{Text: "sorry"}}},
			}},
		})
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL))

	_, err := client.GenerateImage(context.Background(), "gemini-2.0-flash-preview-image-generation", "a")
	if !errors.Is(err, ErrNoImageReturned) {
		t.Errorf("expected ErrNoImageReturned, got %v", err)
	}
}

func TestGenerateImage_QuotaStatusPreserved(t *testing.T) {
	setTestEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL))

	_, err := client.GenerateImage(context.Background(), "gemini-2.0-flash-preview-image-generation", "a")
	if err == nil {
		t.Fatal("expected error")
	}
	if StatusCodeOf(err) != http.StatusTooManyRequests {
		t.Errorf("expected status 429 in error chain, got %d", StatusCodeOf(err))
	}
}

func TestReachable(t *testing.T) {
	setTestEnv(t)

	t.Run("http error still reachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client, _ := NewClient(WithBaseURL(server.URL))
		if err := client.Reachable(context.Background()); err != nil {
			t.Errorf("expected reachable, got %v", err)
		}
	})

	t.Run("connection refused is unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // refuse connections

		client, _ := NewClient(WithBaseURL(server.URL))
		if err := client.Reachable(context.Background()); err == nil {
			t.Error("expected error for closed server")
		}
	})
}
