package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(providers.Config{
		Name:    "vertex_gemini",
		Type:    "gemini",
		APIKey:  "test-token",
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.SystemInstruction == nil {
			t.Error("systemInstruction missing")
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "ant"}, {"text": "wort"}},
				}},
			},
			"usageMetadata": map[string]int{
				"promptTokenCount":     9,
				"candidatesTokenCount": 2,
			},
		})
	})

	res, err := c.Chat(context.Background(), &providers.ChatRequest{
		Model:  "gemini-2.0-flash",
		System: "antworte knapp",
		Prompt: "frage",
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if res.Content != "antwort" {
		t.Errorf("content = %q, want concatenated parts", res.Content)
	}
	if res.Usage.InputUnits != 9 || res.Usage.OutputUnits != 2 {
		t.Errorf("usage = %+v", res.Usage)
	}
}

func TestChatNoCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.Chat(context.Background(), &providers.ChatRequest{Model: "gemini-2.0-flash", Prompt: "x"})
	if err == nil {
		t.Fatal("Chat() error = nil, want vendor error")
	}
}

func TestVisionInlineImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		parts := req.Contents[0].Parts
		if len(parts) != 2 || parts[1].InlineData == nil {
			t.Fatalf("parts = %+v, want text + inlineData", parts)
		}
		if parts[1].InlineData.MimeType != "image/jpeg" {
			t.Errorf("mime type = %q", parts[1].InlineData.MimeType)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "ein hund"}},
				}},
			},
		})
	})

	res, err := c.Vision(context.Background(), &providers.VisionRequest{
		Model:          "gemini-2.0-flash",
		Prompt:         "beschreibe",
		ImageData:      []byte{0xff, 0xd8},
		ImageMediaType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Vision() error = %v", err)
	}
	if res.Content != "ein hund" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestEmbed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":batchEmbedContents") {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req batchEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Requests) != 3 {
			t.Fatalf("requests = %d, want 3", len(req.Requests))
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": []map[string]interface{}{
				{"values": []float32{0.1}},
				{"values": []float32{0.2}},
				{"values": []float32{0.3}},
			},
		})
	})

	res, err := c.Embed(context.Background(), &providers.EmbedRequest{
		Model:  "gemini-2.0-flash",
		Inputs: []string{"a", "b", "c"},
	})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(res.Vectors) != 3 {
		t.Fatalf("vectors = %d, want 3", len(res.Vectors))
	}
	if res.Usage.InputUnits != 3 {
		t.Errorf("billable items = %d, want 3", res.Usage.InputUnits)
	}
}
