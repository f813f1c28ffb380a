package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected /api/chat, got %s", r.URL.Path)
		}

		var reqBody map[string]interface{}
		json.NewDecoder(r.Body).Decode(&reqBody)
		if stream, _ := reqBody["stream"].(bool); !stream {
			t.Error("Expected stream: true in request")
		}
		if model, _ := reqBody["model"].(string); model != "llama3.2" {
			t.Errorf("Expected model llama3.2, got %v", model)
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hello"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":" there"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`)
	}))
	defer server.Close()

	client, err := NewOllamaClient(WithBaseURL(server.URL), WithModel("llama3.2"))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	stream, err := client.Stream(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("Hello")},
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	defer stream.Close()

	var got string
	for {
		chunk, err := stream.Recv()
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		got += chunk.Delta
		if chunk.Done {
			if chunk.FinishReason != "stop" {
				t.Errorf("Expected done_reason stop, got %q", chunk.FinishReason)
			}
			break
		}
	}

	if got != "Hello there" {
		t.Errorf("Expected 'Hello there', got %q", got)
	}
}

func TestOllamaChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		json.NewDecoder(r.Body).Decode(&reqBody)

		// Token limit travels as options.num_predict.
		opts, _ := reqBody["options"].(map[string]interface{})
		if opts == nil || opts["num_predict"] == nil {
			t.Error("Expected options.num_predict in request")
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"model": "llama3.2",
			"message": {"role": "assistant", "content": "Hi!"},
			"done": true,
			"done_reason": "stop",
			"prompt_eval_count": 12,
			"eval_count": 3
		}`)
	}))
	defer server.Close()

	client, _ := NewOllamaClient(
		WithBaseURL(server.URL),
		WithModel("llama3.2"),
		WithMaxTokens(256),
	)
	defer client.Close()

	resp, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("Hello")},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Message.Content != "Hi!" {
		t.Errorf("Unexpected content: %s", resp.Message.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("Expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestOllamaServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": "model 'missing' not found"}`)
	}))
	defer server.Close()

	client, _ := NewOllamaClient(WithBaseURL(server.URL), WithModel("missing"))
	defer client.Close()

	_, err := client.Stream(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("Hello")},
	})
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}
	if IsConnectivity(err) {
		t.Error("API error response must not count as a connectivity failure")
	}
}
