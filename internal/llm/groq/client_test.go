package groq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"srtvoice/internal/llm"
)

type chatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func makeResponse(content string) string {
	data, _ := json.Marshal(chatResponse{
		ID:      "test-id",
		Object:  "chat.completion",
		Created: 1234567890,
		Model:   DefaultModel,
		Choices: []choice{{Message: message{Role: "assistant", Content: content}, FinishReason: "stop"}},
	})
	return string(data)
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient("test-api-key", "", serverURL+"/")
	if err != nil {
		t.Fatalf("failed to create groq client: %v", err)
	}
	return client
}

func TestChatJSON(t *testing.T) {
	tests := []struct {
		name           string
		responseBody   string
		statusCode     int
		wantContent    string
		wantErrIs      error
		wantErrContain string
	}{
		{
			name:         "successfulGeneration",
			responseBody: makeResponse(`{"tagged_text": "[laughs] hi"}`),
			statusCode:   http.StatusOK,
			wantContent:  `{"tagged_text": "[laughs] hi"}`,
		},
		{
			name:         "emptyResponse",
			responseBody: makeResponse(""),
			statusCode:   http.StatusOK,
			wantErrIs:    llm.ErrEmptyResponse,
		},
		{
			name:         "noChoices",
			responseBody: `{"id":"x","object":"chat.completion","choices":[]}`,
			statusCode:   http.StatusOK,
			wantErrIs:    llm.ErrNoResponse,
		},
		{
			name:           "httpErrorUnauthorized",
			responseBody:   `{"error": {"message": "invalid api key", "type": "authentication_error"}}`,
			statusCode:     http.StatusUnauthorized,
			wantErrContain: "generate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&body)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			got, err := newTestClient(t, server.URL).ChatJSON(context.Background(), "system", "user")

			if tt.wantErrIs != nil || tt.wantErrContain != "" {
				if err == nil {
					t.Fatal("ChatJSON() expected error")
				}
				if tt.wantErrIs != nil && !errors.Is(err, tt.wantErrIs) {
					t.Errorf("error = %v, want %v", err, tt.wantErrIs)
				}
				if !strings.Contains(err.Error(), tt.wantErrContain) {
					t.Errorf("error = %v, want containing %q", err, tt.wantErrContain)
				}
				return
			}

			if err != nil {
				t.Fatalf("ChatJSON() error = %v", err)
			}
			if got != tt.wantContent {
				t.Errorf("ChatJSON() = %q, want %q", got, tt.wantContent)
			}
			format, _ := body["response_format"].(map[string]any)
			if format["type"] != "json_object" {
				t.Errorf("response_format = %v, want json_object", body["response_format"])
			}
		})
	}
}
