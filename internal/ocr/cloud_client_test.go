package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIRecognizer_Recognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1735646400,
			"model": "gpt-4o",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"lines\":[{\"text\":\"KA 01 AB 1234\",\"bbox\":[10,20,30,40],\"confidence\":0.9}]}"}
			}]
		}`))
	}))
	defer server.Close()

	r := NewOpenAIRecognizer(&Config{APIKey: "sk-test", Model: "gpt-4o", Endpoint: server.URL + "/"}, DefaultPrompt, nil)
	det, err := r.Recognize(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if len(det.Lines) != 1 || det.Lines[0].Text != "KA 01 AB 1234" || !approx(det.Lines[0].Confidence, 90) {
		t.Errorf("unexpected detection %+v", det)
	}
	if r.Name() != "openai" {
		t.Errorf("Name() = %s, want openai", r.Name())
	}
}

func TestAnthropicRecognizer_Recognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "ak-test" {
			t.Errorf("api key header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [{"type": "text", "text": "[{\"text\":\"MH 12 DE 1433\",\"bbox\":[0.1,0.2,0.3,0.1],\"confidence\":88}]"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`))
	}))
	defer server.Close()

	r := NewAnthropicRecognizer(&Config{APIKey: "ak-test", Model: "claude-3-5-sonnet-20241022", Endpoint: server.URL + "/"}, DefaultPrompt, nil)
	det, err := r.Recognize(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if len(det.Lines) != 1 || det.Lines[0].Text != "MH 12 DE 1433" || !approx(det.Lines[0].Confidence, 88) {
		t.Errorf("unexpected detection %+v", det)
	}
	if r.Name() != "anthropic" {
		t.Errorf("Name() = %s, want anthropic", r.Name())
	}
}

func TestAnthropicRecognizer_NoText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_2","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`))
	}))
	defer server.Close()

	r := NewAnthropicRecognizer(&Config{APIKey: "ak-test", Model: "m", Endpoint: server.URL + "/"}, DefaultPrompt, nil)
	if _, err := r.Recognize(context.Background(), testImage()); err == nil {
		t.Error("expected error for a response without text")
	}
}
