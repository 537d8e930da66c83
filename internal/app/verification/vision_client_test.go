package verification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []interface{}{
			map[string]interface{}{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func newTestVision(t *testing.T, handler http.HandlerFunc) *VisionClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewVisionClient(VisionClientConfig{URL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"})
}

func TestExtractTextParsesJSONField(t *testing.T) {
	var body []byte
	v := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ = io.ReadAll(r.Body)
		io.WriteString(w, completion(`{"text": "TOTAL 12.00"}`))
	})

	text, err := v.ExtractText(context.Background(), "https://cdn.example/receipt.jpg")
	require.NoError(t, err)
	assert.Equal(t, "TOTAL 12.00", text)

	assert.Equal(t, "gpt-4o-mini", gjson.GetBytes(body, "model").String())
	assert.Equal(t, int64(1000), gjson.GetBytes(body, "max_tokens").Int())
	assert.Equal(t, "https://cdn.example/receipt.jpg", gjson.GetBytes(body, "messages.0.content.1.image_url.url").String())
}

func TestExtractTextFallsBackToRawContent(t *testing.T) {
	v := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, completion("Bus ticket, zone 2"))
	})
	text, err := v.ExtractText(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, "Bus ticket, zone 2", text)
}

func TestExtractTextUnwrapsCodeFence(t *testing.T) {
	v := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, completion("```json\n{\"text\": \"Metro pass\"}\n```"))
	})
	text, err := v.ExtractText(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, "Metro pass", text)
}

func TestVisionErrorPayload(t *testing.T) {
	v := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error": {"message": "quota exceeded"}}`)
	})
	_, err := v.ExtractText(context.Background(), "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestJudgeLocationExpected(t *testing.T) {
	var body []byte
	v := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		io.WriteString(w, completion(`{"isValid": false, "detectedLocation": "Trevi Fountain"}`))
	})
	j, err := v.JudgeLocation(context.Background(), "u", "Colosseum")
	require.NoError(t, err)
	require.NotNil(t, j.IsValid)
	assert.False(t, *j.IsValid)
	assert.Equal(t, "Trevi Fountain", j.Location)
	assert.Contains(t, gjson.GetBytes(body, "messages.0.content.0.text").String(), "shows Colosseum")
	assert.Equal(t, int64(300), gjson.GetBytes(body, "max_tokens").Int())
}

func TestJudgeLocationOpen(t *testing.T) {
	v := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, completion(`{"location": "Charles Bridge, Prague"}`))
	})
	j, err := v.JudgeLocation(context.Background(), "u", "")
	require.NoError(t, err)
	assert.Nil(t, j.IsValid)
	assert.Equal(t, "Charles Bridge, Prague", j.Location)
}

func TestEmptyCompletionIsError(t *testing.T) {
	v := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices": []}`)
	})
	_, err := v.ExtractText(context.Background(), "u")
	assert.Error(t, err)
}
