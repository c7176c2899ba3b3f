package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/llm"
)

func TestGenerate_SendsImageAndReturnsContent(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  {\"ok\":true}  "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL}, nil)
	out, err := c.Generate(context.Background(), "gpt-4o-mini", llm.Request{
		Parts: []llm.Part{llm.TextPart("hi"), llm.ImagePart([]byte{1, 2, 3}, "image/png")},
		JSON:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	msgs := got["messages"].([]any)
	content := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	img := content[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,AQID", img["url"])
	assert.NotNil(t, got["response_format"])
}

func TestGenerate_EmptyContentIsMalformed(t *testing.T) {
	for _, body := range []string{`{"choices":[]}`, `{"choices":[{"message":{"content":""}}]}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c := NewClient(Config{APIKey: "key", BaseURL: srv.URL}, nil)
		_, err := c.Generate(context.Background(), "gpt-4o-mini", llm.Request{Parts: []llm.Part{llm.TextPart("hi")}})
		srv.Close()
		assert.ErrorIs(t, err, llm.ErrMalformed, body)
	}
}

func TestGenerate_ModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"The model does not exist","type":"invalid_request_error","code":"model_not_found"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL}, nil)
	_, err := c.Generate(context.Background(), "nope", llm.Request{Parts: []llm.Part{llm.TextPart("hi")}})

	var me *llm.ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, http.StatusNotFound, me.Status)
	assert.True(t, me.IsNotFound())
	assert.Equal(t, constants.ErrConfig, me.ErrorType())
	assert.Equal(t, "The model does not exist", me.Message)
}

func TestGenerate_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "bad", BaseURL: srv.URL}, nil)
	_, err := c.Generate(context.Background(), "m", llm.Request{})

	var me *llm.ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, constants.ErrAuth, me.ErrorType())
	assert.Equal(t, "not json", me.Details)
}
