package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/petportrait/internal/core/domain/generation"
)

func newTestImageClient(t *testing.T, h http.HandlerFunc) *ImageClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewImageClient(ImageConfig{APIKey: "sk-test", BaseURL: srv.URL + "/"})
}

func TestImageClient_GenerateSendsJSON(t *testing.T) {
	var got generationRequest
	c := newTestImageClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"url":"https://cdn.example/a.png"}]}`))
	})

	res, err := c.Generate(context.Background(), &generation.ProviderCall{
		Prompt:  "a cat in space",
		Quality: generation.QualityMedium,
		Size:    "1024x1024",
	})
	require.NoError(t, err)
	require.IsType(t, &generation.ImageURL{}, res)
	assert.Equal(t, "https://cdn.example/a.png", res.(*generation.ImageURL).URL)

	assert.Equal(t, "gpt-image-1", got.Model)
	assert.Equal(t, "a cat in space", got.Prompt)
	assert.Equal(t, "medium", got.Quality)
	assert.Equal(t, "1024x1024", got.Size)
}

func TestImageClient_EditSendsMultipart(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}
	png := []byte("generated")
	c := newTestImageClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/edits", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "gpt-image-2", r.FormValue("model"))
		assert.Equal(t, "make it festive", r.FormValue("prompt"))
		assert.Equal(t, "high", r.FormValue("quality"))
		assert.Equal(t, "1536x1024", r.FormValue("size"))

		files := r.MultipartForm.File["image"]
		require.Len(t, files, 1)
		assert.Equal(t, "input.jpg", files[0].Filename)
		assert.Equal(t, "image/jpeg", files[0].Header.Get("Content-Type"))
		f, err := files[0].Open()
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, img, body)

		_, _ = w.Write([]byte(`{"data":[{"b64_json":"` + base64.StdEncoding.EncodeToString(png) + `"}]}`))
	})

	res, err := c.Edit(context.Background(), &generation.ProviderCall{
		Prompt:           "make it festive",
		Image:            img,
		ImageContentType: "image/jpeg",
		Model:            "gpt-image-2",
		Quality:          generation.QualityHigh,
		Size:             "1536x1024",
	})
	require.NoError(t, err)
	inline, ok := res.(*generation.InlineImage)
	require.True(t, ok)
	assert.Equal(t, png, inline.Data)
	assert.Equal(t, "image/png", inline.Encoding)
}

func TestImageClient_EditRequiresImage(t *testing.T) {
	c := NewImageClient(ImageConfig{APIKey: "k"})
	_, err := c.Edit(context.Background(), &generation.ProviderCall{Prompt: "p"})
	assert.Error(t, err)
}

func TestImageClient_ErrorStatusBecomesProviderError(t *testing.T) {
	c := newTestImageClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid size"}}`))
	})

	res, err := c.Generate(context.Background(), &generation.ProviderCall{Prompt: "p"})
	require.NoError(t, err)
	pe, ok := res.(*generation.ProviderError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, pe.Status)
	assert.Contains(t, pe.Body, "Invalid size")
}

func TestImageClient_LongErrorBodyIsTruncated(t *testing.T) {
	c := newTestImageClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 2*maxErrorBody)))
	})

	res, err := c.Generate(context.Background(), &generation.ProviderCall{Prompt: "p"})
	require.NoError(t, err)
	pe := res.(*generation.ProviderError)
	assert.Len(t, pe.Body, maxErrorBody+3)
}

func TestParseImagesResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want interface{}
	}{
		{"url", `{"data":[{"url":"https://x/y.png"}]}`, &generation.ImageURL{URL: "https://x/y.png"}},
		{"b64 wins over url", `{"data":[{"url":"https://x/y.png","b64_json":"aGk="}]}`, &generation.InlineImage{Data: []byte("hi"), Encoding: "image/png"}},
		{"empty data", `{"data":[]}`, nil},
		{"no fields", `{"data":[{}]}`, nil},
		{"not json", `<html>`, nil},
		{"bad base64", `{"data":[{"b64_json":"!!"}]}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseImagesResponse(http.StatusOK, []byte(tt.body))
			if tt.want == nil {
				pe, ok := got.(*generation.ProviderError)
				require.True(t, ok, "got %T", got)
				assert.Equal(t, http.StatusOK, pe.Status)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImageClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	c := NewImageClient(ImageConfig{APIKey: "k", BaseURL: srv.URL})

	res, err := c.Generate(context.Background(), &generation.ProviderCall{Prompt: "p"})
	assert.Error(t, err)
	assert.Nil(t, res)
}
