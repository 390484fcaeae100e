package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/avatarctic/petportrait/internal/core/domain/generation"
	"github.com/avatarctic/petportrait/internal/core/ports"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultImageModel = "gpt-image-1"
	// maxErrorBody bounds how much of a failed response is kept for logs.
	maxErrorBody = 4096
)

type ImageConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ImageClient talks to the images/generations and images/edits endpoints.
type ImageClient struct {
	cfg    ImageConfig
	client *http.Client
}

var _ ports.ImageProvider = (*ImageClient)(nil)

func NewImageClient(cfg ImageConfig) *ImageClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultImageModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &ImageClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *ImageClient) Name() string { return "openai-image" }

type generationRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Quality string `json:"quality,omitempty"`
	Size    string `json:"size,omitempty"`
}

type imagesResponse struct {
	Data []struct {
		URL     string `json:"url,omitempty"`
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
}

func (c *ImageClient) Generate(ctx context.Context, call *generation.ProviderCall) (generation.ProviderResult, error) {
	payload, err := json.Marshal(generationRequest{
		Model:   c.model(call),
		Prompt:  call.Prompt,
		Quality: string(call.Quality),
		Size:    call.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/images/generations"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq)
}

func (c *ImageClient) Edit(ctx context.Context, call *generation.ProviderCall) (generation.ProviderResult, error) {
	if len(call.Image) == 0 {
		return nil, errors.New("image is required")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	contentType := call.ImageContentType
	if contentType == "" {
		contentType = "image/png"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="input%s"`, extensionFor(contentType)))
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(call.Image); err != nil {
		return nil, err
	}

	_ = writer.WriteField("model", c.model(call))
	_ = writer.WriteField("prompt", call.Prompt)
	if call.Quality != "" {
		_ = writer.WriteField("quality", string(call.Quality))
	}
	if call.Size != "" {
		_ = writer.WriteField("size", call.Size)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/images/edits"), &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(httpReq)
}

// do sends the request and normalises the body into a ProviderResult.
func (c *ImageClient) do(httpReq *http.Request) (generation.ProviderResult, error) {
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &generation.ProviderError{Status: resp.StatusCode, Body: truncate(body)}, nil
	}
	return parseImagesResponse(resp.StatusCode, body), nil
}

func parseImagesResponse(status int, body []byte) generation.ProviderResult {
	var parsed imagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &generation.ProviderError{Status: status, Body: "unparseable response: " + truncate(body)}
	}
	if len(parsed.Data) == 0 {
		return &generation.ProviderError{Status: status, Body: "no image in response: " + truncate(body)}
	}

	first := parsed.Data[0]
	if first.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return &generation.ProviderError{Status: status, Body: "invalid b64_json: " + err.Error()}
		}
		return &generation.InlineImage{Data: data, Encoding: "image/png"}
	}
	if first.URL != "" {
		return &generation.ImageURL{URL: first.URL}
	}
	return &generation.ProviderError{Status: status, Body: "no image in response: " + truncate(body)}
}

func (c *ImageClient) model(call *generation.ProviderCall) string {
	if call.Model != "" {
		return call.Model
	}
	return c.cfg.Model
}

func (c *ImageClient) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
