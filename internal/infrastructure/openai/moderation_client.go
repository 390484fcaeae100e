package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avatarctic/petportrait/internal/core/ports"
)

const defaultModerationModel = "omni-moderation-latest"

type ModerationConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ModerationClient calls the moderations endpoint with multi-modal input.
type ModerationClient struct {
	cfg    ModerationConfig
	client *http.Client
}

var _ ports.ModerationProvider = (*ModerationClient)(nil)

func NewModerationClient(cfg ModerationConfig) *ModerationClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModerationModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ModerationClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *ModerationClient) Name() string { return "openai-moderation" }

type moderationRequest struct {
	Model string           `json:"model"`
	Input []moderationPart `json:"input"`
}

type moderationPart struct {
	Type     string              `json:"type"`
	Text     string              `json:"text,omitempty"`
	ImageURL *moderationImageURL `json:"image_url,omitempty"`
}

type moderationImageURL struct {
	URL string `json:"url"`
}

type moderationResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
}

func (c *ModerationClient) Moderate(ctx context.Context, in *ports.ModerationInput) (*ports.ModerationVerdict, error) {
	var parts []moderationPart
	if in.Text != "" {
		parts = append(parts, moderationPart{Type: "text", Text: in.Text})
	}
	if len(in.Image) > 0 {
		contentType := in.ImageContentType
		if contentType == "" {
			contentType = "image/png"
		}
		parts = append(parts, moderationPart{
			Type:     "image_url",
			ImageURL: &moderationImageURL{URL: "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(in.Image)},
		})
	}
	if len(parts) == 0 {
		return nil, errors.New("nothing to moderate")
	}

	payload, err := json.Marshal(moderationRequest{Model: c.cfg.Model, Input: parts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/moderations", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("moderation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("moderation error: status=%d body=%s", resp.StatusCode, string(errBody))
	}

	var mResp moderationResponse
	if err := json.NewDecoder(resp.Body).Decode(&mResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(mResp.Results) == 0 {
		return nil, errors.New("moderation response has no results")
	}

	// Multi-part input yields a single combined result.
	r := mResp.Results[0]
	return &ports.ModerationVerdict{Flagged: r.Flagged, Categories: r.Categories}, nil
}
