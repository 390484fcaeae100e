package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"

	"github.com/avatarctic/petportrait/internal/core/domain/generation"
	"github.com/avatarctic/petportrait/internal/core/ports"
)

// Per-image estimates for gpt-image-1. Advisory telemetry only.
var costTable = map[generation.Quality]float64{
	generation.QualityLow:    0.02,
	generation.QualityMedium: 0.07,
	generation.QualityHigh:   0.19,
}

// EstimateCost returns the per-image estimate for q; unknown qualities are
// priced as medium.
func EstimateCost(q generation.Quality) float64 {
	if c, ok := costTable[q]; ok {
		return c
	}
	return costTable[generation.QualityMedium]
}

// Dispatch describes one completed provider call.
type Dispatch struct {
	Mode       generation.Mode
	Call       *generation.ProviderCall
	Result     generation.ProviderResult
	Latency    time.Duration
	Dimensions string
	CostUSD    float64
}

// Dispatcher picks the provider operation for a request and times the call.
type Dispatcher struct {
	provider ports.ImageProvider
	model    string
	now      func() time.Time
	metrics  *Metrics
	logger   *logrus.Logger
}

func NewDispatcher(provider ports.ImageProvider, model string, metrics *Metrics, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{provider: provider, model: model, now: time.Now, metrics: metrics, logger: logger}
}

// Dispatch calls Edit when the request carries an image and did not ask for
// text-only output, and Generate otherwise. A request with neither is
// rejected without contacting the provider.
func (d *Dispatcher) Dispatch(ctx context.Context, req *generation.Request, prompt string) (*Dispatch, error) {
	mode, ok := req.Mode()
	if !ok {
		return nil, generation.ErrMissingImage
	}

	call := &generation.ProviderCall{
		Model:   d.model,
		Prompt:  prompt,
		Quality: req.Quality,
		Size:    req.Size,
	}
	out := &Dispatch{Mode: mode, Call: call, CostUSD: EstimateCost(req.Quality)}

	operation := d.provider.Generate
	if mode == generation.ModeEdit {
		call.Image = req.Image
		call.ImageContentType = req.ImageContentType
		out.Dimensions = imageDimensions(req.Image)
		operation = d.provider.Edit
	}

	start := d.now()
	result, err := operation(ctx, call)
	out.Latency = d.now().Sub(start)
	d.metrics.observeProviderCall(mode, out.Latency)

	if err != nil {
		return out, generation.ProviderFailure(fmt.Errorf("%s %s call: %w", d.provider.Name(), mode, err))
	}
	if result == nil {
		return out, generation.ProviderFailure(errors.New("provider returned no result"))
	}
	out.Result = result
	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{
			"mode":       mode,
			"provider":   d.provider.Name(),
			"latency_ms": out.Latency.Milliseconds(),
		}).Debug("provider call finished")
	}
	return out, nil
}

// imageDimensions reads WxH from the image header. Unknown formats give "".
func imageDimensions(data []byte) string {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
}
