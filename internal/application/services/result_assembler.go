package services

import (
	"errors"
	"fmt"

	"github.com/avatarctic/petportrait/internal/core/domain/generation"
)

const identicalMessage = "Provider returned identical image bytes"

// assembleResult turns a finished dispatch into the response envelope.
// Provider errors and unknown result shapes come back as errors; every
// success carries either a display URL or the identical flag.
func assembleResult(d *Dispatch, input []byte) (*generation.Result, generation.Outcome, error) {
	res := &generation.Result{
		LatencyMs:  d.Latency.Milliseconds(),
		CostUSD:    d.CostUSD,
		ModelUsed:  d.Call.Model,
		SizeUsed:   d.Call.Size,
		PromptUsed: d.Call.Prompt,
	}
	if d.Mode == generation.ModeEdit {
		res.ImageDimensions = d.Dimensions
	} else {
		res.TextOnly = true
	}

	switch r := d.Result.(type) {
	case *generation.ImageURL:
		if r.URL == "" {
			return nil, generation.OutcomeProviderError, generation.ProviderFailure(errors.New("provider returned an empty url"))
		}
		// URL-only results are not fetched for identity comparison.
		res.URL = r.URL
		return res, generation.OutcomeSuccess, nil
	case *generation.InlineImage:
		if len(r.Data) == 0 {
			return nil, generation.OutcomeProviderError, generation.ProviderFailure(errors.New("provider returned an empty image"))
		}
		if d.Mode == generation.ModeEdit && DetectIdentical(input, r.Data) {
			res.Identical = true
			res.Message = identicalMessage
			return res, generation.OutcomeIdentical, nil
		}
		res.URL = r.DataURL()
		return res, generation.OutcomeSuccess, nil
	case *generation.ProviderError:
		return nil, generation.OutcomeProviderError, generation.ProviderFailure(r)
	default:
		return nil, generation.OutcomeInternalError, generation.InternalFailure(fmt.Errorf("unhandled provider result %T", d.Result))
	}
}
