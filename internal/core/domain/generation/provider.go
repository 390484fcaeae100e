package generation

import (
	"encoding/base64"
	"fmt"
)

// ProviderCall carries the parameters of a single outbound provider call.
// Image is nil for text-only generation.
type ProviderCall struct {
	Model            string
	Prompt           string
	Quality          Quality
	Size             string
	Image            []byte
	ImageContentType string
}

// ProviderResult is what a provider call produced. It is one of *ImageURL,
// *InlineImage or *ProviderError; callers switch on the concrete type.
type ProviderResult interface {
	providerResult()
}

// ImageURL is a remotely hosted image.
type ImageURL struct {
	URL string
}

// InlineImage is an image returned in the response body.
type InlineImage struct {
	Data     []byte
	Encoding string // MIME type, e.g. image/png
}

// ProviderError is a non-success or unusable provider response.
type ProviderError struct {
	Status int
	Body   string
}

func (*ImageURL) providerResult()      {}
func (*InlineImage) providerResult()   {}
func (*ProviderError) providerResult() {}

// DataURL renders the inline bytes as a displayable data URL.
func (i *InlineImage) DataURL() string {
	enc := i.Encoding
	if enc == "" {
		enc = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", enc, base64.StdEncoding.EncodeToString(i.Data))
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error: status=%d body=%s", e.Status, e.Body)
}
