package services

import "bytes"

// DetectIdentical reports whether the provider handed back the uploaded image
// unchanged. Both sides are the encoded file bytes, compared exactly.
func DetectIdentical(input, output []byte) bool {
	return bytes.Equal(input, output)
}
