// Package domain defines domain-level errors for the classification feature.
package domain

import "errors"

// Domain errors for classification operations.
// Upper layers classify them with errors.Is; the wrapped cause carries the detail.
var (
	// ErrModelNotFound indicates that the resolved model artifact path does not exist.
	ErrModelNotFound = errors.New("model artifact not found")

	// ErrDecode indicates that the uploaded bytes are not a decodable image.
	ErrDecode = errors.New("failed to decode image")

	// ErrUnsupportedMediaType indicates that the declared content type is not an image type.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrInference indicates that the model forward pass failed or returned malformed output.
	ErrInference = errors.New("inference failed")

	// ErrImageTooLarge indicates that the upload exceeds the configured byte limit.
	ErrImageTooLarge = errors.New("image exceeds maximum upload size")

	// ErrHistoryDisabled is returned by history queries when no history store is configured.
	ErrHistoryDisabled = errors.New("prediction history is disabled")
)
