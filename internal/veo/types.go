// Package veo provides an HTTP client for the Veo long-running video
// generation API. A generation is a submit/poll/download cycle; polling
// is bounded by a fixed number of fixed-interval checks so a hung
// operation cannot stall the caller indefinitely.
package veo

// SubmitRequest contains the parameters for submitting a generation.
type SubmitRequest struct {
	Model           string // Model name, e.g. "veo-3.0-generate-001"
	Prompt          string // Prompt text
	DurationSeconds int    // Target clip duration in whole seconds
	AspectRatio     string // e.g. "9:16" (default) or "16:9"
	ImageBase64     string // Optional conditioning image (PNG, base64)
}

// PollResult contains the state of a long-running generation operation.
type PollResult struct {
	Done     bool   // True when the operation reached a terminal state
	VideoURI string // Download URI for the finished video
	Error    string // Provider error message when the operation failed
	Code     int    // Provider error code when the operation failed
}

// QuotaStatus is the outcome of a pre-flight quota check.
type QuotaStatus string

// Pre-flight quota states.
const (
	QuotaAvailable QuotaStatus = "AVAILABLE"
	QuotaExhausted QuotaStatus = "EXHAUSTED"
	QuotaUnknown   QuotaStatus = "UNKNOWN"
)

// submitRequest is the wire format for the predictLongRunning endpoint.
type submitRequest struct {
	Instances  []submitInstance `json:"instances"`
	Parameters submitParameters `json:"parameters"`
}

type submitInstance struct {
	Prompt string       `json:"prompt"`
	Image  *submitImage `json:"image,omitempty"`
}

type submitImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type submitParameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	SampleCount     int    `json:"sampleCount"`
}

// operationResponse is the wire format for operation polling.
type operationResponse struct {
	Name     string           `json:"name"`
	Done     bool             `json:"done"`
	Error    *operationError  `json:"error,omitempty"`
	Response *operationResult `json:"response,omitempty"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type operationResult struct {
	GenerateVideoResponse *generateVideoResponse `json:"generateVideoResponse,omitempty"`
}

type generateVideoResponse struct {
	GeneratedSamples []generatedSample `json:"generatedSamples"`
}

type generatedSample struct {
	Video sampleVideo `json:"video"`
}

type sampleVideo struct {
	URI string `json:"uri"`
}
