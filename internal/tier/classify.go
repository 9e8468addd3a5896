package tier

import "net/http"

// MinArtifactBytes is the smallest plausible size for a generated
// clip. Smaller artifacts fail verification and count as attempt
// failures.
const MinArtifactBytes = 1024

// kindFromStatus maps a provider HTTP status code to a failure kind.
// Zero (no status in the chain) and 5xx map to transient.
func kindFromStatus(code int) Kind {
	switch code {
	case http.StatusTooManyRequests:
		return KindQuotaExceeded
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindPermissionDenied
	case http.StatusBadRequest:
		return KindInvalidArgument
	default:
		return KindTransient
	}
}
