package tier

import (
	"errors"
	"fmt"
)

// Kind classifies a generation failure. The orchestrator switches on
// the kind instead of parsing error text.
type Kind string

// Failure kinds.
const (
	// KindQuotaExceeded means the provider rejected the attempt for
	// rate-limit or daily-budget reasons. Advancing to the next tier is
	// the only remedy; retrying the same tier will not help.
	KindQuotaExceeded Kind = "quota_exceeded"
	// KindPermissionDenied means the credentials or entitlement are
	// wrong. Fatal for the tier, waiting cannot fix it.
	KindPermissionDenied Kind = "permission_denied"
	// KindInvalidArgument means the request itself was rejected.
	// Fatal for the tier.
	KindInvalidArgument Kind = "invalid_argument"
	// KindTransient covers network errors, 5xx responses, poll budget
	// overruns and other failures worth retrying on the same tier.
	KindTransient Kind = "transient"
	// KindArtifactVerification means the provider reported success but
	// the artifact is missing or implausibly small. Treated like an
	// attempt failure.
	KindArtifactVerification Kind = "artifact_verification"
)

// Failure is a classified generation error.
type Failure struct {
	Kind Kind
	Tier Tier
	Err  error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Tier, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Tier, f.Kind, f.Err)
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure wraps err as a classified tier failure.
func NewFailure(kind Kind, t Tier, err error) *Failure {
	return &Failure{Kind: kind, Tier: t, Err: err}
}

// KindOf extracts the failure kind from an error chain. Unclassified
// errors are treated as transient so an unexpected failure degrades to
// the bounded same-tier retry path rather than aborting a clip.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindTransient
}

// FatalForTier reports whether the failure kind rules out any further
// attempt on the same tier.
func FatalForTier(k Kind) bool {
	return k == KindPermissionDenied || k == KindInvalidArgument
}
