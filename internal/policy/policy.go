// Package policy produces the allow/deny verdict for one script
// invocation. The verdict is a pure function of the script's digest,
// the operator override flags, and the trust set, so it is testable
// apart from the interception machinery.
package policy

import (
	"fmt"

	"github.com/fencegate/fencegate/internal/digest"
)

// Verdict is the gate's decision for one invocation.
type Verdict string

const (
	Allow Verdict = "allow"
	Deny  Verdict = "deny"
)

// Flags are the operator-controlled overrides. They are configuration
// state, not derived state: nothing in the gate ever writes them.
type Flags struct {
	// GlobalOverride allows all execution unconditionally.
	GlobalOverride bool `yaml:"allow_all"`
	// IntegrationOverrides allows all execution for one named
	// integration regardless of hash.
	IntegrationOverrides map[string]bool `yaml:"allow_integrations,omitempty"`
}

// Allows reports whether the flags alone authorize the integration.
func (f Flags) Allows(integration string) bool {
	return f.GlobalOverride || f.IntegrationOverrides[integration]
}

// TrustSet is the snapshot view the policy consults. Satisfied by
// truststore.Snapshot and by the Store itself.
type TrustSet interface {
	Contains(digest.Entry) bool
}

// Decide returns Allow iff the digest is in the trust set, or the
// global override is on, or the integration's own override is on.
// Everything else is Deny. Callers hash the source once and pass the
// result; each invocation pays for exactly one digest.
func Decide(sum digest.Entry, integration string, flags Flags, trust TrustSet) Verdict {
	if flags.Allows(integration) {
		return Allow
	}
	if trust != nil && trust.Contains(sum) {
		return Allow
	}
	return Deny
}

// DeniedError is the typed failure for callers that must surface a
// blocked invocation to an operator (CLI, CI checks). Decide itself
// never returns it: denial is a verdict, not an error.
type DeniedError struct {
	Digest      digest.Entry
	Integration string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("execution blocked: digest %s is not trusted (integration %s)", e.Digest, e.Integration)
}
