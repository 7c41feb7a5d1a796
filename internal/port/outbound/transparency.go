package outbound

import "context"

// TransparencyLog is the append-only, externally verifiable log signed
// audit entries are submitted to.
type TransparencyLog interface {
	// SubmitEntry stores the entry and returns a verification reference.
	SubmitEntry(ctx context.Context, entry any) (string, error)

	// VerifyEntry reports whether the log includes the referenced entry.
	VerifyEntry(ctx context.Context, reference string) (bool, error)
}
