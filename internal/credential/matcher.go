package credential

import "context"

// Matcher resolves a scholarship's requirement codes against a student's
// uploaded credentials. The matching heuristic itself lives in an external
// service; the review path only consumes its resolved/verified outcome.
type Matcher interface {
	Resolve(ctx context.Context, studentID string, requirementCodes []string) (map[string]Resolution, error)
}

// Resolution is the outcome for one requirement code.
type Resolution struct {
	Resolved bool
	Verified bool
	Label    string
}

// DisplayLabel returns the human-readable requirement name, falling back to
// the raw code when the matcher supplied none.
func (r Resolution) DisplayLabel(code string) string {
	if r.Label != "" {
		return r.Label
	}
	return code
}
