package models

// DefaultHandle is the output handle followed when a handler does not pick
// a named branch.
const DefaultHandle = "default"

// NodeResult is what a handler returns from a successful execution. Handler
// failures are returned as ordinary errors, not encoded here.
type NodeResult struct {
	Output       map[string]any `json:"output,omitempty"`
	SourceHandle string         `json:"source_handle,omitempty"` // empty means DefaultHandle
	Metadata     map[string]any `json:"metadata,omitempty"`      // diagnostic only, never control flow
}

// Handle returns the selected output handle, defaulting to DefaultHandle.
func (r *NodeResult) Handle() string {
	if r == nil || r.SourceHandle == "" {
		return DefaultHandle
	}

	return r.SourceHandle
}
