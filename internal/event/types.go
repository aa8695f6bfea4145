package event

import "github.com/codestream-ai/codestream/pkg/types"

// EditStartedData is the data for edit.started events.
type EditStartedData struct {
	SessionID  string `json:"sessionID"`
	RequestID  string `json:"requestID"`
	ResponseID string `json:"responseID"`
	BlockIndex int    `json:"blockIndex"`
}

// EditSummaryData is the data for edit.summary events: the running
// human-readable description of what an in-flight edit has changed so far.
type EditSummaryData struct {
	Summary types.ChangeSummary `json:"summary"`
}

// EditAppliedData is the data for edit.applied events.
type EditAppliedData struct {
	Document string `json:"document"`
}

// EditRejectedData is the data for edit.rejected events.
type EditRejectedData struct {
	Document string `json:"document"`
}

// FileEditedData is the data for file.edited events.
type FileEditedData struct {
	Document string `json:"document"`
}

// ConfigUpdatedData is the data for config.updated events.
type ConfigUpdatedData struct {
	Options types.Options `json:"options"`
}
