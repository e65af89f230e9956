package archive

// ArchivedSummary enumerates what a run archived.
type ArchivedSummary struct {
	Count   int      `json:"count"`
	TaskIDs []string `json:"taskIds"`
}

// Family records one cascade-archived complete family.
type Family struct {
	Parent   string   `json:"parent"`
	Children []string `json:"children"`
}

// SkippedFamily records a family excluded from cascade, with the reason.
type SkippedFamily struct {
	Root   string `json:"root"`
	Reason string `json:"reason"`
}

// BlockedByRelationships lists tasks safe mode excluded from the run.
type BlockedByRelationships struct {
	ByChildren   []string `json:"byChildren"`
	ByDependents []string `json:"byDependents"`
}

// CascadeFromReport carries the result of a cascade-from run. Present
// only when that mode was requested.
type CascadeFromReport struct {
	RootTask              string `json:"rootTask"`
	TotalDescendants      int    `json:"totalDescendants"`
	IncompleteDescendants int    `json:"incompleteDescendants"`
}

// Report is the structured outcome of one archive run. A dry run
// produces the identical structure without persisting anything.
type Report struct {
	OperationID      string                 `json:"operationId"`
	DryRun           bool                   `json:"dryRun"`
	Archived         ArchivedSummary        `json:"archived"`
	CascadeApplied   bool                   `json:"cascadeApplied"`
	CascadedFamilies []Family               `json:"cascadedFamilies"`
	SkippedFamilies  []SkippedFamily        `json:"skippedFamilies,omitempty"`
	SafeMode         bool                   `json:"safeMode"`
	Blocked          BlockedByRelationships `json:"blockedByRelationships"`
	CascadeFrom      *CascadeFromReport     `json:"cascadeFrom,omitempty"`
	Warnings         []string               `json:"warnings,omitempty"`
}
