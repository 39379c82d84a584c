package models

// ReportSection is one discrepancy category of a reconciliation report:
// a total count plus up to a handful of "category/displayName" examples.
type ReportSection struct {
	Count int      `json:"count"`
	Docs  []string `json:"docs"`
}

// SyncSummary carries the headline counts of a reconciliation pass.
type SyncSummary struct {
	LocalDocuments   int `json:"local_documents"`
	RemoteDocuments  int `json:"remote_documents"`
	MatchedDocuments int `json:"matched_documents"`
}

// SyncReport is the result of reconciling one filestore's local rows against
// the remote listing.
type SyncReport struct {
	MissingFromLocal   ReportSection `json:"missing_from_local"`
	MissingFromRemote  ReportSection `json:"missing_from_remote"`
	MissingMetadata    ReportSection `json:"missing_metadata"`
	MetadataMismatch   ReportSection `json:"metadata_mismatch"`
	UnmatchedFields    ReportSection `json:"unmatched_fields"`
	DuplicateDocuments ReportSection `json:"duplicate_documents"`
	Summary            SyncSummary   `json:"summary"`
}
