package model

import "time"

// RunStatus represents the current state of a reconcile run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// DefectKind classifies problems that leave a record unchanged for manual follow-up.
type DefectKind string

const (
	DefectMissingName             DefectKind = "missing_name"
	DefectInvalidCategory         DefectKind = "invalid_category"
	DefectInvalidZone             DefectKind = "invalid_zone"
	DefectStoreFailure            DefectKind = "store_failure"
	DefectOverlappingNeighborhood DefectKind = "overlapping_neighborhood"
	DefectUnknownTableValue       DefectKind = "unknown_table_value"
	DefectDuplicateBusiness       DefectKind = "duplicate_business"
	DefectEmptyTable              DefectKind = "empty_table"
)

// Defect is a reported problem with a record or with reference configuration.
type Defect struct {
	Kind      DefectKind `json:"kind"`
	PartnerID string     `json:"partner_id,omitempty"`
	Name      string     `json:"name,omitempty"`
	Message   string     `json:"message"`
}

// Run is a single reconcile pass over the record store.
type Run struct {
	ID        string      `json:"id"`
	Status    RunStatus   `json:"status"`
	DryRun    bool        `json:"dry_run"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary aggregates per-record outcomes of a reconcile run.
type RunSummary struct {
	Processed      int      `json:"processed"`
	Updated        int      `json:"updated"`
	Recategorized  int      `json:"recategorized"`
	FieldsEnriched int      `json:"fields_enriched"`
	ZonesAssigned  int      `json:"zones_assigned"`
	Skipped        int      `json:"skipped"`
	Unchanged      int      `json:"unchanged"`
	Failed         int      `json:"failed"`
	Unzoned        []string `json:"unzoned,omitempty"`
	Defects        []Defect `json:"defects,omitempty"`
}
