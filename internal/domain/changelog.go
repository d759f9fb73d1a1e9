package domain

// NoChangesMessage is stored in the latest change log when a run found nothing.
const NoChangesMessage = "No changes detected this week"

// ChangeLog is the dated record of the changes detected by one run.
type ChangeLog struct {
	Date         string           `json:"date"`
	RunID        string           `json:"run_id,omitempty"`
	Changes      ChangeList       `json:"changes"`
	TotalChanges int              `json:"total_changes"`
	GeneratedAt  string           `json:"generated_at"`
	Message      string           `json:"message,omitempty"`
	Metadata     *DatasetMetadata `json:"metadata,omitempty"`
}

// DatasetMetadata describes the dataset a change log was computed from.
type DatasetMetadata struct {
	ChangeNumber int    `json:"change_number"`
	Cloud        string `json:"cloud,omitempty"`
}
