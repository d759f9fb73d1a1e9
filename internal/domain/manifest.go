package domain

// Manifest lists the dated change logs available to the dashboard.
// Files are ordered newest first.
type Manifest struct {
	GeneratedAt string         `json:"generated_at"`
	TotalFiles  int            `json:"total_files"`
	DateRange   DateRange      `json:"date_range"`
	Files       []ManifestFile `json:"files"`
}

// DateRange is the span covered by a manifest. Both ends are empty when
// there are no files.
type DateRange struct {
	Oldest string `json:"oldest,omitempty"`
	Newest string `json:"newest,omitempty"`
}

// ManifestFile is a single change log entry in the manifest.
type ManifestFile struct {
	Date     string `json:"date"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}
