package domain

import "time"

// DateLayout is the layout of snapshot dates and dated file names.
const DateLayout = "2006-01-02"

// RunResult is returned after an update run.
type RunResult struct {
	RunID       string    `json:"run_id"`
	Date        string    `json:"date"`
	Baseline    bool      `json:"baseline"`
	HadPrior    bool      `json:"had_prior"`
	Changes     []Change  `json:"-"`
	Summary     *Summary  `json:"summary"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// ValidDate reports whether s is a YYYY-MM-DD date.
func ValidDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
