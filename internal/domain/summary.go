package domain

// GlobalRegion is reported for changes that carry no region.
const GlobalRegion = "Global"

// MaxActiveServices bounds the length of Summary.TopActiveServices.
const MaxActiveServices = 10

// Summary is the per-run statistics document read by the dashboard.
// It is a report, never used as input for a later run.
type Summary struct {
	LastUpdated       string          `json:"last_updated"`
	TotalServices     int             `json:"total_services"`
	TotalIPRanges     int             `json:"total_ip_ranges"`
	ChangesThisWeek   int             `json:"changes_this_week"`
	IPChanges         int             `json:"ip_changes"`
	ServiceAdditions  int             `json:"service_additions"`
	ServiceRemovals   int             `json:"service_removals"`
	RegionalChanges   map[string]int  `json:"regional_changes"`
	TopActiveServices []ActiveService `json:"top_active_services"`
	AvailableDates    []string        `json:"available_dates"`
}

// ActiveService is a service ranked by prefix churn.
type ActiveService struct {
	Service     string `json:"service"`
	ChangeCount int    `json:"change_count"`
}
