package domain

// Dataset is a full service tag document as published by the vendor.
// It is stored verbatim as the current and historical snapshots.
type Dataset struct {
	ChangeNumber int          `json:"changeNumber"`
	Cloud        string       `json:"cloud"`
	Values       []ServiceTag `json:"values"`
}

// ServiceTag is a named group of address prefixes.
// Name is unique within a dataset.
type ServiceTag struct {
	Name       string                `json:"name"`
	ID         string                `json:"id"`
	Properties ServiceTagProperties `json:"properties"`
}

// ServiceTagProperties holds the metadata and prefixes of a service tag.
type ServiceTagProperties struct {
	ChangeNumber    int      `json:"changeNumber"`
	Region          string   `json:"region"`
	RegionID        int      `json:"regionId"`
	Platform        string   `json:"platform"`
	SystemService   string   `json:"systemService"`
	AddressPrefixes []string `json:"addressPrefixes"`
	NetworkFeatures []string `json:"networkFeatures,omitempty"`
}

// PrefixCount returns the number of address prefixes in the dataset.
func (d *Dataset) PrefixCount() int {
	if d == nil {
		return 0
	}
	total := 0
	for _, v := range d.Values {
		total += len(v.Properties.AddressPrefixes)
	}
	return total
}

// Ref returns the identifying metadata of the tag used in change records.
func (t ServiceTag) Ref() ServiceRef {
	return ServiceRef{
		Name:          t.Name,
		Region:        t.Properties.Region,
		SystemService: t.Properties.SystemService,
	}
}
