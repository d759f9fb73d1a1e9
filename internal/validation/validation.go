// Package validation checks a downloaded service tag dataset for structural
// problems. Problems are reported, never repaired: the watcher logs them and
// keeps going with the data as published.
package validation

import (
	"fmt"
	"net/netip"
	"strings"
	"unicode"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

// ValidateServiceName validates a service tag name.
// Names are non-empty and contain no whitespace, e.g. "AzureCloud.eastus".
func ValidateServiceName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("name must not contain whitespace")
	}
	return nil
}

// ValidateAddressPrefix validates an IPv4 or IPv6 CIDR prefix.
func ValidateAddressPrefix(prefix string) error {
	p, err := netip.ParsePrefix(prefix)
	if err != nil {
		return fmt.Errorf("must be a valid CIDR prefix")
	}
	if p.Masked() != p {
		return fmt.Errorf("host bits must be zero")
	}
	return nil
}

// ValidateDataset checks every record of ds. The returned collection is
// empty when the dataset is well formed.
func ValidateDataset(ds *domain.Dataset) ValidationErrors {
	var errs ValidationErrors
	if ds == nil {
		errs.Add("dataset", "", "dataset is missing")
		return errs
	}
	if len(ds.Values) == 0 {
		errs.Add("values", "", "dataset contains no service tags")
		return errs
	}

	seen := make(map[string]int, len(ds.Values))
	for i, tag := range ds.Values {
		field := fmt.Sprintf("values[%d]", i)

		if err := ValidateServiceName(tag.Name); err != nil {
			errs.Add(field+".name", tag.Name, err.Error())
		} else if first, dup := seen[tag.Name]; dup {
			errs.Add(field+".name", tag.Name, fmt.Sprintf("duplicate of values[%d]", first))
		} else {
			seen[tag.Name] = i
		}

		for j, prefix := range tag.Properties.AddressPrefixes {
			if err := ValidateAddressPrefix(prefix); err != nil {
				errs.Add(fmt.Sprintf("%s.properties.addressPrefixes[%d]", field, j), prefix, err.Error())
			}
		}
	}
	return errs
}
