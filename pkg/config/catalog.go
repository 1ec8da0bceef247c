package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ServiceCatalog maps a service type to the number of consecutive slots it
// occupies.
type ServiceCatalog map[string]int

// ParseServiceCatalog reads "manicure:1,gel_extension:2" style lists.
func ParseServiceCatalog(raw string) (ServiceCatalog, error) {
	catalog := make(ServiceCatalog)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, count, found := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, fmt.Errorf("invalid service entry %q: expected name:count", entry)
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid slot count for service %q: %q", name, count)
		}
		if _, dup := catalog[name]; dup {
			return nil, fmt.Errorf("service %q listed twice", name)
		}
		catalog[name] = n
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("service catalog cannot be empty")
	}
	return catalog, nil
}

// RequiredSlots returns the slot count for serviceType and whether it is known.
func (c ServiceCatalog) RequiredSlots(serviceType string) (int, bool) {
	n, ok := c[serviceType]
	return n, ok
}

func (c ServiceCatalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
