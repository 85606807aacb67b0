package domain

import "fmt"

// Well-known metadata keys carried on recognized events so external consumers
// can route replies without re-parsing the original webhook.
const (
	MetaFromNumber = "from-number"
	MetaToNumber   = "to-number"
)

// Routing correlates a recognized event with the two parties of the inbound
// message: the end user's number and the provider-owned number it was sent to.
type Routing struct {
	UserNumber     string `json:"user_number"`     // webhook From
	ProviderNumber string `json:"provider_number"` // webhook To
}

// Metadata renders the routing record as the string-keyed mapping external
// consumers expect.
func (r Routing) Metadata() map[string]string {
	return map[string]string{
		MetaFromNumber: r.UserNumber,
		MetaToNumber:   r.ProviderNumber,
	}
}

// RoutingFromMetadata rebuilds a Routing record from an event metadata map.
// Both well-known keys must be present and non-empty.
func RoutingFromMetadata(meta map[string]string) (Routing, error) {
	from, ok := meta[MetaFromNumber]
	if !ok || from == "" {
		return Routing{}, fmt.Errorf("metadata missing %q", MetaFromNumber)
	}
	to, ok := meta[MetaToNumber]
	if !ok || to == "" {
		return Routing{}, fmt.Errorf("metadata missing %q", MetaToNumber)
	}
	return Routing{UserNumber: from, ProviderNumber: to}, nil
}
