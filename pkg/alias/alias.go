// Package alias converts between the canonical `address/prefixLength` wire
// strings of network aliases and the decomposed per-protocol records edited
// inside a repeated group.
//
// Classification is syntactic: an address matching the IPv4 literal grammar
// is IPv4, anything else is treated as IPv6 and left for field validators to
// reject. Order is always preserved so composed strings line up with rows.
package alias

import (
	"strings"

	"github.com/goliatone/go-formrel/pkg/validation"
)

// Family tags which protocol an alias belongs to.
type Family string

const (
	FamilyIPv4 Family = "ipv4"
	FamilyIPv6 Family = "ipv6"
)

// Alias is one classified canonical string.
type Alias struct {
	Family  Family `json:"family"`
	Address string `json:"address"`
	Prefix  string `json:"prefix"`
}

// String renders the canonical `address/prefix` form.
func (a Alias) String() string {
	return a.Address + "/" + a.Prefix
}

// Classify returns FamilyIPv4 when address is an IPv4 literal and
// FamilyIPv6 otherwise.
func Classify(address string) Family {
	if validation.IsIPv4(address) {
		return FamilyIPv4
	}
	return FamilyIPv6
}

// Parse splits canonical on its last '/' and classifies the address. A
// string without '/' is all address with an empty prefix.
func Parse(canonical string) Alias {
	address, prefix := canonical, ""
	if idx := strings.LastIndex(canonical, "/"); idx >= 0 {
		address, prefix = canonical[:idx], canonical[idx+1:]
	}
	return Alias{
		Family:  Classify(address),
		Address: address,
		Prefix:  prefix,
	}
}

// Entry is the decomposed record of one group row. Under normal operation
// only one protocol pair is populated; both may be set for edge inputs.
type Entry struct {
	V4Address string `json:"v4address"`
	V4Prefix  string `json:"v4prefix"`
	V6Address string `json:"v6address"`
	V6Prefix  string `json:"v6prefix"`
}

// EntryOf places a classified alias into the matching protocol pair.
func EntryOf(a Alias) Entry {
	if a.Family == FamilyIPv4 {
		return Entry{V4Address: a.Address, V4Prefix: a.Prefix}
	}
	return Entry{V6Address: a.Address, V6Prefix: a.Prefix}
}

// Aliases returns the populated pairs of e, IPv4 first. A pair counts as
// populated when either its address or its prefix is non-empty.
func (e Entry) Aliases() []Alias {
	var out []Alias
	if e.V4Address != "" || e.V4Prefix != "" {
		out = append(out, Alias{Family: FamilyIPv4, Address: e.V4Address, Prefix: e.V4Prefix})
	}
	if e.V6Address != "" || e.V6Prefix != "" {
		out = append(out, Alias{Family: FamilyIPv6, Address: e.V6Address, Prefix: e.V6Prefix})
	}
	return out
}

// Decompose expands canonical strings into one entry each, in order.
func Decompose(canonical []string) []Entry {
	if canonical == nil {
		return nil
	}
	out := make([]Entry, 0, len(canonical))
	for _, raw := range canonical {
		out = append(out, EntryOf(Parse(raw)))
	}
	return out
}

// Compose flattens entries into canonical strings, in order. An entry emits
// zero, one or two strings; partially filled pairs are kept as is.
func Compose(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		for _, a := range entry.Aliases() {
			out = append(out, a.String())
		}
	}
	return out
}
