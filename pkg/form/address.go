package form

import (
	"fmt"
	"strconv"
	"strings"
)

// Address identifies a field. Top-level fields leave Group empty; fields
// inside a group instance carry the group name and the 0-based display index
// of the instance.
type Address struct {
	Group string
	Index int
	Name  string
}

// Field addresses a top-level field.
func Field(name string) Address {
	return Address{Name: name}
}

// At addresses child name inside the instance at index of group.
func At(group string, index int, name string) Address {
	return Address{Group: group, Index: index, Name: name}
}

// InGroup reports whether the address points inside a group instance.
func (a Address) InGroup() bool {
	return a.Group != ""
}

// String renders the dotted path, `name` or `group.index.name`.
func (a Address) String() string {
	if !a.InGroup() {
		return a.Name
	}
	return a.Group + "." + strconv.Itoa(a.Index) + "." + a.Name
}

// ParseAddress parses the dotted form produced by String.
func ParseAddress(raw string) (Address, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	switch len(parts) {
	case 1:
		if parts[0] == "" {
			return Address{}, fmt.Errorf("form: empty address")
		}
		return Field(parts[0]), nil
	case 3:
		idx, err := strconv.Atoi(parts[1])
		if err != nil || idx < 0 {
			return Address{}, fmt.Errorf("form: address %q has invalid index %q", raw, parts[1])
		}
		if parts[0] == "" || parts[2] == "" {
			return Address{}, fmt.Errorf("form: address %q is incomplete", raw)
		}
		return At(parts[0], idx, parts[2]), nil
	default:
		return Address{}, fmt.Errorf("form: address %q must be name or group.index.name", raw)
	}
}
