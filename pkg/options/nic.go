package options

import (
	"context"
	"fmt"
	"slices"
	"sort"

	gopsutilNet "github.com/shirou/gopsutil/v4/net"

	"github.com/goliatone/go-formrel/pkg/schema"
)

// InterfaceLister returns the host network interfaces.
type InterfaceLister func(ctx context.Context) (gopsutilNet.InterfaceStatList, error)

// NICSupplier offers host network interface names.
type NICSupplier struct {
	list            InterfaceLister
	includeLoopback bool
}

// NICOption customises a NICSupplier.
type NICOption func(*NICSupplier)

// WithInterfaceLister overrides the interface source.
func WithInterfaceLister(list InterfaceLister) NICOption {
	return func(s *NICSupplier) {
		if list != nil {
			s.list = list
		}
	}
}

// WithLoopback keeps loopback interfaces in the list.
func WithLoopback(include bool) NICOption {
	return func(s *NICSupplier) {
		s.includeLoopback = include
	}
}

// NewNICSupplier lists interfaces through gopsutil.
func NewNICSupplier(options ...NICOption) *NICSupplier {
	s := &NICSupplier{list: gopsutilNet.InterfacesWithContext}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Options implements Supplier. Interfaces are sorted by name; the label
// carries the hardware address when one is known.
func (s *NICSupplier) Options(ctx context.Context) ([]schema.Option, error) {
	stats, err := s.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	out := make([]schema.Option, 0, len(stats))
	for _, stat := range stats {
		if stat.Name == "" {
			continue
		}
		if !s.includeLoopback && slices.Contains(stat.Flags, "loopback") {
			continue
		}
		label := stat.Name
		if stat.HardwareAddr != "" {
			label = fmt.Sprintf("%s (%s)", stat.Name, stat.HardwareAddr)
		}
		out = append(out, schema.Option{Label: label, Value: stat.Name})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Value < out[j].Value
	})
	return out, nil
}
