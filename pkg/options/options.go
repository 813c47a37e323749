// Package options supplies the choices of select fields that declare an
// optionsSource. Suppliers may block (the NIC supplier asks the host), so
// sources are resolved concurrently before their options are handed to a
// form session as plain values.
package options

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formrel/pkg/form"
	"github.com/goliatone/go-formrel/pkg/schema"
)

const (
	SourceV4Netmask = "netmask.v4"
	SourceV6Prefix  = "prefix.v6"
	SourceNIC       = "nic"
)

// ErrUnknownSource is returned when a source has no registered supplier.
var ErrUnknownSource = errors.New("options: unknown source")

// Supplier produces the options of one source.
type Supplier interface {
	Options(ctx context.Context) ([]schema.Option, error)
}

// SupplierFunc adapts a function into a Supplier.
type SupplierFunc func(ctx context.Context) ([]schema.Option, error)

// Options implements Supplier.
func (fn SupplierFunc) Options(ctx context.Context) ([]schema.Option, error) {
	return fn(ctx)
}

// Static is a fixed option list.
type Static []schema.Option

// Options implements Supplier.
func (s Static) Options(context.Context) ([]schema.Option, error) {
	out := make([]schema.Option, len(s))
	copy(out, s)
	return out, nil
}

// Registry maps source names to suppliers.
type Registry map[string]Supplier

// Default returns the registry of built-in sources: IPv4 netmasks, IPv6
// prefix lengths and host network interfaces.
func Default() Registry {
	return Registry{
		SourceV4Netmask: V4Netmasks(),
		SourceV6Prefix:  V6PrefixLengths(),
		SourceNIC:       NewNICSupplier(),
	}
}

// Sources lists the registered source names, sorted.
func (r Registry) Sources() []string {
	out := make([]string, 0, len(r))
	for name := range r {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// V4Netmasks lists prefix lengths 32 down to 1, labelled with the dotted
// mask. Values are the bare prefix length used in canonical alias strings.
func V4Netmasks() Static {
	out := make(Static, 0, 32)
	for bits := 32; bits >= 1; bits-- {
		out = append(out, schema.Option{
			Label: fmt.Sprintf("/%d (%s)", bits, dottedMask(bits)),
			Value: strconv.Itoa(bits),
		})
	}
	return out
}

// V6PrefixLengths lists prefix lengths 128 down to 1.
func V6PrefixLengths() Static {
	out := make(Static, 0, 128)
	for bits := 128; bits >= 1; bits-- {
		out = append(out, schema.Option{
			Label: "/" + strconv.Itoa(bits),
			Value: strconv.Itoa(bits),
		})
	}
	return out
}

func dottedMask(bits int) string {
	mask := ^uint32(0) << (32 - bits)
	octets := make([]string, 4)
	for i := range octets {
		octets[i] = strconv.Itoa(int(mask >> (24 - 8*i) & 0xff))
	}
	return strings.Join(octets, ".")
}

// Resolve fetches every named source concurrently. The first supplier error
// cancels the others and is returned.
func Resolve(ctx context.Context, registry Registry, sources []string) (map[string][]schema.Option, error) {
	suppliers := make([]Supplier, len(sources))
	for idx, name := range sources {
		supplier, ok := registry[name]
		if !ok || supplier == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
		}
		suppliers[idx] = supplier
	}

	results := make([][]schema.Option, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for idx, supplier := range suppliers {
		g.Go(func() error {
			opts, err := supplier.Options(gctx)
			if err != nil {
				return fmt.Errorf("options: %s: %w", sources[idx], err)
			}
			results[idx] = opts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]schema.Option, len(sources))
	for idx, name := range sources {
		out[name] = results[idx]
	}
	return out, nil
}

// Apply resolves every source the session declares that the registry knows
// and hands the options to the session. It returns the declared sources
// left unresolved because no supplier is registered for them.
func Apply(ctx context.Context, sess *form.Session, registry Registry) ([]string, error) {
	var known, missing []string
	for _, source := range sess.OptionSources() {
		if _, ok := registry[source]; ok {
			known = append(known, source)
			continue
		}
		missing = append(missing, source)
	}

	resolved, err := Resolve(ctx, registry, known)
	if err != nil {
		return missing, err
	}
	for _, source := range known {
		sess.SetSourceOptions(source, resolved[source])
	}
	return missing, nil
}
