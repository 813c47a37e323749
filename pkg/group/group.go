// Package group manages the ordered live instances of a repeated field group.
//
// Every instance receives a stable, monotonically increasing ULID at insert
// time. The display position (and therefore the external 1-based count used
// by add/remove actions) is derived from insertion order and stays dense, so
// removing from the middle never reassigns another instance's identity or
// values. Consumers that flatten groups (the alias codec) iterate Instances
// in display order.
package group

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/goliatone/go-formrel/pkg/schema"
)

// ErrMaxCount is returned when an insert would exceed the configured cap.
var ErrMaxCount = errors.New("group: maximum instance count reached")

// Instance is one live copy of the group template.
type Instance struct {
	ID     ulid.ULID
	Fields []schema.FieldDescriptor
}

// Option customises a Manager.
type Option func(*Manager)

// WithMinCount refuses removals that would leave fewer than n instances.
func WithMinCount(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.min = n
		}
	}
}

// WithMaxCount caps insertions. Zero leaves growth unbounded.
func WithMaxCount(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.max = n
		}
	}
}

// WithIDSource overrides the instance id generator.
func WithIDSource(next func() ulid.ULID) Option {
	return func(m *Manager) {
		if next != nil {
			m.nextID = next
		}
	}
}

// Manager keeps the ordered instances of one group.
type Manager struct {
	name      string
	template  []schema.FieldDescriptor
	instances []Instance
	min       int
	max       int
	nextID    func() ulid.ULID
}

// New constructs a Manager for the group descriptor name and its child
// template. The manager starts empty; callers seed it with Reset.
func New(name string, template []schema.FieldDescriptor, options ...Option) *Manager {
	entropy := ulid.Monotonic(rand.Reader, 0)
	m := &Manager{
		name:     name,
		template: schema.CloneFields(template),
		nextID: func() ulid.ULID {
			return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
		},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(m)
	}
	return m
}

// Name returns the group name.
func (m *Manager) Name() string { return m.name }

// MinCount returns the configured minimum.
func (m *Manager) MinCount() int { return m.min }

// MaxCount returns the configured cap, zero when unbounded.
func (m *Manager) MaxCount() int { return m.max }

// CanHold reports whether Reset(n) fits under the cap once n is raised to
// the minimum count.
func (m *Manager) CanHold(n int) bool {
	if n < m.min {
		n = m.min
	}
	return m.max == 0 || n <= m.max
}

// Count returns the number of live instances.
func (m *Manager) Count() int { return len(m.instances) }

// Template returns a copy of the child template.
func (m *Manager) Template() []schema.FieldDescriptor {
	return schema.CloneFields(m.template)
}

// SetTemplate replaces the template used for future inserts. Existing
// instances keep their own copies; callers update them through Update.
func (m *Manager) SetTemplate(template []schema.FieldDescriptor) {
	m.template = schema.CloneFields(template)
}

// Instances returns the live instances in display order.
func (m *Manager) Instances() []Instance {
	out := make([]Instance, len(m.instances))
	copy(out, m.instances)
	return out
}

// At returns the instance at the 0-based display index.
func (m *Manager) At(index int) (Instance, bool) {
	if index < 0 || index >= len(m.instances) {
		return Instance{}, false
	}
	return m.instances[index], true
}

// IndexOf returns the display index of id, or -1.
func (m *Manager) IndexOf(id ulid.ULID) int {
	for idx, inst := range m.instances {
		if inst.ID == id {
			return idx
		}
	}
	return -1
}

// Update applies fn to every instance's field copies.
func (m *Manager) Update(fn func(fields []schema.FieldDescriptor)) {
	for idx := range m.instances {
		fn(m.instances[idx].Fields)
	}
}

// Insert adds an instance at display position atCount-1, the 1-based count
// used by "add" actions. Positions past the end append. Existing instances
// keep their identity.
func (m *Manager) Insert(atCount int) (Instance, error) {
	if m.max > 0 && len(m.instances) >= m.max {
		return Instance{}, fmt.Errorf("%w (%s: %d)", ErrMaxCount, m.name, m.max)
	}
	pos := atCount - 1
	if pos < 0 {
		pos = 0
	}
	if pos > len(m.instances) {
		pos = len(m.instances)
	}

	inst := Instance{
		ID:     m.nextID(),
		Fields: schema.CloneFields(m.template),
	}
	m.instances = append(m.instances, Instance{})
	copy(m.instances[pos+1:], m.instances[pos:])
	m.instances[pos] = inst
	return inst, nil
}

// Append adds an instance after the last one.
func (m *Manager) Append() (Instance, error) {
	return m.Insert(len(m.instances) + 1)
}

// Remove drops the instance at display position atCount-1. Removing below
// the minimum count, or at a position that does not exist, is a no-op that
// reports false.
func (m *Manager) Remove(atCount int) (Instance, bool) {
	pos := atCount - 1
	if pos < 0 || pos >= len(m.instances) {
		return Instance{}, false
	}
	if !m.CanRemove() {
		return Instance{}, false
	}
	removed := m.instances[pos]
	m.instances = append(m.instances[:pos], m.instances[pos+1:]...)
	return removed, true
}

// CanRemove reports whether a removal would keep the minimum count.
func (m *Manager) CanRemove() bool {
	return len(m.instances) > m.min
}

// Reset drops every instance and inserts n fresh ones, returning the
// removed instances so callers can release their state. n is raised to the
// minimum count. When n exceeds the cap nothing changes.
func (m *Manager) Reset(n int) ([]Instance, []Instance, error) {
	if !m.CanHold(n) {
		return nil, nil, fmt.Errorf("%w (%s: %d)", ErrMaxCount, m.name, m.max)
	}
	removed := m.instances
	m.instances = nil
	if n < m.min {
		n = m.min
	}
	added := make([]Instance, 0, n)
	for i := 0; i < n; i++ {
		inst, err := m.Append()
		if err != nil {
			return removed, added, err
		}
		added = append(added, inst)
	}
	return removed, added, nil
}

// Prefix returns the key prefix for fields inside inst.
func (m *Manager) Prefix(inst Instance) string {
	return m.name + "[" + inst.ID.String() + "]."
}

// Key returns the fully-qualified state key of child inside inst.
func (m *Manager) Key(inst Instance, child string) string {
	return m.Prefix(inst) + child
}
