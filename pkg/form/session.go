package form

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goliatone/go-formrel/pkg/group"
	"github.com/goliatone/go-formrel/pkg/relation"
	"github.com/goliatone/go-formrel/pkg/schema"
	"github.com/goliatone/go-formrel/pkg/validation"
)

// Mode distinguishes creating a new resource from editing an existing one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// ErrUnknownField is returned when an address does not resolve to a field.
var ErrUnknownField = errors.New("form: unknown field")

// ErrUnknownGroup is returned for group operations on a name that is not a
// repeated group.
var ErrUnknownGroup = errors.New("form: unknown group")

// LoadTransform rewrites an incoming payload before it is applied.
type LoadTransform func(payload map[string]any) map[string]any

// Option customises a Session.
type Option func(*Session)

// WithLogger injects a structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMode selects create or edit mode. Edit mode disables fields marked
// lockOnEdit.
func WithMode(mode Mode) Option {
	return func(s *Session) {
		if mode != "" {
			s.mode = mode
		}
	}
}

// WithCodec overrides the codec of a group.
func WithCodec(groupName string, codec GroupCodec) Option {
	return func(s *Session) {
		if codec != nil {
			s.codecs[groupName] = codec
		}
	}
}

// WithCodecFactory registers a codec factory under the name used by the
// schema `codec` attribute.
func WithCodecFactory(name string, factory CodecFactory) Option {
	return func(s *Session) {
		if factory != nil {
			s.factories[name] = factory
		}
	}
}

// WithLoadTransform appends a transform applied to every load payload after
// the schema's own lift configuration.
func WithLoadTransform(transform LoadTransform) Option {
	return func(s *Session) {
		if transform != nil {
			s.transforms = append(s.transforms, transform)
		}
	}
}

// WithFixpointLimit bounds the number of validate/relate passes run after a
// change. Zero selects the default of one pass per field plus one.
func WithFixpointLimit(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.fixpointLimit = n
		}
	}
}

// FieldState is the externally visible state of one field.
type FieldState struct {
	Value    any           `json:"value"`
	Status   schema.Status `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Enabled  bool          `json:"enabled"`
	Required bool          `json:"required,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
}

type slot struct {
	key        string
	desc       schema.FieldDescriptor
	validators []validation.Validator
	group      string
	instance   group.Instance
	value      any
	result     validation.Result
	enabled    bool
	required   bool
	locked     bool
	serverErrs []string
}

// Session holds the FormState of one open form.
type Session struct {
	schema        schema.Schema
	mode          Mode
	logger        *slog.Logger
	codecs        map[string]GroupCodec
	factories     map[string]CodecFactory
	transforms    []LoadTransform
	fixpointLimit int

	slots      map[string]*slot
	groups     map[string]*group.Manager
	locals     map[string]map[string]struct{}
	formErrors []string
}

// New opens a session for s. The schema is validated first; a malformed
// schema is fatal and reported as joined schema.SchemaError values.
func New(s schema.Schema, options ...Option) (*Session, error) {
	if err := schema.Validate(s); err != nil {
		return nil, err
	}

	sess := &Session{
		schema:    s.Clone(),
		mode:      ModeCreate,
		logger:    slog.Default(),
		codecs:    make(map[string]GroupCodec),
		factories: defaultCodecFactories(),
		slots:     make(map[string]*slot),
		groups:    make(map[string]*group.Manager),
		locals:    make(map[string]map[string]struct{}),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(sess)
	}

	for _, field := range sess.schema.Fields {
		if field.IsGroup() {
			if err := sess.openGroup(field); err != nil {
				return nil, err
			}
			continue
		}
		if err := sess.addSlot(field.Name, field, "", group.Instance{}); err != nil {
			return nil, err
		}
	}

	sess.refresh()
	return sess, nil
}

func (s *Session) openGroup(field schema.FieldDescriptor) error {
	if _, ok := s.codecs[field.Name]; !ok {
		codec, err := s.codecFor(field)
		if err != nil {
			return err
		}
		s.codecs[field.Name] = codec
	}

	local := make(map[string]struct{}, len(field.Children))
	for _, child := range field.Children {
		local[child.Name] = struct{}{}
	}
	s.locals[field.Name] = local

	mgr := group.New(field.Name, field.Children,
		group.WithMinCount(field.MinCount),
		group.WithMaxCount(field.MaxCount),
	)
	s.groups[field.Name] = mgr

	_, added, err := mgr.Reset(field.InitialCount)
	if err != nil {
		return fmt.Errorf("form: seed group %q: %w", field.Name, err)
	}
	for _, inst := range added {
		if err := s.addInstanceSlots(mgr, inst); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) codecFor(field schema.FieldDescriptor) (GroupCodec, error) {
	if field.Codec == "" {
		return recordCodec{}, nil
	}
	factory, ok := s.factories[field.Codec]
	if !ok {
		return nil, schema.SchemaError{Path: field.Name, Message: fmt.Sprintf("unknown codec %q", field.Codec)}
	}
	codec, err := factory(field)
	if err != nil {
		return nil, schema.SchemaError{Path: field.Name, Message: err.Error()}
	}
	return codec, nil
}

func (s *Session) addSlot(key string, desc schema.FieldDescriptor, groupName string, inst group.Instance) error {
	validators, err := validation.BuildAll(desc.Validators)
	if err != nil {
		path := desc.Name
		if groupName != "" {
			path = groupName + "." + desc.Name
		}
		return schema.SchemaError{Path: path + ".validators", Message: err.Error()}
	}
	s.slots[key] = &slot{
		key:        key,
		desc:       desc,
		validators: validators,
		group:      groupName,
		instance:   inst,
		value:      defaultValue(desc),
		enabled:    true,
		required:   desc.Required,
		locked:     s.mode == ModeEdit && desc.LockOnEdit,
	}
	return nil
}

func (s *Session) addInstanceSlots(mgr *group.Manager, inst group.Instance) error {
	for _, child := range inst.Fields {
		if err := s.addSlot(mgr.Key(inst, child.Name), child, mgr.Name(), inst); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) dropInstanceSlots(mgr *group.Manager, inst group.Instance) {
	prefix := mgr.Prefix(inst)
	for key := range s.slots {
		if strings.HasPrefix(key, prefix) {
			delete(s.slots, key)
		}
	}
}

// defaultValue seeds a new field: the declared default, false for
// checkboxes, the first option for selects (unless allowEmpty) and the
// empty string otherwise.
func defaultValue(desc schema.FieldDescriptor) any {
	if desc.Default != nil {
		return desc.Default
	}
	switch desc.Kind {
	case schema.KindCheckbox:
		return false
	case schema.KindSelect:
		if desc.AllowEmpty || len(desc.Options) == 0 {
			return ""
		}
		return desc.Options[0].Value
	default:
		return ""
	}
}

// Mode reports the session mode.
func (s *Session) Mode() Mode { return s.mode }

// Schema returns a copy of the session schema including applied options.
func (s *Session) Schema() schema.Schema { return s.schema.Clone() }

// SetValue assigns a field value and re-evaluates validity and relations.
// Server errors attached to the field are cleared.
func (s *Session) SetValue(addr Address, value any) error {
	sl, err := s.resolve(addr)
	if err != nil {
		return err
	}
	sl.value = value
	sl.serverErrs = nil
	s.refresh()
	return nil
}

// Value returns the current value of a field.
func (s *Session) Value(addr Address) (any, bool) {
	sl, err := s.resolve(addr)
	if err != nil {
		return nil, false
	}
	return sl.value, true
}

// Field returns the state of a field.
func (s *Session) Field(addr Address) (FieldState, bool) {
	sl, err := s.resolve(addr)
	if err != nil {
		return FieldState{}, false
	}
	return sl.state(), true
}

// Descriptor returns the descriptor backing a field, including the options
// applied so far.
func (s *Session) Descriptor(addr Address) (schema.FieldDescriptor, bool) {
	sl, err := s.resolve(addr)
	if err != nil {
		return schema.FieldDescriptor{}, false
	}
	return schema.CloneField(sl.desc), true
}

// Snapshot returns every field state keyed by dotted address.
func (s *Session) Snapshot() map[string]FieldState {
	out := make(map[string]FieldState, len(s.slots))
	for _, entry := range s.ordered() {
		out[entry.addr.String()] = entry.slot.state()
	}
	return out
}

// Addresses lists every field address in schema order, group instances in
// display order.
func (s *Session) Addresses() []Address {
	entries := s.ordered()
	out := make([]Address, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.addr)
	}
	return out
}

func (sl *slot) state() FieldState {
	return FieldState{
		Value:    sl.value,
		Status:   sl.result.Status,
		Reason:   sl.result.Reason,
		Enabled:  sl.enabled,
		Required: sl.required,
		Errors:   append([]string(nil), sl.serverErrs...),
	}
}

func (s *Session) resolve(addr Address) (*slot, error) {
	if !addr.InGroup() {
		sl, ok := s.slots[addr.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, addr)
		}
		return sl, nil
	}
	mgr, ok := s.groups[addr.Group]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, addr.Group)
	}
	inst, ok := mgr.At(addr.Index)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, addr)
	}
	sl, ok := s.slots[mgr.Key(inst, addr.Name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, addr)
	}
	return sl, nil
}

type orderedSlot struct {
	addr Address
	slot *slot
}

func (s *Session) ordered() []orderedSlot {
	out := make([]orderedSlot, 0, len(s.slots))
	for _, field := range s.schema.Fields {
		if !field.IsGroup() {
			if sl, ok := s.slots[field.Name]; ok {
				out = append(out, orderedSlot{addr: Field(field.Name), slot: sl})
			}
			continue
		}
		mgr := s.groups[field.Name]
		for idx, inst := range mgr.Instances() {
			for _, child := range inst.Fields {
				if sl, ok := s.slots[mgr.Key(inst, child.Name)]; ok {
					out = append(out, orderedSlot{addr: At(field.Name, idx, child.Name), slot: sl})
				}
			}
		}
	}
	return out
}

// refresh runs validators and relation rules until no field changes its
// enabled or required flag. Disabled fields skip validation.
func (s *Session) refresh() {
	entries := s.ordered()
	limit := s.fixpointLimit
	if limit == 0 {
		limit = len(entries) + 1
	}

	for pass := 1; ; pass++ {
		for _, entry := range entries {
			sl := entry.slot
			if sl.enabled {
				sl.result = validation.Run(sl.validators, sl.value, sl.required)
			} else {
				sl.result = validation.Valid()
			}
		}

		snap := s.relationSnapshot()
		changed := false
		for _, entry := range entries {
			sl := entry.slot
			decision := relation.Apply(sl.desc.Relations, s.scopeFor(sl, snap))
			enabled := decision.Enabled && !sl.locked
			required := decision.Required || sl.desc.Required
			if enabled != sl.enabled || required != sl.required {
				sl.enabled, sl.required = enabled, required
				changed = true
			}
		}

		if !changed {
			s.logger.Debug("form: relations settled", slog.String("form", s.schema.ID), slog.Int("passes", pass))
			return
		}
		if pass >= limit {
			s.logger.Warn("form: relations did not settle",
				slog.String("form", s.schema.ID),
				slog.Int("passes", pass),
			)
			for _, entry := range entries {
				sl := entry.slot
				if sl.enabled {
					sl.result = validation.Run(sl.validators, sl.value, sl.required)
				} else {
					sl.result = validation.Valid()
				}
			}
			return
		}
	}
}

func (s *Session) relationSnapshot() relation.Snapshot {
	snap := make(relation.Snapshot, len(s.slots))
	for key, sl := range s.slots {
		snap[key] = relation.FieldState{
			Value:   sl.value,
			Status:  sl.result.Status,
			Enabled: sl.enabled,
		}
	}
	return snap
}

func (s *Session) scopeFor(sl *slot, snap relation.Snapshot) relation.State {
	if sl.group == "" {
		return snap
	}
	mgr := s.groups[sl.group]
	return relation.Scope{
		Base:   snap,
		Prefix: mgr.Prefix(sl.instance),
		Local:  s.locals[sl.group],
	}
}
