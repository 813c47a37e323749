package form

import (
	"fmt"
	"log/slog"

	"github.com/goliatone/go-formrel/pkg/group"
)

// Groups lists the repeated group names in schema order.
func (s *Session) Groups() []string {
	var out []string
	for _, field := range s.schema.Fields {
		if field.IsGroup() {
			out = append(out, field.Name)
		}
	}
	return out
}

// Count returns the number of live instances of a group, or -1 when the
// group is unknown.
func (s *Session) Count(groupName string) int {
	mgr, ok := s.groups[groupName]
	if !ok {
		return -1
	}
	return mgr.Count()
}

// CanRemove reports whether a remove action on the group would take effect.
// Interfaces hide their remove control when this is false.
func (s *Session) CanRemove(groupName string) bool {
	mgr, ok := s.groups[groupName]
	if !ok {
		return false
	}
	return mgr.CanRemove()
}

// AddInstance appends a fresh instance seeded with template defaults and
// returns its 0-based display index.
func (s *Session) AddInstance(groupName string) (int, error) {
	mgr, ok := s.groups[groupName]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownGroup, groupName)
	}
	return s.InsertInstance(groupName, mgr.Count()+1)
}

// InsertInstance inserts a fresh instance at the 1-based position atCount,
// the count carried by add actions. Positions past the end append.
func (s *Session) InsertInstance(groupName string, atCount int) (int, error) {
	mgr, ok := s.groups[groupName]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownGroup, groupName)
	}
	inst, err := mgr.Insert(atCount)
	if err != nil {
		return 0, err
	}
	if err := s.addInstanceSlots(mgr, inst); err != nil {
		return 0, err
	}
	idx := mgr.IndexOf(inst.ID)
	s.logger.Debug("form: group instance added",
		slog.String("group", groupName),
		slog.Int("index", idx),
		slog.Int("count", mgr.Count()),
	)
	s.refresh()
	return idx, nil
}

// RemoveInstance removes the instance at the 1-based position atCount. A
// removal that would go below the minimum count, or that names a position
// that does not exist, changes nothing and reports false.
func (s *Session) RemoveInstance(groupName string, atCount int) bool {
	mgr, ok := s.groups[groupName]
	if !ok {
		return false
	}
	inst, removed := mgr.Remove(atCount)
	if !removed {
		s.logger.Debug("form: group removal refused",
			slog.String("group", groupName),
			slog.Int("at", atCount),
			slog.Int("count", mgr.Count()),
			slog.Int("min", mgr.MinCount()),
		)
		return false
	}
	s.dropInstanceSlots(mgr, inst)
	s.logger.Debug("form: group instance removed",
		slog.String("group", groupName),
		slog.Int("at", atCount),
		slog.Int("count", mgr.Count()),
	)
	s.refresh()
	return true
}

// RemoveLast removes the last instance of a group.
func (s *Session) RemoveLast(groupName string) bool {
	mgr, ok := s.groups[groupName]
	if !ok {
		return false
	}
	return s.RemoveInstance(groupName, mgr.Count())
}

// resetGroup replaces every instance of a group with n fresh ones.
func (s *Session) resetGroup(mgr *group.Manager, n int) ([]group.Instance, error) {
	removed, added, err := mgr.Reset(n)
	for _, inst := range removed {
		s.dropInstanceSlots(mgr, inst)
	}
	for _, inst := range added {
		if slotErr := s.addInstanceSlots(mgr, inst); slotErr != nil {
			return added, slotErr
		}
	}
	if err != nil {
		return added, fmt.Errorf("form: reset group %q: %w", mgr.Name(), err)
	}
	return added, nil
}
