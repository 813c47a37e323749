package form_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formrel/pkg/form"
	"github.com/goliatone/go-formrel/pkg/group"
	"github.com/goliatone/go-formrel/pkg/schema"
	"github.com/goliatone/go-formrel/pkg/testsupport"
)

const aliases = "int_aliases"

func aliasValue(t *testing.T, sess *form.Session, index int) any {
	t.Helper()
	value, ok := sess.Value(form.At(aliases, index, "int_alias_v4address"))
	if !ok {
		t.Fatalf("alias %d not found", index)
	}
	return value
}

func TestGroupChurnKeepsOtherInstances(t *testing.T) {
	sess := testsupport.MustSession(t, testsupport.InterfaceForm)

	idx, err := sess.AddInstance(aliases)
	if err != nil {
		t.Fatalf("add instance: %v", err)
	}
	if idx != 1 {
		t.Fatalf("new instance index = %d, want 1", idx)
	}
	testsupport.MustSetValue(t, sess, "int_aliases.0.int_alias_v4address", "10.0.0.1")
	testsupport.MustSetValue(t, sess, "int_aliases.1.int_alias_v4address", "10.0.0.2")

	before := sess.Snapshot()

	idx, err = sess.InsertInstance(aliases, 2)
	if err != nil {
		t.Fatalf("insert instance: %v", err)
	}
	if idx != 1 {
		t.Fatalf("inserted index = %d, want 1", idx)
	}
	if got := aliasValue(t, sess, 2); got != "10.0.0.2" {
		t.Fatalf("shifted instance value = %v, want 10.0.0.2", got)
	}
	if got := aliasValue(t, sess, 1); got != "" {
		t.Fatalf("inserted instance should carry template defaults, got %v", got)
	}

	if !sess.RemoveInstance(aliases, 2) {
		t.Fatalf("expected removal to succeed")
	}
	if diff := cmp.Diff(before, sess.Snapshot()); diff != "" {
		t.Fatalf("insert then remove changed other instances (-before +after):\n%s", diff)
	}
}

func TestRemoveBelowMinimumIsNoOp(t *testing.T) {
	sess := testsupport.MustSession(t, testsupport.InterfaceForm)
	testsupport.MustSetValue(t, sess, "int_aliases.0.int_alias_v4address", "10.0.0.1")

	before := sess.Snapshot()
	if sess.RemoveInstance(aliases, 1) {
		t.Fatalf("removal at the minimum count must be refused")
	}
	if sess.RemoveLast(aliases) {
		t.Fatalf("RemoveLast at the minimum count must be refused")
	}
	if sess.RemoveInstance(aliases, 7) {
		t.Fatalf("removal at a missing position must be refused")
	}
	if diff := cmp.Diff(before, sess.Snapshot()); diff != "" {
		t.Fatalf("refused removal changed state (-before +after):\n%s", diff)
	}
}

func TestCanRemoveTracksCount(t *testing.T) {
	sess := testsupport.MustSession(t, testsupport.InterfaceForm)

	if _, err := sess.AddInstance(aliases); err != nil {
		t.Fatalf("add instance: %v", err)
	}
	if !sess.CanRemove(aliases) {
		t.Fatalf("remove should be offered above the minimum")
	}
	if !sess.RemoveLast(aliases) {
		t.Fatalf("expected RemoveLast to succeed")
	}
	if sess.CanRemove(aliases) {
		t.Fatalf("remove should be hidden at the minimum")
	}
}

func TestGroupOperationsOnUnknownGroup(t *testing.T) {
	sess := testsupport.MustSession(t, testsupport.InterfaceForm)

	if _, err := sess.AddInstance("missing"); !errors.Is(err, form.ErrUnknownGroup) {
		t.Fatalf("expected ErrUnknownGroup, got %v", err)
	}
	if sess.RemoveInstance("missing", 1) {
		t.Fatalf("removal on unknown group must report false")
	}
	if got := sess.Count("missing"); got != -1 {
		t.Fatalf("Count on unknown group = %d, want -1", got)
	}
}

func rowsSchema(maxCount int) schema.Schema {
	return schema.Schema{
		ID: "rows",
		Fields: []schema.FieldDescriptor{
			{Name: "locked", Kind: schema.KindCheckbox},
			{
				Name:         "rows",
				Kind:         schema.KindGroup,
				InitialCount: 1,
				MaxCount:     maxCount,
				Children: []schema.FieldDescriptor{
					{Name: "active", Kind: schema.KindCheckbox, Default: true},
					{
						Name: "value",
						Kind: schema.KindText,
						Relations: []schema.RelationRule{
							{Action: schema.ActionDisable, Conditions: []schema.Condition{{Field: "active", Value: false}}},
							{Action: schema.ActionDisable, Conditions: []schema.Condition{{Field: "locked", Value: true}}},
						},
					},
				},
			},
		},
	}
}

func TestGroupMaxCount(t *testing.T) {
	sess, err := form.New(rowsSchema(2), form.WithLogger(testsupport.DiscardLogger()))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := sess.AddInstance("rows"); err != nil {
		t.Fatalf("add instance: %v", err)
	}
	if _, err := sess.AddInstance("rows"); !errors.Is(err, group.ErrMaxCount) {
		t.Fatalf("expected ErrMaxCount, got %v", err)
	}
	if got := sess.Count("rows"); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
}

func TestGroupRelationsAreScopedToInstance(t *testing.T) {
	sess, err := form.New(rowsSchema(0), form.WithLogger(testsupport.DiscardLogger()))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := sess.AddInstance("rows"); err != nil {
		t.Fatalf("add instance: %v", err)
	}

	testsupport.MustSetValue(t, sess, "rows.0.active", false)
	if testsupport.MustField(t, sess, "rows.0.value").Enabled {
		t.Fatalf("rows.0.value should follow its own instance's checkbox")
	}
	if !testsupport.MustField(t, sess, "rows.1.value").Enabled {
		t.Fatalf("rows.1.value must not be affected by another instance")
	}

	testsupport.MustSetValue(t, sess, "locked", true)
	if testsupport.MustField(t, sess, "rows.1.value").Enabled {
		t.Fatalf("top-level conditions apply to every instance")
	}
}
