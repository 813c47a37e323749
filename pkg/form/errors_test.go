package form_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formrel/pkg/form"
	"github.com/goliatone/go-formrel/pkg/testsupport"
)

func TestApplyServerErrors(t *testing.T) {
	sess := testsupport.MustSession(t, testsupport.InterfaceForm)

	mapping := sess.ApplyServerErrors(map[string][]string{
		"int_aliases.0.int_alias_v4address": {"Address already in use"},
		"/body/int_name":                    {"Name taken", " Name taken "},
		"#/data/attributes/int_options":     {"Unknown flag"},
		"int_name[0]":                       {"Too long"},
		"non_field_errors":                  {"Interface busy"},
		"int_aliases":                       {"Too many aliases"},
		"unknown":                           {"Mystery"},
		"int_dhcp":                          {"  "},
	})

	wantFields := map[string][]string{
		"int_aliases.0.int_alias_v4address": {"Address already in use"},
		"int_name":                          {"Name taken", "Too long"},
		"int_options":                       {"Unknown flag"},
	}
	if diff := cmp.Diff(wantFields, mapping.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	wantForm := []string{"Too many aliases", "Interface busy", "Mystery"}
	if diff := cmp.Diff(wantForm, mapping.Form); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantForm, sess.FormErrors()); diff != "" {
		t.Fatalf("FormErrors mismatch (-want +got):\n%s", diff)
	}

	state := testsupport.MustField(t, sess, "int_name")
	if diff := cmp.Diff([]string{"Name taken", "Too long"}, state.Errors); diff != "" {
		t.Fatalf("field state errors mismatch (-want +got):\n%s", diff)
	}

	testsupport.MustSetValue(t, sess, "int_name", "lan0")
	if errs := testsupport.MustField(t, sess, "int_name").Errors; len(errs) != 0 {
		t.Fatalf("editing a field should clear its server errors, got %v", errs)
	}
	if errs := testsupport.MustField(t, sess, "int_options").Errors; len(errs) != 1 {
		t.Fatalf("other fields keep their server errors, got %v", errs)
	}
}

func TestApplyServerErrorsReplacesPrevious(t *testing.T) {
	sess := testsupport.MustSession(t, testsupport.AlertAWSForm)

	sess.ApplyServerErrors(map[string][]string{"base_url": {"Invalid URL"}})
	mapping := sess.ApplyServerErrors(map[string][]string{"aws_access_key_id": {"Required"}})

	if _, ok := mapping.Fields["base_url"]; ok {
		t.Fatalf("previous mapping leaked: %+v", mapping)
	}
	if errs := testsupport.MustField(t, sess, "base_url").Errors; len(errs) != 0 {
		t.Fatalf("base_url errors should be cleared, got %v", errs)
	}
	if mapping.Form != nil {
		t.Fatalf("unexpected form errors: %v", mapping.Form)
	}
}

func TestParseAddress(t *testing.T) {
	cases := []struct {
		raw     string
		want    form.Address
		wantErr bool
	}{
		{raw: "int_name", want: form.Field("int_name")},
		{raw: " int_aliases.2.int_alias_v6address ", want: form.At("int_aliases", 2, "int_alias_v6address")},
		{raw: "", wantErr: true},
		{raw: "int_aliases.x.child", wantErr: true},
		{raw: "int_aliases.-1.child", wantErr: true},
		{raw: "a.b", wantErr: true},
		{raw: ".0.child", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := form.ParseAddress(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("ParseAddress(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
			if back, _ := form.ParseAddress(got.String()); back != got {
				t.Fatalf("String() does not parse back: %q", got.String())
			}
		})
	}
}
