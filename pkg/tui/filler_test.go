package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formrel/pkg/form"
	"github.com/goliatone/go-formrel/pkg/schema"
	"github.com/goliatone/go-formrel/pkg/testsupport"
)

type stubDriver struct {
	inputs       []string
	passwords    []string
	confirm      []bool
	selectIdx    []int
	infoMessages []string
	selectCfgs   []SelectConfig
	inputPos     int
	passPos      int
	confirmPos   int
	selectPos    int
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(_ context.Context, _ InputConfig) (string, error) {
	if s.passPos >= len(s.passwords) {
		return "", errors.New("no password scripted")
	}
	val := s.passwords[s.passPos]
	s.passPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	s.selectCfgs = append(s.selectCfgs, cfg)
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func (s *stubDriver) exhausted(t *testing.T) {
	t.Helper()
	if s.inputPos != len(s.inputs) || s.passPos != len(s.passwords) || s.confirmPos != len(s.confirm) || s.selectPos != len(s.selectIdx) {
		t.Fatalf("unused script: inputs %d/%d passwords %d/%d confirms %d/%d selects %d/%d",
			s.inputPos, len(s.inputs), s.passPos, len(s.passwords),
			s.confirmPos, len(s.confirm), s.selectPos, len(s.selectIdx))
	}
}

func TestFillInterfaceForm(t *testing.T) {
	sess := testsupport.MustSession(t, testsupport.InterfaceForm)
	sess.SetSourceOptions("netmask.v4", []schema.Option{
		{Label: "/24 (255.255.255.0)", Value: "24"},
		{Label: "/16 (255.255.0.0)", Value: "16"},
	})
	sess.SetSourceOptions("prefix.v6", []schema.Option{
		{Label: "/64", Value: "64"},
		{Label: "/48", Value: "48"},
	})

	driver := &stubDriver{
		inputs: []string{
			"em0",          // int_interface, no NIC options loaded
			"lan",          // int_name
			"999.1.1.1",    // int_ipv4address, rejected
			"192.168.0.10", // int_ipv4address
			"",             // int_ipv6address
			"",             // int_options
			"10.0.0.1",     // alias 1 v4
			"",             // alias 1 v6
			"",             // alias 2 v4
			"fe80::2",      // alias 2 v6
		},
		confirm:   []bool{false, true, true, false},
		selectIdx: []int{0, 1, 0, 0, 1},
	}

	filler := New(WithPromptDriver(driver), WithLogger(testsupport.DiscardLogger()))
	if err := filler.Fill(context.Background(), sess); err != nil {
		t.Fatalf("fill: %v", err)
	}
	driver.exhausted(t)

	wantInfo := []string{"Invalid IPv4 Address: ipv4", "Alias #1", "Alias #2"}
	if diff := cmp.Diff(wantInfo, driver.infoMessages); diff != "" {
		t.Fatalf("info messages mismatch (-want +got):\n%s", diff)
	}
	if got := driver.selectCfgs[1].Options[0]; got != noneOption {
		t.Fatalf("allowEmpty select should offer %q first, got %q", noneOption, got)
	}

	payload, _ := sess.Submit()
	if payload["int_ipv4address"] != "192.168.0.10" || payload["int_v4netmaskbit"] != "24" {
		t.Fatalf("unexpected ipv4 settings: %v", payload)
	}
	if _, ok := payload["int_v6netmaskbit"]; ok {
		t.Fatalf("int_v6netmaskbit should be disabled by autoconfiguration: %v", payload)
	}
	want := []string{"10.0.0.1/24", "fe80::2/64"}
	if diff := cmp.Diff(want, payload["int_aliases"]); diff != "" {
		t.Fatalf("aliases mismatch (-want +got):\n%s", diff)
	}
}

func TestFillSkipsDisabledFields(t *testing.T) {
	sess := testsupport.MustSession(t, testsupport.InterfaceForm)

	driver := &stubDriver{
		inputs: []string{
			"em1",     // int_interface
			"uplink",  // int_name
			"fe80::1", // int_ipv6address
			"64",      // int_v6netmaskbit, no options loaded
			"",        // int_options
			"",        // alias v4
			"",        // alias v4 netmask
			"",        // alias v6
			"",        // alias v6 prefix
		},
		confirm: []bool{true, false, false},
	}

	if err := New(WithPromptDriver(driver)).Fill(context.Background(), sess); err != nil {
		t.Fatalf("fill: %v", err)
	}
	driver.exhausted(t)

	payload, _ := sess.Submit()
	if _, ok := payload["int_ipv4address"]; ok {
		t.Fatalf("dhcp should have disabled int_ipv4address: %v", payload)
	}
	if payload["int_v6netmaskbit"] != "64" {
		t.Fatalf("int_v6netmaskbit = %v, want 64", payload["int_v6netmaskbit"])
	}
}

func TestFillMasksSecrets(t *testing.T) {
	sess := testsupport.MustSession(t, testsupport.AlertAWSForm)

	driver := &stubDriver{
		inputs:    []string{"AWSSNS", "https://sns.example.com", "AKIAEXAMPLE"},
		passwords: []string{"top-secret"},
		confirm:   []bool{true},
	}
	if err := New(WithPromptDriver(driver)).Fill(context.Background(), sess); err != nil {
		t.Fatalf("fill: %v", err)
	}
	driver.exhausted(t)

	payload, err := sess.Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if payload["aws_secret_access_key"] != "top-secret" || payload["enabled"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestFillStopsAtMaxCount(t *testing.T) {
	s := schema.Schema{
		ID: "capped",
		Fields: []schema.FieldDescriptor{{
			Name:         "rows",
			Kind:         schema.KindGroup,
			Label:        "Row",
			InitialCount: 1,
			MaxCount:     1,
			Children:     []schema.FieldDescriptor{{Name: "value", Kind: schema.KindText}},
		}},
	}
	sess, err := form.New(s, form.WithLogger(testsupport.DiscardLogger()))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	driver := &stubDriver{inputs: []string{"a"}, confirm: []bool{true}}
	if err := New(WithPromptDriver(driver)).Fill(context.Background(), sess); err != nil {
		t.Fatalf("fill: %v", err)
	}
	want := []string{"Row #1", "Row: no more entries allowed"}
	if diff := cmp.Diff(want, driver.infoMessages); diff != "" {
		t.Fatalf("info messages mismatch (-want +got):\n%s", diff)
	}
}

func TestFillPropagatesAbort(t *testing.T) {
	sess := testsupport.MustSession(t, testsupport.AlertAWSForm)

	err := New(WithPromptDriver(abortDriver{&stubDriver{}})).Fill(context.Background(), sess)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

type abortDriver struct{ *stubDriver }

func (abortDriver) Input(context.Context, InputConfig) (string, error) {
	return "", ErrAborted
}

type infoFailDriver struct{ *stubDriver }

func (infoFailDriver) Info(context.Context, string) error {
	return ErrAborted
}

func TestFillPropagatesInfoErrors(t *testing.T) {
	rows := schema.Schema{
		ID: "rows",
		Fields: []schema.FieldDescriptor{{
			Name:         "rows",
			Kind:         schema.KindGroup,
			Label:        "Row",
			InitialCount: 1,
			Children:     []schema.FieldDescriptor{{Name: "value", Kind: schema.KindText}},
		}},
	}
	sess, err := form.New(rows, form.WithLogger(testsupport.DiscardLogger()))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	err = New(WithPromptDriver(infoFailDriver{&stubDriver{}})).Fill(context.Background(), sess)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("instance header failure should stop the fill, got %v", err)
	}

	ipv4 := schema.Schema{
		ID: "ipv4",
		Fields: []schema.FieldDescriptor{{
			Name:       "addr",
			Kind:       schema.KindText,
			Validators: []schema.ValidatorSpec{{Kind: schema.ValidatorIPv4}},
		}},
	}
	sess, err = form.New(ipv4, form.WithLogger(testsupport.DiscardLogger()))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	driver := infoFailDriver{&stubDriver{inputs: []string{"999.1.1.1"}}}
	err = New(WithPromptDriver(driver)).Fill(context.Background(), sess)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("invalid-answer notice failure should stop the fill, got %v", err)
	}
	driver.exhausted(t)
}

func TestDisplayHelpStripsMarkup(t *testing.T) {
	field := schema.FieldDescriptor{Tooltip: "Requires static IPv4 if unchecked; only one interface can use <b>DHCP</b> & it's fine"}
	want := "Requires static IPv4 if unchecked; only one interface can use DHCP & it's fine"
	if got := displayHelp(field); got != want {
		t.Fatalf("displayHelp = %q, want %q", got, want)
	}

	field.Metadata = map[string]string{MetadataHelp: "custom"}
	if got := displayHelp(field); got != "custom" {
		t.Fatalf("cli.help should win, got %q", got)
	}
}
