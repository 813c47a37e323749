// Package tui fills a form session from the terminal. Fields are prompted in
// schema order and every answer is applied to the session immediately, so a
// field disabled by an earlier answer is skipped.
package tui

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formrel/pkg/form"
	"github.com/goliatone/go-formrel/pkg/group"
	"github.com/goliatone/go-formrel/pkg/schema"
)

// MetadataSecret marks a text field whose input is masked.
const MetadataSecret = "cli.secret"

// MetadataHelp overrides the tooltip shown as prompt help.
const MetadataHelp = "cli.help"

const noneOption = "(none)"

// Option configures a Filler.
type Option func(*Filler)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithPageSize sets the number of options shown by select prompts.
func WithPageSize(n int) Option {
	return func(f *Filler) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

// Filler walks a session and prompts for each enabled field.
type Filler struct {
	driver   PromptDriver
	logger   *slog.Logger
	pageSize int
}

// New constructs a Filler using the survey driver on stdout by default.
func New(options ...Option) *Filler {
	f := &Filler{
		driver:   NewSurveyDriver(nil),
		logger:   slog.Default(),
		pageSize: 12,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	return f
}

// Fill prompts for every field of sess. Repeated groups are walked instance
// by instance, then the user may add more.
func (f *Filler) Fill(ctx context.Context, sess *form.Session) error {
	if ctx == nil {
		return errors.New("tui: context is required")
	}
	if sess == nil {
		return errors.New("tui: session is required")
	}

	for _, field := range sess.Schema().Fields {
		if err := ctx.Err(); err != nil {
			return err
		}
		if field.IsGroup() {
			if err := f.fillGroup(ctx, sess, field); err != nil {
				return err
			}
			continue
		}
		if err := f.fillField(ctx, sess, form.Field(field.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filler) fillGroup(ctx context.Context, sess *form.Session, field schema.FieldDescriptor) error {
	label := displayLabel(field)
	for idx := 0; idx < sess.Count(field.Name); idx++ {
		if err := f.fillInstance(ctx, sess, field, idx); err != nil {
			return err
		}
	}

	for {
		more, err := f.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Add another %s?", label),
			Help:    displayHelp(field),
		})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		idx, err := sess.AddInstance(field.Name)
		if errors.Is(err, group.ErrMaxCount) {
			return f.driver.Info(ctx, fmt.Sprintf("%s: no more entries allowed", label))
		}
		if err != nil {
			return err
		}
		if err := f.fillInstance(ctx, sess, field, idx); err != nil {
			return err
		}
	}
}

func (f *Filler) fillInstance(ctx context.Context, sess *form.Session, field schema.FieldDescriptor, idx int) error {
	if err := f.driver.Info(ctx, fmt.Sprintf("%s #%d", displayLabel(field), idx+1)); err != nil {
		return err
	}
	for _, child := range field.Children {
		if err := f.fillField(ctx, sess, form.At(field.Name, idx, child.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filler) fillField(ctx context.Context, sess *form.Session, addr form.Address) error {
	state, ok := sess.Field(addr)
	if !ok {
		return fmt.Errorf("%w: %s", form.ErrUnknownField, addr)
	}
	if !state.Enabled {
		f.logger.Debug("tui: skipping disabled field", slog.String("field", addr.String()))
		return nil
	}
	desc, _ := sess.Descriptor(addr)

	switch desc.Kind {
	case schema.KindCheckbox:
		return f.promptCheckbox(ctx, sess, addr, desc, state)
	case schema.KindSelect:
		if len(desc.Options) > 0 {
			return f.promptSelect(ctx, sess, addr, desc, state)
		}
		return f.promptText(ctx, sess, addr, desc, state)
	default:
		return f.promptText(ctx, sess, addr, desc, state)
	}
}

func (f *Filler) promptCheckbox(ctx context.Context, sess *form.Session, addr form.Address, desc schema.FieldDescriptor, state form.FieldState) error {
	current, _ := state.Value.(bool)
	resp, err := f.driver.Confirm(ctx, ConfirmConfig{
		Message: displayLabel(desc),
		Default: current,
		Help:    displayHelp(desc),
	})
	if err != nil {
		return err
	}
	return sess.SetValue(addr, resp)
}

func (f *Filler) promptSelect(ctx context.Context, sess *form.Session, addr form.Address, desc schema.FieldDescriptor, state form.FieldState) error {
	labels := make([]string, 0, len(desc.Options)+1)
	values := make([]string, 0, len(desc.Options)+1)
	if desc.AllowEmpty {
		labels = append(labels, noneOption)
		values = append(values, "")
	}
	for _, opt := range desc.Options {
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		labels = append(labels, label)
		values = append(values, opt.Value)
	}

	current := fmt.Sprint(state.Value)
	if state.Value == nil {
		current = ""
	}
	idx, err := f.driver.Select(ctx, SelectConfig{
		Message:      displayLabel(desc),
		Options:      labels,
		DefaultIndex: indexOf(values, current),
		Help:         displayHelp(desc),
		PageSize:     f.pageSize,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(values) {
		return fmt.Errorf("tui: %s: selection %d out of range", addr, idx)
	}
	return sess.SetValue(addr, values[idx])
}

// promptText re-prompts while a non-empty answer is invalid. An empty answer
// is accepted unless the field is required; submission reports what remains
// invalid.
func (f *Filler) promptText(ctx context.Context, sess *form.Session, addr form.Address, desc schema.FieldDescriptor, state form.FieldState) error {
	secret := strings.EqualFold(desc.Metadata[MetadataSecret], "true")
	current := ""
	if state.Value != nil {
		current = fmt.Sprint(state.Value)
	}

	for {
		cfg := InputConfig{
			Message: displayLabel(desc),
			Default: current,
			Help:    displayHelp(desc),
		}
		var (
			resp string
			err  error
		)
		if secret {
			resp, err = f.driver.Password(ctx, cfg)
		} else {
			resp, err = f.driver.Input(ctx, cfg)
		}
		if err != nil {
			return err
		}

		resp = strings.TrimSpace(resp)
		if err := sess.SetValue(addr, resp); err != nil {
			return err
		}
		next, _ := sess.Field(addr)
		if next.Status != schema.StatusInvalid {
			return nil
		}
		if resp == "" && !next.Required {
			return nil
		}
		if err := f.driver.Info(ctx, fmt.Sprintf("Invalid %s: %s", displayLabel(desc), next.Reason)); err != nil {
			return err
		}
		current = resp
	}
}

func displayLabel(field schema.FieldDescriptor) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

var (
	plainTextOnce   sync.Once
	plainTextPolicy *bluemonday.Policy
)

// displayHelp renders the tooltip as plain text for the terminal.
func displayHelp(field schema.FieldDescriptor) string {
	if h := field.Metadata[MetadataHelp]; h != "" {
		return h
	}
	if field.Tooltip == "" {
		return ""
	}
	plainTextOnce.Do(func() {
		plainTextPolicy = bluemonday.StrictPolicy()
	})
	return html.UnescapeString(plainTextPolicy.Sanitize(field.Tooltip))
}
