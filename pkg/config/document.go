package config

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"text/template"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/sources"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a manifest.
type Document struct {
	ImportTimeout Duration      `yaml:"import_timeout" mapstructure:"import_timeout"`
	Slots         []SlotDoc     `yaml:"slots" mapstructure:"slots"`
	Fragments     []FragmentDoc `yaml:"fragments" mapstructure:"fragments"`
	Routes        []RouteDoc    `yaml:"routes" mapstructure:"routes"`
}

// SlotDoc declares a slot. Markup fields are text/templates; error markup
// receives {{.Error}}.
type SlotDoc struct {
	Name          string `yaml:"name" mapstructure:"name"`
	Selector      string `yaml:"selector,omitempty" mapstructure:"selector"`
	ErrorMarkup   string `yaml:"error_markup,omitempty" mapstructure:"error_markup"`
	LoadingMarkup string `yaml:"loading_markup,omitempty" mapstructure:"loading_markup"`
}

// FragmentDoc declares a fragment and the source of its script.
type FragmentDoc struct {
	Name   string         `yaml:"name" mapstructure:"name"`
	Slots  []string       `yaml:"slots" mapstructure:"slots"`
	Source map[string]any `yaml:"source,omitempty" mapstructure:"source"`
}

// RouteDoc declares a route.
type RouteDoc struct {
	Name      string        `yaml:"name" mapstructure:"name"`
	Path      string        `yaml:"path,omitempty" mapstructure:"path"`
	Paths     []string      `yaml:"paths,omitempty" mapstructure:"paths"`
	Fragments []FragmentRef `yaml:"fragments" mapstructure:"fragments"`
}

// FragmentRef is a domain.FragmentRef written either as a bare fragment name
// or as a {name, slot} mapping.
type FragmentRef domain.FragmentRef

// UnmarshalYAML accepts scalar and mapping nodes.
func (r *FragmentRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*r = FragmentRef{Name: node.Value}
		return nil
	case yaml.MappingNode:
		var ref struct {
			Name string `yaml:"name"`
			Slot string `yaml:"slot"`
		}
		if err := node.Decode(&ref); err != nil {
			return err
		}
		*r = FragmentRef{Name: ref.Name, Slot: ref.Slot}
		return nil
	}
	return fmt.Errorf("line %d: fragment reference must be a name or a mapping", node.Line)
}

// Duration is a time.Duration written as "250ms" or as an integer number of milliseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	v, err := parseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// DecodeHook lets mapstructure decode FragmentRef from bare names and
// Duration from strings or integers.
func DecodeHook() mapstructure.DecodeHookFunc {
	refType := reflect.TypeOf(FragmentRef{})
	durType := reflect.TypeOf(Duration(0))
	return func(from, to reflect.Type, data any) (any, error) {
		switch {
		case to == refType && from.Kind() == reflect.String:
			return FragmentRef{Name: data.(string)}, nil
		case to == durType && from.Kind() == reflect.String:
			v, err := parseDuration(data.(string))
			return Duration(v), err
		case to == durType && from.Kind() >= reflect.Int && from.Kind() <= reflect.Int64:
			return Duration(reflect.ValueOf(data).Int() * int64(time.Millisecond)), nil
		}
		return data, nil
	}
}

// Decode decodes a generic map (for example a document front matter) into out using DecodeHook.
func Decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: DecodeHook(),
		Result:     out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// Parse decodes a manifest document and builds its manifest.
func Parse(data []byte, reg *sources.Registry) (*domain.Manifest, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return doc.Manifest(reg)
}

// Manifest builds the domain manifest. A nil registry selects sources.NewRegistry(nil).
// The result is validated.
func (d *Document) Manifest(reg *sources.Registry) (*domain.Manifest, error) {
	if reg == nil {
		reg = sources.NewRegistry(nil)
	}
	m := &domain.Manifest{ImportTimeout: time.Duration(d.ImportTimeout)}

	for _, s := range d.Slots {
		slot := domain.Slot{Name: s.Name, Selector: s.Selector}
		if s.ErrorMarkup != "" {
			tmpl, err := template.New(s.Name + ".error").Parse(s.ErrorMarkup)
			if err != nil {
				return nil, fmt.Errorf("slot %q: error_markup: %w", s.Name, err)
			}
			slot.ErrorMarkup = func(err error) string {
				return execute(tmpl, map[string]string{"Error": err.Error()})
			}
		}
		if s.LoadingMarkup != "" {
			tmpl, err := template.New(s.Name + ".loading").Parse(s.LoadingMarkup)
			if err != nil {
				return nil, fmt.Errorf("slot %q: loading_markup: %w", s.Name, err)
			}
			slot.LoadingMarkup = func() string { return execute(tmpl, nil) }
		}
		m.Slots = append(m.Slots, slot)
	}

	for _, f := range d.Fragments {
		load, err := reg.Build(f.Name, f.Source)
		if err != nil {
			return nil, err
		}
		m.Fragments = append(m.Fragments, domain.Fragment{
			Name:       f.Name,
			Slots:      append([]string(nil), f.Slots...),
			LoadScript: load,
		})
	}

	for _, r := range d.Routes {
		route := domain.Route{Name: r.Name, Path: r.Path, Paths: append([]string(nil), r.Paths...)}
		for _, ref := range r.Fragments {
			route.Fragments = append(route.Fragments, domain.FragmentRef(ref))
		}
		m.Routes = append(m.Routes, route)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func execute(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}
