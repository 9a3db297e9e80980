// Package templatedef loads slide template definitions from YAML. A
// definition names the template and lists its decorative slides in order;
// exactly one slide must have kind "reference", marking where generated
// song slides are inserted and which styling they inherit.
//
// Example:
//
//	name: Midnight
//	slides:
//	  - kind: title
//	    heading: Welcome
//	    background: "#101020"
//	  - kind: reference
//	    background: "#000000"
//	    foreground: "#ffffff"
//	  - kind: closing
//	    heading: Good night
package templatedef

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/versoproject/verso/core/verrors"
	"github.com/versoproject/verso/internal/store"
)

// KindReference marks the reference slide in a definition.
const KindReference = "reference"

// SlideDef is one slide in a YAML definition.
type SlideDef struct {
	Kind       string `yaml:"kind"`
	Heading    string `yaml:"heading"`
	Body       string `yaml:"body"`
	Background string `yaml:"background"`
	Foreground string `yaml:"foreground"`
}

// Definition is a named, ordered template definition.
type Definition struct {
	Name   string     `yaml:"name"`
	Slides []SlideDef `yaml:"slides"`
}

// Parse decodes and validates a YAML definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, verrors.NewParse("template", "", fmt.Sprintf("malformed YAML: %v", err))
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Load reads and parses a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, verrors.NewIO("read", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		if parseErr, ok := err.(*verrors.ParseError); ok {
			parseErr.Path = path
		}
		return nil, err
	}
	return def, nil
}

// validate checks the definition shape: a name, at least two slides, and
// exactly one reference marker.
func (d *Definition) validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return verrors.NewValidation("name", "template name is required")
	}
	if len(d.Slides) < 2 {
		return verrors.NewValidation("slides",
			"a template needs at least two slides (a reference plus one decorative slide)")
	}

	references := 0
	for i, slide := range d.Slides {
		if strings.TrimSpace(slide.Kind) == "" {
			return verrors.NewValidation("slides",
				fmt.Sprintf("slide %d has no kind", i))
		}
		if slide.Kind == KindReference {
			references++
		}
	}
	if references != 1 {
		return verrors.NewValidation("slides",
			fmt.Sprintf("exactly one slide must have kind %q, found %d", KindReference, references))
	}
	return nil
}

// ReferenceIndex returns the position of the reference slide.
func (d *Definition) ReferenceIndex() int {
	for i, slide := range d.Slides {
		if slide.Kind == KindReference {
			return i
		}
	}
	return -1
}

// ToTemplate converts a validated definition into a store template.
func (d *Definition) ToTemplate() *store.Template {
	t := &store.Template{
		Name:           d.Name,
		ReferenceIndex: d.ReferenceIndex(),
	}
	for i, slide := range d.Slides {
		t.Slides = append(t.Slides, store.TemplateSlide{
			Position:   i,
			Kind:       slide.Kind,
			Heading:    slide.Heading,
			Body:       slide.Body,
			Background: slide.Background,
			Foreground: slide.Foreground,
		})
	}
	return t
}

// Import loads a definition file and stores it as a new template,
// returning the created record.
func Import(ctx context.Context, st *store.Store, path string) (*store.Template, error) {
	def, err := Load(path)
	if err != nil {
		return nil, err
	}
	t := def.ToTemplate()
	if err := st.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
