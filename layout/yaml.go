package layout

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/msantos/unpacker/walker"
)

type yamlField struct {
	Name     string `yaml:"name"`
	Offset   int    `yaml:"offset"`
	Size     int    `yaml:"size"`
	Elem     int    `yaml:"elem"`
	Kind     string `yaml:"kind"`
	Note     string `yaml:"note"`
	Flexible bool   `yaml:"flexible"`
}

type yamlTable struct {
	Name    string      `yaml:"name"`
	Size    int         `yaml:"size"`
	Strip   string      `yaml:"strip"`
	Overlap bool        `yaml:"overlap"`
	Fields  []yamlField `yaml:"fields"`
}

// Load reads tables from a YAML stream, one table per document:
//
//	name: ip_auth_hdr
//	size: 12
//	fields:
//	  - {name: nexthdr, offset: 0, size: 1}
//	  - {name: hdrlen, offset: 1, size: 1}
//	  - {name: spi, offset: 4, size: 4}
//	  - {name: seq_no, offset: 8, size: 4}
//	  - {name: auth_data, offset: 12, elem: 1, kind: blob, flexible: true}
func Load(r io.Reader) ([]walker.Layout, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var layouts []walker.Layout
	for doc := 1; ; doc++ {
		var t yamlTable
		err := dec.Decode(&t)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}

		l, err := t.layout()
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		Logger().Debug("yaml table", zap.String("name", l.Name), zap.Int("fields", len(l.Fields)))
		layouts = append(layouts, l)
	}
	return layouts, nil
}

// LoadFile reads tables from a YAML file.
func LoadFile(path string) ([]walker.Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	layouts, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return layouts, nil
}

func (t yamlTable) layout() (walker.Layout, error) {
	l := walker.Layout{
		Name:        t.Name,
		Size:        t.Size,
		StripPrefix: t.Strip,
		Overlap:     t.Overlap,
		Fields:      make([]walker.Field, 0, len(t.Fields)),
	}

	for _, f := range t.Fields {
		kind, err := walker.ParseKind(f.Kind)
		if err != nil {
			return walker.Layout{}, fmt.Errorf("%w: %s: %s: %w", ErrInvalid, t.Name, f.Name, err)
		}
		l.Fields = append(l.Fields, walker.Field{
			Offset:   f.Offset,
			Size:     f.Size,
			ElemSize: f.Elem,
			Kind:     kind,
			Name:     f.Name,
			Note:     f.Note,
			Flexible: f.Flexible,
		})
	}

	if err := Validate(l); err != nil {
		return walker.Layout{}, err
	}
	return l, nil
}
