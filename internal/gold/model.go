package gold

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-medallion/internal/engine"
)

// DefaultModelFile is looked up in the base directory of a run.
const DefaultModelFile = "gold_model.yaml"

// Dimension is built from the distinct values of Columns in Source.
type Dimension struct {
	Name    string   `yaml:"name"`
	Source  string   `yaml:"source"`
	Columns []string `yaml:"columns"`
}

// Table returns the gold table of the dimension.
func (d Dimension) Table() string {
	return "dim_" + d.Name
}

// Key returns the surrogate key column of the dimension.
func (d Dimension) Key() string {
	return d.Name + "_key"
}

// Fact holds one row per row of Source.
type Fact struct {
	Name       string   `yaml:"name"`
	Source     string   `yaml:"source"`
	Dimensions []string `yaml:"dimensions"`
	Measures   []string `yaml:"measures"`
}

// Table returns the gold table of the fact.
func (f Fact) Table() string {
	return "fact_" + f.Name
}

type Model struct {
	Dimensions []Dimension `yaml:"dimensions"`
	Facts      []Fact      `yaml:"facts"`
}

// ParseModel decodes a YAML model. Unknown keys are rejected.
func ParseModel(r io.Reader) (*Model, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	model := &Model{}
	err := decoder.Decode(model)
	if errors.Is(err, io.EOF) {
		return nil, errors.Wrap(ErrInvalidModel, "empty model")
	}
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidModel, "unable to decode model: %v", err)
	}

	return model, nil
}

// LoadModel reads the model at path. It returns nil and no error when the
// file does not exist.
func LoadModel(path string) (*Model, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open model %s", path)
	}
	defer file.Close()

	model, err := ParseModel(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load %s", path)
	}

	return model, nil
}

// Validate checks the model against the columns of the silver tables.
func (m *Model) Validate(tables map[string][]string) error {
	if len(m.Dimensions) == 0 && len(m.Facts) == 0 {
		return errors.Wrap(ErrInvalidModel, "no dimension and no fact")
	}

	dimNames := make(map[string]bool)
	factNames := make(map[string]bool)
	dims := make(map[string]Dimension, len(m.Dimensions))
	for i, dim := range m.Dimensions {
		if err := checkName(dimNames, dim.Name); err != nil {
			return errors.Wrapf(err, "dimension %d", i)
		}
		if len(dim.Columns) == 0 {
			return errors.Wrapf(ErrInvalidModel, "dimension %s has no column", dim.Name)
		}
		if err := checkColumns(tables, dim.Source, dim.Columns); err != nil {
			return errors.Wrapf(err, "dimension %s", dim.Name)
		}
		dims[dim.Name] = dim
	}

	for i, fact := range m.Facts {
		if err := checkName(factNames, fact.Name); err != nil {
			return errors.Wrapf(err, "fact %d", i)
		}
		if len(fact.Dimensions) == 0 && len(fact.Measures) == 0 {
			return errors.Wrapf(ErrInvalidModel, "fact %s has no dimension and no measure", fact.Name)
		}
		if err := checkColumns(tables, fact.Source, fact.Measures); err != nil {
			return errors.Wrapf(err, "fact %s", fact.Name)
		}
		for _, name := range fact.Dimensions {
			dim, ok := dims[name]
			if !ok {
				return errors.Wrapf(ErrInvalidModel, "fact %s references unknown dimension %q", fact.Name, name)
			}
			if err := checkColumns(tables, fact.Source, dim.Columns); err != nil {
				return errors.Wrapf(err, "fact %s cannot join dimension %s", fact.Name, name)
			}
		}
	}

	return nil
}

// checkName accepts identifiers not already in names.
func checkName(names map[string]bool, name string) error {
	if name == "" {
		return errors.Wrap(ErrInvalidModel, "missing name")
	}
	if engine.Identifier(name) != name {
		return errors.Wrapf(ErrInvalidModel, "name %q is not a lower snake case identifier", name)
	}
	if names[name] {
		return errors.Wrapf(ErrInvalidModel, "duplicate name %q", name)
	}
	names[name] = true

	return nil
}

func checkColumns(tables map[string][]string, source string, columns []string) error {
	available, ok := tables[source]
	if !ok {
		return errors.Wrapf(ErrInvalidModel, "unknown source table %q", source)
	}

	set := make(map[string]bool, len(available))
	for _, col := range available {
		set[col] = true
	}
	for _, col := range columns {
		if !set[col] {
			return errors.Wrapf(ErrInvalidModel, "source table %q has no column %q", source, col)
		}
	}

	return nil
}
