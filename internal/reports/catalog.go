package reports

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"ledgerplan/internal/core"
)

//go:embed default.yaml
var defaultCatalog []byte

var (
	ErrUnknownReport  = errors.New("unknown report")
	ErrInvalidCatalog = errors.New("invalid report catalog")
)

// Report binds ledgers to a formula and a budget table.
type Report struct {
	Name     string            `yaml:"name" json:"name"`
	Title    string            `yaml:"title" json:"title"`
	Formula  core.FormulaName  `yaml:"formula" json:"formula"`
	TableKey string            `yaml:"table_key" json:"tableKey"`
	Sources  map[string]string `yaml:"sources" json:"sources"`
}

// Inputs returns the sources keyed by formula input.
func (r Report) Inputs() map[core.Input]string {
	out := make(map[core.Input]string, len(r.Sources))
	for role, ledger := range r.Sources {
		out[core.Input(role)] = ledger
	}
	return out
}

// Ledgers returns the distinct ledgers the report reads, sorted.
func (r Report) Ledgers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range r.Sources {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

type catalogFile struct {
	Reports []Report `yaml:"reports"`
}

// Catalog is an immutable set of reports.
type Catalog struct {
	reports []Report
	byName  map[string]int
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("built-in report catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the built-in one when path is
// empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(f.Reports) == 0 {
		return nil, fmt.Errorf("%w: no reports defined", ErrInvalidCatalog)
	}

	c := &Catalog{byName: make(map[string]int, len(f.Reports))}
	for i, r := range f.Reports {
		r.Name = strings.TrimSpace(r.Name)
		r.TableKey = strings.TrimSpace(r.TableKey)
		if err := validate(r); err != nil {
			return nil, fmt.Errorf("%w: report %d: %v", ErrInvalidCatalog, i+1, err)
		}
		if _, dup := c.byName[r.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate report %q", ErrInvalidCatalog, r.Name)
		}
		if r.Title == "" {
			r.Title = r.Name
		}
		c.byName[r.Name] = len(c.reports)
		c.reports = append(c.reports, r)
	}
	return c, nil
}

func validate(r Report) error {
	if r.Name == "" {
		return errors.New("missing name")
	}
	if r.TableKey == "" {
		return fmt.Errorf("%s: missing table_key", r.Name)
	}
	f, err := core.LookupFormula(r.Formula)
	if err != nil {
		return fmt.Errorf("%s: %w", r.Name, err)
	}
	required := make(map[core.Input]bool, len(f.Requires))
	for _, in := range f.Requires {
		required[in] = true
		if strings.TrimSpace(r.Sources[string(in)]) == "" {
			return fmt.Errorf("%s: formula %s needs source %q", r.Name, f.Name, in)
		}
	}
	for role := range r.Sources {
		if !required[core.Input(role)] {
			return fmt.Errorf("%s: formula %s does not use source %q", r.Name, f.Name, role)
		}
	}
	return nil
}

// Get returns the report with the given name.
func (c *Catalog) Get(name string) (Report, error) {
	i, ok := c.byName[strings.TrimSpace(name)]
	if !ok {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownReport, name)
	}
	return c.reports[i], nil
}

// All returns the reports in catalog order.
func (c *Catalog) All() []Report {
	out := make([]Report, len(c.reports))
	copy(out, c.reports)
	return out
}

// Len returns the number of reports.
func (c *Catalog) Len() int { return len(c.reports) }
