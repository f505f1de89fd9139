package pep

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// Catalog is the reference list of inspection sections every new form is
// built from.
type Catalog struct {
	Sections []models.Section `toml:"sections"`
}

// Components counts the components across every section.
func (c *Catalog) Components() int {
	n := 0
	for _, s := range c.Sections {
		n += len(s.Components)
	}
	return n
}

// Validate rejects catalogues a form cannot be built from: no sections, a
// section without id or components, duplicate section ids, or a component code
// repeated within a section.
func (c *Catalog) Validate() error {
	if len(c.Sections) == 0 {
		return fmt.Errorf("%w: catalogue has no sections", models.ErrValidation)
	}
	seen := make(map[string]bool, len(c.Sections))
	for i, s := range c.Sections {
		if s.ID == "" {
			return fmt.Errorf("%w: section %d has no id", models.ErrValidation, i)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate section id %q", models.ErrValidation, s.ID)
		}
		seen[s.ID] = true
		if len(s.Components) == 0 {
			return fmt.Errorf("%w: section %q has no components", models.ErrValidation, s.ID)
		}
		codes := make(map[int]bool, len(s.Components))
		for _, comp := range s.Components {
			if codes[comp.Code] {
				return fmt.Errorf("%w: section %q repeats component code %d", models.ErrValidation, s.ID, comp.Code)
			}
			codes[comp.Code] = true
		}
	}
	return nil
}

// LoadCatalog decodes and validates a TOML catalogue.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	if _, err := toml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: decoding catalogue: %v", models.ErrValidation, err)
	}
	for i := range c.Sections {
		for j := range c.Sections[i].Components {
			c.Sections[i].Components[j].Status = models.ComponentNotApplicable
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalogFile reads a catalogue from path. An empty path returns DefaultCatalog.
func LoadCatalogFile(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalogue: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

func section(id, title string, comps ...models.Component) models.Section {
	return models.Section{ID: id, Title: title, Components: comps}
}

func comp(code int, name string) models.Component {
	return models.Component{Code: code, Name: name, Status: models.ComponentNotApplicable}
}

// DefaultCatalog returns the built-in heavy-vehicle inspection sections.
func DefaultCatalog() *Catalog {
	return &Catalog{Sections: []models.Section{
		section("cab", "Cab and controls",
			comp(101, "Windshield and wipers"),
			comp(102, "Mirrors"),
			comp(103, "Horn"),
			comp(104, "Seat belts"),
			comp(105, "Instrument panel"),
		),
		section("lighting", "Lighting and signalling",
			comp(201, "Headlights"),
			comp(202, "Brake lights"),
			comp(203, "Turn signals"),
			comp(204, "Reflectors"),
		),
		section("brakes", "Brakes",
			comp(301, "Service brake"),
			comp(302, "Parking brake"),
			comp(303, "Air compressor"),
			comp(304, "Lines and hoses"),
			comp(305, "Slack adjusters"),
		),
		section("steering", "Steering",
			comp(401, "Steering wheel play"),
			comp(402, "Steering linkage"),
			comp(403, "Power steering"),
		),
		section("suspension", "Suspension",
			comp(501, "Springs"),
			comp(502, "Shock absorbers"),
			comp(503, "Air suspension"),
		),
		section("wheels", "Tires and wheels",
			comp(601, "Tread depth"),
			comp(602, "Tire pressure"),
			comp(603, "Wheel fasteners"),
			comp(604, "Rims"),
		),
		section("exhaust", "Exhaust",
			comp(701, "Exhaust system"),
			comp(702, "Emission controls"),
		),
		section("frame", "Frame and coupling",
			comp(801, "Frame and crossmembers"),
			comp(802, "Coupling device"),
			comp(803, "Safety chains"),
		),
	}}
}
