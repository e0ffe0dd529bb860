package packaging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step is one placement in the physical layout of a SKU.
type Step struct {
	SlotID string `yaml:"slot_id" json:"slotId"`
	PartID string `yaml:"part_id" json:"partId"`
	Title  string `yaml:"title" json:"title"`
}

type catalogEntry struct {
	Title string `yaml:"title"`
	Steps []Step `yaml:"steps"`
}

type catalogFile struct {
	SKUs map[string]catalogEntry `yaml:"skus"`
}

// Catalog maps SKUs to their layout steps.
type Catalog struct {
	entries map[string]catalogEntry
}

// Plan is the ordered step list for one attempt.
type Plan struct {
	Title   string
	Layout  []Step
	Packing []Step
}

// Steps returns the step list for phase.
func (p Plan) Steps(phase Phase) []Step {
	if phase == PhasePacking {
		return p.Packing
	}
	return p.Layout
}

// LoadCatalog reads a YAML catalog. A missing file yields an empty catalog.
//
//	skus:
//	  SKU-100:
//	    title: Desk lamp
//	    steps:
//	      - {slot_id: A1, part_id: BASE, title: Place the base}
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return newCatalog(nil), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return newCatalog(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML. SKU keys are matched case-insensitively.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for sku, entry := range file.SKUs {
		for i, step := range entry.Steps {
			if strings.TrimSpace(step.SlotID) == "" {
				return nil, fmt.Errorf("parse catalog: sku %s step %d has no slot_id", sku, i+1)
			}
		}
	}
	return newCatalog(file.SKUs), nil
}

// newCatalog builds a catalog from in-memory entries keyed by SKU.
func newCatalog(entries map[string]catalogEntry) *Catalog {
	c := &Catalog{entries: make(map[string]catalogEntry, len(entries))}
	for sku, entry := range entries {
		c.entries[strings.ToUpper(strings.TrimSpace(sku))] = entry
	}
	return c
}

// Len returns the number of SKUs with explicit steps.
func (c *Catalog) Len() int { return len(c.entries) }

// PlanFor derives the step plan for sku. Unknown SKUs, or SKUs listed without
// steps, get one default step. Packing steps are the layout steps reversed.
func (c *Catalog) PlanFor(sku string) Plan {
	key := strings.ToUpper(strings.TrimSpace(sku))
	entry, ok := c.entries[key]
	layout := slices.Clone(entry.Steps)
	if !ok || len(layout) == 0 {
		layout = []Step{{SlotID: "MAIN", PartID: sku, Title: "Pack " + sku}}
	}
	packing := slices.Clone(layout)
	slices.Reverse(packing)

	title := entry.Title
	if title == "" {
		title = sku
	}
	return Plan{Title: title, Layout: layout, Packing: packing}
}
