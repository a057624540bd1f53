package tracking

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"factory_portal_backend/platform/apperr"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CatalogItem is a raw checklist catalog entry as served by the gateway.
type CatalogItem struct {
	Label   string
	Section string
	Active  bool
}

// Item is one checklist entry inside a loaded catalog.
type Item struct {
	Label string `json:"label"`
	Key   string `json:"key"`
	Done  bool   `json:"done"`
}

// Section is a named, ordered group of checklist items.
type Section struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

var phasePattern = regexp.MustCompile(`(?i)fase\s*(\d+)`)

// phaseNumber extracts the embedded phase number from a section name.
// Sections without one sort after all numbered sections.
func phaseNumber(name string) (int, bool) {
	match := phasePattern.FindStringSubmatch(name)
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// BuildSections groups active catalog items into ordered sections.
// Items keep catalog order within their section; sections sort by embedded
// phase number ascending, then non-numbered sections alphabetically using
// Spanish collation. Ties keep first-seen order. A column-key collision
// between two labels is a validation error.
func BuildSections(raw []CatalogItem, defaultSection string) ([]Section, error) {
	seen := make(map[string]string) // key -> label
	index := make(map[string]int)   // section name -> position in sections
	sections := make([]Section, 0, 4)

	for _, item := range raw {
		if !item.Active {
			continue
		}
		key := ColumnKey(item.Label)
		if prev, dup := seen[key]; dup {
			return nil, apperr.Validation(
				fmt.Sprintf("checklist labels %q and %q map to the same column key %q", prev, item.Label, key),
			)
		}
		seen[key] = item.Label

		name := item.Section
		if name == "" {
			name = defaultSection
		}
		pos, ok := index[name]
		if !ok {
			pos = len(sections)
			index[name] = pos
			sections = append(sections, Section{Name: name})
		}
		sections[pos].Items = append(sections[pos].Items, Item{Label: item.Label, Key: key})
	}

	collator := collate.New(language.Spanish)
	sort.SliceStable(sections, func(i, j int) bool {
		ni, iOK := phaseNumber(sections[i].Name)
		nj, jOK := phaseNumber(sections[j].Name)
		switch {
		case iOK && jOK:
			return ni < nj
		case iOK:
			return true
		case jOK:
			return false
		default:
			return collator.CompareString(sections[i].Name, sections[j].Name) < 0
		}
	})

	return sections, nil
}

// Catalog is the per-stage in-memory checklist cache. It is not safe for
// concurrent use on its own; the engine guards it with its own mutex.
type Catalog struct {
	sections []Section
}

// Load replaces the whole cache atomically; readers never observe a
// partially applied catalog.
func (c *Catalog) Load(raw []CatalogItem, defaultSection string) error {
	sections, err := BuildSections(raw, defaultSection)
	if err != nil {
		return err
	}
	c.sections = sections
	return nil
}

// Empty reports whether no catalog has been loaded yet.
func (c *Catalog) Empty() bool {
	return len(c.sections) == 0
}

// Sections returns a deep copy of the loaded sections.
func (c *Catalog) Sections() []Section {
	out := make([]Section, len(c.sections))
	for i, s := range c.sections {
		items := make([]Item, len(s.Items))
		copy(items, s.Items)
		out[i] = Section{Name: s.Name, Items: items}
	}
	return out
}

// Toggle flips one item's completion state.
func (c *Catalog) Toggle(sectionIndex, itemIndex int) error {
	if sectionIndex < 0 || sectionIndex >= len(c.sections) {
		return apperr.BadRequest("section index out of range")
	}
	items := c.sections[sectionIndex].Items
	if itemIndex < 0 || itemIndex >= len(items) {
		return apperr.BadRequest("item index out of range")
	}
	items[itemIndex].Done = !items[itemIndex].Done
	return nil
}

// SetByKey marks the item with the given column key. Unknown keys are
// ignored and reported false, never an error.
func (c *Catalog) SetByKey(key string, done bool) bool {
	for si := range c.sections {
		for ii := range c.sections[si].Items {
			if c.sections[si].Items[ii].Key == key {
				c.sections[si].Items[ii].Done = done
				return true
			}
		}
	}
	return false
}

// ClearSection unchecks every item in one section.
func (c *Catalog) ClearSection(sectionIndex int) error {
	if sectionIndex < 0 || sectionIndex >= len(c.sections) {
		return apperr.BadRequest("section index out of range")
	}
	for i := range c.sections[sectionIndex].Items {
		c.sections[sectionIndex].Items[i].Done = false
	}
	return nil
}

// ClearAll unchecks every item in every section.
func (c *Catalog) ClearAll() {
	for si := range c.sections {
		for ii := range c.sections[si].Items {
			c.sections[si].Items[ii].Done = false
		}
	}
}

// SectionPercent returns round(done/total*100) for one section, 0 when the
// section is empty or the index is out of range.
func (c *Catalog) SectionPercent(sectionIndex int) int {
	if sectionIndex < 0 || sectionIndex >= len(c.sections) {
		return 0
	}
	items := c.sections[sectionIndex].Items
	if len(items) == 0 {
		return 0
	}
	done := 0
	for _, item := range items {
		if item.Done {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(items)) * 100))
}

// Percents returns the percent-complete of every section in order.
func (c *Catalog) Percents() []int {
	out := make([]int, len(c.sections))
	for i := range c.sections {
		out[i] = c.SectionPercent(i)
	}
	return out
}

// Complete reports whether every section is non-empty and fully checked.
// An empty catalog is never complete.
func (c *Catalog) Complete() bool {
	if len(c.sections) == 0 {
		return false
	}
	for _, s := range c.sections {
		if len(s.Items) == 0 {
			return false
		}
		for _, item := range s.Items {
			if !item.Done {
				return false
			}
		}
	}
	return true
}

// Checks returns the current completion state keyed by column key.
func (c *Catalog) Checks() map[string]bool {
	out := make(map[string]bool)
	for _, s := range c.sections {
		for _, item := range s.Items {
			out[item.Key] = item.Done
		}
	}
	return out
}
