package taxonomy

import (
	"sort"
	"strings"
)

// minStoreIDLength is the shortest all-digit token treated as a store id
const minStoreIDLength = 6

// maxOptionSuffix is how many trailing characters a token may carry past an
// option and still match it (plurals, diminutives)
const maxOptionSuffix = 3

// StoreCategories are the fixed categories configured for a vendor store
type StoreCategories struct {
	General   string
	Secondary string
}

// Classification is the canonical tag set derived for one product
type Classification struct {
	General     string
	Sub         string
	Specifics   []string
	SpecificTag string
	StoreID     string
	Audience    string
}

// Positional returns the hierarchical result [general, sub, specifics...]
// followed by [storeId, audience], keeping empty placeholders
func (c Classification) Positional() []string {
	out := []string{c.General, c.Sub}
	if len(c.Specifics) == 0 {
		out = append(out, "")
	} else {
		out = append(out, c.Specifics...)
	}
	return append(out, c.StoreID, c.Audience)
}

// Tags returns the non-empty positional entries and then the synonym tag,
// without duplicates, in order
func (c Classification) Tags() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range append(c.Positional(), c.SpecificTag) {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Classifier derives classifications from closed vocabularies. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	tables       Tables
	generals     map[string]struct{}
	synonymKeys  map[string][]string
	overrideKeys []string
}

// NewClassifier creates a classifier over the default tables
func NewClassifier() *Classifier {
	return NewClassifierWithTables(DefaultTables())
}

// NewClassifierWithTables creates a classifier over custom tables
func NewClassifierWithTables(tables Tables) *Classifier {
	c := &Classifier{
		tables:      tables,
		generals:    make(map[string]struct{}, len(tables.GeneralCategories)),
		synonymKeys: make(map[string][]string, len(tables.Synonyms)),
	}
	for _, g := range tables.GeneralCategories {
		c.generals[g] = struct{}{}
	}
	for general, syn := range tables.Synonyms {
		keys := make([]string, 0, len(syn))
		for k := range syn {
			keys = append(keys, k)
		}
		// substring fallback tries longer keys first
		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) > len(keys[j])
			}
			return keys[i] < keys[j]
		})
		c.synonymKeys[general] = keys
	}
	for k := range tables.Overrides {
		c.overrideKeys = append(c.overrideKeys, k)
	}
	sort.Strings(c.overrideKeys)
	return c
}

// Classify builds the classification of a product from its raw tags, category
// names and handles plus the store's configured categories
func (c *Classifier) Classify(raw []string, store StoreCategories) Classification {
	tokens := NewTokenSet(raw...)
	tokens.Add(store.General)
	tokens.Add(store.Secondary)

	sorted := tokens.Sorted()
	result := Classification{
		StoreID:  storeIDFrom(sorted),
		Audience: c.audienceFrom(sorted),
		General:  c.generalFrom(tokens, sorted),
	}
	result.SpecificTag = c.specificFrom(result.General, sorted)

	if result.General != "" {
		tokens[result.General] = struct{}{}
	}
	// the hierarchical pass stays within the general already chosen
	hier := c.assignHierarchical(tokens, result.General)
	if len(hier) == 0 {
		return result
	}
	if result.General == "" {
		result.General = hier[0]
		result.SpecificTag = c.specificFrom(result.General, sorted)
	}
	result.Sub = hier[1]
	if hier[1] != "" {
		result.Specifics = hier[2:]
	}
	return result
}

// AssignHierarchical walks the hierarchy table in order. For the first row whose
// general and sub category are both present it returns [general, sub, matched...]
// or [general, sub, "otro"] when nothing matched and "otro" is a valid option.
// When only the general category is present it returns [general, "", ""].
// It returns nil when no general category of the table is present.
func (c *Classifier) AssignHierarchical(tokens TokenSet) []string {
	return c.assignHierarchical(tokens, "")
}

// assignHierarchical is AssignHierarchical limited to the rows of general, or
// to every row when general is empty
func (c *Classifier) assignHierarchical(tokens TokenSet, general string) []string {
	var generalOnly string
	sorted := tokens.Sorted()

	for _, entry := range c.tables.Hierarchy {
		if general != "" && entry.General != general {
			continue
		}
		if !tokens.Has(entry.General) {
			continue
		}
		if generalOnly == "" {
			generalOnly = entry.General
		}
		if !tokens.Has(entry.Sub) {
			continue
		}

		matched := matchOptions(entry.Options, sorted)
		if len(matched) > 0 {
			return append([]string{entry.General, entry.Sub}, matched...)
		}
		if containsString(entry.Options, Other) {
			return []string{entry.General, entry.Sub, Other}
		}
	}

	if generalOnly != "" {
		return []string{generalOnly, "", ""}
	}
	return nil
}

func storeIDFrom(sorted []string) string {
	for _, t := range sorted {
		if len(t) >= minStoreIDLength && isDigits(t) {
			return t
		}
	}
	return ""
}

func (c *Classifier) audienceFrom(sorted []string) string {
	for _, t := range sorted {
		if a, ok := c.tables.Audience[t]; ok {
			return a
		}
	}
	return ""
}

func (c *Classifier) generalFrom(tokens TokenSet, sorted []string) string {
	for _, k := range c.overrideKeys {
		if tokens.Has(k) {
			return c.tables.Overrides[k]
		}
	}
	for _, t := range sorted {
		if _, ok := c.generals[t]; ok {
			return t
		}
	}
	return ""
}

func (c *Classifier) specificFrom(general string, sorted []string) string {
	if general == "" {
		return ""
	}
	syn := c.tables.Synonyms[general]
	for _, t := range sorted {
		if v, ok := syn[t]; ok {
			return v
		}
	}
	for _, t := range sorted {
		for _, k := range c.synonymKeys[general] {
			if strings.Contains(t, k) {
				return syn[k]
			}
		}
	}
	return Other
}

// matchOptions returns the options (in table order) matched by any token, either
// exactly or as a prefix followed by at most maxOptionSuffix characters
func matchOptions(options, sorted []string) []string {
	var matched []string
	for _, opt := range options {
		if opt == Other {
			continue
		}
		for _, t := range sorted {
			if t == opt || (strings.HasPrefix(t, opt) && len(t)-len(opt) <= maxOptionSuffix) {
				matched = append(matched, opt)
				break
			}
		}
	}
	return matched
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
