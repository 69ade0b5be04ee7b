package loam

// EntityMetadata is the front matter of a manifest document.
// Each document declares one slot, fragment or route, selected by Kind; a
// "settings" document carries engine-wide options.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type EntityMetadata struct {
	ID   string `json:"id" mapstructure:"id"`
	Kind string `json:"kind" mapstructure:"kind"`

	// Order sorts routes; lower values are matched first. Ties fall back to the ID.
	Order int `json:"order,omitempty" mapstructure:"order"`

	// Slot
	Selector      string `json:"selector,omitempty" mapstructure:"selector"`
	ErrorMarkup   string `json:"error_markup,omitempty" mapstructure:"error_markup"`
	LoadingMarkup string `json:"loading_markup,omitempty" mapstructure:"loading_markup"`

	// Fragment
	Slots  []string       `json:"slots,omitempty" mapstructure:"slots"`
	Source map[string]any `json:"source,omitempty" mapstructure:"source"`

	// Route. Fragments entries are names or {name, slot} mappings.
	Path      string   `json:"path,omitempty" mapstructure:"path"`
	Paths     []string `json:"paths,omitempty" mapstructure:"paths"`
	Fragments []any    `json:"fragments,omitempty" mapstructure:"fragments"`

	// Settings
	ImportTimeout string `json:"import_timeout,omitempty" mapstructure:"import_timeout"`
}

// Document kinds.
const (
	KindSlot     = "slot"
	KindFragment = "fragment"
	KindRoute    = "route"
	KindSettings = "settings"
)
