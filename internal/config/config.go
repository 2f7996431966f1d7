package config

// Config holds configuration options for the inlining process
type Config struct {
	// RemoveStyleTags removes <style> tags after inlining; the target
	// editor discards them on paste anyway
	RemoveStyleTags bool `yaml:"remove_style_tags"`

	// StripClasses removes class attributes once their rules are inlined
	StripClasses bool `yaml:"strip_classes"`

	// HideHeadingAffixes forces heading prefix/suffix spans back to
	// display: none after theme rules are applied
	HideHeadingAffixes bool `yaml:"hide_heading_affixes"`

	// NormalizeColors rewrites opaque rgba(r, g, b, 1) values as rgb(r, g, b)
	NormalizeColors bool `yaml:"normalize_colors"`

	// DropProperties lists properties that are never written inline
	DropProperties []string `yaml:"drop_properties"`
}

// Default returns the configuration the editor's own output matches
func Default() Config {
	return Config{
		RemoveStyleTags:    true,
		StripClasses:       false, // Themes reuse class names in pasted markup
		HideHeadingAffixes: true,
		NormalizeColors:    true,
		DropProperties:     []string{"content"}, // Only meaningful on pseudo-elements
	}
}

// Drops reports whether property is excluded from inline output
func (c Config) Drops(property string) bool {
	for _, p := range c.DropProperties {
		if p == property {
			return true
		}
	}
	return false
}
