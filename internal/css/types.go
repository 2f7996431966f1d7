package css

import (
	"strings"

	"github.com/andybalholm/cascadia"
)

// Specificity represents CSS specificity with individual components
// Ranked as IDs, then classes/attributes/pseudo-classes, then elements
// Inline declarations are not ranked here; the resolver applies them last
type Specificity struct {
	IDs       int  // #id selectors
	Classes   int  // .class, [attr], :pseudo-class
	Elements  int  // element, ::pseudo-element
	Important bool // !important flag
}

// Compare returns -1 if s < other, 0 if equal, 1 if s > other
// Important declarations always win regardless of specificity
func (s Specificity) Compare(other Specificity) int {
	if s.Important != other.Important {
		if s.Important {
			return 1
		}
		return -1
	}

	for _, pair := range [][2]int{
		{s.IDs, other.IDs},
		{s.Classes, other.Classes},
		{s.Elements, other.Elements},
	} {
		if pair[0] != pair[1] {
			if pair[0] > pair[1] {
				return 1
			}
			return -1
		}
	}

	return 0
}

// SpecificityFromSelector converts cascadia's (ids, classes, elements) triple
func SpecificityFromSelector(sel cascadia.Sel) Specificity {
	spec := sel.Specificity()
	return Specificity{IDs: spec[0], Classes: spec[1], Elements: spec[2]}
}

// Rule represents a single CSS rule with one selector and its declarations
type Rule struct {
	Selector     string        // Original selector text
	Sel          cascadia.Sel  // Compiled selector
	Specificity  Specificity   // Calculated specificity
	Declarations []Declaration // Declarations in source order
	SourceOrder  int           // Order in original CSS (for tie-breaking)
}

// Declaration represents a single CSS property declaration
type Declaration struct {
	Property  string // CSS property name (normalized)
	Value     string // CSS property value
	Important bool   // !important flag
}

func (d Declaration) String() string {
	value := d.Value
	if d.Important {
		value += " !important"
	}
	return d.Property + ": " + value + ";"
}

// Stylesheet represents the complete parsed CSS with all rules
type Stylesheet struct {
	Rules   []Rule // All inlinable CSS rules in source order
	Skipped int    // Selectors cascadia rejected or that target pseudo-elements
}

// FormatDeclarations renders declarations as the value of a style attribute
func FormatDeclarations(decls []Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, " ")
}
