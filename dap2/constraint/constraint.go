// Package constraint parses the OPeNDAP constraint expression portion of a
// query string: a comma-separated list of variable or structure-member
// references, each with an optional attached hyperslab.
package constraint

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/scigolib/dapd/dap2/hyperslab"
)

// ErrBadConstraint is the sentinel wrapped by every parse failure.
var ErrBadConstraint = errors.New("bad constraint")

// Item is one constraint entry: either a bare Variable or a StructureMember.
type Item struct {
	// Variable is set when this item names a top-level variable.
	Variable string

	// Parent and Member are set when this item dots into a structure member
	// (Parent.Member); Variable is left empty in that case.
	Parent string
	Member string

	// Slab is the optional hyperslab attached to the leaf name; nil means
	// the full extent was requested.
	Slab []hyperslab.Slab
}

// IsStructureMember reports whether this item dotted into a structure.
func (it Item) IsStructureMember() bool {
	return it.Parent != ""
}

// Parse parses a raw (undecoded) query string into constraint items. An
// empty query string yields an empty, non-nil slice.
func Parse(query string) ([]Item, error) {
	if query == "" {
		return []Item{}, nil
	}

	rawItems := strings.Split(query, ",")
	items := make([]Item, 0, len(rawItems))

	for _, raw := range rawItems {
		decoded, err := url.QueryUnescape(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadConstraint, err)
		}

		item, err := parseItem(decoded)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, nil
}

func parseItem(s string) (Item, error) {
	if dot := strings.Index(s, "."); dot >= 0 {
		parent := s[:dot]
		rest := s[dot+1:]

		member, slab, err := splitLeaf(rest)
		if err != nil {
			return Item{}, err
		}

		if parent == "" || member == "" {
			return Item{}, fmt.Errorf("%w: empty name in %q", ErrBadConstraint, s)
		}

		return Item{Parent: parent, Member: member, Slab: slab}, nil
	}

	name, slab, err := splitLeaf(s)
	if err != nil {
		return Item{}, err
	}
	if name == "" {
		return Item{}, fmt.Errorf("%w: empty variable name", ErrBadConstraint)
	}

	return Item{Variable: name, Slab: slab}, nil
}

func splitLeaf(s string) (name string, slab []hyperslab.Slab, err error) {
	bracket := strings.Index(s, "[")
	if bracket < 0 {
		return s, nil, nil
	}

	name = s[:bracket]
	slab, err = hyperslab.Parse(s[bracket:])
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadConstraint, err)
	}

	return name, slab, nil
}
