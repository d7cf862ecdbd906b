package parse

// Package conf implements the hierarchical "section param { key = value }"
// configuration format as a tree-building convenience layer over the
// streaming cursor in parse/conf.
//
// Scope:
// - Full-file parse into an ordered section tree
// - Selector-based lookup helpers
// - Section isolation by selector chain (skip non-matching siblings,
//   isolate the match)
//
// Non-goals (by design):
// - Schema validation
// - Mapping onto typed structures
// - Write-back / round-trip formatting

import (
	"fmt"

	"github.com/dzjyyds666/cq/parse/conf"
)

// =========================
// Section Tree
// =========================

type ConfSection struct {
	Name     string
	Param    string
	Keys     map[string]string
	Children []*ConfSection
}

func NewConfSection(name, param string) *ConfSection {
	return &ConfSection{
		Name:  name,
		Param: param,
		Keys:  make(map[string]string),
	}
}

// =========================
// Public API
// =========================

// ParseConf parses the whole file at path into a section tree. The root
// section is unnamed and holds the top-level keys and sections.
func ParseConf(path string) (*ConfSection, error) {
	c, err := conf.Open(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	root := NewConfSection("", "")
	if err := readBody(c, root, 0); err != nil {
		return nil, err
	}

	return root, nil
}

// ReadConf builds a section tree by draining an already-open cursor, e.g.
// one produced by IsolateConf. The cursor is not closed.
func ReadConf(c *conf.Config, name, param string) (*ConfSection, error) {
	root := NewConfSection(name, param)
	if err := readBody(c, root, 0); err != nil {
		return nil, err
	}

	return root, nil
}

// IsolateConf opens path and returns an independent cursor bounded to the
// body of the section named by the selector chain. Each selector element is
// either a section name or "name/param". Sections that do not match are
// skipped without parsing their contents.
func IsolateConf(path string, selector ...string) (*conf.Config, error) {
	c, err := conf.Open(path)
	if err != nil {
		return nil, err
	}
	if len(selector) == 0 {
		return c, nil
	}
	defer c.Close()

	return isolateIn(c, selector)
}

// =========================
// Tree Building
// =========================

func readBody(c *conf.Config, s *ConfSection, depth int) error {
	var l conf.Line
	for c.ReadLine(&l) {
		switch l.Type {
		case conf.LineKeyValue:
			s.Keys[l.Key] = l.Value
		case conf.LineSection:
			child := NewConfSection(l.Name, l.Param)
			s.Children = append(s.Children, child)
			if err := readBody(c, child, depth+1); err != nil {
				return err
			}
		case conf.LineSectionEnd:
			if depth == 0 {
				return fmt.Errorf("conf:%d: unbalanced section close", c.Line())
			}

			return nil
		}
	}
	if err := c.Err(); err != nil {
		return err
	}
	if depth != 0 {
		return fmt.Errorf("conf:%d: unterminated section %q", c.Line(), s.Name)
	}

	return nil
}

// =========================
// Isolation by Selector
// =========================

func isolateIn(c *conf.Config, selector []string) (*conf.Config, error) {
	var l conf.Line
	for c.ReadLine(&l) {
		if l.Type != conf.LineSection {
			continue
		}
		if !matchSelector(l.Name, l.Param, selector[0]) {
			if !c.SkipSection(&l) {
				if err := c.Err(); err != nil {
					return nil, err
				}

				return nil, fmt.Errorf("conf: unterminated section %q", l.Name)
			}
			continue
		}

		sub, ok := c.IsolateSection(&l)
		if !ok {
			return nil, c.Err()
		}
		if len(selector) == 1 {
			return sub, nil
		}
		nested, err := isolateIn(sub, selector[1:])
		sub.Close()

		return nested, err
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	return nil, fmt.Errorf("conf: section %q not found", selector[0])
}

func matchSelector(name, param, sel string) bool {
	if sel == name {
		return true
	}

	return param != "" && sel == name+"/"+param
}

// =========================
// Safe Access Helpers
// =========================

// GetSection resolves a selector chain against the tree, matching each
// element by name or "name/param".
func GetSection(root *ConfSection, selector ...string) (*ConfSection, bool) {
	cur := root
	for _, sel := range selector {
		var next *ConfSection
		for _, child := range cur.Children {
			if matchSelector(child.Name, child.Param, sel) {
				next = child
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}

	return cur, true
}

// GetKey resolves a selector chain whose last element names a key in the
// section reached by the preceding elements.
func GetKey(root *ConfSection, selector ...string) (string, bool) {
	if len(selector) == 0 {
		return "", false
	}
	sec, ok := GetSection(root, selector[:len(selector)-1]...)
	if !ok {
		return "", false
	}
	v, ok := sec.Keys[selector[len(selector)-1]]

	return v, ok
}
