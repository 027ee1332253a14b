package plan

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrUnknownSection is returned for a nested path whose parent is not an
	// object in the plan.
	ErrUnknownSection = errors.New("section not recognized")
	// ErrNoPlan is returned when there is nothing to edit.
	ErrNoPlan = errors.New("no plan to edit")
)

// Patch is a parsed edit: Section alone addresses a top-level key,
// Section.Field a key inside a top-level object.
type Patch struct {
	Section Section
	Field   string
	Value   string
	nested  bool
}

// ParsePatch splits path on its first dot. Any further dots stay in Field.
func ParsePatch(path, value string) Patch {
	top, sub, nested := strings.Cut(path, ".")
	p := Patch{Section: Section(top), Value: value, nested: nested}
	if nested {
		p.Field = sub
	}
	return p
}

// Nested reports whether the patch addresses a field inside a section. A
// trailing dot addresses the empty key.
func (p Patch) Nested() bool { return p.nested }

func (p Patch) path() string {
	if p.Nested() {
		return string(p.Section) + "." + p.Field
	}
	return string(p.Section)
}

// Apply returns a copy of doc with the patch applied; doc is not modified.
//
// Nested: the parent must be an object. List-typed fields take a JSON array
// or, failing that, a one-element list; every other field takes the literal
// text. Top-level: an existing scalar is replaced by the literal text; an
// absent or structured value takes the text parsed as JSON when it parses,
// else the literal text.
func Apply(doc *Document, p Patch) (*Document, error) {
	if doc == nil {
		return nil, ErrNoPlan
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	o, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	key := string(p.Section)
	if p.Nested() {
		parent, err := decodeObject(o[key])
		if err != nil {
			return nil, ErrUnknownSection
		}
		parent[p.Field] = nestedValue(p.path(), p.Value)
		raw, err := json.Marshal(map[string]json.RawMessage(parent))
		if err != nil {
			return nil, err
		}
		o[key] = raw
	} else {
		o[key] = topLevelValue(o[key], p.Value)
	}

	var out Document
	if err := out.fromObject(o); err != nil {
		return nil, err
	}
	return &out, nil
}

func nestedValue(path, text string) json.RawMessage {
	if _, list := listFields[path]; list {
		var items []string
		if err := json.Unmarshal([]byte(text), &items); err == nil && items != nil {
			return mustMarshal(items)
		}
		return mustMarshal([]string{text})
	}
	return mustMarshal(text)
}

func topLevelValue(existing json.RawMessage, text string) json.RawMessage {
	if len(existing) > 0 && !isStructured(existing) {
		return mustMarshal(text)
	}
	if json.Valid([]byte(text)) {
		return json.RawMessage(strings.TrimSpace(text))
	}
	return mustMarshal(text)
}

// mustMarshal encodes strings and string lists, which cannot fail.
func mustMarshal(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
