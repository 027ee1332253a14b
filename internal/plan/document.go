package plan

import (
	"encoding/json"
	"errors"

	"github.com/mohammad-safakhou/accountplan/internal/helpers"
)

// Fallback holds a model reply that was not a JSON object.
type Fallback struct {
	RawOutput string
	Extra     map[string]json.RawMessage
}

// Document is either a typed AccountPlan or a Fallback; exactly one is set.
type Document struct {
	plan     *AccountPlan
	fallback *Fallback
}

// FromPlan wraps a typed plan.
func FromPlan(p *AccountPlan) *Document {
	if p == nil {
		p = &AccountPlan{}
	}
	return &Document{plan: p}
}

// FromRaw wraps unparseable model output.
func FromRaw(text string) *Document {
	return &Document{fallback: &Fallback{RawOutput: text}}
}

// Parse interprets a model reply. A leading code fence is stripped; a JSON
// object becomes a typed plan, anything else is kept as raw output.
func Parse(text string) *Document {
	clean := helpers.StripCodeFence(text)
	var p AccountPlan
	if err := json.Unmarshal([]byte(clean), &p); err != nil {
		return FromRaw(text)
	}
	return FromPlan(&p)
}

// Plan returns the typed variant.
func (d *Document) Plan() (*AccountPlan, bool) {
	if d == nil || d.plan == nil {
		return nil, false
	}
	return d.plan, true
}

// Fallback returns the raw variant.
func (d *Document) Fallback() (*Fallback, bool) {
	if d == nil || d.fallback == nil {
		return nil, false
	}
	return d.fallback, true
}

// CompanyName returns the plan's company_name, if typed and present.
func (d *Document) CompanyName() string {
	if p, ok := d.Plan(); ok && p.CompanyName != nil {
		return *p.CompanyName
	}
	return ""
}

// String renders the document as compact JSON.
func (d *Document) String() string {
	b, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Indent renders the document as indented JSON for prompts.
func (d *Document) Indent() string {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (d *Document) MarshalJSON() ([]byte, error) {
	switch {
	case d == nil:
		return []byte("null"), nil
	case d.plan != nil:
		return json.Marshal(d.plan)
	case d.fallback != nil:
		b := newBuilder()
		b.set("raw_output", d.fallback.RawOutput)
		return b.finish(d.fallback.Extra)
	default:
		return []byte("{}"), nil
	}
}

// UnmarshalJSON restores a stored document. An object whose only string key
// is raw_output and that carries no schema keys is the fallback variant.
func (d *Document) UnmarshalJSON(data []byte) error {
	o, err := decodeObject(data)
	if err != nil {
		return errors.New("plan document must be a JSON object")
	}
	return d.fromObject(o)
}

func (d *Document) fromObject(o object) error {
	if isFallbackObject(o) {
		var raw string
		if err := json.Unmarshal(o["raw_output"], &raw); err != nil {
			return err
		}
		delete(o, "raw_output")
		*d = Document{fallback: &Fallback{RawOutput: raw, Extra: extraOrNil(o)}}
		return nil
	}
	data, err := json.Marshal(map[string]json.RawMessage(o))
	if err != nil {
		return err
	}
	var p AccountPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Document{plan: &p}
	return nil
}

func isFallbackObject(o object) bool {
	raw, ok := o["raw_output"]
	if !ok {
		return false
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return false
	}
	for key := range o {
		if Section(key).Known() {
			return false
		}
	}
	return true
}
