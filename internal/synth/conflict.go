package synth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mohammad-safakhou/accountplan/internal/docstore"
)

const (
	TopicRevenue   = "revenue"
	TopicEmployees = "employees"
)

// ConflictValue is one reported value and the sources that gave it.
type ConflictValue struct {
	Value   string   `json:"value"`
	Sources []string `json:"sources"`
}

// Conflict lists the distinct values found for one topic.
type Conflict struct {
	Topic  string
	Values []ConflictValue
}

// Conflicts encodes as a JSON object keyed by topic, in detection order.
type Conflicts []Conflict

// First returns the topic to ask the user about.
func (c Conflicts) First() (string, bool) {
	if len(c) == 0 {
		return "", false
	}
	return c[0].Topic, true
}

func (c Conflicts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, conflict := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(conflict.Topic)
		if err != nil {
			return nil, err
		}
		values, err := json.Marshal(conflict.Values)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(values)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ConflictDetector inspects retrieved documents for disagreeing facts.
type ConflictDetector interface {
	Detect(docs []docstore.Document) Conflicts
	// Note is the progress line recorded when conflicts are reported.
	Note(topic string) string
}

var (
	revenuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$([\d\.,]+\s?(?:billion|million|bn|m))`),
		regexp.MustCompile(`revenue(?:\s*[:\-]?\s*)([\d\.,]+\s?(?:billion|million|bn|m))`),
	}
	employeePatterns = []*regexp.Regexp{
		regexp.MustCompile(`([\d\.,]+\s?employees)`),
		regexp.MustCompile(`([\d\.,]+\s?staff)`),
	}
)

// Heuristic compares revenue and headcount figures mentioned across docs.
type Heuristic struct{}

func (Heuristic) Detect(docs []docstore.Document) Conflicts {
	var out Conflicts
	if values := scan(docs, revenuePatterns); len(values) > 1 {
		out = append(out, Conflict{Topic: TopicRevenue, Values: values})
	}
	if values := scan(docs, employeePatterns); len(values) > 1 {
		out = append(out, Conflict{Topic: TopicEmployees, Values: values})
	}
	return out
}

func (Heuristic) Note(topic string) string {
	return fmt.Sprintf("Detected conflicts on %s. Asking user to dig deeper.", topic)
}

// scan takes the first match of each pattern in each doc and groups the
// values in first-seen order.
func scan(docs []docstore.Document, patterns []*regexp.Regexp) []ConflictValue {
	var values []ConflictValue
	index := map[string]int{}
	for _, doc := range docs {
		text := strings.ToLower(doc.Text)
		src := sourceID(doc)
		for _, re := range patterns {
			m := re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			val := strings.TrimSpace(m[1])
			i, seen := index[val]
			if !seen {
				i = len(values)
				index[val] = i
				values = append(values, ConflictValue{Value: val})
			}
			values[i].Sources = append(values[i].Sources, src)
		}
	}
	return values
}

func sourceID(doc docstore.Document) string {
	switch {
	case doc.URL != "":
		return doc.URL
	case doc.Title != "":
		return doc.Title
	default:
		return "source"
	}
}

// Forced always reports the same revenue conflict. It is used for demos.
type Forced struct{}

func (Forced) Detect([]docstore.Document) Conflicts {
	return Conflicts{{
		Topic: TopicRevenue,
		Values: []ConflictValue{
			{Value: "4B", Sources: []string{"Wikipedia"}},
			{Value: "6B", Sources: []string{"News report"}},
		},
	}}
}

func (Forced) Note(topic string) string {
	return fmt.Sprintf("Forced conflict mode ON: simulating conflict on %s.", topic)
}

// NewConflictDetector returns Forced when force is set, else Heuristic.
func NewConflictDetector(force bool) ConflictDetector {
	if force {
		return Forced{}
	}
	return Heuristic{}
}
