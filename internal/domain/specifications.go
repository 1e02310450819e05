package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// GeneralCategory collects specifications that arrive without a category
const GeneralCategory = "General"

// Spec is a single specification entry
type Spec struct {
	Name  string
	Value string
}

// SpecGroup is an ordered set of specifications under one category
type SpecGroup struct {
	Category string
	Items    []Spec
}

// Specifications is an ordered category -> (name -> value) mapping. On the
// wire it is a JSON object of objects; order is preserved in both directions.
// A scalar at the top level lands in the General category.
type Specifications []SpecGroup

// Add appends a specification, creating the category group on first use.
// Repeated names within a category keep the first value.
func (s *Specifications) Add(category, name, value string) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = GeneralCategory
	}
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" {
		return
	}
	for i := range *s {
		g := &(*s)[i]
		if g.Category != category {
			continue
		}
		for _, it := range g.Items {
			if it.Name == name {
				return
			}
		}
		g.Items = append(g.Items, Spec{Name: name, Value: value})
		return
	}
	*s = append(*s, SpecGroup{Category: category, Items: []Spec{{Name: name, Value: value}}})
}

// Lookup returns the value of name within category
func (s Specifications) Lookup(category, name string) (string, bool) {
	for _, g := range s {
		if g.Category != category {
			continue
		}
		for _, it := range g.Items {
			if it.Name == name {
				return it.Value, true
			}
		}
	}
	return "", false
}

// MarshalJSON writes the groups as an ordered JSON object
func (s Specifications) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, g.Category); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, it := range g.Items {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, it.Name); err != nil {
				return nil, err
			}
			v, err := json.Marshal(it.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}

// UnmarshalJSON reads an object of objects, keeping key order
func (s *Specifications) UnmarshalJSON(data []byte) error {
	*s = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	var out Specifications
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok && d == '{' {
			g := SpecGroup{Category: key}
			for dec.More() {
				name, err := readKey(dec)
				if err != nil {
					return err
				}
				val, err := readScalar(dec)
				if err != nil {
					return fmt.Errorf("specification %q: %w", name, err)
				}
				g.Items = append(g.Items, Spec{Name: name, Value: val})
			}
			if err := expectDelim(dec, '}'); err != nil {
				return err
			}
			for _, it := range g.Items {
				out.Add(g.Category, it.Name, it.Value)
			}
			if len(g.Items) == 0 {
				out = append(out, SpecGroup{Category: key})
			}
			continue
		}
		var val string
		if _, ok := tok.(json.Delim); ok {
			val, err = flatten(dec)
		} else {
			val, err = scalarString(tok)
		}
		if err != nil {
			return fmt.Errorf("specification %q: %w", key, err)
		}
		out.Add(GeneralCategory, key, val)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	*s = out
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func readScalar(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	if _, ok := tok.(json.Delim); ok {
		return flatten(dec)
	}
	return scalarString(tok)
}

// flatten consumes the rest of a container whose opening delimiter was
// already read and joins its scalar values.
func flatten(dec *json.Decoder) (string, error) {
	depth := 1
	var parts []string
	for depth > 0 {
		t, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch v := t.(type) {
		case json.Delim:
			if v == '{' || v == '[' {
				depth++
			} else {
				depth--
			}
		default:
			if s, err := scalarString(v); err == nil && s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, ", "), nil
}

func scalarString(tok json.Token) (string, error) {
	switch v := tok.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("unexpected token %v", tok)
	}
}

// FlexString accepts a JSON string, number or boolean and keeps it as text.
// Providers return model numbers and prices in either form.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	s, err := scalarString(tok)
	if err != nil {
		return err
	}
	*f = FlexString(s)
	return nil
}

func (f FlexString) String() string { return string(f) }
