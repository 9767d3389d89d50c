package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Fragment is one piece of a compiled expression.
//
// This is a sealed interface - only types in this package implement it:
//   - Text: literal expression text
//   - FieldFragment: reference to a field by path
//   - ParameterFragment: reference to a source parameter
//   - AggregateFragment: aggregate function application
//   - DialectFragment: dialect-specific function (time truncation, casts)
type Fragment interface {
	fragment()
}

// Text is literal expression text.
type Text string

func (Text) fragment() {}

// FieldFragment references a field by (possibly dotted) path.
type FieldFragment struct {
	Path string `json:"path"`
}

func (FieldFragment) fragment() {}

// ParameterFragment references a parameter of the enclosing source.
type ParameterFragment struct {
	Path string `json:"path"`
}

func (ParameterFragment) fragment() {}

// AggregateFragment applies an aggregate function.
// E is empty for count(*).
type AggregateFragment struct {
	Function   string    `json:"function"`
	E          Fragments `json:"e"`
	StructPath string    `json:"struct_path,omitempty"`
}

func (AggregateFragment) fragment() {}

// DialectFragment is a function whose rendering depends on the SQL dialect.
type DialectFragment struct {
	Function  string    `json:"function"`
	E         Fragments `json:"e"`
	ValueType FieldType `json:"value_type,omitempty"`
	Units     string    `json:"units,omitempty"`
}

func (DialectFragment) fragment() {}

// Fragments is a compiled expression: an ordered list of fragments.
// A nil Fragments means "no value" (used for unbound parameters).
type Fragments []Fragment

// Mk builds Fragments from strings and fragments. Strings become Text.
func Mk(parts ...any) Fragments {
	out := make(Fragments, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			out = append(out, Text(v))
		case Fragment:
			out = append(out, v)
		case Fragments:
			out = append(out, v...)
		default:
			panic(fmt.Sprintf("model.Mk: unsupported part %T", p))
		}
	}
	return out
}

// Compress merges adjacent Text fragments and drops empty ones.
func Compress(frags Fragments) Fragments {
	out := make(Fragments, 0, len(frags))
	var pending strings.Builder
	flush := func() {
		if pending.Len() > 0 {
			out = append(out, Text(pending.String()))
			pending.Reset()
		}
	}
	for _, f := range frags {
		if t, ok := f.(Text); ok {
			pending.WriteString(string(t))
			continue
		}
		flush()
		out = append(out, f)
	}
	flush()
	return out
}

// String renders fragments for diagnostics and debugging.
func (fs Fragments) String() string {
	var b strings.Builder
	for _, f := range fs {
		switch v := f.(type) {
		case Text:
			b.WriteString(string(v))
		case FieldFragment:
			b.WriteString(v.Path)
		case ParameterFragment:
			b.WriteString("$" + v.Path)
		case AggregateFragment:
			if v.StructPath != "" {
				b.WriteString(v.StructPath + ".")
			}
			fmt.Fprintf(&b, "%s(%s)", v.Function, v.E.String())
		case DialectFragment:
			if v.Units != "" {
				fmt.Fprintf(&b, "%s(%s, %s)", v.Function, v.E.String(), v.Units)
			} else {
				fmt.Fprintf(&b, "%s(%s)", v.Function, v.E.String())
			}
		}
	}
	return b.String()
}

// MarshalJSON encodes Text as a JSON string and other fragments as tagged objects.
func (fs Fragments) MarshalJSON() ([]byte, error) {
	if fs == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalFragment(f)
		if err != nil {
			return nil, fmt.Errorf("fragment[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalFragment(f Fragment) ([]byte, error) {
	switch v := f.(type) {
	case Text:
		return json.Marshal(string(v))
	case FieldFragment:
		return json.Marshal(struct {
			Type string `json:"type"`
			FieldFragment
		}{"field", v})
	case ParameterFragment:
		return json.Marshal(struct {
			Type string `json:"type"`
			ParameterFragment
		}{"parameter", v})
	case AggregateFragment:
		return json.Marshal(struct {
			Type string `json:"type"`
			AggregateFragment
		}{"aggregate", v})
	case DialectFragment:
		return json.Marshal(struct {
			Type string `json:"type"`
			DialectFragment
		}{"dialect", v})
	default:
		return nil, fmt.Errorf("unsupported fragment type: %T", f)
	}
}

// UnmarshalJSON implements json.Unmarshaler for Fragments.
func (fs *Fragments) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*fs = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Fragments, len(raw))
	for i, r := range raw {
		f, err := unmarshalFragment(r)
		if err != nil {
			return fmt.Errorf("fragment[%d]: %w", i, err)
		}
		out[i] = f
	}
	*fs = out
	return nil
}

func unmarshalFragment(data []byte) (Fragment, error) {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return Text(s), nil
	}
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case "field":
		var f FieldFragment
		err := json.Unmarshal(data, &f)
		return f, err
	case "parameter":
		var f ParameterFragment
		err := json.Unmarshal(data, &f)
		return f, err
	case "aggregate":
		var f AggregateFragment
		err := json.Unmarshal(data, &f)
		return f, err
	case "dialect":
		var f DialectFragment
		err := json.Unmarshal(data, &f)
		return f, err
	default:
		return nil, fmt.Errorf("unknown fragment type %q", tag.Type)
	}
}
