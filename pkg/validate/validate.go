// Package validate checks request payloads against declared shapes. A schema
// application either accepts (returning coerced, sanitized data) or rejects
// with the complete list of field errors, never just the first.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"quill/pkg/httpx"
	"quill/pkg/oid"
)

type Kind int

const (
	String Kind = iota
	Int
	Bool
	IDRef
	StringSlice
	Object
)

// Field declares one input field. Zero values mean "no constraint"; a
// sanitizer, when set, runs before any refinement so rules only ever see
// clean text.
type Field struct {
	Kind     Kind
	Required bool

	Sanitize func(any) any

	// string refinements
	Trim     bool
	MinLen   int
	MaxLen   int
	Email    bool
	Password bool

	// int refinements; Max==0 means unbounded
	Min int
	Max int

	// element constraints for StringSlice
	Each *Field

	// nested shape for Object
	Fields Schema
}

type Schema map[string]*Field

// Apply validates input against the schema. On success the returned map
// holds only declared fields, coerced and sanitized; on failure the error
// list covers every violated field.
func (s Schema) Apply(input map[string]any) (map[string]any, []httpx.FieldError) {
	clean, errs := s.apply("", input)
	sort.Slice(errs, func(i, j int) bool {
		if errs[i].Path != errs[j].Path {
			return errs[i].Path < errs[j].Path
		}
		return errs[i].Message < errs[j].Message
	})
	if len(errs) > 0 {
		return nil, errs
	}
	return clean, nil
}

func (s Schema) apply(prefix string, input map[string]any) (map[string]any, []httpx.FieldError) {
	clean := map[string]any{}
	var errs []httpx.FieldError
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		field := s[name]
		path := joinPath(prefix, name)
		raw, present := input[name]
		if !present || raw == nil {
			if field.Required {
				errs = append(errs, httpx.FieldError{Path: path, Message: name + " is required"})
			}
			continue
		}
		value, fieldErrs := field.check(path, raw)
		if len(fieldErrs) > 0 {
			errs = append(errs, fieldErrs...)
			continue
		}
		clean[name] = value
	}
	return clean, errs
}

func (f *Field) check(path string, raw any) (any, []httpx.FieldError) {
	switch f.Kind {
	case String:
		return f.checkString(path, raw)
	case Int:
		return f.checkInt(path, raw)
	case Bool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
		return nil, []httpx.FieldError{{Path: path, Message: "must be a boolean"}}
	case IDRef:
		s, ok := raw.(string)
		if !ok {
			return nil, []httpx.FieldError{{Path: path, Message: "must be a string"}}
		}
		id, err := oid.Parse(s)
		if err != nil {
			return nil, []httpx.FieldError{{Path: path, Message: "must be a valid id"}}
		}
		return id.String(), nil
	case StringSlice:
		return f.checkSlice(path, raw)
	case Object:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, []httpx.FieldError{{Path: path, Message: "must be an object"}}
		}
		return f.Fields.apply(path, m)
	default:
		return nil, []httpx.FieldError{{Path: path, Message: "unsupported field kind"}}
	}
}

func (f *Field) checkString(path string, raw any) (any, []httpx.FieldError) {
	s, ok := raw.(string)
	if !ok {
		return nil, []httpx.FieldError{{Path: path, Message: "must be a string"}}
	}
	if f.Sanitize != nil {
		s, _ = f.Sanitize(s).(string)
	}
	if f.Trim {
		s = strings.TrimSpace(s)
	}
	var errs []httpx.FieldError
	if f.Password {
		errs = append(errs, passwordViolations(path, s)...)
	}
	if f.Required && !f.Password && strings.TrimSpace(s) == "" {
		errs = append(errs, httpx.FieldError{Path: path, Message: "must not be empty"})
	}
	runes := len([]rune(s))
	if f.MinLen > 0 && runes < f.MinLen {
		errs = append(errs, httpx.FieldError{Path: path, Message: fmt.Sprintf("must be at least %d characters", f.MinLen)})
	}
	if f.MaxLen > 0 && runes > f.MaxLen {
		errs = append(errs, httpx.FieldError{Path: path, Message: fmt.Sprintf("must be at most %d characters", f.MaxLen)})
	}
	if f.Email && !emailPattern.MatchString(s) {
		errs = append(errs, httpx.FieldError{Path: path, Message: "must be a valid email address"})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return s, nil
}

func (f *Field) checkInt(path string, raw any) (any, []httpx.FieldError) {
	var n int
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return nil, []httpx.FieldError{{Path: path, Message: "must be an integer"}}
		}
		n = int(v)
	case int:
		n = v
	default:
		return nil, []httpx.FieldError{{Path: path, Message: "must be an integer"}}
	}
	var errs []httpx.FieldError
	if n < f.Min {
		errs = append(errs, httpx.FieldError{Path: path, Message: fmt.Sprintf("must be at least %d", f.Min)})
	}
	if f.Max > 0 && n > f.Max {
		errs = append(errs, httpx.FieldError{Path: path, Message: fmt.Sprintf("must be at most %d", f.Max)})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return n, nil
}

func (f *Field) checkSlice(path string, raw any) (any, []httpx.FieldError) {
	items, ok := raw.([]any)
	if !ok {
		return nil, []httpx.FieldError{{Path: path, Message: "must be an array of strings"}}
	}
	elem := f.Each
	if elem == nil {
		elem = &Field{Kind: String}
	}
	out := make([]string, 0, len(items))
	var errs []httpx.FieldError
	for i, item := range items {
		itemPath := fmt.Sprintf("%s.%d", path, i)
		value, itemErrs := elem.check(itemPath, item)
		if len(itemErrs) > 0 {
			errs = append(errs, itemErrs...)
			continue
		}
		s, ok := value.(string)
		if !ok {
			errs = append(errs, httpx.FieldError{Path: itemPath, Message: "must be a string"})
			continue
		}
		out = append(out, s)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	passwordMinLen = 8
	passwordMaxLen = 128
)

// passwordViolations evaluates every policy predicate independently so a
// client sees all failures in one round trip.
func passwordViolations(path, s string) []httpx.FieldError {
	s = strings.TrimSpace(s)
	var errs []httpx.FieldError
	runes := []rune(s)
	if len(runes) < passwordMinLen {
		errs = append(errs, httpx.FieldError{Path: path, Message: fmt.Sprintf("must be at least %d characters", passwordMinLen)})
	}
	if len(runes) > passwordMaxLen {
		errs = append(errs, httpx.FieldError{Path: path, Message: fmt.Sprintf("must be at most %d characters", passwordMaxLen)})
	}
	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	if !hasUpper {
		errs = append(errs, httpx.FieldError{Path: path, Message: "must contain an uppercase letter"})
	}
	if !hasDigit {
		errs = append(errs, httpx.FieldError{Path: path, Message: "must contain a digit"})
	}
	if !hasSymbol {
		errs = append(errs, httpx.FieldError{Path: path, Message: "must contain a symbol"})
	}
	return errs
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
