package jsonbind

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Options controls deserialization of one call.
type Options struct {
	// StrictUnknownFields turns unrecognised keys into a *BindError.
	StrictUnknownFields bool

	// SkipVersionCheck binds objects whatever version they declare.
	SkipVersionCheck bool
}

func parseDocument(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &BindError{Reason: "malformed JSON", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &BindError{Reason: "malformed JSON: trailing data after document"}
	}
	return doc, nil
}

// mergeSiblings folds every "<field>2" key into its primary object.
func (r *Registry) mergeSiblings(s *Shape, raw map[string]any, path string) (map[string]any, error) {
	var view map[string]any
	for key, value := range raw {
		f, ok := r.siblingOf(s, key)
		if !ok || value == nil {
			continue
		}
		sibling, ok := value.(map[string]any)
		if !ok {
			return nil, bindErrorf(path+key, "expected object, got %s", describe(value))
		}
		if view == nil {
			view = make(map[string]any, len(raw))
			for k, v := range raw {
				view[k] = v
			}
		}
		primary, _ := raw[f.Name].(map[string]any)
		if raw[f.Name] != nil && primary == nil {
			return nil, bindErrorf(path+f.Name, "expected object, got %s", describe(raw[f.Name]))
		}
		view[f.Name] = r.shapes[f.Ref].Breaking.Merge(primary, sibling)
		delete(view, key)
	}
	if view == nil {
		return raw, nil
	}
	return view, nil
}

func (r *Registry) bindObject(s *Shape, raw map[string]any, path string, opts Options) (any, error) {
	raw, err := r.mergeSiblings(s, raw, path)
	if err != nil {
		return nil, err
	}

	if s.Versioned != nil && !opts.SkipVersionCheck {
		if version, ok := lookupString(raw, s.Versioned.Path); ok {
			if err := s.Versioned.Validate(version); err != nil {
				return nil, err
			}
		}
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	obj := s.New()
	for _, key := range keys {
		f := s.index[key]
		if f == nil {
			if _, sibling := r.siblingOf(s, key); sibling {
				continue
			}
			if opts.StrictUnknownFields {
				return nil, bindErrorf(path+key, "unknown field for %s", s.Name)
			}
			continue
		}
		value := raw[key]
		if value == nil {
			continue
		}
		v, err := r.bindValue(f, value, path+key, opts)
		if err != nil {
			return nil, err
		}
		f.set(obj, v)
	}
	return obj, nil
}

func (r *Registry) bindValue(f *Field, value any, path string, opts Options) (any, error) {
	switch f.Kind {
	case KindString:
		switch v := value.(type) {
		case string:
			return v, nil
		case json.Number:
			return v.String(), nil
		}
	case KindBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case KindInt, KindInt32, KindInt64:
		if n, ok := value.(json.Number); ok {
			return narrowInt(f.Kind, n, path)
		}
	case KindFloat32:
		if n, ok := value.(json.Number); ok {
			v, err := strconv.ParseFloat(n.String(), 32)
			if err != nil {
				return nil, &BindError{Path: path, Reason: "number out of range for float32", Err: err}
			}
			return float32(v), nil
		}
	case KindFloat64:
		if n, ok := value.(json.Number); ok {
			v, err := strconv.ParseFloat(n.String(), 64)
			if err != nil {
				return nil, &BindError{Path: path, Reason: "number out of range for float64", Err: err}
			}
			return v, nil
		}
	case KindTime:
		if s, ok := value.(string); ok {
			t, err := ParseDate(s)
			if err != nil {
				return nil, &BindError{Path: path, Reason: "date not in " + DateLayout + " form", Err: err}
			}
			return t, nil
		}
	case KindLocale:
		if s, ok := value.(string); ok {
			tag, err := ParseLocale(s)
			if err != nil {
				return nil, &BindError{Path: path, Reason: "invalid locale", Err: err}
			}
			return tag, nil
		}
	case KindEnum:
		if s, ok := value.(string); ok {
			enum := r.enums[f.Ref]
			variant, ok := enum.resolve(s)
			if !ok {
				return nil, bindErrorf(path, "%q is not a valid %s", s, enum.Name)
			}
			return variant, nil
		}
	case KindObject:
		if m, ok := value.(map[string]any); ok {
			return r.bindObject(r.shapes[f.Ref], m, path+".", opts)
		}
	case KindObjectList:
		if items, ok := value.([]any); ok {
			return r.bindObjectList(f, items, path, opts)
		}
	case KindStringList:
		if items, ok := value.([]any); ok {
			return bindStringList(items, path)
		}
	}
	return nil, bindErrorf(path, "cannot bind %s to %s field", describe(value), f.Kind)
}

func (r *Registry) bindObjectList(f *Field, items []any, path string, opts Options) (any, error) {
	nested := r.shapes[f.Ref]
	out := make([]any, 0, len(items))
	for i, item := range items {
		elemPath := path + "[" + strconv.Itoa(i) + "]"
		switch v := item.(type) {
		case nil:
			continue
		case map[string]any:
			obj, err := r.bindObject(nested, v, elemPath+".", opts)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		default:
			return nil, bindErrorf(elemPath, "unsupported array element %s in list of %s", describe(item), nested.Name)
		}
	}
	return out, nil
}

func bindStringList(items []any, path string) (any, error) {
	out := make([]string, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case nil:
			continue
		case string:
			out = append(out, v)
		default:
			return nil, bindErrorf(path+"["+strconv.Itoa(i)+"]", "unsupported array element %s in list of strings", describe(item))
		}
	}
	return out, nil
}

func narrowInt(kind Kind, n json.Number, path string) (any, error) {
	bits := 64
	switch kind {
	case KindInt:
		bits = strconv.IntSize
	case KindInt32:
		bits = 32
	}
	v, err := strconv.ParseInt(n.String(), 10, bits)
	if err != nil {
		return nil, &BindError{Path: path, Reason: "number does not fit " + kind.String(), Err: err}
	}
	switch kind {
	case KindInt:
		return int(v), nil
	case KindInt32:
		return int32(v), nil
	}
	return v, nil
}

// lookupString follows a dotted path through nested objects.
func lookupString(raw map[string]any, path string) (string, bool) {
	parts := strings.Split(path, ".")
	var cur any = raw
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[p]
		if !ok {
			return "", false
		}
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	}
	return "", false
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return "value"
}
