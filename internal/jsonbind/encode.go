package jsonbind

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
)

// EncodeOptions controls serialization of one call.
type EncodeOptions struct {
	// Exclude marks fields that must not be written.
	Exclude func(shape, field string) bool
	// Indent pretty-prints the output with two spaces.
	Indent bool
}

func (o EncodeOptions) excluded(shape, field string) bool {
	return o.Exclude != nil && o.Exclude(shape, field)
}

func (r *Registry) encodeObject(s *Shape, obj any, path string, opts EncodeOptions) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if opts.excluded(s.Name, f.Name) {
			continue
		}
		v, ok := f.get(obj)
		if !ok {
			continue
		}
		jv, err := r.encodeValue(f, v, path+f.Name, opts)
		if err != nil {
			return nil, err
		}
		out[f.Name] = jv

		if f.Kind != KindObject {
			continue
		}
		if nested := r.shapes[f.Ref]; nested.Breaking != nil {
			sibling := nested.Breaking.Split(jv.(map[string]any))
			if len(sibling) > 0 {
				out[f.Name+"2"] = sibling
			}
		}
	}
	return out, nil
}

func (r *Registry) encodeValue(f *Field, v any, path string, opts EncodeOptions) (any, error) {
	switch f.Kind {
	case KindString, KindBool:
		return v, nil
	case KindInt:
		return json.Number(strconv.FormatInt(int64(v.(int)), 10)), nil
	case KindInt32:
		return json.Number(strconv.FormatInt(int64(v.(int32)), 10)), nil
	case KindInt64:
		return json.Number(strconv.FormatInt(v.(int64), 10)), nil
	case KindFloat32:
		return encodeFloat(float64(v.(float32)), 32, path)
	case KindFloat64:
		return encodeFloat(v.(float64), 64, path)
	case KindTime:
		return FormatDate(v.(time.Time)), nil
	case KindLocale:
		return FormatLocale(v.(language.Tag)), nil
	case KindEnum:
		return r.enums[f.Ref].wire(v.(string)), nil
	case KindObject:
		return r.encodeObject(r.shapes[f.Ref], v, path+".", opts)
	case KindObjectList:
		nested := r.shapes[f.Ref]
		items := v.([]any)
		out := make([]any, 0, len(items))
		for _, item := range items {
			m, err := r.encodeObject(nested, item, path+"[].", opts)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	case KindStringList:
		items := v.([]string)
		out := make([]any, 0, len(items))
		for _, s := range items {
			out = append(out, s)
		}
		return out, nil
	}
	return nil, bindErrorf(path, "unsupported field kind %s", f.Kind)
}

func encodeFloat(f float64, bits int, path string) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, bindErrorf(path, "cannot encode %v", f)
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, bits)), nil
}

func marshalDocument(doc any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return nil, &BindError{Reason: "encoding document", Err: err}
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
