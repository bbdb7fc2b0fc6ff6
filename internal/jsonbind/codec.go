package jsonbind

import (
	"fmt"
	"strconv"

	"emperror.dev/errors"
)

// Codec encodes and decodes one registered shape as the Go type T.
type Codec[T any] struct {
	reg   *Registry
	shape *Shape
}

// NewCodec binds the named shape to T. It panics if the shape is missing,
// refers to unregistered shapes or enums, or does not construct a *T.
func NewCodec[T any](reg *Registry, shape string) Codec[T] {
	if err := reg.check(shape); err != nil {
		panic(fmt.Sprintf("jsonbind: %v", err))
	}
	s := reg.shapes[shape]
	if _, ok := s.New().(*T); !ok {
		panic(fmt.Sprintf("jsonbind: shape %s does not construct the codec type", shape))
	}
	return Codec[T]{reg: reg, shape: s}
}

// Encode converts v into a generic JSON object.
func (c Codec[T]) Encode(v *T, opts EncodeOptions) (map[string]any, error) {
	if v == nil {
		return nil, bindErrorf("", "cannot encode nil %s", c.shape.Name)
	}
	return c.reg.encodeObject(c.shape, v, "", opts)
}

// Marshal serializes v with default options.
func (c Codec[T]) Marshal(v *T) ([]byte, error) {
	return c.MarshalWith(v, EncodeOptions{})
}

// MarshalIndent serializes v pretty-printed with two-space indentation.
func (c Codec[T]) MarshalIndent(v *T) ([]byte, error) {
	return c.MarshalWith(v, EncodeOptions{Indent: true})
}

// MarshalWith serializes v.
func (c Codec[T]) MarshalWith(v *T, opts EncodeOptions) ([]byte, error) {
	doc, err := c.Encode(v, opts)
	if err != nil {
		return nil, err
	}
	return marshalDocument(doc, opts.Indent)
}

// MarshalList serializes vs as a JSON array. Nil entries become null.
func (c Codec[T]) MarshalList(vs []*T, opts EncodeOptions) ([]byte, error) {
	doc := make([]any, 0, len(vs))
	for _, v := range vs {
		if v == nil {
			doc = append(doc, nil)
			continue
		}
		m, err := c.Encode(v, opts)
		if err != nil {
			return nil, err
		}
		doc = append(doc, m)
	}
	return marshalDocument(doc, opts.Indent)
}

// Decode binds a generic JSON object into a new T.
func (c Codec[T]) Decode(raw map[string]any, opts Options) (*T, error) {
	obj, err := c.reg.bindObject(c.shape, raw, "", opts)
	if err != nil {
		return nil, err
	}
	return obj.(*T), nil
}

// Unmarshal parses a single JSON object. A failed version check is returned
// as *BadVersionError.
func (c Codec[T]) Unmarshal(data []byte, opts Options) (*T, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	raw, ok := doc.(map[string]any)
	if !ok {
		return nil, bindErrorf("", "expected %s object, got %s", c.shape.Name, describe(doc))
	}
	return c.Decode(raw, opts)
}

// UnmarshalList parses a JSON array, skipping null elements and elements
// that fail the version check.
func (c Codec[T]) UnmarshalList(data []byte, opts Options) ([]*T, error) {
	out, _, err := c.UnmarshalListSkipped(data, opts)
	return out, err
}

// UnmarshalListSkipped is UnmarshalList that also reports the version
// failures it skipped, in input order.
func (c Codec[T]) UnmarshalListSkipped(data []byte, opts Options) ([]*T, []*BadVersionError, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, nil, err
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, nil, bindErrorf("", "expected array of %s, got %s", c.shape.Name, describe(doc))
	}
	return c.DecodeList(items, opts)
}

// DecodeList binds already parsed array elements.
func (c Codec[T]) DecodeList(items []any, opts Options) ([]*T, []*BadVersionError, error) {
	out := make([]*T, 0, len(items))
	var skipped []*BadVersionError
	for i, item := range items {
		if item == nil {
			continue
		}
		raw, ok := item.(map[string]any)
		if !ok {
			return nil, nil, bindErrorf("["+strconv.Itoa(i)+"]", "expected %s object, got %s", c.shape.Name, describe(item))
		}
		v, err := c.Decode(raw, opts)
		if err != nil {
			var bv *BadVersionError
			if errors.As(err, &bv) {
				skipped = append(skipped, bv)
				continue
			}
			return nil, nil, err
		}
		out = append(out, v)
	}
	return out, skipped, nil
}

// ParseDocument parses data into the generic form used by Decode.
func ParseDocument(data []byte) (any, error) {
	return parseDocument(data)
}

// MarshalDocument serializes a generic JSON value.
func MarshalDocument(doc any, indent bool) ([]byte, error) {
	return marshalDocument(doc, indent)
}
