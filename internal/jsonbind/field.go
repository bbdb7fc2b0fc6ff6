package jsonbind

import (
	"time"

	"golang.org/x/text/language"
)

// Kind is the value shape a field binds to.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindTime
	KindLocale
	KindEnum
	KindObject
	KindObjectList
	KindStringList
)

var kindNames = map[Kind]string{
	KindString:     "string",
	KindBool:       "bool",
	KindInt:        "int",
	KindInt32:      "int32",
	KindInt64:      "int64",
	KindFloat32:    "float32",
	KindFloat64:    "float64",
	KindTime:       "date",
	KindLocale:     "locale",
	KindEnum:       "enum",
	KindObject:     "object",
	KindObjectList: "object list",
	KindStringList: "string list",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Field is one entry of a shape's field table. Ref names the nested shape
// for object kinds and the enum for KindEnum.
//
// get returns the Go value of the field and whether it is present. set
// receives a value of the Go type matching Kind:
//
//	KindString, KindEnum  string
//	KindObject            pointer produced by the nested shape's New
//	KindObjectList        []any of such pointers
//	KindStringList        []string
//
// and the obvious scalar type otherwise.
type Field struct {
	Name string
	Kind Kind
	Ref  string

	get func(obj any) (any, bool)
	set func(obj any, v any)
}

func scalar[T any, V comparable](name string, kind Kind, get func(*T) V, set func(*T, V)) Field {
	var zero V
	return Field{
		Name: name,
		Kind: kind,
		get: func(obj any) (any, bool) {
			v := get(obj.(*T))
			return v, v != zero
		},
		set: func(obj any, v any) { set(obj.(*T), v.(V)) },
	}
}

func String[T any](name string, get func(*T) string, set func(*T, string)) Field {
	return scalar(name, KindString, get, set)
}

func Bool[T any](name string, get func(*T) bool, set func(*T, bool)) Field {
	return scalar(name, KindBool, get, set)
}

func Int[T any](name string, get func(*T) int, set func(*T, int)) Field {
	return scalar(name, KindInt, get, set)
}

func Int32[T any](name string, get func(*T) int32, set func(*T, int32)) Field {
	return scalar(name, KindInt32, get, set)
}

func Int64[T any](name string, get func(*T) int64, set func(*T, int64)) Field {
	return scalar(name, KindInt64, get, set)
}

func Float32[T any](name string, get func(*T) float32, set func(*T, float32)) Field {
	return scalar(name, KindFloat32, get, set)
}

func Float64[T any](name string, get func(*T) float64, set func(*T, float64)) Field {
	return scalar(name, KindFloat64, get, set)
}

func Locale[T any](name string, get func(*T) language.Tag, set func(*T, language.Tag)) Field {
	return scalar(name, KindLocale, get, set)
}

func Time[T any](name string, get func(*T) time.Time, set func(*T, time.Time)) Field {
	return Field{
		Name: name,
		Kind: KindTime,
		get: func(obj any) (any, bool) {
			v := get(obj.(*T))
			return v, !v.IsZero()
		},
		set: func(obj any, v any) { set(obj.(*T), v.(time.Time)) },
	}
}

// Enum binds a string-backed enum type through the registered enum named enum.
func Enum[T any, E ~string](name, enum string, get func(*T) E, set func(*T, E)) Field {
	return Field{
		Name: name,
		Kind: KindEnum,
		Ref:  enum,
		get: func(obj any) (any, bool) {
			v := string(get(obj.(*T)))
			return v, v != ""
		},
		set: func(obj any, v any) { set(obj.(*T), E(v.(string))) },
	}
}

// Object binds a nested object of the registered shape named shape.
func Object[T, E any](name, shape string, get func(*T) *E, set func(*T, *E)) Field {
	return Field{
		Name: name,
		Kind: KindObject,
		Ref:  shape,
		get: func(obj any) (any, bool) {
			v := get(obj.(*T))
			if v == nil {
				return nil, false
			}
			return v, true
		},
		set: func(obj any, v any) { set(obj.(*T), v.(*E)) },
	}
}

// ObjectList binds a list of nested objects. A nil list is absent; an empty
// non-nil list is written as [].
func ObjectList[T, E any](name, shape string, get func(*T) []*E, set func(*T, []*E)) Field {
	return Field{
		Name: name,
		Kind: KindObjectList,
		Ref:  shape,
		get: func(obj any) (any, bool) {
			v := get(obj.(*T))
			if v == nil {
				return nil, false
			}
			out := make([]any, 0, len(v))
			for _, e := range v {
				if e != nil {
					out = append(out, e)
				}
			}
			return out, true
		},
		set: func(obj any, v any) {
			in := v.([]any)
			out := make([]*E, 0, len(in))
			for _, e := range in {
				out = append(out, e.(*E))
			}
			set(obj.(*T), out)
		},
	}
}

// StringList binds a list of strings. A nil list is absent.
func StringList[T any](name string, get func(*T) []string, set func(*T, []string)) Field {
	return Field{
		Name: name,
		Kind: KindStringList,
		get: func(obj any) (any, bool) {
			v := get(obj.(*T))
			return v, v != nil
		},
		set: func(obj any, v any) { set(obj.(*T), v.([]string)) },
	}
}
