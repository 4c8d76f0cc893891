package querystring

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Valuer is implemented by types that convert themselves into a Value.
type Valuer interface {
	QueryValue() Value
}

const tagKey = "query"

var (
	valueType         = reflect.TypeOf(Value{})
	timeType          = reflect.TypeOf(time.Time{})
	eventTimeType     = reflect.TypeOf(EventTime{})
	valuerType        = reflect.TypeOf((*Valuer)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	errorType         = reflect.TypeOf((*error)(nil)).Elem()
)

// ValueOf converts a Go value into a Value:
//
//   - nil, and nil pointers, maps, slices and interfaces, become Null
//   - Value passes through; Valuer is asked for its Value
//   - time.Time and EventTime become a Date; []byte becomes Bytes
//   - error and encoding.TextMarshaler become their text as a String
//   - bool, integer, float and string kinds become scalars; complex numbers
//     become a String
//   - slices and arrays become a Sequence
//   - maps become a Mapping with keys sorted lexically, since Go maps carry
//     no insertion order
//   - structs become a Mapping of exported fields in declaration order
//   - channels and funcs become Undefined
//
// Struct fields honor the `query` tag: `query:"-"` skips the field,
// `query:"name"` renames it and the omitempty option drops zero values.
// Embedded structs without a tag name are inlined into the parent.
//
// Pointers that lead back to one of their ancestors are converted to
// Undefined, and reported to the internal logger.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int64:
		return Int(x)
	case float64:
		return Float(x)
	case []byte:
		if x == nil {
			return Null()
		}
		return Bytes(x)
	case time.Time:
		return Date(x)
	case EventTime:
		return Date(time.Time(x))
	}
	c := converter{visiting: make(map[visit]struct{})}
	return c.convert(reflect.ValueOf(v))
}

// converter tracks the references on the current path to break cycles.
type converter struct {
	visiting map[visit]struct{}
}

// visit identifies a reference. The type and length keep a pointer to a
// struct apart from a pointer to its first field, and a slice from its own
// prefix.
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

func visitOf(rv reflect.Value) visit {
	v := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if rv.Kind() == reflect.Slice {
		v.len = rv.Len()
	}
	return v
}

func (c *converter) convert(rv reflect.Value) Value {
	if !rv.IsValid() {
		return Null()
	}

	t := rv.Type()
	switch t {
	case valueType:
		return rv.Interface().(Value)
	case timeType:
		return Date(rv.Interface().(time.Time))
	case eventTimeType:
		return Date(time.Time(rv.Interface().(EventTime)))
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return Null()
		}
	}

	if t.Implements(valuerType) {
		return rv.Interface().(Valuer).QueryValue()
	}
	if t.Implements(errorType) {
		return String(rv.Interface().(error).Error())
	}

	// dereference unless only the pointer marshals itself, so that *time.Time
	// is still a Date rather than its MarshalText form
	if rv.Kind() == reflect.Pointer && !(t.Implements(textMarshalerType) && !t.Elem().Implements(textMarshalerType)) {
		if !c.enter(rv) {
			return Undefined()
		}
		defer c.leave(rv)
		return c.convert(rv.Elem())
	}

	if t.Implements(textMarshalerType) {
		b, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			InternalLogger().Printf("ValueOf: dropping %s: MarshalText failed: %v", t, err)
			return Undefined()
		}
		return String(string(b))
	}

	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float())
	case reflect.Complex64, reflect.Complex128:
		return String(strconv.FormatComplex(rv.Complex(), 'f', -1, 128))
	case reflect.String:
		return String(rv.String())

	case reflect.Interface:
		return c.convert(rv.Elem())

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return Bytes(rv.Bytes())
		}
		if !c.enter(rv) {
			return Undefined()
		}
		defer c.leave(rv)
		return c.sequence(rv)

	case reflect.Array:
		return c.sequence(rv)

	case reflect.Map:
		if !c.enter(rv) {
			return Undefined()
		}
		defer c.leave(rv)
		return c.mapping(rv)

	case reflect.Struct:
		pairs := make([]Pair, 0, rv.NumField())
		return Mapping(c.fields(rv, pairs)...)
	}

	// chan, func, unsafe.Pointer
	return Undefined()
}

func (c *converter) enter(rv reflect.Value) bool {
	v := visitOf(rv)
	if _, ok := c.visiting[v]; ok {
		InternalLogger().Printf("ValueOf: dropping cyclic reference to %s", v.typ)
		return false
	}
	c.visiting[v] = struct{}{}
	return true
}

func (c *converter) leave(rv reflect.Value) {
	delete(c.visiting, visitOf(rv))
}

func (c *converter) sequence(rv reflect.Value) Value {
	items := make([]Value, rv.Len())
	for i := range items {
		items[i] = c.convert(rv.Index(i))
	}
	return Sequence(items...)
}

func (c *converter) mapping(rv reflect.Value) Value {
	pairs := make([]Pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, Pair{Key: mapKey(iter.Key()), Value: c.convert(iter.Value())})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return Mapping(pairs...)
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.Interface && !k.IsNil() {
		k = k.Elem()
	}
	if k.Type().Implements(textMarshalerType) {
		if b, err := k.Interface().(encoding.TextMarshaler).MarshalText(); err == nil {
			return string(b)
		}
	}
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	}
	return fmt.Sprint(k.Interface())
}

// fields appends the exported fields of struct rv to pairs.
func (c *converter) fields(rv reflect.Value, pairs []Pair) []Pair {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get(tagKey), ",")
		if name == "-" && opts == "" {
			continue
		}

		fv := rv.Field(i)

		// inline embedded structs, and pointers to them, unless renamed
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if fv.Kind() == reflect.Pointer {
					if fv.IsNil() {
						continue
					}
					fv = fv.Elem()
				}
				if !f.IsExported() && !hasExportedFields(ft) {
					continue
				}
				pairs = c.fields(fv, pairs)
				continue
			}
		}

		if !f.IsExported() {
			continue
		}
		if hasOption(opts, "omitempty") && fv.IsZero() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		pairs = append(pairs, Pair{Key: name, Value: c.convert(fv)})
	}
	return pairs
}

func hasExportedFields(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return true
		}
	}
	return false
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var o string
		o, opts, _ = strings.Cut(opts, ",")
		if o == want {
			return true
		}
	}
	return false
}
