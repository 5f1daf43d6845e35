// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package data

import (
	"math"
	"reflect"

	"github.com/guregu/null/v6"
)

// IsFinite reports whether f is neither NaN nor an infinity
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// SanitizeFloat converts f into an optional value; non-finite numbers become
// the absent marker
func SanitizeFloat(f float64) null.Float {
	if !IsFinite(f) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// SanitizeNull normalizes an optional value. Invalid values are reset so that
// every absent marker compares equal.
func SanitizeNull(f null.Float) null.Float {
	if !f.Valid {
		return null.Float{}
	}
	return SanitizeFloat(f.Float64)
}

// FloatToInt rounds f to the nearest integer. Values that are non-finite or do
// not fit in an int64 are absent.
func FloatToInt(f float64) null.Int {
	if !IsFinite(f) {
		return null.Int{}
	}

	rounded := math.Round(f)
	if rounded >= math.MaxInt64 || rounded < math.MinInt64 {
		return null.Int{}
	}

	return null.IntFrom(int64(rounded))
}

var (
	nullFloatType = reflect.TypeOf(null.Float{})
	lineItemsType = reflect.TypeOf(LineItems{})
)

// Sanitize returns a copy of v with every non-finite float replaced by the
// absent marker. It walks maps, slices, arrays, pointers and exported struct
// fields of any type. A container keeps its type when its elements can hold
// the sanitized values; otherwise it becomes []any or map[string]any (map[any]any
// for non-string keys) with nil for each non-finite value. null.Float values
// become invalid instead of nil, and struct fields that cannot hold nil are
// reset to their zero value. Sanitize never fails and Sanitize(Sanitize(v)) is
// equal to Sanitize(v).
func Sanitize(v any) any {
	if v == nil {
		return nil
	}

	out := sanitizeValue(reflect.ValueOf(v))
	if !out.IsValid() {
		return nil
	}
	return out.Interface()
}

// sanitizeValue returns the sanitized copy of rv; the invalid Value stands
// for nil
func sanitizeValue(rv reflect.Value) reflect.Value {
	switch rv.Type() {
	case nullFloatType:
		return reflect.ValueOf(SanitizeNull(rv.Interface().(null.Float)))
	case lineItemsType:
		return reflect.ValueOf(rv.Interface().(LineItems).Sanitized())
	}

	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		if !IsFinite(rv.Float()) {
			return reflect.Value{}
		}
		return rv
	case reflect.Interface:
		if rv.IsNil() {
			return reflect.Value{}
		}
		return sanitizeValue(rv.Elem())
	case reflect.Pointer:
		if rv.IsNil() {
			return rv
		}
		elem := sanitizeValue(rv.Elem())
		if !elem.IsValid() || !elem.Type().AssignableTo(rv.Type().Elem()) {
			return elem
		}
		ptr := reflect.New(rv.Type().Elem())
		ptr.Elem().Set(elem)
		return ptr
	case reflect.Slice:
		if rv.IsNil() || rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv
		}
		return sanitizeSequence(rv, reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len()))
	case reflect.Array:
		return sanitizeSequence(rv, reflect.New(rv.Type()).Elem())
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		return sanitizeMap(rv)
	case reflect.Struct:
		return sanitizeStruct(rv)
	default:
		return rv
	}
}

func sanitizeSequence(rv, out reflect.Value) reflect.Value {
	elemType := rv.Type().Elem()
	elems := make([]reflect.Value, rv.Len())
	typed := true
	for idx := range elems {
		elems[idx] = sanitizeValue(rv.Index(idx))
		typed = typed && fits(elems[idx], elemType)
	}

	if typed {
		for idx, elem := range elems {
			place(out.Index(idx), elem, elemType)
		}
		return out
	}

	generic := make([]any, len(elems))
	for idx, elem := range elems {
		if elem.IsValid() {
			generic[idx] = elem.Interface()
		}
	}
	return reflect.ValueOf(generic)
}

func sanitizeMap(rv reflect.Value) reflect.Value {
	elemType := rv.Type().Elem()
	keys := make([]reflect.Value, 0, rv.Len())
	elems := make([]reflect.Value, 0, rv.Len())
	typed := true
	iter := rv.MapRange()
	for iter.Next() {
		elem := sanitizeValue(iter.Value())
		keys = append(keys, iter.Key())
		elems = append(elems, elem)
		typed = typed && fits(elem, elemType)
	}

	var out reflect.Value
	switch {
	case typed:
		out = reflect.MakeMapWithSize(rv.Type(), len(keys))
	case rv.Type().Key().Kind() == reflect.String:
		out = reflect.ValueOf(make(map[string]any, len(keys)))
	default:
		out = reflect.ValueOf(make(map[any]any, len(keys)))
	}

	outElem := out.Type().Elem()
	outKey := out.Type().Key()
	for idx, key := range keys {
		if outKey.Kind() == reflect.String && key.Type() != outKey {
			key = reflect.ValueOf(key.String())
		}
		val := reflect.Zero(outElem)
		if elems[idx].IsValid() {
			val = elems[idx]
		}
		out.SetMapIndex(key, val)
	}
	return out
}

func sanitizeStruct(rv reflect.Value) reflect.Value {
	out := reflect.New(rv.Type()).Elem()
	out.Set(rv)
	for idx := 0; idx < rv.NumField(); idx++ {
		field := rv.Type().Field(idx)
		if !field.IsExported() {
			continue
		}

		elem := sanitizeValue(rv.Field(idx))
		if !elem.IsValid() || !elem.Type().AssignableTo(field.Type) {
			out.Field(idx).Set(reflect.Zero(field.Type))
			continue
		}
		out.Field(idx).Set(elem)
	}
	return out
}

// fits reports whether elem can be stored in a container of typ elements
func fits(elem reflect.Value, typ reflect.Type) bool {
	if !elem.IsValid() {
		switch typ.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			return true
		default:
			return false
		}
	}
	return elem.Type().AssignableTo(typ)
}

func place(dst, elem reflect.Value, typ reflect.Type) {
	if !elem.IsValid() {
		dst.Set(reflect.Zero(typ))
		return
	}
	dst.Set(elem)
}
