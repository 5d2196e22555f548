package memo

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"
	"reflect"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnkeyable is returned by StructuralKey for arguments msgpack would encode
// lossily, such as structs with unexported fields. Use WithKeyFunc for those.
var ErrUnkeyable = errors.New("argument cannot be keyed structurally")

var (
	customEncoderType   = reflect.TypeFor[msgpack.CustomEncoder]()
	marshalerType       = reflect.TypeFor[msgpack.Marshaler]()
	binaryMarshalerType = reflect.TypeFor[encoding.BinaryMarshaler]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
)

// StructuralKey serializes arg with msgpack, map keys sorted, and hashes the bytes.
// Equal arguments produce equal keys regardless of map iteration order. The key
// carries the encoded length next to the xxhash digest.
func StructuralKey[A any](arg A) (string, error) {
	if err := checkKeyable(reflect.ValueOf(arg)); err != nil {
		return "", err
	}

	var buf bytes.Buffer

	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)

	if err := enc.Encode(arg); err != nil {
		return "", fmt.Errorf("encode key: %w", err)
	}

	return fmt.Sprintf("%016x%08x", xxhash.Sum64(buf.Bytes()), buf.Len()), nil
}

func checkKeyable(v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}

	t := v.Type()
	if encodesItself(t) {
		return nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}

		return checkKeyable(v.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if f.Tag.Get("msgpack") == "-" {
				continue
			}

			if !f.IsExported() && !f.Anonymous {
				return fmt.Errorf("%w: field %s.%s is unexported", ErrUnkeyable, t, f.Name)
			}

			if err := checkKeyable(v.Field(i)); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			if err := checkKeyable(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkKeyable(iter.Key()); err != nil {
				return err
			}

			if err := checkKeyable(iter.Value()); err != nil {
				return err
			}
		}
	}

	return nil
}

func encodesItself(t reflect.Type) bool {
	for _, typ := range []reflect.Type{t, reflect.PointerTo(t)} {
		if typ.Implements(customEncoderType) || typ.Implements(marshalerType) ||
			typ.Implements(binaryMarshalerType) || typ.Implements(textMarshalerType) {
			return true
		}
	}

	return false
}
