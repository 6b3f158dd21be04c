// Package wire converts between fixed-layout Go structs and the
// little-endian byte streams the client family expects, the way
// internal/core/bytes did for the teacher project. Every packet and
// subcommand payload in this module is declared as a plain struct and
// never hand-serialized.
package wire

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"unicode/utf16"
)

// FromStruct serializes the fields of data (a struct or pointer to one)
// to bytes in little-endian, declaration order, and returns the byte
// count alongside the slice. Panics on a non-struct argument or a field
// type binary.Write can't handle, since those represent a fixed bug in
// the packet definition rather than a runtime condition to recover from.
func FromStruct(data interface{}) ([]byte, int) {
	val := reflect.ValueOf(data)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		panic("wire.FromStruct: data must be a struct or pointer to struct, got " + val.Kind().String())
	}

	buf := new(bytes.Buffer)
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanInterface() {
			continue
		}

		var err error
		switch field.Kind() {
		case reflect.Struct, reflect.Ptr:
			b, _ := FromStruct(field.Interface())
			_, err = buf.Write(b)
		default:
			err = binary.Write(buf, binary.LittleEndian, field.Interface())
		}
		if err != nil {
			panic("wire.FromStruct: " + err.Error())
		}
	}
	return buf.Bytes(), buf.Len()
}

// ToStruct populates the struct pointed to by target by reading data in
// little-endian, declaration order. Panics if target isn't a pointer to
// struct or if data is too short for the struct's layout.
func ToStruct(data []byte, target interface{}) {
	targetVal := reflect.ValueOf(target)
	if targetVal.Kind() != reflect.Ptr {
		panic("wire.ToStruct: target must be a pointer to struct, got " + targetVal.Kind().String())
	}

	reader := bytes.NewReader(data)
	val := targetVal.Elem()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanInterface() {
			continue
		}

		var err error
		switch field.Kind() {
		case reflect.Ptr:
			err = binary.Read(reader, binary.LittleEndian, field.Interface())
		default:
			err = binary.Read(reader, binary.LittleEndian, field.Addr().Interface())
		}
		if err != nil {
			panic("wire.ToStruct: " + err.Error())
		}
	}
}

// StripPadding trims the trailing NUL bytes PSO pads fixed-width string
// fields with.
func StripPadding(b []byte) []byte {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0 {
			return b[:i+1]
		}
	}
	return []byte{}
}

// UTF16LE encodes a UTF-8 string as UTF-16LE bytes, the encoding used by
// every client text field.
func UTF16LE(s string) []byte {
	runes := bytes.Runes([]byte(s))
	units := utf16.Encode(runes)

	out := make([]byte, 2*len(units))
	for i, u := range units {
		out[2*i] = byte(u)
		out[2*i+1] = byte(u >> 8)
	}
	return out
}

// SwapUint32 reverses the byte order of a 32-bit value, used for the
// console version's mag data2 byte-swap bug (§4.5) and for re-encoding
// big-endian-native fields for the console clients.
func SwapUint32(v uint32) uint32 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	return binary.LittleEndian.Uint32(b[:])
}
