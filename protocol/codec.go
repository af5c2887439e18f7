// Package protocol implements the comma separated text encoding used by the
// Hans controller for command payloads.
//
// Values are flattened to an ordered list of tokens joined by a single ','.
// Primitives take one token, a fixed array of K elements takes K tokens (times
// the width of its element) and a struct takes the tokens of its exported
// fields in declaration order. Decoding is positional: each field consumes
// exactly as many tokens as it produced when encoded.
package protocol

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/roplat/hans/roboterr"
)

// Delimiter separates tokens on the wire.
const Delimiter = ","

// Marshaler is implemented by types with a custom wire layout.
type Marshaler interface {
	MarshalWire(enc *Encoder)
}

// Unmarshaler is implemented by types with a custom wire layout.
type Unmarshaler interface {
	UnmarshalWire(dec *Decoder) error
}

var (
	marshalerType   = reflect.TypeOf((*Marshaler)(nil)).Elem()
	unmarshalerType = reflect.TypeOf((*Unmarshaler)(nil)).Elem()
)

// Marshal returns the wire encoding of v. Strings inside v must not contain the delimiter.
func Marshal(v interface{}) string {
	enc := &Encoder{}
	enc.Encode(v)
	return enc.String()
}

// Unmarshal decodes data into the value pointed to by v. Every token of data must be consumed.
func Unmarshal(data string, v interface{}) error {
	dec := NewDecoder(data)
	if err := dec.Decode(v); err != nil {
		return err
	}
	return dec.Finish()
}

// Encoder accumulates wire tokens.
type Encoder struct {
	tokens []string
}

// Token appends a raw token.
func (enc *Encoder) Token(tok string) {
	enc.tokens = append(enc.tokens, tok)
}

// Encode appends the tokens of v.
func (enc *Encoder) Encode(v interface{}) {
	if v == nil {
		return
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		// make it addressable so pointer receivers of Marshaler are found
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		rv = ptr
	}
	if rv.IsNil() {
		return
	}
	enc.encodeValue(rv.Elem())
}

// String returns the encoded text.
func (enc *Encoder) String() string {
	return strings.Join(enc.tokens, Delimiter)
}

func (enc *Encoder) encodeValue(rv reflect.Value) {
	if rv.CanAddr() && rv.Addr().Type().Implements(marshalerType) {
		rv.Addr().Interface().(Marshaler).MarshalWire(enc)
		return
	}
	if rv.Type().Implements(marshalerType) {
		rv.Interface().(Marshaler).MarshalWire(enc)
		return
	}

	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			enc.Token("1")
		} else {
			enc.Token("0")
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		enc.Token(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		enc.Token(strconv.FormatInt(rv.Int(), 10))
	case reflect.Float32:
		enc.Token(strconv.FormatFloat(rv.Float(), 'f', -1, 32))
	case reflect.Float64:
		enc.Token(strconv.FormatFloat(rv.Float(), 'f', -1, 64))
	case reflect.String:
		enc.Token(rv.String())
	case reflect.Array, reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			enc.encodeValue(rv.Index(i))
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Type().Field(i).IsExported() {
				continue
			}
			enc.encodeValue(rv.Field(i))
		}
	case reflect.Ptr, reflect.Interface:
		if !rv.IsNil() {
			enc.encodeValue(rv.Elem())
		}
	default:
		panic("protocol: cannot encode " + rv.Type().String())
	}
}

// Decoder reads wire tokens left to right.
type Decoder struct {
	tokens []string
	pos    int
}

// NewDecoder returns a decoder over data.
func NewDecoder(data string) *Decoder {
	return &Decoder{tokens: strings.Split(data, Delimiter)}
}

// Remaining returns how many tokens have not been consumed.
func (dec *Decoder) Remaining() int {
	return len(dec.tokens) - dec.pos
}

// Next consumes one token as written.
func (dec *Decoder) Next() (string, error) {
	if dec.pos >= len(dec.tokens) {
		return "", roboterr.NewDeserializeError("expected token %d but input has %d", dec.pos+1, len(dec.tokens))
	}
	tok := dec.tokens[dec.pos]
	dec.pos++
	return tok, nil
}

// nextScalar consumes one bool or number token, ignoring surrounding whitespace.
func (dec *Decoder) nextScalar() (string, error) {
	tok, err := dec.Next()
	return strings.TrimSpace(tok), err
}

// Finish fails if tokens are left over. An empty input that was not consumed
// is accepted since it is how an empty payload is written.
func (dec *Decoder) Finish() error {
	if dec.Remaining() == 0 {
		return nil
	}
	if dec.pos == 0 && len(dec.tokens) == 1 && strings.TrimSpace(dec.tokens[0]) == "" {
		return nil
	}
	return roboterr.NewDeserializeError("%d unexpected trailing tokens", dec.Remaining())
}

// Decode consumes the tokens of the value pointed to by v.
func (dec *Decoder) Decode(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return roboterr.NewDeserializeError("decode target must be a non-nil pointer, got %T", v)
	}
	return dec.decodeValue(rv.Elem())
}

func (dec *Decoder) decodeValue(rv reflect.Value) error {
	if rv.CanAddr() && rv.Addr().Type().Implements(unmarshalerType) {
		return rv.Addr().Interface().(Unmarshaler).UnmarshalWire(dec)
	}

	switch rv.Kind() {
	case reflect.Bool:
		tok, err := dec.nextScalar()
		if err != nil {
			return err
		}
		switch tok {
		case "0":
			rv.SetBool(false)
		case "1":
			rv.SetBool(true)
		default:
			return roboterr.NewDeserializeError("invalid bool %q", tok)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		tok, err := dec.nextScalar()
		if err != nil {
			return err
		}
		n, err := strconv.ParseUint(tok, 10, rv.Type().Bits())
		if err != nil {
			return roboterr.NewDeserializeError("invalid %s %q", rv.Type(), tok)
		}
		rv.SetUint(n)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		tok, err := dec.nextScalar()
		if err != nil {
			return err
		}
		n, err := strconv.ParseInt(tok, 10, rv.Type().Bits())
		if err != nil {
			return roboterr.NewDeserializeError("invalid %s %q", rv.Type(), tok)
		}
		rv.SetInt(n)
	case reflect.Float32, reflect.Float64:
		tok, err := dec.nextScalar()
		if err != nil {
			return err
		}
		f, err := strconv.ParseFloat(tok, rv.Type().Bits())
		if err != nil {
			return roboterr.NewDeserializeError("invalid %s %q", rv.Type(), tok)
		}
		rv.SetFloat(f)
	case reflect.String:
		tok, err := dec.Next()
		if err != nil {
			return err
		}
		rv.SetString(tok)
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := dec.decodeValue(rv.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Type().Field(i).IsExported() {
				continue
			}
			if err := dec.decodeValue(rv.Field(i)); err != nil {
				return err
			}
		}
	case reflect.Ptr:
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return dec.decodeValue(rv.Elem())
	default:
		// slices have no length on the wire; they need an Unmarshaler
		return roboterr.NewDeserializeError("cannot decode into %s", rv.Type())
	}
	return nil
}
