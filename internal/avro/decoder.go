package avro

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/senacormf/email2kafka-tester-cli/internal/schema"
)

// DecodeError represents a malformed payload or an unresolvable schema
// reference. A decode error is fatal to the single message being decoded;
// the caller decides whether it also ends the observation window.
type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string {
	return e.Message
}

func decodeErrorf(format string, args ...any) *DecodeError {
	return &DecodeError{Message: fmt.Sprintf(format, args...)}
}

// Decoder decodes Avro binary payloads for one schema. It is built once per
// run and safe for reuse across all messages; the named-type registry is
// read-only after construction.
type Decoder struct {
	root  *schema.Object
	named map[string]*schema.Object
}

// NewDecoder builds a decoder from a parsed avsc document root. The full
// schema is walked once up front to collect every named type (record, enum,
// fixed), including those nested in records, arrays, and maps.
func NewDecoder(root any) (*Decoder, error) {
	obj, ok := root.(*schema.Object)
	if !ok {
		return nil, decodeErrorf("avsc schema root must be a JSON object")
	}
	d := &Decoder{root: obj, named: make(map[string]*schema.Object)}
	d.registerNamedTypes(root)
	return d, nil
}

// Decode decodes one raw payload into a record value, consuming the entire
// buffer. Trailing bytes, short buffers, and any malformed encoding are
// decode errors.
func (d *Decoder) Decode(payload []byte) (map[string]any, error) {
	// Confluent wire format: magic byte 0 + 4-byte big-endian schema id +
	// Avro binary payload.
	if len(payload) >= 5 && payload[0] == 0 {
		payload = payload[5:]
	}
	r := &reader{data: payload}
	decoded, err := d.decodeNode(d.root, r)
	if err != nil {
		return nil, err
	}
	if r.remaining() > 0 {
		return nil, decodeErrorf("avro payload contains %d trailing bytes", r.remaining())
	}
	record, ok := decoded.(map[string]any)
	if !ok {
		return nil, decodeErrorf("decoded avro root must be a record object")
	}
	return record, nil
}

func (d *Decoder) decodeNode(node any, r *reader) (any, error) {
	switch s := node.(type) {
	case []any:
		// A list schema is a union: a long index selects the branch.
		index, err := r.readLong()
		if err != nil {
			return nil, err
		}
		if index < 0 || index >= int64(len(s)) {
			return nil, decodeErrorf("avro union index out of range: %d", index)
		}
		return d.decodeNode(s[index], r)
	case string:
		return d.decodeType(s, nil, r)
	case *schema.Object:
		switch inner := s.Value("type").(type) {
		case []any:
			return d.decodeNode(inner, r)
		case *schema.Object:
			return d.decodeNode(inner, r)
		case string:
			return d.decodeType(inner, s, r)
		}
		return nil, decodeErrorf("avsc node is missing a valid 'type'")
	default:
		return nil, decodeErrorf("invalid avsc node encountered during decode")
	}
}

func (d *Decoder) decodeType(typeName string, node *schema.Object, r *reader) (any, error) {
	switch typeName {
	case "null":
		return nil, nil
	case "boolean":
		return r.readBoolean()
	case "int", "long":
		v, err := r.readLong()
		if err != nil {
			return nil, err
		}
		return v, nil
	case "float":
		return r.readFloat()
	case "double":
		return r.readDouble()
	case "bytes":
		return r.readBytes()
	case "string":
		return r.readString()
	case "record":
		return d.decodeRecord(node, r)
	case "enum":
		return d.decodeEnum(node, r)
	case "array":
		return d.decodeArray(node, r)
	case "map":
		return d.decodeMap(node, r)
	case "fixed":
		return d.decodeFixed(node, r)
	}

	named, ok := d.named[typeName]
	if !ok {
		return nil, decodeErrorf("unsupported or unknown avro type reference: %s", typeName)
	}
	return d.decodeNode(named, r)
}

func (d *Decoder) decodeRecord(node *schema.Object, r *reader) (any, error) {
	if node == nil {
		return nil, decodeErrorf("record definition is missing from avsc schema")
	}
	fields, ok := node.Value("fields").([]any)
	if !ok {
		return nil, decodeErrorf("record schema requires a fields array")
	}
	record := make(map[string]any, len(fields))
	for _, raw := range fields {
		field, ok := raw.(*schema.Object)
		if !ok || !field.Has("name") {
			return nil, decodeErrorf("record field definition is invalid")
		}
		name := fmt.Sprintf("%v", field.Value("name"))
		value, err := d.decodeNode(field.Value("type"), r)
		if err != nil {
			return nil, err
		}
		record[name] = value
	}
	return record, nil
}

func (d *Decoder) decodeEnum(node *schema.Object, r *reader) (any, error) {
	if node == nil {
		return nil, decodeErrorf("enum definition is missing from avsc schema")
	}
	symbols, ok := node.Value("symbols").([]any)
	if !ok {
		return nil, decodeErrorf("enum schema requires a symbols array")
	}
	index, err := r.readLong()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= int64(len(symbols)) {
		return nil, decodeErrorf("avro enum index out of range: %d", index)
	}
	return symbols[index], nil
}

func (d *Decoder) decodeArray(node *schema.Object, r *reader) (any, error) {
	if node == nil {
		return nil, decodeErrorf("array definition is missing from avsc schema")
	}
	itemsSchema := node.Value("items")
	items := []any{}
	err := decodeBlocks(r, func() error {
		item, err := d.decodeNode(itemsSchema, r)
		if err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (d *Decoder) decodeMap(node *schema.Object, r *reader) (any, error) {
	if node == nil {
		return nil, decodeErrorf("map definition is missing from avsc schema")
	}
	valuesSchema := node.Value("values")
	out := map[string]any{}
	err := decodeBlocks(r, func() error {
		key, err := r.readString()
		if err != nil {
			return err
		}
		value, err := d.decodeNode(valuesSchema, r)
		if err != nil {
			return err
		}
		out[key.(string)] = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Decoder) decodeFixed(node *schema.Object, r *reader) (any, error) {
	if node == nil {
		return nil, decodeErrorf("fixed definition is missing from avsc schema")
	}
	size, ok := node.Value("size").(float64)
	if !ok || size < 0 || size != math.Trunc(size) {
		return nil, decodeErrorf("fixed schema requires a non-negative integer size")
	}
	b, err := r.readExact(int(size))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// decodeBlocks runs the count-prefixed block protocol shared by arrays and
// maps: a zero count terminates; a negative count is followed by a byte
// size (read and discarded) and holds abs(count) items.
func decodeBlocks(r *reader, decodeItem func() error) error {
	for {
		count, err := r.readLong()
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		if count < 0 {
			if _, err := r.readLong(); err != nil {
				return err
			}
			count = -count
		}
		for i := int64(0); i < count; i++ {
			if err := decodeItem(); err != nil {
				return err
			}
		}
	}
}

// registerNamedTypes walks the schema collecting record/enum/fixed
// definitions by name so later references resolve without re-walking.
func (d *Decoder) registerNamedTypes(node any) {
	switch s := node.(type) {
	case []any:
		for _, item := range s {
			d.registerNamedTypes(item)
		}
	case *schema.Object:
		switch inner := s.Value("type").(type) {
		case *schema.Object:
			d.registerNamedTypes(inner)
			return
		case []any:
			d.registerNamedTypes(inner)
			return
		case string:
			if inner == "record" || inner == "enum" || inner == "fixed" {
				if name, ok := s.Value("name").(string); ok && name != "" {
					if _, exists := d.named[name]; !exists {
						d.named[name] = s
					}
				}
			}
			switch inner {
			case "record":
				if fields, ok := s.Value("fields").([]any); ok {
					for _, raw := range fields {
						if field, ok := raw.(*schema.Object); ok {
							d.registerNamedTypes(field.Value("type"))
						}
					}
				}
			case "array":
				d.registerNamedTypes(s.Value("items"))
			case "map":
				d.registerNamedTypes(s.Value("values"))
			}
		}
	}
}

// reader is a cursor over one Avro binary payload.
type reader struct {
	data   []byte
	offset int
}

func (r *reader) remaining() int {
	return len(r.data) - r.offset
}

func (r *reader) readExact(size int) ([]byte, error) {
	if size < 0 {
		return nil, decodeErrorf("negative read size is invalid")
	}
	end := r.offset + size
	if end > len(r.data) {
		return nil, decodeErrorf("unexpected end of avro payload")
	}
	chunk := r.data[r.offset:end]
	r.offset = end
	return chunk, nil
}

func (r *reader) readBoolean() (any, error) {
	b, err := r.readExact(1)
	if err != nil {
		return nil, err
	}
	return b[0] != 0, nil
}

func (r *reader) readFloat() (any, error) {
	b, err := r.readExact(4)
	if err != nil {
		return nil, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (r *reader) readDouble() (any, error) {
	b, err := r.readExact(8)
	if err != nil {
		return nil, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (r *reader) readBytes() (any, error) {
	length, err := r.readLong()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, decodeErrorf("negative bytes length in avro payload")
	}
	return r.readExact(int(length))
}

func (r *reader) readString() (any, error) {
	raw, err := r.readBytes()
	if err != nil {
		return nil, err
	}
	b := raw.([]byte)
	if !utf8.Valid(b) {
		return nil, decodeErrorf("invalid UTF-8 string in avro payload")
	}
	return string(b), nil
}

// readLong reads a zigzag-encoded variable-length integer: 7 bits per byte,
// continuation bit high, final value (raw >> 1) XOR -(raw & 1).
func (r *reader) readLong() (int64, error) {
	var raw uint64
	var shift uint
	for {
		b, err := r.readExact(1)
		if err != nil {
			return 0, err
		}
		raw |= uint64(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			return 0, decodeErrorf("avro varint is too long")
		}
	}
	return int64(raw>>1) ^ -int64(raw&1), nil
}
