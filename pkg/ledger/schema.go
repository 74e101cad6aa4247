package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
)

// DiscriminatorSize is the width of the type prefix every program account starts with.
const DiscriminatorSize = 8

// FieldKind is the wire type of a schema field.
type FieldKind uint8

const (
	KindPublicKey FieldKind = iota + 1
	KindU64
	KindI64
	KindBool
	KindU8
)

// Width returns the encoded size of the kind in bytes.
func (k FieldKind) Width() int {
	switch k {
	case KindPublicKey:
		return PublicKeySize
	case KindU64, KindI64:
		return 8
	case KindBool, KindU8:
		return 1
	default:
		return 0
	}
}

func (k FieldKind) String() string {
	switch k {
	case KindPublicKey:
		return "pubkey"
	case KindU64:
		return "u64"
	case KindI64:
		return "i64"
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	default:
		return "unknown"
	}
}

// Field is one row of an account layout table. Offsets are absolute, i.e. they
// include the discriminator prefix.
type Field struct {
	Name   string
	Offset int
	Kind   FieldKind
}

// Schema is an explicit, versioned account layout.
type Schema struct {
	Name          string
	Version       uint8
	Discriminator [DiscriminatorSize]byte
	Size          int

	fields map[string]Field
	order  []Field
}

// AccountDiscriminator returns the 8-byte type prefix for an account named name.
func AccountDiscriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// InstructionDiscriminator returns the 8-byte prefix selecting the program
// instruction named name.
func InstructionDiscriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// NewSchema builds a layout from a field table.
// Panics on overlapping fields, duplicate names or fields inside the discriminator
// prefix: a broken layout table is a programming error and must stop startup.
func NewSchema(name string, version uint8, fields ...Field) *Schema {
	s := &Schema{
		Name:          name,
		Version:       version,
		Discriminator: AccountDiscriminator(name),
		Size:          DiscriminatorSize,
		fields:        make(map[string]Field, len(fields)),
		order:         make([]Field, 0, len(fields)),
	}

	for _, f := range fields {
		if f.Kind.Width() == 0 {
			panic(fmt.Sprintf("ledger: schema %s: field %s has unknown kind", name, f.Name))
		}
		if f.Offset < DiscriminatorSize {
			panic(fmt.Sprintf("ledger: schema %s: field %s overlaps discriminator", name, f.Name))
		}
		if _, dup := s.fields[f.Name]; dup {
			panic(fmt.Sprintf("ledger: schema %s: duplicate field %s", name, f.Name))
		}
		s.fields[f.Name] = f
		s.order = append(s.order, f)
		s.Size = max(s.Size, f.Offset+f.Kind.Width())
	}

	sort.Slice(s.order, func(i, j int) bool { return s.order[i].Offset < s.order[j].Offset })
	for i := 1; i < len(s.order); i++ {
		prev, cur := s.order[i-1], s.order[i]
		if prev.Offset+prev.Kind.Width() > cur.Offset {
			panic(fmt.Sprintf("ledger: schema %s: field %s overlaps %s", name, cur.Name, prev.Name))
		}
	}

	return s
}

// Fields returns the layout table ordered by offset.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.order...)
}

// Decode validates the discriminator and length of data and returns a Row view of it.
// Trailing bytes beyond Size are allowed (accounts may be allocated with padding).
func (s *Schema) Decode(data []byte) (*Row, error) {
	if len(data) < s.Size {
		return nil, fmt.Errorf("%w: %s v%d needs %d bytes, got %d", ErrAccountDataTooShort, s.Name, s.Version, s.Size, len(data))
	}
	if !bytes.Equal(data[:DiscriminatorSize], s.Discriminator[:]) {
		return nil, fmt.Errorf("%w: expected %s v%d", ErrDiscriminatorMismatch, s.Name, s.Version)
	}
	return &Row{schema: s, data: bytes.Clone(data)}, nil
}

// New returns a zeroed Row carrying the schema discriminator, ready for Set calls.
func (s *Schema) New() *Row {
	data := make([]byte, s.Size)
	copy(data, s.Discriminator[:])
	return &Row{schema: s, data: data}
}

// Row is a decoded account bound to its Schema.
// Accessors panic when asked for a field the schema does not define or with the
// wrong kind, since field names are compile-time constants.
type Row struct {
	schema *Schema
	data   []byte
}

func (r *Row) field(name string, kind FieldKind) Field {
	f, ok := r.schema.fields[name]
	if !ok {
		panic(fmt.Sprintf("ledger: schema %s has no field %s", r.schema.Name, name))
	}
	if f.Kind != kind {
		panic(fmt.Sprintf("ledger: schema %s field %s is %s, not %s", r.schema.Name, name, f.Kind, kind))
	}
	return f
}

func (r *Row) PublicKey(name string) PublicKey {
	f := r.field(name, KindPublicKey)
	var pk PublicKey
	copy(pk[:], r.data[f.Offset:f.Offset+PublicKeySize])
	return pk
}

func (r *Row) U64(name string) uint64 {
	f := r.field(name, KindU64)
	return binary.LittleEndian.Uint64(r.data[f.Offset:])
}

func (r *Row) I64(name string) int64 {
	f := r.field(name, KindI64)
	return int64(binary.LittleEndian.Uint64(r.data[f.Offset:]))
}

func (r *Row) Bool(name string) bool {
	f := r.field(name, KindBool)
	return r.data[f.Offset] != 0
}

func (r *Row) U8(name string) uint8 {
	f := r.field(name, KindU8)
	return r.data[f.Offset]
}

func (r *Row) SetPublicKey(name string, v PublicKey) *Row {
	f := r.field(name, KindPublicKey)
	copy(r.data[f.Offset:], v[:])
	return r
}

func (r *Row) SetU64(name string, v uint64) *Row {
	f := r.field(name, KindU64)
	binary.LittleEndian.PutUint64(r.data[f.Offset:], v)
	return r
}

func (r *Row) SetI64(name string, v int64) *Row {
	f := r.field(name, KindI64)
	binary.LittleEndian.PutUint64(r.data[f.Offset:], uint64(v))
	return r
}

func (r *Row) SetBool(name string, v bool) *Row {
	f := r.field(name, KindBool)
	r.data[f.Offset] = 0
	if v {
		r.data[f.Offset] = 1
	}
	return r
}

func (r *Row) SetU8(name string, v uint8) *Row {
	f := r.field(name, KindU8)
	r.data[f.Offset] = v
	return r
}

// Bytes returns a copy of the encoded account data.
func (r *Row) Bytes() []byte {
	return bytes.Clone(r.data)
}
