package ast

import (
	"fmt"
	"strings"
)

// WordSize is the byte width of every atomic value and pointer
const WordSize = 8

// TypeKind defines the kind of a Type
type TypeKind int

// Type kinds enum
const (
	TYPE_INTEGER TypeKind = iota
	TYPE_LOGICAL
	TYPE_STRING
	TYPE_VOID
	TYPE_ARRAY
	TYPE_POINTER
	TYPE_STRUCT
)

// Type is a semantic type with a defined byte size
type Type struct {
	Kind   TypeKind
	Base   *Type // element type for arrays and pointers
	Len    int64 // element count for arrays
	Fields []Field
	Name   string
}

// Field is a single member of a struct type
type Field struct {
	Name string
	Typ  *Type
}

// Pre-defined types
var (
	TypeInteger = &Type{Kind: TYPE_INTEGER, Name: "integer"}
	TypeLogical = &Type{Kind: TYPE_LOGICAL, Name: "logical"}
	TypeString  = &Type{Kind: TYPE_STRING, Name: "string"}
	TypeVoid    = &Type{Kind: TYPE_VOID, Name: "void"}
)

func ArrayOf(n int64, elem *Type) *Type { return &Type{Kind: TYPE_ARRAY, Base: elem, Len: n} }
func PointerTo(base *Type) *Type        { return &Type{Kind: TYPE_POINTER, Base: base} }
func StructOf(fields ...Field) *Type    { return &Type{Kind: TYPE_STRUCT, Fields: fields} }

// Size returns the number of bytes a value of the type occupies in memory.
// Arrays and structs are laid out flat.
func (t *Type) Size() int64 {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case TYPE_VOID:
		return 0
	case TYPE_ARRAY:
		return t.Len * t.Base.Size()
	case TYPE_STRUCT:
		var size int64
		for _, f := range t.Fields {
			size += f.Typ.Size()
		}
		return size
	default:
		return WordSize
	}
}

// IsAggregate reports whether values of the type are handled by address
func (t *Type) IsAggregate() bool {
	return t != nil && (t.Kind == TYPE_ARRAY || t.Kind == TYPE_STRUCT)
}

func (t *Type) IsVoid() bool { return t == nil || t.Kind == TYPE_VOID }

// FieldOffset returns the byte offset and type of the named struct member
func (t *Type) FieldOffset(name string) (int64, *Type, bool) {
	if t == nil || t.Kind != TYPE_STRUCT {
		return 0, nil, false
	}
	var off int64
	for _, f := range t.Fields {
		if f.Name == name {
			return off, f.Typ, true
		}
		off += f.Typ.Size()
	}
	return 0, nil, false
}

func (t *Type) String() string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case TYPE_ARRAY:
		return fmt.Sprintf("arr[%d]%s", t.Len, t.Base)
	case TYPE_POINTER:
		return "ptr " + t.Base.String()
	case TYPE_STRUCT:
		if t.Name != "" {
			return t.Name
		}
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Name + ":" + f.Typ.String()
		}
		return "rec(" + strings.Join(parts, ",") + ")"
	default:
		return t.Name
	}
}
