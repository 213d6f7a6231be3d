package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// ValueType represents the type of a property value
type ValueType uint8

const (
	TypeString ValueType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeBytes
	TypeTimestamp
)

// Value represents a typed property value
type Value struct {
	Type ValueType
	Data []byte
}

// Helper functions to create typed values
func StringValue(s string) Value {
	return Value{Type: TypeString, Data: []byte(s)}
}

func IntValue(i int64) Value {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, uint64(i))
	return Value{Type: TypeInt, Data: data}
}

func FloatValue(f float64) Value {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, math.Float64bits(f))
	return Value{Type: TypeFloat, Data: data}
}

func BoolValue(b bool) Value {
	data := []byte{0}
	if b {
		data[0] = 1
	}
	return Value{Type: TypeBool, Data: data}
}

func BytesValue(b []byte) Value {
	return Value{Type: TypeBytes, Data: b}
}

// TimestampValue keeps nanosecond precision.
func TimestampValue(t time.Time) Value {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, uint64(t.UnixNano()))
	return Value{Type: TypeTimestamp, Data: data}
}

// ValueOf converts a plain Go value into a typed Value.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case string:
		return StringValue(x), nil
	case int:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case float64:
		return FloatValue(x), nil
	case bool:
		return BoolValue(x), nil
	case []byte:
		return BytesValue(x), nil
	case time.Time:
		return TimestampValue(x), nil
	default:
		return Value{}, fmt.Errorf("unsupported property type %T", v)
	}
}

// Decode methods
func (v Value) AsString() (string, error) {
	if v.Type != TypeString {
		return "", fmt.Errorf("value is not a string")
	}
	return string(v.Data), nil
}

func (v Value) AsInt() (int64, error) {
	if v.Type != TypeInt {
		return 0, fmt.Errorf("value is not an int")
	}
	return int64(binary.LittleEndian.Uint64(v.Data)), nil
}

func (v Value) AsFloat() (float64, error) {
	if v.Type != TypeFloat {
		return 0, fmt.Errorf("value is not a float")
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(v.Data)), nil
}

func (v Value) AsBool() (bool, error) {
	if v.Type != TypeBool {
		return false, fmt.Errorf("value is not a bool")
	}
	return v.Data[0] == 1, nil
}

func (v Value) AsTimestamp() (time.Time, error) {
	if v.Type != TypeTimestamp {
		return time.Time{}, fmt.Errorf("value is not a timestamp")
	}
	return time.Unix(0, int64(binary.LittleEndian.Uint64(v.Data))).UTC(), nil
}

// Interface decodes the value into its natural Go type. Timestamps come back
// as UTC time.Time values.
func (v Value) Interface() any {
	switch v.Type {
	case TypeString:
		return string(v.Data)
	case TypeInt:
		i, _ := v.AsInt()
		return i
	case TypeFloat:
		f, _ := v.AsFloat()
		return f
	case TypeBool:
		b, _ := v.AsBool()
		return b
	case TypeTimestamp:
		ts, _ := v.AsTimestamp()
		return ts
	default:
		return v.Data
	}
}

// key is the index key for the value. The type byte keeps "1" and 1 apart.
func (v Value) key() string {
	return string(append([]byte{byte(v.Type)}, v.Data...))
}

// Node represents a vertex in the graph
type Node struct {
	ID         uint64           `json:"id"`
	Labels     []string         `json:"labels"`
	Properties map[string]Value `json:"properties"`
	CreatedAt  int64            `json:"created_at"`
}

// Edge represents a relationship between nodes
type Edge struct {
	ID         uint64           `json:"id"`
	FromNodeID uint64           `json:"from"`
	ToNodeID   uint64           `json:"to"`
	Type       string           `json:"type"`
	Properties map[string]Value `json:"properties"`
	CreatedAt  int64            `json:"created_at"`
}

// HasLabel checks if a node has a specific label
func (n *Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// GetProperty returns a property value
func (n *Node) GetProperty(key string) (Value, bool) {
	val, ok := n.Properties[key]
	return val, ok
}

// GetProperty returns a property value
func (e *Edge) GetProperty(key string) (Value, bool) {
	val, ok := e.Properties[key]
	return val, ok
}

// PlainProperties decodes every property with Value.Interface.
func PlainProperties(props map[string]Value) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v.Interface()
	}
	return out
}

// Statistics reports the size of the store and its commit history.
type Statistics struct {
	NodeCount uint64
	EdgeCount uint64
	Commits   uint64
	Rollbacks uint64
	LastLSN   uint64
}
