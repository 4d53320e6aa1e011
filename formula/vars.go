package formula

import (
	"strconv"
)

// Value is a build-tool variable value: either a string or a boolean.
type Value struct {
	str    string
	b      bool
	isBool bool
}

// String returns a string value.
func String(s string) Value {
	return Value{str: s}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{b: b, isBool: true}
}

// IsBool reports whether v holds a boolean.
func (v Value) IsBool() bool {
	return v.isBool
}

// BoolValue returns the boolean held by v; it is false for string values.
func (v Value) BoolValue() bool {
	return v.b
}

func (v Value) String() string {
	if v.isBool {
		return strconv.FormatBool(v.b)
	}
	return v.str
}

// Var is one entry of a VarSet.
type Var struct {
	Name  string
	Value Value
}

// VarSet is an ordered set of build-tool variables.
// A name appears at most once: assigning it again replaces the value and
// keeps the position of the first assignment.
type VarSet struct {
	vars  []Var
	index map[string]int
}

// NewVarSet returns an empty VarSet.
func NewVarSet() *VarSet {
	return &VarSet{index: make(map[string]int)}
}

// Set assigns a string value.
func (s *VarSet) Set(name, value string) {
	s.put(name, String(value))
}

// SetBool assigns a boolean value.
func (s *VarSet) SetBool(name string, value bool) {
	s.put(name, Bool(value))
}

func (s *VarSet) put(name string, v Value) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[name]; ok {
		s.vars[i].Value = v
		return
	}
	s.index[name] = len(s.vars)
	s.vars = append(s.vars, Var{Name: name, Value: v})
}

// Get returns the value of name.
func (s *VarSet) Get(name string) (Value, bool) {
	i, ok := s.index[name]
	if !ok {
		return Value{}, false
	}
	return s.vars[i].Value, true
}

// Len returns the number of variables.
func (s *VarSet) Len() int {
	return len(s.vars)
}

// Keys returns the variable names in order.
func (s *VarSet) Keys() []string {
	keys := make([]string, len(s.vars))
	for i, v := range s.vars {
		keys[i] = v.Name
	}
	return keys
}

// Entries returns a copy of the variables in order.
func (s *VarSet) Entries() []Var {
	out := make([]Var, len(s.vars))
	copy(out, s.vars)
	return out
}

// Equal reports whether s and t hold the same variables in the same order.
func (s *VarSet) Equal(t *VarSet) bool {
	if s.Len() != t.Len() {
		return false
	}
	for i := range s.vars {
		if s.vars[i] != t.vars[i] {
			return false
		}
	}
	return true
}
