package domain

import "strings"

// Type tags a stored entry.
type Type uint8

const (
	TypeNone Type = iota
	TypeString
	TypeHash
	TypeList
)

var typeNames = [...]string{
	TypeNone:   "none",
	TypeString: "string",
	TypeHash:   "hash",
	TypeList:   "list",
}

// String returns the name reported by the TYPE command.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "none"
}

// ParseType maps a TYPE name (case-insensitive) to its tag. Names of
// types the server does not store map to TypeNone with ok set, so that
// filters on them simply match nothing.
func ParseType(name string) (Type, bool) {
	switch strings.ToLower(name) {
	case "string":
		return TypeString, true
	case "hash":
		return TypeHash, true
	case "list":
		return TypeList, true
	case "none", "set", "zset", "stream":
		return TypeNone, true
	}
	return TypeNone, false
}
