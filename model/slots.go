package model

import (
	"strconv"
	"strings"
)

// SlotType enumerates the four question kinds a template can carry.
type SlotType string

const (
	SlotString   SlotType = "string"   // single-line text
	SlotText     SlotType = "text"     // multi-line text
	SlotInt      SlotType = "int"      // integer
	SlotCheckbox SlotType = "checkbox" // boolean
)

// SlotsPerType is fixed: four questions of each type, no more.
// Slot identifiers form a closed set, not a schema language.
const SlotsPerType = 4

func SlotTypes() []SlotType {
	return []SlotType{SlotString, SlotText, SlotInt, SlotCheckbox}
}

// SlotIDs returns all slot identifiers in stable order:
// string1..string4, text1..text4, int1..int4, checkbox1..checkbox4.
func SlotIDs() []string {
	ids := make([]string, 0, len(SlotTypes())*SlotsPerType)
	for _, t := range SlotTypes() {
		ids = append(ids, SlotIDsOf(t)...)
	}
	return ids
}

// SlotIDsOf returns the identifiers of all slots of one type, index ascending.
func SlotIDsOf(t SlotType) []string {
	ids := make([]string, SlotsPerType)
	for i := range ids {
		ids[i] = string(t) + strconv.Itoa(i+1)
	}
	return ids
}

// SlotTypeOf resolves a slot identifier to its type.
// Returns false for identifiers outside the fixed slot set.
func SlotTypeOf(id string) (SlotType, bool) {
	for _, t := range SlotTypes() {
		idx, found := strings.CutPrefix(id, string(t))
		if !found {
			continue
		}
		n, err := strconv.Atoi(idx)
		if err == nil && n >= 1 && n <= SlotsPerType {
			return t, true
		}
	}
	return "", false
}
