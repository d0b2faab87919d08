package hotkeys

import (
	"slices"
	"strings"

	"quickprompt/internal/keys"
)

// ReservedShortcut is a combination withheld from user rebinding.
type ReservedShortcut struct {
	Keys        []keys.Name `json:"keys"`
	Description string      `json:"description"`
}

// reservedShortcuts is checked regardless of host OS: the macOS Command
// entries and the Windows/Linux Control entries both apply everywhere.
var reservedShortcuts = []ReservedShortcut{
	{Keys: []keys.Name{keys.Command, "C"}, Description: "Copy"},
	{Keys: []keys.Name{keys.Command, "V"}, Description: "Paste"},
	{Keys: []keys.Name{keys.Command, "X"}, Description: "Cut"},
	{Keys: []keys.Name{keys.Command, "A"}, Description: "Select all"},
	{Keys: []keys.Name{keys.Command, "Z"}, Description: "Undo"},
	{Keys: []keys.Name{keys.Command, "Q"}, Description: "Quit"},

	{Keys: []keys.Name{keys.Control, "C"}, Description: "Copy"},
	{Keys: []keys.Name{keys.Control, "V"}, Description: "Paste"},
	{Keys: []keys.Name{keys.Control, "X"}, Description: "Cut"},
	{Keys: []keys.Name{keys.Control, "A"}, Description: "Select all"},
	{Keys: []keys.Name{keys.Control, "Z"}, Description: "Undo"},

	{Keys: []keys.Name{keys.Command, "I"}, Description: "Italic / inspector"},
	{Keys: []keys.Name{keys.Command, "T"}, Description: "New tab"},
	{Keys: []keys.Name{keys.Command, "N"}, Description: "New window"},
	{Keys: []keys.Name{keys.Command, "G"}, Description: "Find next"},
	{Keys: []keys.Name{keys.Command, "O"}, Description: "Open"},
	{Keys: []keys.Name{keys.Command, "U"}, Description: "Underline"},
	{Keys: []keys.Name{keys.Command, "M"}, Description: "Minimize"},
	{Keys: []keys.Name{keys.Command, keys.Enter}, Description: "Submit"},
	{Keys: []keys.Name{keys.Command, keys.ArrowLeft}, Description: "Line start"},
	{Keys: []keys.Name{keys.Command, keys.ArrowRight}, Description: "Line end"},
	{Keys: []keys.Name{keys.Command, keys.ArrowUp}, Description: "Document start"},
	{Keys: []keys.Name{keys.Command, keys.ArrowDown}, Description: "Document end"},
	{Keys: []keys.Name{keys.Command, "0"}, Description: "Reset zoom"},
	{Keys: []keys.Name{keys.Command, "1"}, Description: "Switch to tab 1"},
	{Keys: []keys.Name{keys.Command, "2"}, Description: "Switch to tab 2"},
	{Keys: []keys.Name{keys.Command, "3"}, Description: "Switch to tab 3"},
	{Keys: []keys.Name{keys.Command, "4"}, Description: "Switch to tab 4"},
	{Keys: []keys.Name{keys.Command, "5"}, Description: "Switch to tab 5"},
	{Keys: []keys.Name{keys.Command, "6"}, Description: "Switch to tab 6"},
	{Keys: []keys.Name{keys.Command, "7"}, Description: "Switch to tab 7"},
	{Keys: []keys.Name{keys.Command, "8"}, Description: "Switch to tab 8"},
	{Keys: []keys.Name{keys.Command, "9"}, Description: "Switch to tab 9"},
}

// IsReserved reports whether candidate equals a reserved entry position by
// position, ignoring case. The candidate is compared as given, not sorted.
func IsReserved(candidate []keys.Name) bool {
	for _, reserved := range reservedShortcuts {
		if matchesFold(reserved.Keys, candidate) {
			return true
		}
	}
	return false
}

func matchesFold(a, b []keys.Name) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(string(a[i]), string(b[i])) {
			return false
		}
	}
	return true
}

// ReservedShortcuts returns a copy of the reserved table for display.
func ReservedShortcuts() []ReservedShortcut {
	out := make([]ReservedShortcut, len(reservedShortcuts))
	for i, r := range reservedShortcuts {
		out[i] = ReservedShortcut{Keys: slices.Clone(r.Keys), Description: r.Description}
	}
	return out
}
