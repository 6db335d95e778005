// Package models contains the wire and domain models shared by the worker,
// the callback client and the scheduled jobs.
package models

import "fmt"

// NoteType is the category a note is classified into. Exactly one is chosen
// per note.
type NoteType uint8

const (
	// NoteTypeMeetingNote is meeting minutes: attendees, agenda, outcomes.
	NoteTypeMeetingNote NoteType = iota
	// NoteTypeTodo is a task list or checklist.
	NoteTypeTodo
	// NoteTypeDecision records a decision and its rationale.
	NoteTypeDecision
	// NoteTypeIdea is a proposal or brainstorm.
	NoteTypeIdea
	// NoteTypeReference collects links, documents and guides.
	NoteTypeReference
	// NoteTypeLog is a work journal. It is also the fallback category.
	NoteTypeLog

	noteTypeCount
)

var noteTypeNames = [noteTypeCount]string{
	NoteTypeMeetingNote: "meeting_note",
	NoteTypeTodo:        "todo",
	NoteTypeDecision:    "decision",
	NoteTypeIdea:        "idea",
	NoteTypeReference:   "reference",
	NoteTypeLog:         "log",
}

// NoteTypes returns every note type in declaration order.
func NoteTypes() []NoteType {
	out := make([]NoteType, noteTypeCount)
	for i := range out {
		out[i] = NoteType(i)
	}
	return out
}

// ParseNoteType returns the note type with the given wire name.
func ParseNoteType(s string) (NoteType, error) {
	for i, name := range noteTypeNames {
		if name == s {
			return NoteType(i), nil
		}
	}
	return NoteTypeLog, fmt.Errorf("unknown note type %q", s)
}

// Valid reports whether t is one of the known note types.
func (t NoteType) Valid() bool {
	return t < noteTypeCount
}

// String returns the wire name of t.
func (t NoteType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("NoteType(%d)", uint8(t))
	}
	return noteTypeNames[t]
}

// MarshalText implements encoding.TextMarshaler.
func (t NoteType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid note type %d", uint8(t))
	}
	return []byte(noteTypeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *NoteType) UnmarshalText(b []byte) error {
	parsed, err := ParseNoteType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
