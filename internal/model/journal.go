package model

import "time"

// Journal actions recorded for remote mutations.
const (
	ActionStart      = "start"
	ActionStop       = "stop"
	ActionReopen     = "reopen"
	ActionResolve    = "resolve"
	ActionTransition = "transition"
	ActionCreate     = "create"
	ActionComment    = "comment"
	ActionLink       = "link"
	ActionLabel      = "label"
	ActionAssign     = "assign"
	ActionRelease    = "release"
	ActionVersion    = "version"
	ActionPage       = "page"
	ActionDropdown   = "dropdown"
)

// JournalEntry is one mutation made against a remote service, kept
// locally so "jissue history" can show what this machine changed.
type JournalEntry struct {
	ID        string    `db:"id"`
	Action    string    `db:"action"`
	Target    string    `db:"target"`
	Detail    string    `db:"detail"`
	Host      string    `db:"host"`
	CreatedAt time.Time `db:"created_at"`
}
