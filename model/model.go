package model

import "time"

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Status is the soft-delete lifecycle flag shared by templates and forms.
// The only allowed transition is active -> deleted; administrative
// recovery flows may flip it back.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// Slot is one question position on a template. The prompt is only
// meaningful while the slot is enabled.
type Slot struct {
	Enabled bool    `json:"enabled"`
	Prompt  *string `json:"prompt"`
}

// Template selects which slots are enabled and what they ask.
// Slots maps slot id (see SlotIDs) to its configuration; ids absent from
// the map count as disabled.
type Template struct {
	ID           int             `json:"id,omitempty"`
	OwnerID      int             `json:"owner_id,omitempty"`
	Version      int             `json:"version,omitempty"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Visibility   Visibility      `json:"visibility"`
	AllowedUsers []int           `json:"allowed_users,omitempty"`
	Slots        map[string]Slot `json:"slots"`
	CreatedAt    time.Time       `json:"created_at,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at,omitempty"`
}

// EnabledSlots returns the ids of the template's enabled slots of one
// type, index ascending.
func (t Template) EnabledSlots(st SlotType) []string {
	var ids []string
	for _, id := range SlotIDsOf(st) {
		if t.Slots[id].Enabled {
			ids = append(ids, id)
		}
	}
	return ids
}

// Form is one user's answer set for a template. Answers maps slot id to
// the submitted value as decoded from JSON; missing keys and explicit
// nulls both mean "not answered". Values may exist for disabled slots:
// storage is permissive, aggregation filters on the template's flags.
type Form struct {
	ID         int            `json:"id,omitempty"`
	TemplateID int            `json:"template_id"`
	UserID     int            `json:"user_id,omitempty"`
	Answers    map[string]any `json:"answers"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at,omitempty"`
}

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Identity is the authenticated requester, as resolved from token claims.
type Identity struct {
	UserID int
	Admin  bool
}

// CanManage reports whether the requester may mutate or inspect a record
// owned by ownerID. Owner-or-admin is the single authorization rule for
// every mutation and for aggregation.
func (id Identity) CanManage(ownerID int) bool {
	return id.Admin || id.UserID == ownerID
}

// TemplatePatch is a partial template update. Nil fields keep the current
// value; Slots holds only the slot ids to touch. Version must match the
// stored version (optimistic lock).
type TemplatePatch struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	Visibility   *Visibility          `json:"visibility"`
	AllowedUsers *[]int               `json:"allowed_users"`
	Slots        map[string]SlotPatch `json:"slots"`
	Version      int                  `json:"version"`
}

// SlotPatch updates one slot. A set Prompt replaces the stored one and a
// null keeps it, so a prompt is never cleared back to NULL; retiring a
// question means disabling its slot, at which point the prompt carries
// no meaning.
type SlotPatch struct {
	Enabled *bool   `json:"enabled"`
	Prompt  *string `json:"prompt"`
}

// FormPatch replaces the provided answer keys; an explicit null clears
// the answer, absent keys are left untouched.
type FormPatch struct {
	Answers map[string]any `json:"answers"`
}
