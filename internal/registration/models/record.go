package models

import (
	"encoding/json"
	"strings"
	"time"

	dErrors "rollcall/pkg/domain-errors"
)

// Reserved field names. These are server-assigned (or server-validated) and
// never travel through the free-form attribute bag.
const (
	fieldID        = "id"
	fieldFullName  = "fullName"
	fieldPhone     = "phone"
	fieldCreatedAt = "createdAt"
	fieldCreatedBy = "createdBy"
)

// Record is one registered person.
//
// Invariants:
//   - ID is unique for the lifetime of the issuing store and never reused
//   - CreatedAt and CreatedBy are set at insertion and never change
//   - Attrs holds caller-supplied fields verbatim; they are mutable
type Record struct {
	ID        int64
	FullName  string
	Phone     string
	CreatedAt time.Time
	CreatedBy string
	Attrs     map[string]json.RawMessage
}

// Clone returns a deep copy. Stores hand out clones so no caller can reach
// into the owned collection.
func (r *Record) Clone() *Record {
	out := *r
	if r.Attrs != nil {
		out.Attrs = make(map[string]json.RawMessage, len(r.Attrs))
		for k, v := range r.Attrs {
			out.Attrs[k] = v
		}
	}
	return &out
}

// MarshalJSON flattens free-form attributes into the top-level object, the
// shape the mini-app submits and expects back.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Attrs)+5)
	for k, v := range r.Attrs {
		if isReservedField(k) {
			continue
		}
		out[k] = v
	}

	var err error
	if out[fieldID], err = json.Marshal(r.ID); err != nil {
		return nil, err
	}
	if out[fieldFullName], err = json.Marshal(r.FullName); err != nil {
		return nil, err
	}
	if r.Phone != "" {
		if out[fieldPhone], err = json.Marshal(r.Phone); err != nil {
			return nil, err
		}
	}
	if out[fieldCreatedAt], err = json.Marshal(r.CreatedAt); err != nil {
		return nil, err
	}
	if out[fieldCreatedBy], err = json.Marshal(r.CreatedBy); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON; stores use it to rehydrate
// records persisted as flat JSON documents.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw[fieldID]; ok {
		if err := json.Unmarshal(v, &r.ID); err != nil {
			return err
		}
	}
	if v, ok := raw[fieldFullName]; ok {
		if err := json.Unmarshal(v, &r.FullName); err != nil {
			return err
		}
	}
	if v, ok := raw[fieldPhone]; ok {
		if err := json.Unmarshal(v, &r.Phone); err != nil {
			return err
		}
	}
	if v, ok := raw[fieldCreatedAt]; ok {
		if err := json.Unmarshal(v, &r.CreatedAt); err != nil {
			return err
		}
	}
	if v, ok := raw[fieldCreatedBy]; ok {
		if err := json.Unmarshal(v, &r.CreatedBy); err != nil {
			return err
		}
	}

	r.Attrs = nil
	for k, v := range raw {
		if isReservedField(k) {
			continue
		}
		if r.Attrs == nil {
			r.Attrs = make(map[string]json.RawMessage)
		}
		r.Attrs[k] = v
	}
	return nil
}

func isReservedField(name string) bool {
	switch name {
	case fieldID, fieldFullName, fieldPhone, fieldCreatedAt, fieldCreatedBy:
		return true
	}
	return false
}

// Submission is the caller-supplied part of a new record.
type Submission struct {
	FullName string
	Phone    string
	Attrs    map[string]json.RawMessage
}

// ParseSubmission decodes a flat JSON object into a Submission. Server-assigned
// fields (id, createdAt, createdBy) present in the payload are dropped
// silently, matching how the original intake ignored them.
func ParseSubmission(data []byte) (Submission, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Submission{}, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}

	var sub Submission
	if v, ok := raw[fieldFullName]; ok {
		if err := json.Unmarshal(v, &sub.FullName); err != nil {
			return Submission{}, dErrors.New(dErrors.CodeBadRequest, "fullName must be a string")
		}
	}
	if v, ok := raw[fieldPhone]; ok {
		if err := json.Unmarshal(v, &sub.Phone); err != nil {
			return Submission{}, dErrors.New(dErrors.CodeBadRequest, "phone must be a string")
		}
	}
	for k, v := range raw {
		if isReservedField(k) {
			continue
		}
		if sub.Attrs == nil {
			sub.Attrs = make(map[string]json.RawMessage)
		}
		sub.Attrs[k] = v
	}
	return sub, nil
}

// Validate enforces required fields before a submission reaches a store.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.FullName) == "" {
		return dErrors.New(dErrors.CodeValidation, "fullName is required")
	}
	return nil
}

// Update is an explicit partial update: nil pointers mean "leave unchanged",
// attribute keys present in Attrs replace or add individual attributes.
type Update struct {
	FullName *string
	Phone    *string
	Attrs    map[string]json.RawMessage
}

// ParseUpdate decodes a flat JSON object into an Update. Attempts to overwrite
// protected fields are dropped, not rejected; the merge preserves them anyway.
func ParseUpdate(data []byte) (Update, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Update{}, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}

	var upd Update
	if v, ok := raw[fieldFullName]; ok {
		var name string
		if err := json.Unmarshal(v, &name); err != nil {
			return Update{}, dErrors.New(dErrors.CodeBadRequest, "fullName must be a string")
		}
		upd.FullName = &name
	}
	if v, ok := raw[fieldPhone]; ok {
		var phone string
		if err := json.Unmarshal(v, &phone); err != nil {
			return Update{}, dErrors.New(dErrors.CodeBadRequest, "phone must be a string")
		}
		upd.Phone = &phone
	}
	for k, v := range raw {
		if isReservedField(k) {
			continue
		}
		if upd.Attrs == nil {
			upd.Attrs = make(map[string]json.RawMessage)
		}
		upd.Attrs[k] = v
	}
	return upd, nil
}

// Apply merges the update into the record. ID, CreatedAt, and CreatedBy are
// untouchable regardless of the payload.
func (u Update) Apply(r *Record) {
	if u.FullName != nil {
		r.FullName = *u.FullName
	}
	if u.Phone != nil {
		r.Phone = *u.Phone
	}
	for k, v := range u.Attrs {
		if r.Attrs == nil {
			r.Attrs = make(map[string]json.RawMessage)
		}
		r.Attrs[k] = v
	}
}

// Receipt confirms a stored submission.
type Receipt struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// DuplicateResult is the outcome of a duplicate scan. An empty candidate list
// is a normal result, not an error.
type DuplicateResult struct {
	Found      bool      `json:"found"`
	Candidates []*Record `json:"candidates"`
}
