package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// ActionKind is what the reconciler does with one reference id.
type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionUpdate ActionKind = "update"
	ActionSkip   ActionKind = "skip"
	ActionRemove ActionKind = "remove"
)

// Action is a single step of a Plan.
type Action struct {
	Kind  ActionKind `json:"kind"`
	RefID string     `json:"ref_id"`
	// Entry is nil for removals.
	Entry *Entry `json:"-"`
	Hash  string `json:"-"`
	// From is the current note file, empty when there is none.
	From string `json:"from,omitempty"`
	// To is the file the note ends up in. Empty for removals.
	To string `json:"to,omitempty"`
	// Restore marks a create for an id the archive already knew.
	Restore bool `json:"restore,omitempty"`
}

// Renames reports whether the action moves an existing note to a new name.
func (a Action) Renames() bool {
	return a.From != "" && a.To != "" && a.From != a.To
}

// Plan is the ordered list of actions of one run.
type Plan struct {
	Actions []Action `json:"actions"`
}

// Count returns the number of actions of the given kind.
func (p Plan) Count(kind ActionKind) int {
	n := 0
	for _, a := range p.Actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Changes returns the number of actions that touch the filesystem.
func (p Plan) Changes() int {
	return len(p.Actions) - p.Count(ActionSkip)
}

// Fingerprint hashes an entry together with the layout signature it is rendered with.
func Fingerprint(e Entry, signature string) string {
	// Marshalling a struct of strings cannot fail.
	data, _ := json.Marshal(e)
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(signature))
	return hex.EncodeToString(h.Sum(nil))
}

// LocateFunc finds the current note file of a reference id.
type LocateFunc func(refID string) (name string, ok bool)

// BuildPlan diffs the bibliography against the archive.
//
// Rules, per reference id:
//   - unknown to the archive: create (adopting an existing note with that id, if any);
//   - known, same fingerprint, note present: skip;
//   - known, note missing from the folder: create again (restore);
//   - known, different fingerprint: update, renaming when the derived name changed;
//   - archived but absent from the bibliography: remove.
//
// Duplicate reference ids keep their first occurrence.
func BuildPlan(entries []Entry, archive Archive, layout Layout, locate LocateFunc) Plan {
	var plan Plan
	seen := make(map[string]bool, len(entries))

	for i := range entries {
		e := entries[i]
		if e.RefID == "" || seen[e.RefID] {
			continue
		}
		seen[e.RefID] = true

		action := Action{
			RefID: e.RefID,
			Entry: &e,
			Hash:  Fingerprint(e, layout.Signature()),
			To:    layout.FileName(e),
		}
		current, present := locate(e.RefID)
		if present {
			action.From = current
		}

		rec, known := archive.Get(e.RefID)
		switch {
		case !known:
			action.Kind = ActionCreate
		case !present:
			action.Kind = ActionCreate
			action.Restore = true
		case rec.Hash != "" && rec.Hash == action.Hash:
			action.Kind = ActionSkip
			action.To = current
		default:
			action.Kind = ActionUpdate
		}
		plan.Actions = append(plan.Actions, action)
	}

	for _, id := range archive.IDs() {
		if seen[id] {
			continue
		}
		action := Action{Kind: ActionRemove, RefID: id}
		if current, ok := locate(id); ok {
			action.From = current
		}
		plan.Actions = append(plan.Actions, action)
	}

	sort.SliceStable(plan.Actions, func(i, j int) bool {
		return plan.Actions[i].RefID < plan.Actions[j].RefID
	})
	return plan
}
