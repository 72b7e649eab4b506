package image

import "sort"

// ActionKind classifies what reconciliation did to one name.
type ActionKind int

const (
	// ActionAdded means the record was taken over from the canonical
	// registry and did not exist locally.
	ActionAdded ActionKind = iota
	// ActionUpdated means at least one stored value changed.
	ActionUpdated
	// ActionUnchanged means the record survived with identical values.
	ActionUnchanged
	// ActionDeleted means the record was removed.
	ActionDeleted
)

// String returns the action's report form.
func (k ActionKind) String() string {
	switch k {
	case ActionAdded:
		return "added"
	case ActionUpdated:
		return "updated"
	case ActionUnchanged:
		return "unchanged"
	case ActionDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Action is one entry of the reconciliation report.
type Action struct {
	Name string
	Kind ActionKind
}

// mergePlan is the interpreted meaning of one record's directive set for a
// single reconciliation pass.
type mergePlan struct {
	// survives is consulted only when the name is absent from the canonical
	// registry: false means the record is dropped.
	survives bool
	// overwrite holds the fields taken from the canonical record when the
	// name exists on both sides.
	overwrite map[Field]bool
	// keepDirectives keeps the old directive set instead of adopting the
	// canonical one.
	keepDirectives bool
}

// planMerge interprets a directive set. It is a pure function: unknown
// directives never contribute to the plan, delete only bites when the name
// has disappeared upstream, and keep-<field> wins over update-all.
func planMerge(change []Directive, presentInNew bool) mergePlan {
	plan := mergePlan{survives: true, overwrite: make(map[Field]bool)}

	updateAll := false
	deleteSet := false
	kept := make(map[Field]bool)
	for _, d := range change {
		switch d.Kind {
		case DirectiveDelete:
			deleteSet = true
		case DirectiveUpdateAll:
			updateAll = true
		case DirectiveUpdateField:
			plan.overwrite[d.Field] = true
		case DirectiveKeepField:
			kept[d.Field] = true
		case DirectiveKeepChange:
			plan.keepDirectives = true
		}
	}

	if deleteSet && !presentInNew {
		plan.survives = false
	}
	if updateAll {
		for _, f := range fields {
			plan.overwrite[f] = true
		}
	}
	for f := range kept {
		delete(plan.overwrite, f)
	}

	return plan
}

// Reconcile merges the canonical registry into the local one, honoring each
// local record's change directives, and reports what happened per name in
// ascending order. Inputs are not modified; the merged registry shares no
// memory with them. A record missing its url in either input aborts the whole
// operation before any merging happens.
func Reconcile(old, canonical Registry) (Registry, []Action, error) {
	if err := old.Validate(); err != nil {
		return nil, nil, err
	}
	if err := canonical.Validate(); err != nil {
		return nil, nil, err
	}

	names := make(map[string]bool, len(old)+len(canonical))
	for name := range old {
		names[name] = true
	}
	for name := range canonical {
		names[name] = true
	}
	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	merged := make(Registry, len(names))
	actions := make([]Action, 0, len(names))

	for _, name := range ordered {
		oldRec, inOld := old[name]
		newRec, inNew := canonical[name]

		switch {
		case inOld && !inNew:
			plan := planMerge(oldRec.Change, false)
			if !plan.survives {
				actions = append(actions, Action{Name: name, Kind: ActionDeleted})
				continue
			}
			merged[name] = oldRec.clone()
			actions = append(actions, Action{Name: name, Kind: ActionUnchanged})

		case !inOld && inNew:
			merged[name] = newRec.clone()
			actions = append(actions, Action{Name: name, Kind: ActionAdded})

		default:
			plan := planMerge(oldRec.Change, true)
			out := oldRec.clone()
			if plan.overwrite[FieldDescription] {
				out.Description = newRec.Description
			}
			if plan.overwrite[FieldURL] {
				out.URL = newRec.URL
			}
			if plan.overwrite[FieldUpdateAfterDays] {
				out.UpdateAfterDays = nil
				if newRec.UpdateAfterDays != nil {
					days := *newRec.UpdateAfterDays
					out.UpdateAfterDays = &days
				}
			}
			if !plan.keepDirectives {
				out.Change = nil
				if newRec.Change != nil {
					out.Change = make([]Directive, len(newRec.Change))
					copy(out.Change, newRec.Change)
				}
			}
			merged[name] = out

			kind := ActionUnchanged
			if !out.equal(oldRec) {
				kind = ActionUpdated
			}
			actions = append(actions, Action{Name: name, Kind: kind})
		}
	}

	return merged, actions, nil
}
