package image

import (
	"errors"
	"reflect"
	"testing"
)

func parseChange(tokens ...string) []Directive {
	var change []Directive
	for _, token := range tokens {
		change = append(change, ParseDirective(token))
	}
	return change
}

func intPtr(v int) *int {
	return &v
}

func TestPlanMerge(t *testing.T) {
	tests := []struct {
		name          string
		change        []string
		presentInNew  bool
		wantSurvives  bool
		wantOverwrite []Field
		wantKeep      bool
	}{
		{
			name:         "empty set survives untouched",
			presentInNew: false,
			wantSurvives: true,
		},
		{
			name:         "delete bites only when gone upstream",
			change:       []string{"delete"},
			presentInNew: false,
			wantSurvives: false,
		},
		{
			name:         "delete is inert while present upstream",
			change:       []string{"delete"},
			presentInNew: true,
			wantSurvives: true,
		},
		{
			name:          "update-all covers every field",
			change:        []string{"update-all"},
			presentInNew:  true,
			wantSurvives:  true,
			wantOverwrite: []Field{FieldDescription, FieldURL, FieldUpdateAfterDays},
		},
		{
			name:          "keep-field carves out of update-all",
			change:        []string{"update-all", "keep-description"},
			presentInNew:  true,
			wantSurvives:  true,
			wantOverwrite: []Field{FieldURL, FieldUpdateAfterDays},
		},
		{
			name:          "update-field without update-all",
			change:        []string{"update-url"},
			presentInNew:  true,
			wantSurvives:  true,
			wantOverwrite: []Field{FieldURL},
		},
		{
			name:          "keep-field cancels matching update-field",
			change:        []string{"update-url", "keep-url"},
			presentInNew:  true,
			wantSurvives:  true,
			wantOverwrite: nil,
		},
		{
			name:         "keep-change keeps directives",
			change:       []string{"keep-change"},
			presentInNew: true,
			wantSurvives: true,
			wantKeep:     true,
		},
		{
			name:         "unknown directives contribute nothing",
			change:       []string{"frobnicate", "update-change"},
			presentInNew: false,
			wantSurvives: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planMerge(parseChange(tt.change...), tt.presentInNew)
			if plan.survives != tt.wantSurvives {
				t.Errorf("survives = %v, want %v", plan.survives, tt.wantSurvives)
			}
			if plan.keepDirectives != tt.wantKeep {
				t.Errorf("keepDirectives = %v, want %v", plan.keepDirectives, tt.wantKeep)
			}
			wantOverwrite := make(map[Field]bool)
			for _, f := range tt.wantOverwrite {
				wantOverwrite[f] = true
			}
			if !reflect.DeepEqual(plan.overwrite, wantOverwrite) {
				t.Errorf("overwrite = %v, want %v", plan.overwrite, wantOverwrite)
			}
		})
	}
}

func TestReconcileScenarios(t *testing.T) {
	tests := []struct {
		name        string
		old         Registry
		canonical   Registry
		wantRecord  *Record
		wantAbsent  string
		wantActions []Action
	}{
		{
			name: "one-shot full update",
			old: Registry{
				"alt": {Name: "alt", URL: "u1", Change: parseChange("update-all")},
			},
			canonical: Registry{
				"alt": {Name: "alt", URL: "u2", Description: "D2"},
			},
			wantRecord:  &Record{Name: "alt", URL: "u2", Description: "D2"},
			wantActions: []Action{{Name: "alt", Kind: ActionUpdated}},
		},
		{
			name: "pinned field with persistent directive",
			old: Registry{
				"alt": {
					Name: "alt", URL: "u1", Description: "Keep me",
					Change: parseChange("update-all", "keep-description", "keep-change"),
				},
			},
			canonical: Registry{
				"alt": {Name: "alt", URL: "u2", Description: "D2"},
			},
			wantRecord: &Record{
				Name: "alt", URL: "u2", Description: "Keep me",
				Change: parseChange("update-all", "keep-description", "keep-change"),
			},
			wantActions: []Action{{Name: "alt", Kind: ActionUpdated}},
		},
		{
			name: "marked for deletion and gone upstream",
			old: Registry{
				"legacy": {Name: "legacy", URL: "l", Change: parseChange("delete")},
			},
			canonical:   Registry{},
			wantAbsent:  "legacy",
			wantActions: []Action{{Name: "legacy", Kind: ActionDeleted}},
		},
		{
			name: "marked for deletion but still present upstream",
			old: Registry{
				"legacy2": {Name: "legacy2", URL: "l2", Change: parseChange("delete")},
			},
			canonical: Registry{
				"legacy2": {Name: "legacy2", URL: "l3"},
			},
			wantRecord:  &Record{Name: "legacy2", URL: "l2"},
			wantActions: []Action{{Name: "legacy2", Kind: ActionUpdated}},
		},
		{
			name: "brand-new entry",
			old:  Registry{},
			canonical: Registry{
				"fresh": {Name: "fresh", URL: "f"},
			},
			wantRecord:  &Record{Name: "fresh", URL: "f"},
			wantActions: []Action{{Name: "fresh", Kind: ActionAdded}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, actions, err := Reconcile(tt.old, tt.canonical)
			if err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if !reflect.DeepEqual(actions, tt.wantActions) {
				t.Errorf("actions = %v, want %v", actions, tt.wantActions)
			}
			if tt.wantAbsent != "" {
				if _, ok := merged[tt.wantAbsent]; ok {
					t.Errorf("%q present in merged output, want absent", tt.wantAbsent)
				}
			}
			if tt.wantRecord != nil {
				got, ok := merged[tt.wantRecord.Name]
				if !ok {
					t.Fatalf("%q absent from merged output", tt.wantRecord.Name)
				}
				if !got.equal(*tt.wantRecord) {
					t.Errorf("merged record = %+v, want %+v", got, *tt.wantRecord)
				}
			}
		})
	}
}

func TestReconcilePreservation(t *testing.T) {
	// A record absent upstream and not marked delete comes through untouched,
	// directives, overrides and all.
	old := Registry{
		"custom": {
			Name: "custom", URL: "local", Description: "mine",
			Change:          parseChange("keep-url", "mystery-token"),
			UpdateAfterDays: intPtr(3),
		},
	}

	merged, actions, err := Reconcile(old, Registry{})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	got, ok := merged["custom"]
	if !ok {
		t.Fatal("custom absent from merged output")
	}
	if !got.equal(old["custom"]) {
		t.Errorf("merged = %+v, want %+v", got, old["custom"])
	}
	want := []Action{{Name: "custom", Kind: ActionUnchanged}}
	if !reflect.DeepEqual(actions, want) {
		t.Errorf("actions = %v, want %v", actions, want)
	}
}

func TestReconcileFieldIsolation(t *testing.T) {
	old := Registry{
		"img": {
			Name: "img", URL: "u-old", Description: "d-old", UpdateAfterDays: intPtr(5),
			Change: parseChange("update-all", "keep-url"),
		},
	}
	canonical := Registry{
		"img": {Name: "img", URL: "u-new", Description: "d-new", UpdateAfterDays: intPtr(9)},
	}

	merged, _, err := Reconcile(old, canonical)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	got := merged["img"]
	if got.URL != "u-old" {
		t.Errorf("url = %q, want pinned %q", got.URL, "u-old")
	}
	if got.Description != "d-new" {
		t.Errorf("description = %q, want %q", got.Description, "d-new")
	}
	if got.UpdateAfterDays == nil || *got.UpdateAfterDays != 9 {
		t.Errorf("update-after-days = %v, want 9", got.UpdateAfterDays)
	}
	if len(got.Change) != 0 {
		t.Errorf("change = %v, want reset to empty", got.ChangeTokens())
	}
}

func TestReconcileDirectiveReset(t *testing.T) {
	// Without keep-change the merged record adopts the canonical directive
	// set, including any directives the canonical side carries.
	old := Registry{
		"img": {Name: "img", URL: "u", Change: parseChange("update-url", "mystery")},
	}
	canonical := Registry{
		"img": {Name: "img", URL: "u2", Change: parseChange("delete")},
	}

	merged, _, err := Reconcile(old, canonical)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	got := merged["img"]
	if got.URL != "u2" {
		t.Errorf("url = %q, want %q", got.URL, "u2")
	}
	want := []string{"delete"}
	if !reflect.DeepEqual(got.ChangeTokens(), want) {
		t.Errorf("change = %v, want %v (unknown tokens dropped on reset)", got.ChangeTokens(), want)
	}
}

func TestReconcileSortOrder(t *testing.T) {
	old := Registry{
		"zeta": {Name: "zeta", URL: "u"},
		"beta": {Name: "beta", URL: "u"},
	}
	canonical := Registry{
		"alpha": {Name: "alpha", URL: "u"},
		"mid":   {Name: "mid", URL: "u"},
	}

	_, actions, err := Reconcile(old, canonical)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	for i := 1; i < len(actions); i++ {
		if actions[i-1].Name >= actions[i].Name {
			t.Fatalf("actions not strictly ascending: %q before %q", actions[i-1].Name, actions[i].Name)
		}
	}
}

func TestReconcileIdempotence(t *testing.T) {
	// Without keep-change anywhere, a second pass over the merged result is a
	// no-op: every directive consumed itself on the first pass.
	old := Registry{
		"a": {Name: "a", URL: "u1", Change: parseChange("update-all")},
		"b": {Name: "b", URL: "u2", Change: parseChange("delete")},
		"c": {Name: "c", URL: "u3", Change: parseChange("update-description")},
		"d": {Name: "d", URL: "u4"},
	}
	canonical := Registry{
		"a": {Name: "a", URL: "U1", Description: "A"},
		"c": {Name: "c", URL: "U3", Description: "C"},
		"e": {Name: "e", URL: "U5"},
	}

	once, _, err := Reconcile(old, canonical)
	if err != nil {
		t.Fatalf("first Reconcile() error = %v", err)
	}
	twice, actions, err := Reconcile(once, canonical)
	if err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}

	if len(once) != len(twice) {
		t.Fatalf("second pass changed registry size: %d vs %d", len(once), len(twice))
	}
	for name, rec := range once {
		if !twice[name].equal(rec) {
			t.Errorf("second pass changed %q: %+v vs %+v", name, twice[name], rec)
		}
	}
	for _, action := range actions {
		if action.Kind != ActionUnchanged {
			t.Errorf("second pass action %s = %s, want unchanged", action.Name, action.Kind)
		}
	}
}

func TestReconcileUpdatedVersusUnchanged(t *testing.T) {
	// An update directive whose target already matches upstream reports
	// unchanged only if the directive set also stays put.
	old := Registry{
		"same":  {Name: "same", URL: "u"},
		"armed": {Name: "armed", URL: "u", Change: parseChange("update-url")},
	}
	canonical := Registry{
		"same":  {Name: "same", URL: "u"},
		"armed": {Name: "armed", URL: "u"},
	}

	_, actions, err := Reconcile(old, canonical)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	want := []Action{
		{Name: "armed", Kind: ActionUpdated}, // directive set reset counts as a change
		{Name: "same", Kind: ActionUnchanged},
	}
	if !reflect.DeepEqual(actions, want) {
		t.Errorf("actions = %v, want %v", actions, want)
	}
}

func TestReconcileMalformedRecord(t *testing.T) {
	tests := []struct {
		name      string
		old       Registry
		canonical Registry
		wantName  string
	}{
		{
			name:      "malformed in old",
			old:       Registry{"bad": {Name: "bad"}},
			canonical: Registry{"ok": {Name: "ok", URL: "u"}},
			wantName:  "bad",
		},
		{
			name:      "malformed in canonical",
			old:       Registry{"ok": {Name: "ok", URL: "u"}},
			canonical: Registry{"worse": {Name: "worse"}},
			wantName:  "worse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, actions, err := Reconcile(tt.old, tt.canonical)
			if merged != nil || actions != nil {
				t.Error("expected no partial output on malformed input")
			}
			var recErr *RecordError
			if !errors.As(err, &recErr) {
				t.Fatalf("error = %v, want *RecordError", err)
			}
			if recErr.Name != tt.wantName {
				t.Errorf("RecordError.Name = %q, want %q", recErr.Name, tt.wantName)
			}
		})
	}
}

func TestReconcileDoesNotAliasInputs(t *testing.T) {
	old := Registry{
		"img": {Name: "img", URL: "u", Change: parseChange("keep-change", "x-token")},
	}
	canonical := Registry{
		"img": {Name: "img", URL: "u"},
	}

	merged, _, err := Reconcile(old, canonical)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	merged["img"].Change[0] = ParseDirective("delete")
	if old["img"].Change[0].Kind != DirectiveKeepChange {
		t.Error("mutating merged output changed the input registry")
	}
}
