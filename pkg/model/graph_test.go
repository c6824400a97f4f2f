package model

import "testing"

func TestSnapshotValidate(t *testing.T) {
	tests := []struct {
		name    string
		snap    Snapshot
		wantErr bool
	}{
		{"empty", EmptySnapshot(), false},
		{"ok", Snapshot{Nodes: []Node{{ID: "a"}, {ID: "b"}}, Edges: []Edge{{Source: "a", Target: "b"}}}, false},
		{"dangling is legal", Snapshot{Nodes: []Node{{ID: "a"}}, Edges: []Edge{{Source: "a", Target: "ghost"}}}, false},
		{"duplicate id", Snapshot{Nodes: []Node{{ID: "a"}, {ID: "a"}}}, true},
		{"empty id", Snapshot{Nodes: []Node{{ID: " "}}}, true},
		{"empty endpoint", Snapshot{Nodes: []Node{{ID: "a"}}, Edges: []Edge{{Source: "a"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSnapshotDedupe(t *testing.T) {
	s := Snapshot{
		Nodes: []Node{{ID: "a", Label: LabelPerson}, {ID: "b"}, {ID: "a", Label: LabelDevice}},
		Edges: []Edge{{Source: "a", Target: "b"}},
	}
	got := s.Dedupe()
	if got.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", got.NodeCount())
	}
	if got.Nodes[0].Label != LabelPerson {
		t.Errorf("first occurrence should win, got label %q", got.Nodes[0].Label)
	}
	if got.EdgeCount() != 1 {
		t.Errorf("edges should be preserved, got %d", got.EdgeCount())
	}
}

func TestEdgeDangling(t *testing.T) {
	s := Snapshot{Nodes: []Node{{ID: "A"}, {ID: "B"}}}
	idx := s.NodeIndex()
	if (Edge{Source: "A", Target: "B"}).Dangling(idx) {
		t.Error("A->B should not be dangling")
	}
	if !(Edge{Source: "A", Target: "ghost"}).Dangling(idx) {
		t.Error("A->ghost should be dangling")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{Node{ID: "n1", Properties: map[string]any{"name": "Vikram Rao"}}, "Vikram Rao"},
		{Node{ID: "n2", Properties: map[string]any{"number": "+91 98200 00000"}}, "+91 98200 00000"},
		{Node{ID: "n3", Properties: map[string]any{"name": "  ", "uid": "dev-7"}}, "dev-7"},
		{Node{ID: "n4"}, "n4"},
		{Node{ID: "n5", Properties: map[string]any{"page_id": 42}}, "42"},
	}
	for _, tt := range tests {
		if got := tt.node.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%s) = %q, want %q", tt.node.ID, got, tt.want)
		}
	}
}

func TestKebab(t *testing.T) {
	tests := map[string]string{
		"PhoneNumber":    "phone-number",
		"HAS_PHONE":      "has-phone",
		"URL":            "url",
		"EmailAddress":   "email-address",
		"BELONGS_TO_ORG": "belongs-to-org",
		"Person":         "person",
		"":               "",
	}
	for in, want := range tests {
		if got := Kebab(in); got != want {
			t.Errorf("Kebab(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLabelNormalize(t *testing.T) {
	if LabelPerson.Normalize() != LabelPerson {
		t.Error("known label should normalize to itself")
	}
	if Label("Spaceship").Normalize() != LabelUnknown {
		t.Error("unknown label should normalize to Unknown")
	}
	if !RelCalled.IsCommunication() || RelHasPhone.IsCommunication() {
		t.Error("IsCommunication mismatch")
	}
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in   string
		want Label
		ok   bool
	}{
		{"Person", LabelPerson, true},
		{" phonenumber ", LabelPhoneNumber, true},
		{"URL", LabelURL, true},
		{"Unknown", "Unknown", false},
		{"Suspect", "Suspect", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseLabel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLabel(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
