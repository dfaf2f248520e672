package access

import "testing"

func TestCan(t *testing.T) {
	member := Viewer{UserID: "member", GroupIDs: []string{"g1"}}
	stranger := Viewer{UserID: "stranger"}
	owner := Viewer{UserID: "owner"}

	publicNote := Note{OwnerID: "owner", Visibility: Public}
	privateNote := Note{OwnerID: "owner", Visibility: Private}
	groupNote := Note{OwnerID: "owner", Visibility: Group, GroupID: "g1"}

	cases := []struct {
		name   string
		note   Note
		viewer Viewer
		action Action
		allow  bool
	}{
		{name: "owner reads private", note: privateNote, viewer: owner, action: ActionRead, allow: true},
		{name: "owner writes group", note: groupNote, viewer: owner, action: ActionWrite, allow: true},
		{name: "stranger reads public", note: publicNote, viewer: stranger, action: ActionRead, allow: true},
		{name: "stranger writes public", note: publicNote, viewer: stranger, action: ActionWrite, allow: false},
		{name: "stranger reads private", note: privateNote, viewer: stranger, action: ActionRead, allow: false},
		{name: "stranger reads group", note: groupNote, viewer: stranger, action: ActionRead, allow: false},
		{name: "member reads group", note: groupNote, viewer: member, action: ActionRead, allow: true},
		{name: "member writes group", note: groupNote, viewer: member, action: ActionWrite, allow: false},
		{name: "member of other group", note: Note{OwnerID: "owner", Visibility: Group, GroupID: "g2"}, viewer: member, action: ActionRead, allow: false},
		{name: "anonymous reads public", note: publicNote, viewer: Viewer{}, action: ActionRead, allow: false},
		{name: "unknown visibility", note: Note{OwnerID: "owner", Visibility: "shared"}, viewer: stranger, action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.note, tc.viewer, tc.action); got != tc.allow {
				t.Fatalf("Can(%+v, %+v, %q) = %v, want %v", tc.note, tc.viewer, tc.action, got, tc.allow)
			}
		})
	}

	if !CanRead(groupNote, member) || CanWrite(groupNote, member) {
		t.Fatal("CanRead/CanWrite should agree with Can")
	}
}

func TestParseVisibility(t *testing.T) {
	cases := map[string]Visibility{"": Private, "public": Public, " Group ": Group, "PRIVATE": Private}
	for in, want := range cases {
		got, ok := ParseVisibility(in)
		if !ok || got != want {
			t.Fatalf("ParseVisibility(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseVisibility("friends"); ok {
		t.Fatal("ParseVisibility should reject unknown values")
	}
}
