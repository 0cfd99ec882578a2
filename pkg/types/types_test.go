package types

import (
	"encoding/json"
	"testing"
)

func TestEdited_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantEdit  bool
		wantTime  float64
		wantError bool
	}{
		{name: "false boolean", input: `false`},
		{name: "true boolean", input: `true`, wantEdit: true},
		{name: "null value", input: `null`},
		{name: "timestamp", input: `1234567890.5`, wantEdit: true, wantTime: 1234567890.5},
		{name: "invalid value", input: `"invalid"`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Edited
			err := json.Unmarshal([]byte(tt.input), &e)

			if (err != nil) != tt.wantError {
				t.Errorf("Edited.UnmarshalJSON() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if err != nil {
				return
			}

			if e.IsEdited != tt.wantEdit {
				t.Errorf("Edited.IsEdited = %v, want %v", e.IsEdited, tt.wantEdit)
			}
			if e.Timestamp != tt.wantTime {
				t.Errorf("Edited.Timestamp = %v, want %v", e.Timestamp, tt.wantTime)
			}
		})
	}
}

func TestEdited_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   Edited
		want string
	}{
		{name: "not edited", in: Edited{}, want: `false`},
		{name: "legacy edit", in: Edited{IsEdited: true}, want: `true`},
		{name: "timestamp", in: Edited{IsEdited: true, Timestamp: 1700000000}, want: `1700000000`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		fullname string
		want     string
	}{
		{"t3_abc123", KindLink},
		{"t1_def456", KindComment},
		{"abc123", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := KindOf(tt.fullname); got != tt.want {
			t.Errorf("KindOf(%q) = %q, want %q", tt.fullname, got, tt.want)
		}
	}
}

func TestThing_Fullname(t *testing.T) {
	var thing Thing
	if err := json.Unmarshal([]byte(`{"kind":"t3","data":{"id":"abc","name":"t3_abc","title":"x"}}`), &thing); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if thing.Kind != KindLink {
		t.Errorf("Kind = %q, want %q", thing.Kind, KindLink)
	}
	if got := thing.Fullname(); got != "t3_abc" {
		t.Errorf("Fullname() = %q, want %q", got, "t3_abc")
	}

	broken := Thing{Kind: KindLink, Data: json.RawMessage(`[]`)}
	if got := broken.Fullname(); got != "" {
		t.Errorf("Fullname() of malformed data = %q, want empty", got)
	}
}

func TestRedditObject(t *testing.T) {
	objects := []RedditObject{
		&Post{ThingData: ThingData{ID: "post1", Name: "t3_post1"}},
		&Comment{ThingData: ThingData{ID: "c1", Name: "t1_c1"}},
		&AccountData{ThingData: ThingData{ID: "u1", Name: "t2_u1"}},
	}
	want := []string{"t3_post1", "t1_c1", "t2_u1"}

	for i, obj := range objects {
		if got := obj.GetName(); got != want[i] {
			t.Errorf("objects[%d].GetName() = %q, want %q", i, got, want[i])
		}
		if KindOf(obj.GetName()) == "" {
			t.Errorf("objects[%d] has no kind prefix", i)
		}
	}
}

func TestComment_Decode(t *testing.T) {
	raw := `{"id":"c1","name":"t1_c1","body":"hello","edited":1700000000.0,"link_id":"t3_p1","parent_id":"t3_p1","score":3}`

	var c Comment
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if c.Body != "hello" || c.LinkID != "t3_p1" || c.Score != 3 {
		t.Errorf("decoded comment = %+v", c)
	}
	if !c.Edited.IsEdited || c.Edited.Timestamp != 1700000000 {
		t.Errorf("Edited = %+v, want timestamp edit", c.Edited)
	}
}
