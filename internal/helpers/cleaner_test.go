package helpers

import "testing"

func TestExtractJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"target":"a"}`, `{"target":"a"}`},
		{"fenced", "```json\n{\"target\":\"a\"}\n```", `{"target":"a"}`},
		{"prose", `Sure! Here you go: {"label":"x}"} thanks`, `{"label":"x}"}`},
		{"nested", `{"a":{"b":[1,2]},"c":"\"{"}`, `{"a":{"b":[1,2]},"c":"\"{"}`},
		{"skips broken opener", `{oops] {"ok":true}`, `{"ok":true}`},
		{"byte order mark", "\ufeff```json\n{\"target\":\"b\"}\n```", `{"target":"b"}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if err != nil {
				t.Fatalf("ExtractJSON() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ExtractJSON() got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONErrors(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "no json here", `{"unterminated": true`, "[1,2]"} {
		if _, err := ExtractJSON(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
