// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import "testing"

func TestMarshalJSON(t *testing.T) {
	t.Parallel()

	type role struct {
		Name string         `json:"name"`
		Vars map[string]any `json:"vars,omitempty"`
	}
	type play struct {
		Hosts string `json:"hosts"`
		Roles []role `json:"roles"`
	}

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{
			name:  "sorted map keys",
			value: map[string]string{"b": "2", "a": "1"},
			want:  `{"a": "1", "b": "2"}`,
		},
		{
			name:  "struct field order",
			value: []play{{Hosts: "all", Roles: []role{{Name: "test", Vars: map[string]any{"name": "nginx"}}}}},
			want:  `[{"hosts": "all", "roles": [{"name": "test", "vars": {"name": "nginx"}}]}]`,
		},
		{
			name:  "separators inside strings untouched",
			value: map[string]string{"url": "http://a,b:c", "quote": `x\",y`},
			want:  `{"quote": "x\\\",y", "url": "http://a,b:c"}`,
		},
		{
			name:  "html not escaped",
			value: []string{"<a&b>"},
			want:  `["<a&b>"]`,
		},
		{
			name:  "numbers and literals",
			value: []any{1, 2.5, true, nil},
			want:  `[1, 2.5, true, null]`,
		},
		{
			name:  "empty containers",
			value: map[string]any{"list": []int{}, "map": map[string]int{}},
			want:  `{"list": [], "map": {}}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := MarshalJSON(tt.value)
			if err != nil {
				t.Fatalf("MarshalJSON: %v", err)
			}
			if got != tt.want {
				t.Errorf("MarshalJSON = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMarshalJSONError(t *testing.T) {
	t.Parallel()

	if _, err := MarshalJSON(map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatal("expected error for unencodable value")
	}
}
