package docstore

import (
	"reflect"
	"testing"
)

func TestFields_Lenient(t *testing.T) {
	f := Fields{
		"name":     "Oil change",
		"price":    "49.5",
		"priceEU":  "49,5",
		"duration": 30.0,
		"year":     "2019",
		"int32":    int32(7),
		"flag":     true,
		"junk":     []int{1},
	}

	if got := f.String("name"); got != "Oil change" {
		t.Errorf("String(name) = %q", got)
	}
	if got := f.String("duration"); got != "30" {
		t.Errorf("String(duration) = %q", got)
	}
	if got := f.String("flag"); got != "true" {
		t.Errorf("String(flag) = %q", got)
	}
	if got := f.String("missing"); got != "" {
		t.Errorf("String(missing) = %q", got)
	}
	if got := f.Float("price"); got != 49.5 {
		t.Errorf("Float(price) = %v", got)
	}
	if got := f.Float("priceEU"); got != 49.5 {
		t.Errorf("Float(priceEU) = %v", got)
	}
	if got := f.Float("junk"); got != 0 {
		t.Errorf("Float(junk) = %v", got)
	}
	if got := f.Int("year"); got != 2019 {
		t.Errorf("Int(year) = %v", got)
	}
	if got := f.Int("duration"); got != 30 {
		t.Errorf("Int(duration) = %v", got)
	}
	if got := f.Int("int32"); got != 7 {
		t.Errorf("Int(int32) = %v", got)
	}
	if !f.Has("junk") || f.Has("missing") {
		t.Error("Has() mismatch")
	}
}

func TestFields_Strings(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  []string
	}{
		{"string slice", []string{"a", "b"}, []string{"a", "b"}},
		{"any slice", []any{"a", 3, "", "b"}, []string{"a", "b"}},
		{"index map", map[string]any{"10": "k", "2": "c", "0": "a", "1": "b"}, []string{"a", "b", "c", "k"}},
		{"single string", "a", []string{"a"}},
		{"empty string", "", []string{}},
		{"missing", nil, []string{}},
		{"wrong type", 42, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Fields{}
			if tt.value != nil {
				f["serviceIds"] = tt.value
			}
			if got := f.Strings("serviceIds"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Strings() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCopyFields_IsDeep(t *testing.T) {
	in := map[string]any{"nested": map[string]any{"a": "1"}, "list": []any{"x"}}
	out := copyFields(in)

	out["nested"].(map[string]any)["a"] = "changed"
	out["list"].([]any)[0] = "changed"

	if in["nested"].(map[string]any)["a"] != "1" || in["list"].([]any)[0] != "x" {
		t.Error("copyFields shares nested values with its input")
	}
}
