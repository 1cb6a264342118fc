package bookmark

import (
	"reflect"
	"testing"
)

func TestParseTagsFromSlice(t *testing.T) {
	got := ParseTags([]string{" a ", "b", "a", "", "c"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseTags(slice) = %v, want %v", got, want)
	}
}

func TestParseTagsFromCommaString(t *testing.T) {
	got := ParseTags("a, b ,a,,c")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseTags(string) = %v, want %v", got, want)
	}
}

func TestParseTagsUnsupportedType(t *testing.T) {
	if got := ParseTags(42); got != nil {
		t.Fatalf("expected nil for an unsupported input type, got %v", got)
	}
}
