package bookmark

import (
	"reflect"
	"testing"
)

func TestIsDeleted(t *testing.T) {
	cases := []struct {
		name string
		rec  *Record
		want bool
	}{
		{"nil record", nil, false},
		{"no tags", &Record{}, false},
		{"tagged", &Record{Tags: []string{"a", DeletedTag, "b"}}, true},
		{"untagged", &Record{Tags: []string{"a", "b"}}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsDeleted(c.rec); got != c.want {
				t.Fatalf("IsDeleted(%+v) = %v, want %v", c.rec, got, c.want)
			}
		})
	}
}

func TestLastTouch(t *testing.T) {
	u2 := int64(300)
	cases := []struct {
		name string
		m    Meta
		want int64
	}{
		{"created only", Meta{Created: 100}, 100},
		{"updated greater", Meta{Created: 100, Updated: 200}, 200},
		{"updated2 greater", Meta{Created: 100, Updated: 200, Updated2: &u2}, 300},
		{"updated2 lesser is ignored", Meta{Created: 100, Updated: 400, Updated2: &u2}, 400},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := LastTouch(c.m); got != c.want {
				t.Fatalf("LastTouch(%+v) = %d, want %d", c.m, got, c.want)
			}
		})
	}
}

func TestNormalizeHealsMissingDeletedMeta(t *testing.T) {
	rec := &Record{Tags: []string{DeletedTag}, Meta: Meta{Created: 100, Updated: 500}}

	out := Normalize(rec, 1)

	if out.DeletedMeta == nil {
		t.Fatal("expected DeletedMeta to be synthesized")
	}
	if out.DeletedMeta.Deleted != 500 || out.DeletedMeta.ActionType != ActionDelete {
		t.Fatalf("unexpected synthesized DeletedMeta: %+v", out.DeletedMeta)
	}
}

func TestNormalizeClearsStaleDeletedMeta(t *testing.T) {
	rec := &Record{
		Tags:        []string{"a"},
		Meta:        Meta{Created: 100, Updated: 500},
		DeletedMeta: &DeletedMeta{Deleted: 400, ActionType: ActionDelete},
	}

	out := Normalize(rec, 1)

	if out.DeletedMeta != nil {
		t.Fatalf("expected DeletedMeta cleared on undelete, got %+v", out.DeletedMeta)
	}
}

func TestNormalizeFillsInvalidCreated(t *testing.T) {
	rec := &Record{Meta: Meta{Created: 0, Updated: 0}}

	out := Normalize(rec, 42)

	if out.Meta.Created != 42 || out.Meta.Updated != 42 {
		t.Fatalf("expected both created and updated defaulted, got %+v", out.Meta)
	}
}

func TestNormalizeFillsInvalidUpdatedFromCreated(t *testing.T) {
	rec := &Record{Meta: Meta{Created: 100, Updated: -1}}

	out := Normalize(rec, 42)

	if out.Meta.Created != 100 || out.Meta.Updated != 100 {
		t.Fatalf("expected updated to fall back to created, got %+v", out.Meta)
	}
}

func TestNormalizeDedupsTagsPreservingOrder(t *testing.T) {
	rec := &Record{Tags: []string{"b", "a", "b", "", "c", "a"}, Meta: Meta{Created: 1, Updated: 1}}

	out := Normalize(rec, 0)

	if !reflect.DeepEqual(out.Tags, []string{"b", "a", "c"}) {
		t.Fatalf("unexpected deduped tags: %v", out.Tags)
	}
}

func TestNormalizeNilIsNil(t *testing.T) {
	if got := Normalize(nil, 0); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	rec := &Record{Tags: []string{"a", "a"}, Meta: Meta{Created: 1, Updated: 1}}

	_ = Normalize(rec, 0)

	if len(rec.Tags) != 2 {
		t.Fatalf("expected original record untouched, got %v", rec.Tags)
	}
}
