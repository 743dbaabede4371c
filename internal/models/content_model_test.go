package models

import (
	"errors"
	"testing"
)

func TestContentRefValidate(t *testing.T) {
	one, two := int64(1), int64(2)
	tests := []struct {
		name string
		ref  ContentRef
		ok   bool
	}{
		{"clip only", ContentRef{ClipID: &one}, true},
		{"variant only", ContentRef{VariantID: &two}, true},
		{"both", ContentRef{ClipID: &one, VariantID: &two}, false},
		{"neither", ContentRef{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ref.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidContentRef) {
				t.Fatalf("err = %v, want ErrInvalidContentRef", err)
			}
		})
	}
}

func TestContentItemRef(t *testing.T) {
	clip := ContentItem{ID: 7, Kind: ContentKindClip}
	if r := clip.Ref(); r.ClipID == nil || *r.ClipID != 7 || r.VariantID != nil {
		t.Fatalf("clip ref = %s", r)
	}
	variant := ContentItem{ID: 9, Kind: ContentKindVariant}
	if r := variant.Ref(); r.VariantID == nil || *r.VariantID != 9 || r.ClipID != nil {
		t.Fatalf("variant ref = %s", r)
	}
}

func TestPostStatusPredicates(t *testing.T) {
	if !PostStatusScheduled.Cancellable() || !PostStatusFailed.Cancellable() {
		t.Error("scheduled and failed should be cancellable")
	}
	if PostStatusPublishing.Cancellable() {
		t.Error("publishing must not be cancellable")
	}
	for _, s := range []PostStatus{PostStatusPublished, PostStatusMaxRetriesReached, PostStatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if PostStatus("draft").Valid() {
		t.Error("draft is not a valid status")
	}
}
