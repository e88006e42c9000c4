package memory

import (
	"context"
	"testing"
)

func TestKV(t *testing.T) {
	ctx := context.Background()
	kv := New()

	if _, found, err := kv.Get(ctx, "k"); found || err != nil {
		t.Fatalf("expected absent key, found=%v err=%v", found, err)
	}

	buf := []byte("abc")
	if err := kv.Put(ctx, "k", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'z'

	got, found, err := kv.Get(ctx, "k")
	if err != nil || !found || string(got) != "abc" {
		t.Fatalf("Get = %q, %v, %v", got, found, err)
	}
	got[1] = 'z'
	again, _, _ := kv.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value aliased caller slice: %q", again)
	}
	if kv.Puts() != 1 {
		t.Errorf("Puts = %d, want 1", kv.Puts())
	}
}
