package session

import "testing"

func TestDedupCache_PutGet(t *testing.T) {
	c := NewDedupCache()
	if _, found := c.Get("aaaa"); found {
		t.Fatal("expected empty cache miss")
	}

	c.Put("aaaa", "imgs")
	table, found := c.Get("aaaa")
	if !found || table != "imgs" {
		t.Fatalf("expected cached hit imgs, got table=%q found=%v", table, found)
	}
	if c.Len() != 1 {
		t.Fatalf("expected Len()=1, got %d", c.Len())
	}
}
