package db

import "testing"

func TestLRUCacheGetPut(t *testing.T) {
	c := newLRUCache(2)
	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))

	v, ok := c.Get("a")
	if !ok || string(v) != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache(2)
	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))
	// touch "a" so "b" becomes the least recently used entry
	c.Get("a")
	c.Put("c", []byte("3"))

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted as the least recently used entry")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a was touched more recently and should survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("c was just inserted and should be present")
	}
}

func TestLRUCachePutOverwritesExisting(t *testing.T) {
	c := newLRUCache(2)
	c.Put("a", []byte("1"))
	c.Put("a", []byte("2"))

	v, ok := c.Get("a")
	if !ok || string(v) != "2" {
		t.Fatalf("Get(a) = %q, %v, want updated value", v, ok)
	}
	if c.ll.Len() != 1 {
		t.Fatalf("overwriting an existing key should not grow the list, len = %d", c.ll.Len())
	}
}
