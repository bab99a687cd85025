package recorder

import "testing"

func TestSubpassMetaInlineSetGet(t *testing.T) {
	m := NewSubpassMeta(4)
	m.Set(0, true, false)
	m.Set(1, false, true)
	m.Set(2, true, true)

	if c, d := m.Get(0); !c || d {
		t.Fatalf("subpass 0 = (%v, %v), want (true, false)", c, d)
	}
	if c, d := m.Get(1); c || !d {
		t.Fatalf("subpass 1 = (%v, %v), want (false, true)", c, d)
	}
	if c, d := m.Get(2); !c || !d {
		t.Fatalf("subpass 2 = (%v, %v), want (true, true)", c, d)
	}
	if c, d := m.Get(3); c || d {
		t.Fatalf("subpass 3 = (%v, %v), want (false, false) since never Set", c, d)
	}
}

func TestSubpassMetaOverflowBeyondInlineRange(t *testing.T) {
	const numSubpasses = 20
	m := NewSubpassMeta(numSubpasses)
	m.Set(17, true, true)
	m.Set(19, false, true)

	if c, d := m.Get(17); !c || !d {
		t.Fatalf("overflow subpass 17 = (%v, %v), want (true, true)", c, d)
	}
	if c, d := m.Get(19); c || !d {
		t.Fatalf("overflow subpass 19 = (%v, %v), want (false, true)", c, d)
	}
	// An index past what NewSubpassMeta allocated for should read as
	// false, false rather than panic.
	if c, d := m.Get(100); c || d {
		t.Fatalf("out-of-range Get = (%v, %v), want (false, false)", c, d)
	}
}

func TestBuildSubpassMetaFromAttachmentCounts(t *testing.T) {
	colorCounts := []int{1, 0, 2}
	hasDS := []bool{false, true, true}
	m := BuildSubpassMeta(3, colorCounts, hasDS)

	if c, d := m.Get(0); !c || d {
		t.Fatalf("subpass 0 = (%v, %v), want (true, false)", c, d)
	}
	if c, d := m.Get(1); c || !d {
		t.Fatalf("subpass 1 = (%v, %v), want (false, true)", c, d)
	}
	if c, d := m.Get(2); !c || !d {
		t.Fatalf("subpass 2 = (%v, %v), want (true, true)", c, d)
	}
}
