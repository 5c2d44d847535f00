package regalloc

import (
	"testing"

	"github.com/jdryg/jitcc/pkg/mir"
)

func TestRegSetBasics(t *testing.T) {
	v1 := mir.VReg{ID: 1, Class: mir.RegClassInt}

	s := NewRegSet()
	if s.Contains(v1) {
		t.Error("a fresh set should contain nothing")
	}
	s.Add(v1)
	if !s.Contains(v1) {
		t.Error("expected v1 after Add")
	}
	s.Remove(v1)
	if s.Contains(v1) {
		t.Error("expected v1 gone after Remove")
	}
}

func TestRegSetUnionMinusEqual(t *testing.T) {
	v1 := mir.VReg{ID: 1, Class: mir.RegClassInt}
	v2 := mir.VReg{ID: 2, Class: mir.RegClassInt}
	v3 := mir.VReg{ID: 3, Class: mir.RegClassInt}

	a := NewRegSet()
	a.Add(v1)
	a.Add(v2)
	b := NewRegSet()
	b.Add(v2)
	b.Add(v3)

	union := a.Union(b)
	for _, v := range []mir.VReg{v1, v2, v3} {
		if !union.Contains(v) {
			t.Errorf("expected union to contain %v", v)
		}
	}

	minus := a.Minus(b)
	if !minus.Contains(v1) || minus.Contains(v2) {
		t.Errorf("expected a-b = {v1}, got %v", minus.Slice())
	}

	if a.Equal(b) {
		t.Error("differing sets must not compare equal")
	}
	if !a.Equal(a.Copy()) {
		t.Error("a copy must compare equal to its source")
	}
}

func TestRegSetCopyIsIndependent(t *testing.T) {
	v1 := mir.VReg{ID: 1, Class: mir.RegClassInt}
	v2 := mir.VReg{ID: 2, Class: mir.RegClassInt}

	a := NewRegSet()
	a.Add(v1)
	cp := a.Copy()
	cp.Add(v2)

	if a.Contains(v2) {
		t.Error("mutating a copy must not affect the source set")
	}
}
