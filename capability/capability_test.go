package capability

import "testing"

func TestSetHas(t *testing.T) {
	s := NewSet(Operator)

	if !s.Has(Operator) {
		t.Error("expected operator")
	}
	if s.Has(Treasury) {
		t.Error("unexpected treasury")
	}
}

func TestAdminImpliesAll(t *testing.T) {
	s := NewSet(Admin)

	for _, c := range All() {
		if !s.Has(c) {
			t.Errorf("admin should imply %s", c)
		}
	}
}

func TestGrantRevoke(t *testing.T) {
	g := make(Grants)

	g.Grant("alice", Registrar)
	if !g.Has("alice", Registrar) {
		t.Error("expected registrar after grant")
	}

	g.Revoke("alice", Registrar)
	if g.Has("alice", Registrar) {
		t.Error("expected no registrar after revoke")
	}
	if _, ok := g["alice"]; ok {
		t.Error("empty set should be pruned")
	}
}

func TestNilSafety(t *testing.T) {
	var s Set
	if s.Has(Admin) {
		t.Error("nil set should grant nothing")
	}

	var g Grants
	if g.Has("anyone", Operator) {
		t.Error("nil grants should grant nothing")
	}
}

func TestValid(t *testing.T) {
	if !Operator.Valid() {
		t.Error("operator should be valid")
	}
	if Capability("superuser").Valid() {
		t.Error("unknown capability should be invalid")
	}
}

func TestClone(t *testing.T) {
	g := make(Grants)
	g.Grant("bob", Treasury)

	clone := g.Clone()
	clone.Grant("bob", Operator)

	if g.Has("bob", Operator) {
		t.Error("mutating clone should not affect original")
	}
}
