package analysis

import "testing"

func TestUseClosure_TerminatesOnCycle(t *testing.T) {
	m := mod("provider").
		imports("pkg.c", "[1.0,2.0)").
		imports("pkg.d", "[1.0,2.0)").
		exports("pkg.a", "1.0", "pkg.b", "pkg.c").
		exports("pkg.b", "1.0", "pkg.a", "pkg.d").
		m

	exp, _ := m.Export("pkg.a")
	uses := UseClosure(m, exp)

	if len(uses) != 2 {
		t.Fatalf("expected 2 uses, got %d: %+v", len(uses), uses)
	}
	if uses[0].Name != "pkg.d" || uses[1].Name != "pkg.c" {
		t.Fatalf("expected [pkg.d pkg.c], got [%s %s]", uses[0].Name, uses[1].Name)
	}
}

func TestUseClosure_DropsUndeclaredUses(t *testing.T) {
	m := mod("provider").
		imports("pkg.c", "1.0").
		exports("pkg.a", "1.0", "pkg.unknown", "pkg.c").
		m

	exp, _ := m.Export("pkg.a")
	uses := UseClosure(m, exp)
	if len(uses) != 1 || uses[0].Name != "pkg.c" {
		t.Fatalf("expected only pkg.c, got %+v", uses)
	}
}

func TestUseClosure_ImportWinsOverOwnExport(t *testing.T) {
	m := mod("provider").
		imports("pkg.b", "1.0").
		exports("pkg.a", "1.0", "pkg.b").
		exports("pkg.b", "1.0", "pkg.c").
		imports("pkg.c", "1.0").
		m

	exp, _ := m.Export("pkg.a")
	uses := UseClosure(m, exp)
	if len(uses) != 1 || uses[0].Name != "pkg.b" {
		t.Fatalf("expected imported pkg.b without cascading, got %+v", uses)
	}
}
