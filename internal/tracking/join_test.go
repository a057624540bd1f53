package tracking

import "testing"

func TestJoinFiresOnceWhenAllInputsArrive(t *testing.T) {
	fired := 0
	join := NewJoin(func() { fired++ }, "catalog", "snapshot")

	join.Supply("catalog")
	if join.Done() {
		t.Fatal("join must not fire before every input arrives")
	}

	join.Supply("snapshot")
	if !join.Done() {
		t.Fatal("join must fire when the last input arrives")
	}
	if fired != 1 {
		t.Fatalf("combinator ran %d times, want 1", fired)
	}
}

func TestJoinIgnoresRepeatedAndUnknownInputs(t *testing.T) {
	fired := 0
	join := NewJoin(func() { fired++ }, "catalog", "snapshot")

	join.Supply("catalog")
	join.Supply("catalog")
	join.Supply("bogus")
	if join.Done() {
		t.Fatal("repeated or unknown inputs must not complete the join")
	}

	join.Supply("snapshot")
	join.Supply("snapshot")
	if fired != 1 {
		t.Fatalf("combinator ran %d times, want 1", fired)
	}
}

func TestJoinWithNoInputsFiresOnFirstSupply(t *testing.T) {
	fired := 0
	join := NewJoin(func() { fired++ })
	if join.Done() {
		t.Fatal("a zero-input join must stay idle until supplied")
	}

	join.Supply("anything")
	if fired != 1 {
		t.Fatalf("combinator ran %d times, want 1", fired)
	}
}
