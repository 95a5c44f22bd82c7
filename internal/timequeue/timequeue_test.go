package timequeue

import "testing"

func TestPopsInTimeOrder(t *testing.T) {
	q := New(100.0)
	q.Insert(3, 250.0)
	q.Insert(1, 150.0)
	q.Insert(2, 200.0)

	want := []int{1, 2, 3}
	for i, id := range want {
		if got := q.Next(); got != id {
			t.Fatalf("pop %d: got id %d, want %d", i, got, id)
		}
	}
}

func TestTieBrokenByID(t *testing.T) {
	q := New(100.0)
	q.Insert(9, 150.0)
	q.Insert(2, 150.0)
	q.Insert(5, 150.0)

	want := []int{2, 5, 9}
	for i, id := range want {
		if got := q.Next(); got != id {
			t.Fatalf("pop %d: got id %d, want %d", i, got, id)
		}
	}
}

func TestClockAdvancesMonotonically(t *testing.T) {
	q := New(100.0)
	if q.Time() != 100.0 {
		t.Fatalf("initial clock = %f, want 100.0", q.Time())
	}
	q.Insert(0, 180.0)
	q.Insert(1, 120.0)
	q.Insert(0, 300.0)

	prev := q.Time()
	for q.Len() > 0 {
		q.Next()
		if q.Time() < prev {
			t.Fatalf("clock moved backwards: %f -> %f", prev, q.Time())
		}
		prev = q.Time()
	}
	if prev != 300.0 {
		t.Fatalf("final clock = %f, want 300.0", prev)
	}
}

func TestDuplicateIDsAllowed(t *testing.T) {
	q := New(100.0)
	q.Insert(7, 110.0)
	q.Insert(7, 120.0)
	q.Insert(7, 130.0)
	if q.Len() != 3 {
		t.Fatalf("len = %d, want 3", q.Len())
	}
	for i := 0; i < 3; i++ {
		if got := q.Next(); got != 7 {
			t.Fatalf("pop %d: got id %d, want 7", i, got)
		}
	}
}

func TestResetRestoresBase(t *testing.T) {
	q := New(100.0)
	q.Insert(1, 500.0)
	q.Next()
	q.Insert(2, 600.0)
	q.Reset()

	if q.Len() != 0 {
		t.Fatalf("len after reset = %d, want 0", q.Len())
	}
	if q.Time() != 100.0 {
		t.Fatalf("clock after reset = %f, want 100.0", q.Time())
	}
}
