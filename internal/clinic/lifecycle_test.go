package clinic

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeCache counts invalidations so tests can check that writes bust the
// listing cache.
type fakeCache struct {
	mu           sync.Mutex
	invalidated  int
	entries      map[string][]SlotView
	gets, misses int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]SlotView{}}
}

func (c *fakeCache) key(f SlotFilter) string { return f.DoctorID + "|" + f.Date }

func (c *fakeCache) GetSlots(ctx context.Context, f SlotFilter) ([]SlotView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	views, ok := c.entries[c.key(f)]
	if !ok {
		c.misses++
	}
	return views, ok
}

func (c *fakeCache) SetSlots(ctx context.Context, f SlotFilter, views []SlotView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(f)] = views
}

func (c *fakeCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.entries = map[string][]SlotView{}
}

func TestCreateDoctor_Validation(t *testing.T) {
	svc := NewLifecycleService(NewMemStore(), nil)
	ctx := context.Background()

	if _, err := svc.CreateDoctor(ctx, CreateDoctorRequest{ID: "", Name: "Dr. Adams"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty id: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.CreateDoctor(ctx, CreateDoctorRequest{ID: "d1", Name: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty name: expected ErrInvalidInput, got %v", err)
	}

	doc, err := svc.CreateDoctor(ctx, CreateDoctorRequest{
		ID:         "d1",
		Name:       "Dr. Adams",
		Speciality: "Cardiology",
		Room:       "101",
	})
	if err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	if doc.Speciality == nil || *doc.Speciality != "Cardiology" {
		t.Fatalf("expected speciality Cardiology, got %v", doc.Speciality)
	}

	if _, err := svc.CreateDoctor(ctx, CreateDoctorRequest{ID: "d1", Name: "Dr. Brown"}); !errors.Is(err, ErrDoctorExists) {
		t.Fatalf("duplicate id: expected ErrDoctorExists, got %v", err)
	}
}

func TestUpdateDoctor(t *testing.T) {
	st := NewMemStore()
	svc := NewLifecycleService(st, nil)
	ctx := context.Background()

	mustDoctor(t, st, "d1", "Dr. Adams")

	name := "Dr. Adams-Reed"
	doc, err := svc.UpdateDoctor(ctx, "d1", DoctorPatch{Name: &name})
	if err != nil {
		t.Fatalf("update doctor: %v", err)
	}
	if doc.Name != name {
		t.Fatalf("expected name %q, got %q", name, doc.Name)
	}

	empty := " "
	if _, err := svc.UpdateDoctor(ctx, "d1", DoctorPatch{Name: &empty}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty name, got %v", err)
	}

	if _, err := svc.UpdateDoctor(ctx, "d9", DoctorPatch{Name: &name}); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestCreateSlot_Validation(t *testing.T) {
	st := NewMemStore()
	svc := NewLifecycleService(st, nil)
	ctx := context.Background()

	mustDoctor(t, st, "d1", "Dr. Adams")

	cases := []struct {
		name string
		req  CreateSlotRequest
		want error
	}{
		{"bad date", CreateSlotRequest{DoctorID: "d1", Date: "10/01/2024", Time: "09:00"}, ErrInvalidInput},
		{"bad time", CreateSlotRequest{DoctorID: "d1", Date: "2024-01-10", Time: "9am"}, ErrInvalidInput},
		{"missing doctor", CreateSlotRequest{DoctorID: "d9", Date: "2024-01-10", Time: "09:00"}, ErrDoctorNotFound},
	}
	for _, tc := range cases {
		if _, err := svc.CreateSlot(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	slot, err := svc.CreateSlot(ctx, CreateSlotRequest{DoctorID: "d1", Date: "2024-01-10", Time: "09:00"})
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	if slot.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatalf("expected generated slot id")
	}

	if _, err := svc.CreateSlot(ctx, CreateSlotRequest{DoctorID: "d1", Date: "2024-01-10", Time: "09:00"}); !errors.Is(err, ErrDuplicateSlot) {
		t.Fatalf("expected ErrDuplicateSlot, got %v", err)
	}
}

func TestUpdateSlot_BookedAlwaysConflicts(t *testing.T) {
	st := NewMemStore()
	svc := NewLifecycleService(st, nil)
	ctx := context.Background()

	mustDoctor(t, st, "d1", "Dr. Adams")
	mustDoctor(t, st, "d2", "Dr. Brown")
	slot := mustSlot(t, st, "d1", "2024-01-10", "09:00")
	mustAppointment(t, st, slot.ID, "Alice")

	date := "2024-01-11"
	tm := "10:00"
	doctor := "d2"

	patches := []SlotPatch{
		{Date: &date},
		{Time: &tm},
		{DoctorID: &doctor},
		{Date: &date, Time: &tm, DoctorID: &doctor},
	}
	for i, patch := range patches {
		if _, err := svc.UpdateSlot(ctx, slot.ID, patch); !errors.Is(err, ErrSlotBooked) {
			t.Fatalf("patch %d: expected ErrSlotBooked, got %v", i, err)
		}
	}
}

func TestDeleteDoctor_CascadeCounts(t *testing.T) {
	st := NewMemStore()
	svc := NewLifecycleService(st, nil)
	ctx := context.Background()

	mustDoctor(t, st, "d1", "Dr. Adams")
	mustDoctor(t, st, "d2", "Dr. Brown")

	// d1: 3 slots, 2 booked. d2: 1 slot, 1 booked.
	s1 := mustSlot(t, st, "d1", "2024-01-10", "09:00")
	s2 := mustSlot(t, st, "d1", "2024-01-10", "10:00")
	mustSlot(t, st, "d1", "2024-01-10", "11:00")
	other := mustSlot(t, st, "d2", "2024-01-10", "09:00")

	mustAppointment(t, st, s1.ID, "Alice")
	mustAppointment(t, st, s2.ID, "Bob")
	mustAppointment(t, st, other.ID, "Carol")

	if err := svc.DeleteDoctor(ctx, "d1"); err != nil {
		t.Fatalf("delete doctor: %v", err)
	}

	slots, err := st.ListSlots(ctx, SlotFilter{})
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	if len(slots) != 1 || slots[0].DoctorID != "d2" {
		t.Fatalf("expected only d2's slot to survive, got %+v", slots)
	}

	appts, err := st.ListAppointments(ctx)
	if err != nil {
		t.Fatalf("list appointments: %v", err)
	}
	if len(appts) != 1 || appts[0].PatientName != "Carol" {
		t.Fatalf("expected only Carol's appointment to survive, got %+v", appts)
	}

	if err := svc.DeleteDoctor(ctx, "d1"); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("second delete: expected ErrDoctorNotFound, got %v", err)
	}
}

func TestListSlots_UsesCache(t *testing.T) {
	st := NewMemStore()
	cache := newFakeCache()
	svc := NewLifecycleService(st, cache)
	ctx := context.Background()

	mustDoctor(t, st, "d1", "Dr. Adams")
	mustSlot(t, st, "d1", "2024-01-10", "09:00")

	f := SlotFilter{DoctorID: "d1"}

	if _, err := svc.ListSlots(ctx, f); err != nil {
		t.Fatalf("first list: %v", err)
	}
	if _, err := svc.ListSlots(ctx, f); err != nil {
		t.Fatalf("second list: %v", err)
	}
	if cache.misses != 1 {
		t.Fatalf("expected 1 cache miss, got %d", cache.misses)
	}

	// A write invalidates; the next list misses again.
	if _, err := svc.CreateSlot(ctx, CreateSlotRequest{DoctorID: "d1", Date: "2024-01-10", Time: "10:00"}); err != nil {
		t.Fatalf("create slot: %v", err)
	}
	if cache.invalidated != 1 {
		t.Fatalf("expected 1 invalidation, got %d", cache.invalidated)
	}

	views, err := svc.ListSlots(ctx, f)
	if err != nil {
		t.Fatalf("third list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 slots after invalidation, got %d", len(views))
	}
}
