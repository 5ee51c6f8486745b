package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clinicdesk/clinic-booking/internal/clinic"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := clinic.NewMemStore()
	router := NewRouter(RouterConfig{
		Booking:   clinic.NewBookingService(store, nil),
		Lifecycle: clinic.NewLifecycleService(store, nil),
		Env:       "test",
		Version:   "test",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func createTestSlot(t *testing.T, base string) string {
	t.Helper()

	resp, _ := doJSON(t, http.MethodPost, base+"/doctors", map[string]string{
		"id":   "d1",
		"name": "Dr. Adams",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create doctor: status %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodPost, base+"/slots", map[string]string{
		"doctor_id": "d1",
		"date":      "2024-01-10",
		"time":      "09:00",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create slot: status %d", resp.StatusCode)
	}
	return body["id"].(string)
}

func TestBookEndpoint_ConflictOnSecondBooking(t *testing.T) {
	srv := newTestServer(t)
	slotID := createTestSlot(t, srv.URL)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/appointments", map[string]string{
		"slot_id":      slotID,
		"patient_name": "Alice",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first booking: expected 201, got %d", resp.StatusCode)
	}
	if body["status"] != "confirmed" {
		t.Fatalf("expected confirmed status, got %v", body["status"])
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/appointments", map[string]string{
		"slot_id":      slotID,
		"patient_name": "Bob",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second booking: expected 409, got %d", resp.StatusCode)
	}
	if body["error"] != "slot_already_booked" {
		t.Fatalf("expected slot_already_booked, got %v", body["error"])
	}
}

func TestBookEndpoint_BadInput(t *testing.T) {
	srv := newTestServer(t)
	slotID := createTestSlot(t, srv.URL)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/appointments", map[string]string{
		"slot_id":      "not-a-uuid",
		"patient_name": "Alice",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad slot id: expected 400, got %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/appointments", map[string]string{
		"slot_id":      slotID,
		"patient_name": "",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty patient name: expected 400, got %d", resp.StatusCode)
	}
	if body["error"] != "invalid_input" {
		t.Fatalf("expected invalid_input, got %v", body["error"])
	}
}

func TestCancelEndpoint_FreesSlot(t *testing.T) {
	srv := newTestServer(t)
	slotID := createTestSlot(t, srv.URL)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/appointments", map[string]string{
		"slot_id":      slotID,
		"patient_name": "Alice",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("booking: expected 201, got %d", resp.StatusCode)
	}
	apptID := body["id"].(string)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/appointments/"+apptID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("cancel: expected 204, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/appointments", map[string]string{
		"slot_id":      slotID,
		"patient_name": "Bob",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("rebooking: expected 201, got %d", resp.StatusCode)
	}
}

func TestSlotEndpoints_ListAndStatus(t *testing.T) {
	srv := newTestServer(t)
	slotID := createTestSlot(t, srv.URL)

	var views []map[string]any
	listSlots := func() []map[string]any {
		resp, err := http.Get(srv.URL + "/slots?doctor_id=d1")
		if err != nil {
			t.Fatalf("list slots: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("list slots: status %d", resp.StatusCode)
		}
		var out []map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode slots: %v", err)
		}
		return out
	}

	views = listSlots()
	if len(views) != 1 || views[0]["status"] != "available" {
		t.Fatalf("expected one available slot, got %+v", views)
	}

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/appointments", map[string]string{
		"slot_id":      slotID,
		"patient_name": "Alice",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("booking: expected 201, got %d", resp.StatusCode)
	}

	views = listSlots()
	if views[0]["status"] != "booked" {
		t.Fatalf("expected booked slot, got %+v", views)
	}

	// Booked slots reject edits.
	resp, body := doJSON(t, http.MethodPatch, srv.URL+"/slots/"+slotID, map[string]string{
		"time": "10:00",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("patch booked slot: expected 409, got %d", resp.StatusCode)
	}
	if body["error"] != "slot_booked" {
		t.Fatalf("expected slot_booked, got %v", body["error"])
	}
}

func TestDoctorEndpoints_DeleteCascades(t *testing.T) {
	srv := newTestServer(t)
	slotID := createTestSlot(t, srv.URL)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/appointments", map[string]string{
		"slot_id":      slotID,
		"patient_name": "Alice",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("booking: expected 201, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/doctors/d1", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete doctor: expected 204, got %d", resp.StatusCode)
	}

	for _, path := range []string{"/doctors/d1", "/slots?doctor_id=d1"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		func() {
			defer resp.Body.Close()
			switch path {
			case "/doctors/d1":
				if resp.StatusCode != http.StatusNotFound {
					t.Fatalf("expected doctor gone, got %d", resp.StatusCode)
				}
			default:
				var out []map[string]any
				if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
					t.Fatalf("decode slots: %v", err)
				}
				if len(out) != 0 {
					t.Fatalf("expected no surviving slots, got %+v", out)
				}
			}
		}()
	}

	appts, err := http.Get(srv.URL + "/appointments")
	if err != nil {
		t.Fatalf("list appointments: %v", err)
	}
	defer appts.Body.Close()
	var out []map[string]any
	if err := json.NewDecoder(appts.Body).Decode(&out); err != nil {
		t.Fatalf("decode appointments: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no surviving appointments, got %+v", out)
	}
}

func TestDoctorEndpoints_Duplicate(t *testing.T) {
	srv := newTestServer(t)

	for i, wantStatus := range []int{http.StatusCreated, http.StatusConflict} {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/doctors", map[string]string{
			"id":   "d1",
			"name": fmt.Sprintf("Dr. %d", i),
		})
		if resp.StatusCode != wantStatus {
			t.Fatalf("create %d: expected %d, got %d", i, wantStatus, resp.StatusCode)
		}
	}
}
