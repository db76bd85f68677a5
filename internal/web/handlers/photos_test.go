package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joeypohie/photorank/internal/pipeline"
)

func firstPhotoID(t *testing.T, h *PhotosHandler) string {
	t.Helper()
	all := h.store.Snapshot()
	if len(all) == 0 {
		t.Fatal("store is empty")
	}
	return all[0].ID
}

func TestPhotosHandler_List(t *testing.T) {
	store := testStore(t, nil)
	for _, name := range []string{"one.jpg", "two.jpg", "three.jpg"} {
		if _, err := store.Add(name, []byte(name)); err != nil {
			t.Fatalf("failed to add photo: %v", err)
		}
	}
	handler := NewPhotosHandler(store, NewResultCache())

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/photos", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var result []PhotoResponse
	parseJSONResponse(t, recorder, &result)

	want := []string{"one.jpg", "two.jpg", "three.jpg"}
	if len(result) != len(want) {
		t.Fatalf("expected %d photos, got %d", len(want), len(result))
	}
	for i, p := range result {
		if p.Filename != want[i] {
			t.Errorf("photo %d: expected '%s', got '%s'", i, want[i], p.Filename)
		}
	}
}

func TestPhotosHandler_List_Empty(t *testing.T) {
	handler := NewPhotosHandler(testStore(t, nil), NewResultCache())

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/photos", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	if recorder.Body.String() != "[]\n" {
		t.Errorf("expected empty array, got '%s'", recorder.Body.String())
	}
}

func TestPhotosHandler_Get(t *testing.T) {
	handler := NewPhotosHandler(testStore(t, map[string]string{"a.jpg": "a"}), NewResultCache())
	id := firstPhotoID(t, handler)

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/photos/"+id, nil), map[string]string{"id": id})
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result PhotoResponse
	parseJSONResponse(t, recorder, &result)
	if result.ID != id || result.Filename != "a.jpg" {
		t.Errorf("unexpected photo %+v", result)
	}
}

func TestPhotosHandler_NotFound(t *testing.T) {
	handler := NewPhotosHandler(testStore(t, nil), NewResultCache())

	tests := []struct {
		name   string
		method string
		call   func(http.ResponseWriter, *http.Request)
	}{
		{"get", http.MethodGet, handler.Get},
		{"image", http.MethodGet, handler.Image},
		{"delete", http.MethodDelete, handler.Delete},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest(tc.method, "/api/v1/photos/missing", nil), map[string]string{"id": "missing"})
			recorder := httptest.NewRecorder()
			tc.call(recorder, req)

			assertStatusCode(t, recorder, http.StatusNotFound)
			assertJSONError(t, recorder, "Photo not found")
		})
	}
}

func TestPhotosHandler_Image(t *testing.T) {
	handler := NewPhotosHandler(testStore(t, map[string]string{"a.jpg": "raw bytes"}), NewResultCache())
	id := firstPhotoID(t, handler)

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/photos/"+id+"/image", nil), map[string]string{"id": id})
	recorder := httptest.NewRecorder()
	handler.Image(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/octet-stream")
	if recorder.Body.String() != "raw bytes" {
		t.Errorf("unexpected body '%s'", recorder.Body.String())
	}
}

func TestPhotosHandler_Delete(t *testing.T) {
	results := NewResultCache()
	results.Set(&pipeline.Outcome{}, results.Generation())
	handler := NewPhotosHandler(testStore(t, map[string]string{"a.jpg": "a", "b.jpg": "b"}), results)
	id := firstPhotoID(t, handler)

	req := requestWithChiParams(httptest.NewRequest(http.MethodDelete, "/api/v1/photos/"+id, nil), map[string]string{"id": id})
	recorder := httptest.NewRecorder()
	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if result["message"] != "Photo deleted successfully" {
		t.Errorf("unexpected message '%s'", result["message"])
	}
	if handler.store.Count() != 1 {
		t.Errorf("expected 1 photo left, got %d", handler.store.Count())
	}
	if results.Get() != nil {
		t.Error("delete should invalidate the cached result")
	}
}

func TestPhotosHandler_Clear(t *testing.T) {
	results := NewResultCache()
	results.Set(&pipeline.Outcome{}, results.Generation())
	results.SetStatus(StateCompleted, "done")
	handler := NewPhotosHandler(testStore(t, map[string]string{"a.jpg": "a", "b.jpg": "b"}), results)

	recorder := httptest.NewRecorder()
	handler.Clear(recorder, httptest.NewRequest(http.MethodDelete, "/api/v1/photos", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var result map[string]int
	parseJSONResponse(t, recorder, &result)
	if result["deleted"] != 2 {
		t.Errorf("expected 2 deleted, got %d", result["deleted"])
	}
	if handler.store.Count() != 0 {
		t.Errorf("expected empty store, got %d", handler.store.Count())
	}
	if results.Get() != nil {
		t.Error("clear should invalidate the cached result")
	}
	if results.Status().Status != StateIdle {
		t.Errorf("expected idle status, got '%s'", results.Status().Status)
	}
}
