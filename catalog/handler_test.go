package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, backend *fakeBackend, callerID uint64) (*gin.Engine, *Module) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := openDatabase("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&ModelRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := NewGormRecordStore(db)
	module := &Module{
		db:      db,
		store:   store,
		service: NewService(store, backend, nil, nil),
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if callerID != 0 {
			c.Set("JWT_PAYLOAD", jwt.MapClaims{
				"user_id": float64(callerID),
				"email":   fmt.Sprintf("user%d@example.com", callerID),
				"role":    "user",
			})
		}
	})

	group := r.Group("/api/models")
	group.POST("/upload", module.handleUpload)
	group.GET("", module.handleListModels)
	group.GET("/search", module.handleSearchModels)
	group.GET("/:id", module.handleGetModel)
	group.DELETE("/:id", module.handleDeleteModel)

	return r, module
}

func multipartUpload(t *testing.T, fields map[string]string, fileField, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func allFields() map[string]string {
	return map[string]string{
		"name":         "Robot",
		"description":  "A robot model",
		"category":     "Robots",
		"creatorName":  "Ada",
		"creatorEmail": "ada@example.com",
	}
}

func TestHandleUploadCreated(t *testing.T) {
	backend := &fakeBackend{}
	r, _ := newTestRouter(t, backend, 1)

	body, contentType := multipartUpload(t, allFields(), "glbFile", "robot.glb", make([]byte, 10*1024))
	req := httptest.NewRequest(http.MethodPost, "/api/models/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Model ModelRecord `json:"model"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Model.GlbURL == "" {
		t.Error("created model has empty glb_url")
	}
	if resp.Model.StorageRef == nil || *resp.Model.StorageRef == "" {
		t.Error("created model has no storage reference")
	}
	if resp.Model.OwnerID != 1 {
		t.Errorf("OwnerID = %d, want the caller's id", resp.Model.OwnerID)
	}
}

func TestHandleUploadMissingFields(t *testing.T) {
	backend := &fakeBackend{}
	r, _ := newTestRouter(t, backend, 1)

	fields := allFields()
	delete(fields, "creatorEmail")

	body, contentType := multipartUpload(t, fields, "glbFile", "robot.glb", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/api/models/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if backend.storeCalls != 0 {
		t.Errorf("store calls = %d, want none before validation", backend.storeCalls)
	}
}

func TestHandleUploadMissingFile(t *testing.T) {
	backend := &fakeBackend{}
	r, _ := newTestRouter(t, backend, 1)

	body, contentType := multipartUpload(t, allFields(), "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/models/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if backend.storeCalls != 0 {
		t.Error("store was called without a file")
	}
}

func TestHandleUploadWrongType(t *testing.T) {
	backend := &fakeBackend{}
	r, _ := newTestRouter(t, backend, 1)

	body, contentType := multipartUpload(t, allFields(), "glbFile", "robot.fbx", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/api/models/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if backend.storeCalls != 0 {
		t.Error("store was called for an unsupported file")
	}
}

func TestHandleUploadSpecsFallback(t *testing.T) {
	backend := &fakeBackend{}
	r, _ := newTestRouter(t, backend, 1)

	fields := allFields()
	fields["specs"] = "not-json{"

	body, contentType := multipartUpload(t, fields, "glbFile", "robot.glb", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/api/models/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 despite malformed specs", w.Code)
	}

	var resp struct {
		Model struct {
			Specs map[string]interface{} `json:"specs"`
		} `json:"model"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Model.Specs["raw"] != "not-json{" {
		t.Errorf("specs = %v, want raw fallback", resp.Model.Specs)
	}
}

func TestHandleUploadUnauthenticated(t *testing.T) {
	backend := &fakeBackend{}
	r, _ := newTestRouter(t, backend, 0)

	body, contentType := multipartUpload(t, allFields(), "glbFile", "robot.glb", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/api/models/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if backend.storeCalls != 0 {
		t.Error("store was called without authentication")
	}
}

func TestHandleListOwnRecordsOnly(t *testing.T) {
	backend := &fakeBackend{}
	r, module := newTestRouter(t, backend, 1)

	ctx := context.Background()
	if _, err := module.service.Upload(ctx, 1, validInput()); err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	other := validInput()
	other.Name = "Someone else's"
	if _, err := module.service.Upload(ctx, 2, other); err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var records []ModelRecord
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want only the caller's", len(records))
	}
	if records[0].OwnerID != 1 {
		t.Errorf("OwnerID = %d, want 1", records[0].OwnerID)
	}
}

func TestHandleGetModelErrors(t *testing.T) {
	r, _ := newTestRouter(t, &fakeBackend{}, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/models/not-a-number", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed id status = %d, want 400", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/models/9999", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing id status = %d, want 404", w.Code)
	}
}

func TestHandleDeleteNonOwnerForbidden(t *testing.T) {
	backend := &fakeBackend{}
	r, module := newTestRouter(t, backend, 1)

	record, err := module.service.Upload(context.Background(), 2, validInput())
	if err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	backend.deleteCalls = nil

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/models/%d", record.ID), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if len(backend.deleteCalls) != 0 {
		t.Errorf("backend deletes = %v, want the object untouched", backend.deleteCalls)
	}
	if _, err := module.store.FindByID(context.Background(), record.ID); err != nil {
		t.Error("record was removed by a non-owner")
	}
}

func TestHandleDeleteByOwner(t *testing.T) {
	backend := &fakeBackend{}
	r, module := newTestRouter(t, backend, 1)

	record, err := module.service.Upload(context.Background(), 1, validInput())
	if err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	ref := *record.StorageRef
	backend.deleteCalls = nil

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/models/%d", record.ID), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(backend.deleteCalls) != 1 || backend.deleteCalls[0] != ref {
		t.Errorf("backend deletes = %v, want [%s]", backend.deleteCalls, ref)
	}

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/models/%d", record.ID), nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("lookup after delete = %d, want 404", w.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	backend := &fakeBackend{}
	r, module := newTestRouter(t, backend, 1)

	ctx := context.Background()
	airship := validInput()
	airship.Name = "Steampunk Airship"
	if _, err := module.service.Upload(ctx, 1, airship); err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	cube := validInput()
	cube.Name = "Plain Cube"
	if _, err := module.service.Upload(ctx, 1, cube); err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/models/search?search=airship", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var records []ModelRecord
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(records) != 1 || records[0].Name != "Steampunk Airship" {
		t.Errorf("search results = %v", records)
	}
}
