package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPinataStore(t *testing.T) {
	var gotAuth string
	var gotFilename string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pinning/pinFileToIPFS" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename

		body, _ := io.ReadAll(file)
		if string(body) != "glb bytes" {
			t.Errorf("uploaded bytes = %q", body)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"IpfsHash":  "QmTestCid123",
			"PinSize":   len(body),
			"Timestamp": "2024-01-01T00:00:00Z",
		})
	}))
	defer server.Close()

	backend := NewPinataBackend(server.URL, "https://gateway.example", "test-jwt")

	stored, err := backend.Store(context.Background(), []byte("glb bytes"), "my scene.glb", "model/gltf-binary")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if gotAuth != "Bearer test-jwt" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotFilename != "my_scene.glb" {
		t.Errorf("uploaded filename = %q, want sanitized name", gotFilename)
	}
	if stored.Reference != "QmTestCid123" {
		t.Errorf("Reference = %q, want CID", stored.Reference)
	}
	if stored.URL != "https://gateway.example/ipfs/QmTestCid123" {
		t.Errorf("URL = %q, want gateway-templated CID", stored.URL)
	}
}

func TestPinataStoreNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "pinning unavailable")
	}))
	defer server.Close()

	backend := NewPinataBackend(server.URL, "https://gateway.example", "test-jwt")

	_, err := backend.Store(context.Background(), []byte("x"), "a.glb", "")
	if err == nil {
		t.Fatal("Store succeeded against failing API, want error")
	}
	if !strings.Contains(err.Error(), "pinning unavailable") {
		t.Errorf("error %q does not carry the response snippet", err)
	}
}

func TestPinataDelete(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	backend := NewPinataBackend(server.URL, "https://gateway.example", "test-jwt")

	if err := backend.Delete(context.Background(), "QmTestCid123"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %q, want DELETE", gotMethod)
	}
	if gotPath != "/pinning/unpin/QmTestCid123" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestPinataDeleteUnpinnedTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	backend := NewPinataBackend(server.URL, "https://gateway.example", "test-jwt")

	if err := backend.Delete(context.Background(), "QmGoneCid"); err != nil {
		t.Errorf("Delete(unpinned) = %v, want nil", err)
	}

	if err := backend.Delete(context.Background(), ""); err != nil {
		t.Errorf("Delete(empty) = %v, want nil", err)
	}
}
