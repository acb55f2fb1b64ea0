package storage

import (
	"strings"
	"testing"
)

func TestValidateUpload(t *testing.T) {
	cases := []struct {
		name        string
		filename    string
		contentType string
		size        int64
		wantErr     error
	}{
		{"glb suffix", "robot.glb", "application/octet-stream", 1024, nil},
		{"glb content type", "robot.bin", "model/gltf-binary", 1024, nil},
		{"neither", "robot.fbx", "application/octet-stream", 1024, ErrUnsupportedFileType},
		{"at limit", "robot.glb", "model/gltf-binary", MaxUploadBytes, nil},
		{"one byte over", "robot.glb", "model/gltf-binary", MaxUploadBytes + 1, ErrPayloadTooLarge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUpload(tc.filename, tc.contentType, tc.size)
			if err != tc.wantErr {
				t.Errorf("ValidateUpload(%q, %q, %d) = %v, want %v", tc.filename, tc.contentType, tc.size, err, tc.wantErr)
			}
		})
	}
}

func TestGenerateObjectName(t *testing.T) {
	name := GenerateObjectName("my model (v2).glb")
	if strings.ContainsAny(name, "() /\\") {
		t.Errorf("generated name %q contains unsafe characters", name)
	}
	if !strings.HasSuffix(name, "my_model__v2_.glb") {
		t.Errorf("generated name %q does not keep the sanitized original name", name)
	}

	other := GenerateObjectName("my model (v2).glb")
	if name == other {
		t.Error("two generated names collided")
	}
}

func TestGenerateObjectNameTraversal(t *testing.T) {
	name := GenerateObjectName("../../etc/passwd")
	if strings.Contains(name, "/") || strings.Contains(name, "\\") {
		t.Errorf("generated name %q contains a path separator", name)
	}
}

func TestSanitizeFilenameEmpty(t *testing.T) {
	if got := sanitizeFilename("   "); got != "upload.glb" {
		t.Errorf("sanitizeFilename(blank) = %q, want upload.glb", got)
	}
	if got := sanitizeFilename("..."); got != "upload.glb" {
		t.Errorf("sanitizeFilename(dots) = %q, want upload.glb", got)
	}
}
