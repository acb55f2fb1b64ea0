package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"

	"modelhub_back/cache"
	"modelhub_back/metrics"
	"modelhub_back/storage"
)

var (
	// ErrMissingRequiredFields is returned before any storage call when the
	// upload form lacks a required text field.
	ErrMissingRequiredFields = errors.New("catalog: please fill in all required fields (including creator email)")
	// ErrMissingFile is returned when no glb file accompanied the request.
	ErrMissingFile = errors.New("catalog: no GLB file uploaded")
	// ErrNotOwner is returned when a caller tries to delete a record they do
	// not own.
	ErrNotOwner = errors.New("catalog: only the owner may delete this model")
)

// UploadInput carries the multipart form contents of one upload request.
type UploadInput struct {
	Name           string
	Description    string
	Category       string
	CreatorName    string
	CreatorEmail   string
	CreatorWebsite string
	SpecsRaw       string

	FileName    string
	ContentType string
	Data        []byte
}

// Service coordinates the storage backend and the record store into one
// logical upload operation with compensating cleanup. The storage write and
// the record write are not atomic; the service owns the rollback when the
// record write fails after a successful store.
type Service struct {
	records   RecordStore
	backend   storage.Backend
	collector *metrics.Collector
	views     *cache.ViewCounter
}

// NewService wires the orchestrator's dependencies. collector and views may
// be nil.
func NewService(records RecordStore, backend storage.Backend, collector *metrics.Collector, views *cache.ViewCounter) *Service {
	return &Service{records: records, backend: backend, collector: collector, views: views}
}

// Upload runs the strictly sequential upload flow: validate the form, store
// the binary, persist the record. Any failure after the successful store
// triggers exactly one compensating delete with the stored reference before
// the error is returned. No step is retried.
func (s *Service) Upload(ctx context.Context, ownerID uint64, in UploadInput) (*ModelRecord, error) {
	if len(in.Data) == 0 {
		return nil, ErrMissingFile
	}
	if strings.TrimSpace(in.Name) == "" ||
		strings.TrimSpace(in.Description) == "" ||
		strings.TrimSpace(in.Category) == "" ||
		strings.TrimSpace(in.CreatorName) == "" ||
		strings.TrimSpace(in.CreatorEmail) == "" {
		return nil, ErrMissingRequiredFields
	}
	if err := storage.ValidateUpload(in.FileName, in.ContentType, int64(len(in.Data))); err != nil {
		return nil, err
	}

	specs := parseSpecs(in.SpecsRaw)

	storeStart := time.Now()
	stored, err := s.backend.Store(ctx, in.Data, in.FileName, in.ContentType)
	if err != nil {
		s.collector.ObserveUpload(s.backend.Kind(), "store_error", 0, 0)
		return nil, fmt.Errorf("catalog: store upload: %w", err)
	}
	storeTime := time.Since(storeStart)

	record := &ModelRecord{
		Name:         in.Name,
		Description:  in.Description,
		Category:     in.Category,
		GlbURL:       stored.URL,
		StorageRef:   &stored.Reference,
		StorageKind:  s.backend.Kind(),
		CreatorName:  in.CreatorName,
		CreatorEmail: in.CreatorEmail,
		OwnerID:      ownerID,
		Specs:        specs,
	}
	if site := strings.TrimSpace(in.CreatorWebsite); site != "" {
		record.CreatorWebsite = &site
	}

	if err := s.records.Create(ctx, record); err != nil {
		s.compensate(ctx, stored.Reference)
		s.collector.ObserveUpload(s.backend.Kind(), "record_error", 0, storeTime)
		return nil, err
	}

	s.collector.ObserveUpload(s.backend.Kind(), "success", int64(len(in.Data)), storeTime)
	return record, nil
}

// compensate rolls back a storage write whose record never landed.
func (s *Service) compensate(ctx context.Context, reference string) {
	s.collector.ObserveCompensation(s.backend.Kind())
	if err := s.backend.Delete(ctx, reference); err != nil {
		s.collector.ObserveDeleteFailure(s.backend.Kind())
		log.Printf("catalog: compensating delete of %q failed: %v", reference, err)
	}
}

// Delete removes a record owned by the caller. The backing object is deleted
// first, best-effort: a cleanup failure is logged and never blocks the
// record delete.
func (s *Service) Delete(ctx context.Context, ownerID, id uint64) error {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if record.OwnerID != ownerID {
		return ErrNotOwner
	}

	if record.StorageRef != nil && strings.TrimSpace(*record.StorageRef) != "" {
		if err := s.backend.Delete(ctx, *record.StorageRef); err != nil {
			s.collector.ObserveDeleteFailure(s.backend.Kind())
			log.Printf("catalog: delete backing object %q: %v", *record.StorageRef, err)
		}
	}

	if err := s.records.Delete(ctx, id); err != nil {
		return err
	}
	s.views.Forget(ctx, id)
	s.collector.ObserveRecordDeleted()
	return nil
}

// parseSpecs decodes the optional specs payload as a JSON mapping. A payload
// that does not decode is kept as raw text under the "raw" key rather than
// failing the upload.
func parseSpecs(raw string) datatypes.JSON {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return datatypes.JSON([]byte(`{}`))
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		fallback, _ := json.Marshal(map[string]string{"raw": raw})
		return datatypes.JSON(fallback)
	}
	return datatypes.JSON([]byte(trimmed))
}
