package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidRecordID marks an id parameter that is not in the expected
// identifier shape, distinct from a well-formed id that matches nothing.
var ErrInvalidRecordID = errors.New("catalog: invalid model id format")

var (
	emailPattern   = regexp.MustCompile(`^[\w-]+(?:\.[\w-]+)*@(?:[\w-]+\.)+[a-zA-Z]{2,7}$`)
	websitePattern = regexp.MustCompile(`^(https?://)?([\da-z.-]+)\.([a-z.]{2,6})([/\w .-]*)*/?$`)
)

// ValidationError aggregates every failing field instead of stopping at the
// first one.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "catalog: " + strings.Join(e.Problems, ", ")
}

// validate collects all required-field and shape problems on the record.
func validate(record *ModelRecord) error {
	var problems []string
	if strings.TrimSpace(record.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(record.Description) == "" {
		problems = append(problems, "description is required")
	}
	if strings.TrimSpace(record.Category) == "" {
		problems = append(problems, "category is required")
	}
	if strings.TrimSpace(record.GlbURL) == "" {
		problems = append(problems, "glb url is required")
	}
	if strings.TrimSpace(record.CreatorName) == "" {
		problems = append(problems, "creator name is required")
	}
	email := strings.TrimSpace(record.CreatorEmail)
	switch {
	case email == "":
		problems = append(problems, "creator email is required")
	case !emailPattern.MatchString(email):
		problems = append(problems, "creator email is not a valid email address")
	}
	if record.CreatorWebsite != nil {
		if site := strings.TrimSpace(*record.CreatorWebsite); site != "" && !websitePattern.MatchString(site) {
			problems = append(problems, "creator website is not a valid URL")
		}
	}
	if record.OwnerID == 0 {
		problems = append(problems, "owner is required")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ParseRecordID converts a path parameter into a record id.
func ParseRecordID(param string) (uint64, error) {
	trimmed := strings.TrimSpace(param)
	if trimmed == "" {
		return 0, ErrInvalidRecordID
	}
	id, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidRecordID
	}
	return id, nil
}

// RecordStore persists and retrieves model records.
type RecordStore interface {
	Create(ctx context.Context, record *ModelRecord) error
	FindByID(ctx context.Context, id uint64) (*ModelRecord, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]ModelRecord, error)
	Search(ctx context.Context, ownerID uint64, query string) ([]ModelRecord, error)
	Delete(ctx context.Context, id uint64) error
}

// GormRecordStore is the database-backed RecordStore.
type GormRecordStore struct {
	db *gorm.DB
}

// NewGormRecordStore wraps the given database handle.
func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	return &GormRecordStore{db: db}
}

// Create validates the record, collecting every failing field, then inserts
// it. Category is stored lowercase; UploadDate defaults to now.
func (s *GormRecordStore) Create(ctx context.Context, record *ModelRecord) error {
	if s == nil {
		return errors.New("catalog: record store not initialized")
	}
	if err := validate(record); err != nil {
		return err
	}

	record.Name = strings.TrimSpace(record.Name)
	record.Description = strings.TrimSpace(record.Description)
	record.Category = strings.ToLower(strings.TrimSpace(record.Category))
	record.CreatorName = strings.TrimSpace(record.CreatorName)
	record.CreatorEmail = strings.ToLower(strings.TrimSpace(record.CreatorEmail))
	if record.UploadDate.IsZero() {
		record.UploadDate = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("catalog: create record: %w", err)
	}
	return nil
}

// FindByID loads a record by primary key.
func (s *GormRecordStore) FindByID(ctx context.Context, id uint64) (*ModelRecord, error) {
	var record ModelRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByOwner returns the owner's records, newest upload first.
func (s *GormRecordStore) ListByOwner(ctx context.Context, ownerID uint64) ([]ModelRecord, error) {
	var records []ModelRecord
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("upload_date desc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("catalog: list records: %w", err)
	}
	return records, nil
}

// Search returns the owner's records, optionally filtered by a
// case-insensitive match against name, description, category or creator
// name.
func (s *GormRecordStore) Search(ctx context.Context, ownerID uint64, query string) ([]ModelRecord, error) {
	tx := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)

	if trimmed := strings.TrimSpace(query); trimmed != "" {
		pattern := "%" + strings.ToLower(trimmed) + "%"
		tx = tx.Where(
			"LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ? OR LOWER(creator_name) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var records []ModelRecord
	if err := tx.Order("upload_date desc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("catalog: search records: %w", err)
	}
	return records, nil
}

// Delete removes the record by primary key.
func (s *GormRecordStore) Delete(ctx context.Context, id uint64) error {
	if err := s.db.WithContext(ctx).Delete(&ModelRecord{}, id).Error; err != nil {
		return fmt.Errorf("catalog: delete record: %w", err)
	}
	return nil
}
