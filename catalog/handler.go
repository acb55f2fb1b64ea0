package catalog

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"modelhub_back/authorization"
	"modelhub_back/cache"
	"modelhub_back/metrics"
	"modelhub_back/storage"
)

// Module exposes the model catalog endpoints.
type Module struct {
	db      *gorm.DB
	store   RecordStore
	service *Service
	views   *cache.ViewCounter
}

type uploadForm struct {
	Name           string `form:"name"`
	Description    string `form:"description"`
	Category       string `form:"category"`
	CreatorName    string `form:"creatorName"`
	CreatorWebsite string `form:"creatorWebsite"`
	CreatorEmail   string `form:"creatorEmail"`
	Specs          string `form:"specs"`
}

// RegisterRoutes bootstraps the catalog endpoints under /api/models. Every
// route requires an authenticated caller.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard, backend storage.Backend, collector *metrics.Collector) (*Module, error) {
	db, err := openDatabaseFromEnv()
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&ModelRecord{}); err != nil {
		return nil, fmt.Errorf("catalog: migrate tables: %w", err)
	}

	store := NewGormRecordStore(db)
	views := cache.NewViewCounterFromEnv()
	service := NewService(store, backend, collector, views)

	module := &Module{db: db, store: store, service: service, views: views}

	group := router.Group("/api/models")
	if guard != nil {
		group.Use(guard.RequireAuthenticated())
	} else {
		group.Use(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization middleware missing"})
		})
	}

	group.POST("/upload", module.handleUpload)
	group.GET("", module.handleListModels)
	group.GET("/search", module.handleSearchModels)
	group.GET("/:id", module.handleGetModel)
	group.DELETE("/:id", module.handleDeleteModel)

	return module, nil
}

func (m *Module) handleUpload(c *gin.Context) {
	identity, ok := authorization.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required or invalid token"})
		return
	}

	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form payload"})
		return
	}

	fileHeader, err := c.FormFile("glbFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no GLB file uploaded"})
		return
	}
	if fileHeader.Size > storage.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": storage.ErrPayloadTooLarge.Error()})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, storage.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	if int64(len(data)) > storage.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": storage.ErrPayloadTooLarge.Error()})
		return
	}

	record, err := m.service.Upload(c.Request.Context(), identity.ID, UploadInput{
		Name:           form.Name,
		Description:    form.Description,
		Category:       form.Category,
		CreatorName:    form.CreatorName,
		CreatorEmail:   form.CreatorEmail,
		CreatorWebsite: form.CreatorWebsite,
		SpecsRaw:       form.Specs,
		FileName:       fileHeader.Filename,
		ContentType:    fileHeader.Header.Get("Content-Type"),
		Data:           data,
	})
	if err != nil {
		var validationErr *ValidationError
		switch {
		case errors.Is(err, ErrMissingFile),
			errors.Is(err, ErrMissingRequiredFields),
			errors.Is(err, storage.ErrUnsupportedFileType),
			errors.Is(err, storage.ErrPayloadTooLarge):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error during model upload"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"msg":   "Model uploaded successfully!",
		"model": record,
	})
}

func (m *Module) handleListModels(c *gin.Context) {
	identity, ok := authorization.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required or invalid token"})
		return
	}

	records, err := m.store.ListByOwner(c.Request.Context(), identity.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list models"})
		return
	}

	c.JSON(http.StatusOK, records)
}

func (m *Module) handleSearchModels(c *gin.Context) {
	identity, ok := authorization.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required or invalid token"})
		return
	}

	records, err := m.store.Search(c.Request.Context(), identity.ID, c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search models"})
		return
	}

	c.JSON(http.StatusOK, records)
}

func (m *Module) handleGetModel(c *gin.Context) {
	id, err := ParseRecordID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model ID format"})
		return
	}

	record, err := m.store.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "3D model not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load model"})
		return
	}

	record.Views = m.views.Increment(c.Request.Context(), record.ID)

	c.JSON(http.StatusOK, record)
}

func (m *Module) handleDeleteModel(c *gin.Context) {
	identity, ok := authorization.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required or invalid token"})
		return
	}

	id, err := ParseRecordID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model ID format"})
		return
	}

	if err := m.service.Delete(c.Request.Context(), identity.ID, id); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "3D model not found"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner may delete this model"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete model"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Model deleted successfully."})
}
