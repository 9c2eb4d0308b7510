package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mediacat/config"
	"mediacat/models"
	"mediacat/services"
	"mediacat/storage"
	"mediacat/store"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const maxThumbnailBytes = 5 << 20

var (
	catalogPagesCounter prometheus.Counter
	activeContentGauge  prometheus.Gauge
)

func init() {
	catalogPagesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_date_pages_served_total",
			Help: "Total number of date-bucketed catalog pages served.",
		},
	)
	activeContentGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_active_content",
			Help: "Number of content records currently eligible for listing.",
		},
	)
	prometheus.MustRegister(catalogPagesCounter, activeContentGauge)
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to catalog database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.Model{}, &models.Content{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	contentStore := store.NewPostgresStore(db)
	catalogService := services.NewCatalogService(contentStore, logging)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupCatalogRoutes(router, catalogService, logging)
	setupContentRoutes(router, db, s3Client, cfg, logging)

	refreshCatalogMetrics(db, logging)
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		refreshCatalogMetrics(db, logging)
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// setupCatalogRoutes mounts the date-bucketed pagination engine and the
// category enumeration that feeds the filter UI.
func setupCatalogRoutes(router *gin.Engine, catalog *services.CatalogService, log *zap.Logger) {
	rg := router.Group("/contents")

	rg.GET("/by-date", func(c *gin.Context) {
		page := 1
		if p := c.Query("page"); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
				return
			}
			page = n
		}

		f := store.Filter{
			Ethnicity: strings.TrimSpace(c.Query("ethnicity")),
			Category:  strings.TrimSpace(c.Query("category")),
		}
		if len(f.Ethnicity) > 100 || len(f.Category) > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "filter value too long"})
			return
		}

		result, err := catalog.ContentByDateGroups(c.Request.Context(), page, f)
		if err != nil {
			if errors.Is(err, services.ErrInvalidPage) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			log.Error("Date-bucketed catalog query failed",
				zap.Int("page", page),
				zap.String("ethnicity", f.Ethnicity),
				zap.String("category", f.Category),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		catalogPagesCounter.Inc()
		c.JSON(http.StatusOK, result)
	})

	rg.GET("/categories", func(c *gin.Context) {
		ethnicity := strings.TrimSpace(c.Query("ethnicity"))
		if len(ethnicity) > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "filter value too long"})
			return
		}

		categories, err := catalog.AvailableCategories(c.Request.Context(), ethnicity)
		if err != nil {
			log.Error("Category enumeration failed",
				zap.String("ethnicity", ethnicity),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"categories": categories})
	})
}

// contentPayload is the write shape shared by create and update.
type contentPayload struct {
	ModelID      string              `json:"model_id"`
	Title        string              `json:"title"`
	URL          string              `json:"url"`
	ThumbnailURL *string             `json:"thumbnailUrl"`
	Type         models.ContentType  `json:"type"`
	Tags         []string            `json:"tags"`
	Language     *string             `json:"language"`
	Info         *models.ContentInfo `json:"info"`
	Postdate     *time.Time          `json:"postdate"`
}

// contentSlug derives <model-slug>-<title-slug>, suffixed with a counter
// when the same model already has a content with this title.
func contentSlug(db *gorm.DB, modelName, title, modelID string) (string, error) {
	var existing int64
	if err := db.Model(&models.Content{}).
		Where("model_id = ? AND title = ?", modelID, title).
		Count(&existing).Error; err != nil {
		return "", err
	}
	base := slug.Make(modelName) + "-" + slug.Make(title)
	if existing > 0 {
		return fmt.Sprintf("%s-%d", base, existing+1), nil
	}
	return base, nil
}

// setupContentRoutes mounts the plain persistence endpoints around the
// catalog: listings, single lookups, create/update/soft-delete, the view
// counter and the thumbnail upload.
func setupContentRoutes(router *gin.Engine, db *gorm.DB, s3Client *s3.Client, cfg *config.Config, log *zap.Logger) {
	rg := router.Group("/contents")

	// Flat listing with search and sort. Only active records are listed.
	rg.GET("", func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if limit < 1 || limit > 100 {
			limit = 20
		}
		sortBy := c.DefaultQuery("sortBy", "recent")
		search := c.Query("search")

		listQuery := func() *gorm.DB {
			q := db.Model(&models.Content{}).
				Joins("Model").
				Where("contents.is_active = ? AND contents.status = ?", true, models.StatusActive)
			if search != "" {
				pattern := "%" + search + "%"
				q = q.Where(`contents.title ILIKE ? OR "Model".name ILIKE ?`, pattern, pattern)
			}
			return q
		}

		var total int64
		if err := listQuery().Count(&total).Error; err != nil {
			log.Error("Content count failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		var order string
		switch sortBy {
		case "popular":
			order = "contents.views DESC"
		case "oldest":
			order = "contents.created_at ASC"
		default:
			order = "contents.created_at DESC"
		}

		var contents []models.Content
		if err := listQuery().
			Order(order).
			Limit(limit).
			Offset((page - 1) * limit).
			Find(&contents).Error; err != nil {
			log.Error("Content listing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		totalPages := int((total + int64(limit) - 1) / int64(limit))
		c.JSON(http.StatusOK, gin.H{
			"contents": contents,
			"pagination": gin.H{
				"currentPage":  page,
				"totalPages":   totalPages,
				"totalItems":   total,
				"itemsPerPage": limit,
			},
		})
	})

	// Listing scoped to one model, with type and tag-overlap filters.
	rg.GET("/model/:model_id", func(c *gin.Context) {
		modelID := c.Param("model_id")

		var model models.Model
		if err := db.Where("model_id = ?", modelID).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "model not found"})
				return
			}
			log.Error("Model lookup failed", zap.String("model_id", modelID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if limit < 1 || limit > 100 {
			limit = 20
		}
		sortBy := c.DefaultQuery("sortBy", "recent")
		contentType := c.Query("type")
		tags := c.QueryArray("tags")

		listQuery := func() *gorm.DB {
			q := db.Model(&models.Content{}).
				Joins("Model").
				Where("contents.model_id = ? AND contents.is_active = ? AND contents.status = ?",
					modelID, true, models.StatusActive)
			if contentType != "" {
				q = q.Where("contents.type = ?", contentType)
			}
			if len(tags) > 0 {
				q = q.Where("contents.tags && ?", pq.Array(tags))
			}
			return q
		}

		var total int64
		if err := listQuery().Count(&total).Error; err != nil {
			log.Error("Model content count failed", zap.String("model_id", modelID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		var order string
		switch sortBy {
		case "popular":
			order = "contents.views DESC"
		case "oldest":
			order = "contents.created_at ASC"
		default:
			order = "contents.created_at DESC"
		}

		var contents []models.Content
		if err := listQuery().
			Order(order).
			Limit(limit).
			Offset((page - 1) * limit).
			Find(&contents).Error; err != nil {
			log.Error("Model content listing failed", zap.String("model_id", modelID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		totalPages := int((total + int64(limit) - 1) / int64(limit))
		c.JSON(http.StatusOK, gin.H{
			"contents": contents,
			"pagination": gin.H{
				"currentPage":  page,
				"totalPages":   totalPages,
				"totalItems":   total,
				"itemsPerPage": limit,
			},
		})
	})

	// Create. The slug is derived from the model name and title; the info
	// object keeps only positive fields.
	rg.POST("", func(c *gin.Context) {
		var payload contentPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if payload.ModelID == "" || payload.Title == "" || payload.URL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "model_id, title and url are required"})
			return
		}

		var model models.Model
		if err := db.Where("model_id = ?", payload.ModelID).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "model not found for given model_id"})
				return
			}
			log.Error("Model lookup failed", zap.String("model_id", payload.ModelID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		contentSlugValue, err := contentSlug(db, model.Name, payload.Title, payload.ModelID)
		if err != nil {
			log.Error("Slug generation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		content := models.Content{
			ModelID:  payload.ModelID,
			Slug:     contentSlugValue,
			Title:    payload.Title,
			URL:      payload.URL,
			Type:     payload.Type,
			Tags:     payload.Tags,
			Info:     payload.Info.Normalize(),
			Postdate: payload.Postdate,
		}
		if content.Type == "" {
			content.Type = models.TypeImage
		}
		if payload.ThumbnailURL != nil {
			content.ThumbnailURL = *payload.ThumbnailURL
		}
		if payload.Language != nil {
			content.Language = *payload.Language
		}

		if err := db.Create(&content).Error; err != nil {
			log.Error("Content creation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create content"})
			return
		}

		log.Info("Content created",
			zap.Uint("id", content.ID),
			zap.String("slug", content.Slug),
			zap.String("model_id", content.ModelID))
		c.JSON(http.StatusCreated, content)
	})

	// Lookup by slug, active records only.
	rg.GET("/slug/:slug", func(c *gin.Context) {
		var content models.Content
		err := db.Joins("Model").
			Where("contents.slug = ? AND contents.is_active = ?", c.Param("slug"), true).
			First(&content).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
				return
			}
			log.Error("Content lookup by slug failed", zap.String("slug", c.Param("slug")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, content)
	})

	// Lookup by id, active records only.
	rg.GET("/:id", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		var content models.Content
		err = db.Joins("Model").
			Where("contents.id = ? AND contents.is_active = ?", id, true).
			First(&content).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
				return
			}
			log.Error("Content lookup failed", zap.Int("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, content)
	})

	// Atomic view counter.
	rg.POST("/:id/view", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		var content models.Content
		if err := db.First(&content, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
				return
			}
			log.Error("Content lookup failed", zap.Int("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		if err := db.Model(&content).
			UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
			log.Error("View increment failed", zap.Int("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "view recorded", "views": content.Views + 1})
	})

	// Partial update; only the provided fields change.
	rg.PUT("/:id", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		var content models.Content
		if err := db.First(&content, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
				return
			}
			log.Error("Content lookup failed", zap.Int("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		var payload struct {
			Title        *string               `json:"title"`
			URL          *string               `json:"url"`
			ThumbnailURL *string               `json:"thumbnailUrl"`
			Type         *models.ContentType   `json:"type"`
			Tags         []string              `json:"tags"`
			Language     *string               `json:"language"`
			Status       *models.ContentStatus `json:"status"`
			Info         *models.ContentInfo   `json:"info"`
			Postdate     *time.Time            `json:"postdate"`
		}
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		updates := map[string]interface{}{}
		if payload.Title != nil {
			updates["title"] = *payload.Title
		}
		if payload.URL != nil {
			updates["url"] = *payload.URL
		}
		if payload.ThumbnailURL != nil {
			updates["thumbnail_url"] = *payload.ThumbnailURL
		}
		if payload.Type != nil {
			updates["type"] = *payload.Type
		}
		if payload.Tags != nil {
			updates["tags"] = pq.StringArray(payload.Tags)
		}
		if payload.Language != nil {
			updates["language"] = *payload.Language
		}
		if payload.Status != nil {
			updates["status"] = *payload.Status
		}
		if payload.Info != nil {
			updates["info"] = payload.Info.Normalize()
		}
		if payload.Postdate != nil {
			updates["postdate"] = *payload.Postdate
		}
		if len(updates) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no updatable fields provided"})
			return
		}

		if err := db.Model(&content).Updates(updates).Error; err != nil {
			log.Error("Content update failed", zap.Int("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update content"})
			return
		}
		c.JSON(http.StatusOK, content)
	})

	// Soft delete. The record keeps existing but leaves every read path.
	rg.DELETE("/:id", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		var content models.Content
		if err := db.First(&content, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
				return
			}
			log.Error("Content lookup failed", zap.Int("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		if err := db.Model(&content).Update("is_active", false).Error; err != nil {
			log.Error("Content soft delete failed", zap.Int("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete content"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	// Thumbnail upload to S3; persists the resulting URL on the record.
	rg.POST("/:id/thumbnail", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		var content models.Content
		if err := db.First(&content, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
				return
			}
			log.Error("Content lookup failed", zap.Int("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
			return
		}
		if fileHeader.Size > maxThumbnailBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		key := fmt.Sprintf("thumbnails/%d-%d%s",
			content.ID, time.Now().Unix(), filepath.Ext(fileHeader.Filename))

		link, err := storage.UploadFile(c.Request.Context(), s3Client, cfg.S3Bucket, key, contentType, data, cfg)
		if err != nil {
			log.Error("Thumbnail upload failed", zap.Int("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
			return
		}

		if err := db.Model(&content).Update("thumbnail_url", link).Error; err != nil {
			log.Error("Thumbnail URL update failed", zap.Int("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"thumbnailUrl": link})
	})
}

// refreshCatalogMetrics recomputes the active-content gauge.
func refreshCatalogMetrics(db *gorm.DB, log *zap.Logger) {
	var n int64
	if err := db.Model(&models.Content{}).
		Where("is_active = ? AND status = ?", true, models.StatusActive).
		Count(&n).Error; err != nil {
		log.Error("Active content count failed", zap.Error(err))
		return
	}
	activeContentGauge.Set(float64(n))
}
