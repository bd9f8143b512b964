package handlers

import (
	"AssiScan/internal/config"
	"AssiScan/internal/middleware"
	"AssiScan/internal/service"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров. metrics может быть nil.
func NewHandler(
	recordService *service.RecordService,
	adminService *service.AdminService,
	metrics http.Handler,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(config.AuthSecret))

	// Handlers
	recordHandler := NewRecordHandler(recordService, logger, config)
	adminHandler := NewAdminHandler(adminService, logger, config)

	// Admin session
	r.Post("/login", adminHandler.Login)
	r.Post("/logout", adminHandler.Logout)
	r.Get("/api/status", adminHandler.Status)

	// Pipeline
	r.Post("/extract", recordHandler.Extract)
	r.Post("/extract-form137", recordHandler.ExtractForm137)
	r.Post("/save-record", recordHandler.SaveRecord)
	r.Post("/api/submissions", recordHandler.Submit)
	r.Post("/upload-additional", recordHandler.UploadAdditional)
	r.Get("/uploads/{name}", recordHandler.ServeUpload)

	// Admin only
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/get-records", recordHandler.GetRecords)
		r.Delete("/delete-record/{id}", recordHandler.DeleteRecord)
		r.Get("/api/records/export.xlsx", recordHandler.ExportXLSX)
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return &Handler{Router: r}
}
