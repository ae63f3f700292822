package routes

import (
	"g7kaih_go/config"
	"g7kaih_go/controllers"
	"g7kaih_go/database"
	"g7kaih_go/middleware"
	"g7kaih_go/services"
	"g7kaih_go/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// SetupRoutes wires the service graph and registers all application routes.
// It returns the report service so main can start the precompute scheduler.
func SetupRoutes(app *fiber.App) *services.ReportService {
	db := database.DB

	objectStore, err := storage.NewStorageService()
	if err != nil {
		// Submissions without attachments still work; uploads will warn.
		logrus.WithError(err).Error("object storage unavailable, attachment uploads will fail")
	}

	gate := services.NewSubmissionGate(services.NewGormActivityStore(db))
	schemas := services.NewGormSchemaSource(db)
	writer := services.NewGormSubmissionWriter(db)
	windowService := services.NewWindowService(services.NewGormWindowStore(db))
	validationService := services.NewValidationService(services.NewGormFieldValueStore(db))

	var store services.ObjectStore
	if objectStore != nil {
		store = objectStore
	} else {
		store = unavailableStore{}
	}
	ingestor := services.NewIngestor(schemas, gate, store, writer)

	aliases := services.NewAliasResolver(services.LoadAliasGroups(config.AppConfig.AliasFile))
	cache := services.NewCache(database.GetRedisClient(), config.AppConfig.ReportCacheTTL)
	reportService := services.NewReportService(db, aliases, cache)

	aktivitasController := controllers.NewAktivitasController(ingestor, gate, windowService)
	kegiatanController := controllers.NewKegiatanController(schemas, gate, windowService)
	validationController := controllers.NewValidationController(validationService)
	windowController := controllers.NewSubmissionWindowController(windowService)
	reportController := controllers.NewReportController(reportService)
	healthController := controllers.NewHealthController(services.NewHealthService("G7KAIH API", "1.0.0"))

	app.Get("/health", healthController.GetHealthStatus)

	api := app.Group("/api")
	protected := api.Group("/", middleware.JWTMiddleware())

	// Kegiatan templates and schemas
	kegiatan := protected.Group("/kegiatan")
	kegiatan.Get("/", kegiatanController.GetKegiatan)
	kegiatan.Get("/:id", kegiatanController.GetKegiatanDetail)
	kegiatan.Get("/:id/window", middleware.RequireStudent(), kegiatanController.CheckSubmissionWindow)

	// Submissions
	aktivitas := protected.Group("/aktivitas")
	aktivitas.Post("/", middleware.RequireStudent(), aktivitasController.CreateAktivitas)
	aktivitas.Get("/", aktivitasController.GetAktivitas)
	aktivitas.Post("/validate", middleware.RequireValidator(), validationController.Validate)
	aktivitas.Get("/:id", aktivitasController.GetAktivitasDetail)
	aktivitas.Get("/:id/files", aktivitasController.GetAktivitasFiles)

	// Attachment metadata per (activity, field)
	protected.Get("/files/:activityid/:fieldid", aktivitasController.GetFieldFiles)

	// Global submission window
	window := protected.Group("/submission-window")
	window.Get("/", windowController.GetWindow)
	window.Post("/", middleware.RequireAdmin(), windowController.SetWindow)

	// Aggregated views
	protected.Get("/guruwali/students", middleware.RequireGuruWali(), reportController.GetGuruWaliStudents)
	protected.Get("/orangtua/activities", middleware.RequireRole("orangtua"), reportController.GetLinkedStudentActivities)

	reports := protected.Group("/reports", middleware.RequireRole("admin", "guru", "guruwali"))
	reports.Get("/students", reportController.GetAllStudents)
	reports.Get("/daily-inactive", reportController.GetDailyInactive)
	reports.Get("/export", middleware.RequireAdmin(), reportController.ExportAktivitas)

	return reportService
}

// unavailableStore stands in when S3 could not be initialised. Uploads fail
// per-attachment, which ingestion surfaces as warnings instead of rejecting
// the whole submission.
type unavailableStore struct{}

func (unavailableStore) Store(data []byte, filename, folderHint string) (storage.StoredObject, error) {
	return storage.StoredObject{}, fiber.NewError(fiber.StatusServiceUnavailable, "object storage unavailable")
}
