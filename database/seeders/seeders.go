package seeders

import (
	"log"

	"g7kaih_go/database"
	"g7kaih_go/models"
)

// SeedAll runs all seeders
func SeedAll() {
	log.Println("Starting database seeding...")

	SeedUsers()
	SeedKegiatan()
	SeedSubmissionWindow()

	log.Println("Database seeding completed successfully!")
}

// SeedUsers seeds one account per role plus the links between them.
func SeedUsers() {
	var count int64
	database.DB.Model(&models.UserProfile{}).Count(&count)
	if count > 0 {
		log.Println("Users already seeded, skipping...")
		return
	}

	guruWaliID := uint(3)
	studentID := uint(5)

	users := []models.UserProfile{
		{BaseModel: models.BaseModel{ID: 1}, Username: "admin", Email: "admin@g7kaih.local", Role: "admin"},
		{BaseModel: models.BaseModel{ID: 2}, Username: "bu.guru", Email: "guru@g7kaih.local", Role: "guru"},
		{BaseModel: models.BaseModel{ID: 3}, Username: "pak.wali", Email: "wali@g7kaih.local", Role: "guruwali"},
		{BaseModel: models.BaseModel{ID: 4}, Username: "ortu.budi", Email: "ortu@g7kaih.local", Role: "orangtua", ParentOfUserID: &studentID},
		{BaseModel: models.BaseModel{ID: 5}, Username: "budi", Email: "budi@g7kaih.local", Kelas: "7A", Role: "siswa", GuruWaliID: &guruWaliID},
		{BaseModel: models.BaseModel{ID: 6}, Username: "siti", Email: "siti@g7kaih.local", Kelas: "7B", Role: "siswa", GuruWaliID: &guruWaliID},
	}

	if err := database.DB.Create(&users).Error; err != nil {
		log.Printf("Failed to seed users: %v", err)
		return
	}
	log.Printf("Seeded %d users", len(users))
}

// SeedKegiatan seeds one activity template with a category and its fields.
func SeedKegiatan() {
	var count int64
	database.DB.Model(&models.Kegiatan{}).Count(&count)
	if count > 0 {
		log.Println("Kegiatan already seeded, skipping...")
		return
	}

	category := models.Category{
		Name: "Ibadah Harian",
		Fields: []models.CategoryField{
			{FieldKey: "sholat_subuh", Label: "Sholat Subuh", Type: "time", Required: true, OrderIndex: 1},
			{FieldKey: "tadarus", Label: "Tadarus", Type: "text", Required: false, OrderIndex: 2},
			{FieldKey: "bukti_foto", Label: "Bukti Foto", Type: "image", Required: false, OrderIndex: 3},
			{
				FieldKey:   "kegiatan_rumah",
				Label:      "Kegiatan di Rumah",
				Type:       "multiselect",
				OrderIndex: 4,
				Config:     models.JSON(`{"options": "membantu orang tua, belajar, olahraga"}`),
			},
		},
	}

	kegiatan := models.Kegiatan{
		Name:       "Kegiatan Harian G7",
		Active:     true,
		Categories: []models.Category{category},
	}

	if err := database.DB.Create(&kegiatan).Error; err != nil {
		log.Printf("Failed to seed kegiatan: %v", err)
		return
	}
	log.Println("Seeded kegiatan with default category fields")
}

// SeedSubmissionWindow opens the global window so a fresh install accepts
// submissions immediately.
func SeedSubmissionWindow() {
	var count int64
	database.DB.Model(&models.SubmissionWindowSetting{}).Count(&count)
	if count > 0 {
		log.Println("Submission window already seeded, skipping...")
		return
	}

	setting := models.SubmissionWindowSetting{IsOpen: true}
	if err := database.DB.Create(&setting).Error; err != nil {
		log.Printf("Failed to seed submission window: %v", err)
		return
	}
	log.Println("Seeded submission window (open)")
}
