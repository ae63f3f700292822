package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"g7kaih_go/config"
	"g7kaih_go/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// StudentCard is one aggregated reporting row: a single entry per physical
// person, with alias members folded into the group primary.
type StudentCard struct {
	ID              uint       `json:"id"`
	Name            string     `json:"name"`
	Kelas           string     `json:"kelas"`
	ActivitiesCount int        `json:"activities_count"`
	LastActivity    *time.Time `json:"last_activity,omitempty"`
	Status          string     `json:"status"`
	Categories      []string   `json:"categories"`
}

// InactiveStudent is one row of the daily-inactive report.
type InactiveStudent struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Kelas    string `json:"kelas"`
	Username string `json:"username"`
}

// ReportService builds aggregated views across possibly-duplicated student
// identities. All reads go through the alias resolver so no person is ever
// counted twice.
type ReportService struct {
	db      *gorm.DB
	aliases *AliasResolver
	cache   Cache
	ttl     time.Duration
	now     func() time.Time
}

func NewReportService(db *gorm.DB, aliases *AliasResolver, cache Cache) *ReportService {
	return &ReportService{
		db:      db,
		aliases: aliases,
		cache:   cache,
		ttl:     config.AppConfig.ReportCacheTTL,
		now:     time.Now,
	}
}

// StudentsForGuruWali lists the guru wali's assigned students with
// alias-aggregated activity statistics.
func (rs *ReportService) StudentsForGuruWali(ctx context.Context, guruWaliID uint) ([]StudentCard, error) {
	cacheKey := fmt.Sprintf("reports:guruwali:%d", guruWaliID)
	var cached []StudentCard
	if rs.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var profiles []models.UserProfile
	if err := rs.db.
		Where("role = ? AND guru_wali_id = ?", "siswa", guruWaliID).
		Order("username").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return []StudentCard{}, nil
	}

	cards, err := rs.buildCards(profiles)
	if err != nil {
		return nil, err
	}

	rs.cache.Put(ctx, cacheKey, cards, rs.ttl)
	return cards, nil
}

// AllStudents lists every student with aggregated statistics, the teacher and
// admin view.
func (rs *ReportService) AllStudents(ctx context.Context) ([]StudentCard, error) {
	cacheKey := "reports:students:all"
	var cached []StudentCard
	if rs.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var profiles []models.UserProfile
	if err := rs.db.
		Where("role = ?", "siswa").
		Order("username").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return []StudentCard{}, nil
	}

	cards, err := rs.buildCards(profiles)
	if err != nil {
		return nil, err
	}

	rs.cache.Put(ctx, cacheKey, cards, rs.ttl)
	return cards, nil
}

func (rs *ReportService) buildCards(profiles []models.UserProfile) ([]StudentCard, error) {
	ids := make([]uint, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	expanded := rs.aliases.Expand(ids)

	var activities []models.Aktivitas
	if err := rs.db.
		Preload("Kegiatan.Categories").
		Where("user_id IN ?", expanded).
		Find(&activities).Error; err != nil {
		return nil, err
	}

	statsByID := make(map[uint]StudentStats)
	for _, a := range activities {
		stats, ok := statsByID[a.UserID]
		if !ok {
			stats = StudentStats{Categories: make(map[string]bool)}
		}
		stats.Count++
		created := a.CreatedAt
		if stats.LastActivity == nil || created.After(*stats.LastActivity) {
			stats.LastActivity = &created
		}
		for _, cat := range a.Kegiatan.Categories {
			stats.Categories[cat.Name] = true
		}
		statsByID[a.UserID] = stats
	}

	aggregated := rs.aliases.Aggregate(statsByID)
	display := rs.aliases.DedupeForDisplay(profiles)

	cards := make([]StudentCard, 0, len(display))
	for _, p := range display {
		stats := aggregated[rs.aliases.PrimaryOf(p.ID)]
		cards = append(cards, StudentCard{
			ID:              p.ID,
			Name:            p.Username,
			Kelas:           p.Kelas,
			ActivitiesCount: stats.Count,
			LastActivity:    stats.LastActivity,
			Status:          activityStatus(stats.LastActivity, rs.now()),
			Categories:      stats.CategoryList(),
		})
	}

	// most active first
	sort.SliceStable(cards, func(a, b int) bool {
		return cards[a].ActivitiesCount > cards[b].ActivitiesCount
	})
	return cards, nil
}

// activityStatus buckets a student by recency of their last submission.
func activityStatus(last *time.Time, now time.Time) string {
	if last == nil {
		return "inactive"
	}
	days := now.Sub(*last).Hours() / 24
	switch {
	case days <= 1:
		return "active"
	case days <= 7:
		return "completed"
	default:
		return "inactive"
	}
}

// DailyInactive lists students with no submission on today's anchored date.
// A person counts as active when any of their alias accounts submitted.
func (rs *ReportService) DailyInactive(ctx context.Context) ([]InactiveStudent, error) {
	today := rs.now().In(config.Location()).Format("2006-01-02")
	cacheKey := "reports:daily-inactive:" + today
	var cached []InactiveStudent
	if rs.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var students []models.UserProfile
	if err := rs.db.Where("role = ?", "siswa").Order("username").Find(&students).Error; err != nil {
		return nil, err
	}

	var submittedIDs []uint
	if err := rs.db.Model(&models.Aktivitas{}).
		Distinct("user_id").
		Where("submitted_date = ?", today).
		Pluck("user_id", &submittedIDs).Error; err != nil {
		return nil, err
	}

	submitted := make(map[uint]bool)
	for _, id := range rs.aliases.Expand(submittedIDs) {
		submitted[id] = true
	}

	out := make([]InactiveStudent, 0)
	for _, p := range rs.aliases.DedupeForDisplay(students) {
		if submitted[p.ID] {
			continue
		}
		out = append(out, InactiveStudent{
			ID:       p.ID,
			Name:     p.Username,
			Kelas:    p.Kelas,
			Username: p.Username,
		})
	}

	rs.cache.Put(ctx, cacheKey, out, rs.ttl)
	return out, nil
}

// ExportActivities builds an Excel workbook of submissions in the inclusive
// date range (YYYY-MM-DD strings, anchored dates).
func (rs *ReportService) ExportActivities(from, to string) (*excelize.File, error) {
	var activities []models.Aktivitas
	query := rs.db.Preload("Kegiatan").Order("submitted_date, user_id")
	if from != "" {
		query = query.Where("submitted_date >= ?", from)
	}
	if to != "" {
		query = query.Where("submitted_date <= ?", to)
	}
	if err := query.Find(&activities).Error; err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(activities))
	for _, a := range activities {
		userIDs = append(userIDs, a.UserID)
	}
	nameByID := make(map[uint]string)
	if len(userIDs) > 0 {
		var profiles []models.UserProfile
		if err := rs.db.Where("id IN ?", userIDs).Find(&profiles).Error; err != nil {
			return nil, err
		}
		for _, p := range profiles {
			nameByID[p.ID] = p.Username
		}
	}

	f := excelize.NewFile()
	sheet := "Aktivitas"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Tanggal", "Siswa", "Kegiatan", "Nama Aktivitas", "Status"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, a := range activities {
		values := []interface{}{
			a.SubmittedDate,
			nameByID[a.UserID],
			a.Kegiatan.Name,
			a.Name,
			a.Status,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	return f, nil
}

// StartDailyReportScheduler precomputes the inactive report every morning in
// the anchor timezone so the first dashboard load of the day is warm.
func (rs *ReportService) StartDailyReportScheduler() *cron.Cron {
	c := cron.New(cron.WithLocation(config.Location()))
	_, err := c.AddFunc("0 6 * * *", func() {
		if _, err := rs.DailyInactive(context.Background()); err != nil {
			logrus.WithError(err).Warn("daily inactive report precompute failed")
		}
	})
	if err != nil {
		logrus.WithError(err).Error("failed to schedule daily inactive report")
		return c
	}
	c.Start()
	logrus.Info("daily report scheduler started")
	return c
}
