package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vibebros/logging"
	"vibebros/models"
)

const (
	cookieName = "vibebros_visitor_id"
	// repeat views from the same visitor inside this window are not counted
	throttleWindow = 30 * time.Minute
)

// AnalyticsModule records post views. A nil *AnalyticsModule is valid and
// turns every method into a no-op, which is how analytics is disabled.
type AnalyticsModule struct {
	db     *gorm.DB
	logger logging.Logger
	wg     sync.WaitGroup
}

func NewAnalyticsModule(db *gorm.DB, logger logging.Logger) *AnalyticsModule {
	if logger == nil {
		logger = logging.NoOp()
	}
	if db == nil {
		logger.Info("analytics.disabled", "reason", "no database")
		return nil
	}
	logger.Info("analytics.enabled")
	return &AnalyticsModule{db: db, logger: logger}
}

// Track is a route middleware for post pages. The visitor cookie is issued
// before the handler writes the response; the view is recorded afterwards
// if the page rendered successfully.
func (a *AnalyticsModule) Track() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil {
			c.Next()
			return
		}

		cookieID := a.getOrCreateCookieID(c)
		c.Next()

		if c.Writer.Status() == http.StatusOK {
			a.recordView(c, c.Param("slug"), cookieID)
		}
	}
}

func (a *AnalyticsModule) recordView(c *gin.Context, slug, cookieID string) {
	if slug == "" {
		return
	}

	var recent models.PostView
	err := a.db.Where("cookie_id = ? AND slug = ? AND created_at > ?",
		cookieID, slug, time.Now().Add(-throttleWindow)).
		First(&recent).Error
	if err == nil {
		return
	}

	view := models.PostView{
		Slug:      slug,
		CookieID:  cookieID,
		IP:        getClientIP(c),
		Browser:   extractBrowser(c.Request.UserAgent()),
		Language:  extractLanguage(c.GetHeader("Accept-Language")),
		CreatedAt: time.Now(),
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.db.Create(&view).Error; err != nil {
			a.logger.Error("analytics.save_failed", "slug", view.Slug, "error", err)
		}
	}()
}

// Wait blocks until pending view writes are stored.
func (a *AnalyticsModule) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}

func (a *AnalyticsModule) getOrCreateCookieID(c *gin.Context) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}

	data := time.Now().String() + c.ClientIP() + c.Request.UserAgent()
	hash := sha256.Sum256([]byte(data))
	cookieID := hex.EncodeToString(hash[:])

	c.SetCookie(cookieName, cookieID, 60*60*24*365*2, "/", "", false, true)
	return cookieID
}

func getClientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		ips := strings.Split(ip, ",")
		return strings.TrimSpace(ips[0])
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := c.GetHeader("CF-Connecting-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func extractBrowser(userAgent string) *string {
	if userAgent == "" {
		return nil
	}

	ua := strings.ToLower(userAgent)
	var browser string

	// order matters: Edge and Opera also claim to be Chrome
	switch {
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "opr") || strings.Contains(ua, "opera"):
		browser = "Opera"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "msie") || strings.Contains(ua, "trident"):
		browser = "Internet Explorer"
	default:
		browser = "Other"
	}
	return &browser
}

// extractLanguage keeps the first entry of an Accept-Language header.
func extractLanguage(acceptLang string) *string {
	if acceptLang == "" {
		return nil
	}
	lang := strings.TrimSpace(strings.Split(acceptLang, ",")[0])
	lang = strings.Split(lang, ";")[0]
	if lang == "" {
		return nil
	}
	return &lang
}

type DayViews struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type PostViews struct {
	Slug  string `json:"slug"`
	Count int64  `json:"count"`
}

func (a *AnalyticsModule) GetPostViewCount(slug string) int64 {
	if a == nil {
		return 0
	}

	var count int64
	a.db.Model(&models.PostView{}).Where("slug = ?", slug).Count(&count)
	return count
}

// GetViewsByDay returns one entry per day for the last days days, oldest first.
func (a *AnalyticsModule) GetViewsByDay(days int) []DayViews {
	if a == nil || days <= 0 {
		return []DayViews{}
	}

	startDate := time.Now().AddDate(0, 0, -days)

	var results []DayViews
	a.db.Model(&models.PostView{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("created_at >= ?", startDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&results)

	dayViews := make([]DayViews, days)
	for i := 0; i < days; i++ {
		date := time.Now().AddDate(0, 0, -(days - 1 - i))
		dayViews[i] = DayViews{Date: date.Format("2006-01-02")}
	}

	for _, result := range results {
		for i := range dayViews {
			if dayViews[i].Date == result.Date {
				dayViews[i].Count = result.Count
				break
			}
		}
	}
	return dayViews
}

// GetTopPosts returns the limit most viewed slugs of the last days days.
func (a *AnalyticsModule) GetTopPosts(days, limit int) []PostViews {
	if a == nil {
		return []PostViews{}
	}

	startDate := time.Now().AddDate(0, 0, -days)

	var results []PostViews
	a.db.Model(&models.PostView{}).
		Select("slug, COUNT(*) as count").
		Where("created_at >= ?", startDate).
		Group("slug").
		Order("count DESC, slug ASC").
		Limit(limit).
		Scan(&results)

	if results == nil {
		return []PostViews{}
	}
	return results
}
