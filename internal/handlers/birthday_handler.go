package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gifty/backend/internal/models"
	"gifty/backend/internal/repositories"
	"gifty/backend/internal/services"
)

// BirthdayHandler は誕生日関連のハンドラーを管理します。
type BirthdayHandler struct {
	birthdayService *services.BirthdayService
	calendarService *services.CalendarService
}

// NewBirthdayHandler は新しいBirthdayHandlerを作成します。
func NewBirthdayHandler(birthdayService *services.BirthdayService, calendarService *services.CalendarService) *BirthdayHandler {
	return &BirthdayHandler{birthdayService: birthdayService, calendarService: calendarService}
}

// respondError はサービスのエラーをステータスコードに変換して返します。
func respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, repositories.ErrBirthdayNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Birthday not found"})
	case errors.Is(err, repositories.ErrDuplicateBirthday):
		c.JSON(http.StatusConflict, gin.H{"error": "Birthday already exists"})
	case errors.Is(err, services.ErrInvalidMonth),
		errors.Is(err, services.ErrInvalidWindow),
		errors.Is(err, services.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("%s: %v", message, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return 0, false
	}
	return id, true
}

// GetBirthdaysHandler は誕生日の一覧を取得します。
func (h *BirthdayHandler) GetBirthdaysHandler(c *gin.Context) {
	birthdays, err := h.birthdayService.FindAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch birthdays")
		return
	}
	c.JSON(http.StatusOK, birthdays)
}

// GetBirthdayByIDHandler は指定IDの誕生日を取得します。
func (h *BirthdayHandler) GetBirthdayByIDHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	birthday, err := h.birthdayService.FindOne(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to fetch birthday")
		return
	}
	c.JSON(http.StatusOK, birthday)
}

// CreateBirthdayHandler は新しい誕生日を作成します。
func (h *BirthdayHandler) CreateBirthdayHandler(c *gin.Context) {
	var req models.CreateBirthdayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	created, err := h.birthdayService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to save birthday to database")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateBirthdayHandler は誕生日を部分的に更新します。
func (h *BirthdayHandler) UpdateBirthdayHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req models.UpdateBirthdayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	updated, err := h.birthdayService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "Failed to update birthday")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteBirthdayHandler は誕生日を削除します。
func (h *BirthdayHandler) DeleteBirthdayHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.birthdayService.Remove(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete birthday")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetUpcomingHandler は days 日以内 (既定は30日) の誕生日を近い順に返します。
func (h *BirthdayHandler) GetUpcomingHandler(c *gin.Context) {
	days := services.DefaultUpcomingDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrInvalidWindow.Error()})
			return
		}
		days = parsed
	}

	upcoming, err := h.birthdayService.FindUpcoming(c.Request.Context(), days)
	if err != nil {
		respondError(c, err, "Failed to fetch upcoming birthdays")
		return
	}
	c.JSON(http.StatusOK, upcoming)
}

// GetStatisticsHandler はダッシュボード用の集計を返します。
func (h *BirthdayHandler) GetStatisticsHandler(c *gin.Context) {
	stats, err := h.birthdayService.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to build statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetByMonthHandler は指定した月が誕生月のものを返します。
func (h *BirthdayHandler) GetByMonthHandler(c *gin.Context) {
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrInvalidMonth.Error()})
		return
	}
	birthdays, err := h.birthdayService.ByMonth(c.Request.Context(), month)
	if err != nil {
		respondError(c, err, "Failed to fetch birthdays")
		return
	}
	c.JSON(http.StatusOK, birthdays)
}

// GetCalendarHandler は誕生日を iCalendar 形式で返します。
func (h *BirthdayHandler) GetCalendarHandler(c *gin.Context) {
	records, today, err := h.birthdayService.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch birthdays")
		return
	}
	body, err := h.calendarService.Render(records, today)
	if err != nil {
		respondError(c, err, "Failed to render calendar")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="birthdays.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", body)
}

// GenerateSampleHandler はサンプルデータを登録します。
func (h *BirthdayHandler) GenerateSampleHandler(c *gin.Context) {
	count, err := h.birthdayService.GenerateSampleData(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to generate sample data")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sample data generated", "count": count})
}
