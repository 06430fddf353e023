package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/handler/helper"
	"github.com/yourusername/studyhub-api/internal/service"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

// ContentUseCase - операции с учебными материалами
type ContentUseCase interface {
	ListCountryPacks(ctx context.Context) ([]entity.CountryPack, error)
	List(ctx context.Context, countryCode string, ct entity.ContentType) ([]entity.Content, error)
	Create(ctx context.Context, adminID uuid.UUID, in service.CreateContentInput) (*entity.Content, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FlashcardUseCase - операции с карточками
type FlashcardUseCase interface {
	List(ctx context.Context, countryCode string) ([]entity.Flashcard, error)
	Create(ctx context.Context, in service.CreateFlashcardInput) (*entity.Flashcard, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// QuestionAdminUseCase - операции с пулом вопросов и выгрузка результатов
type QuestionAdminUseCase interface {
	List(ctx context.Context, studyGuideID uuid.UUID, difficulty string) ([]entity.PracticeQuestion, error)
	Create(ctx context.Context, in service.CreateQuestionInput) (*entity.PracticeQuestion, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CompletedSessions(ctx context.Context, studyGuideID uuid.UUID) (*entity.Content, []entity.PracticeSession, error)
}

// AdminHandler обрабатывает запросы админ-консоли
type AdminHandler struct {
	content    ContentUseCase
	flashcards FlashcardUseCase
	questions  QuestionAdminUseCase
	log        *logger.Logger
}

// NewAdminHandler создает обработчик админ-консоли
func NewAdminHandler(content ContentUseCase, flashcards FlashcardUseCase, questions QuestionAdminUseCase, log *logger.Logger) *AdminHandler {
	return &AdminHandler{content: content, flashcards: flashcards, questions: questions, log: log}
}

// CreateQuestionRequest представляет запрос на создание вопроса
type CreateQuestionRequest struct {
	StudyGuideID  uuid.UUID `json:"study_guide_id" binding:"required"`
	QuestionType  string    `json:"question_type" binding:"required"`
	Difficulty    string    `json:"difficulty" binding:"required"`
	Question      string    `json:"question" binding:"required"`
	Answer        string    `json:"answer"`
	Options       []string  `json:"options"`
	CorrectOption string    `json:"correct_option"`
	Explanation   string    `json:"explanation"`
}

// ListCountryPacks возвращает активные страновые версии
// GET /api/country-packs
func (h *AdminHandler) ListCountryPacks(c *gin.Context) {
	packs, err := h.content.ListCountryPacks(c.Request.Context())
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"country_packs": packs})
}

// ListContent возвращает материалы страновой версии
// GET /api/content?country_code=kz&content_type=note
func (h *AdminHandler) ListContent(c *gin.Context) {
	items, err := h.content.List(c.Request.Context(), c.Query("country_code"), entity.ContentType(c.Query("content_type")))
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": items})
}

// UploadContent создает материал из multipart-формы: файл или внешняя ссылка
// POST /api/admin/content
func (h *AdminHandler) UploadContent(c *gin.Context) {
	adminID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	file, closeFile, err := helper.FormFile(c, "file")
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	defer closeFile()

	content, err := h.content.Create(c.Request.Context(), adminID, service.CreateContentInput{
		CountryCode: c.PostForm("country_code"),
		ContentType: entity.ContentType(c.PostForm("content_type")),
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		FileURL:     c.PostForm("file_url"),
		File:        file,
	})
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, content)
}

// DeleteContent удаляет материал и его файл
// DELETE /api/admin/content/:id
func (h *AdminHandler) DeleteContent(c *gin.Context) {
	if err := h.content.Delete(c.Request.Context(), helper.ParamUUID(c, "contentID")); err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Content deleted"})
}

// ListFlashcards возвращает карточки страновой версии
// GET /api/flashcards?country_code=kz
func (h *AdminHandler) ListFlashcards(c *gin.Context) {
	cards, err := h.flashcards.List(c.Request.Context(), c.Query("country_code"))
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flashcards": cards})
}

// CreateFlashcard создает карточку с необязательной картинкой
// POST /api/admin/flashcards
func (h *AdminHandler) CreateFlashcard(c *gin.Context) {
	image, closeImage, err := helper.FormFile(c, "image")
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	defer closeImage()

	card, err := h.flashcards.Create(c.Request.Context(), service.CreateFlashcardInput{
		CountryCode: c.PostForm("country_code"),
		Front:       c.PostForm("front"),
		Back:        c.PostForm("back"),
		Image:       image,
	})
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

// DeleteFlashcard удаляет карточку
// DELETE /api/admin/flashcards/:id
func (h *AdminHandler) DeleteFlashcard(c *gin.Context) {
	if err := h.flashcards.Delete(c.Request.Context(), helper.ParamUUID(c, "flashcardID")); err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Flashcard deleted"})
}

// ListQuestions возвращает вопросы учебного материала
// GET /api/admin/questions?study_guide_id=...&difficulty=medium
func (h *AdminHandler) ListQuestions(c *gin.Context) {
	guideID, err := uuid.Parse(c.Query("study_guide_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid study_guide_id"})
		return
	}
	questions, err := h.questions.List(c.Request.Context(), guideID, c.Query("difficulty"))
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// CreateQuestion добавляет вопрос администратора в пул
// POST /api/admin/questions
func (h *AdminHandler) CreateQuestion(c *gin.Context) {
	var req CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	q, err := h.questions.Create(c.Request.Context(), service.CreateQuestionInput{
		StudyGuideID:  req.StudyGuideID,
		QuestionType:  req.QuestionType,
		Difficulty:    req.Difficulty,
		Question:      req.Question,
		Answer:        req.Answer,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
		Explanation:   req.Explanation,
	})
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// DeleteQuestion удаляет вопрос из пула
// DELETE /api/admin/questions/:id
func (h *AdminHandler) DeleteQuestion(c *gin.Context) {
	if err := h.questions.Delete(c.Request.Context(), helper.ParamUUID(c, "questionID")); err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted"})
}

// ExportResults экспортирует завершенные сессии по материалу в CSV или Excel
// GET /api/admin/practice/:studyGuideId/export?format=csv|xlsx
func (h *AdminHandler) ExportResults(c *gin.Context) {
	guideID := helper.ParamUUID(c, "studyGuideID")
	format := c.DefaultQuery("format", "csv")

	// Все сессии без пагинации
	guide, sessions, err := h.questions.CompletedSessions(c.Request.Context(), guideID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	filename := fmt.Sprintf("practice_%s_results_%s", guide.ID.String()[:8], time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, sessions, filename)
	default:
		h.exportCSV(c, sessions, filename)
	}
}

var exportHeaders = []string{"Сессия", "Пользователь", "Сложность", "Пробный экзамен", "Правильных", "Всего вопросов", "Балл (%)", "Время (сек)", "Завершена"}

func exportRow(s entity.PracticeSession) []string {
	mock := "Нет"
	if s.IsMockExam {
		mock = "Да"
	}
	completed := ""
	if s.CompletedAt != nil {
		completed = s.CompletedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		s.ID.String(),
		s.UserID.String(),
		sanitizeForExcel(string(s.Difficulty)),
		mock,
		strconv.Itoa(s.CorrectAnswers),
		strconv.Itoa(s.TotalQuestions),
		strconv.Itoa(s.Score),
		strconv.Itoa(s.TimeSpentSeconds),
		completed,
	}
}

// exportCSV пишет CSV с BOM, чтобы Excel корректно показал UTF-8
func (h *AdminHandler) exportCSV(c *gin.Context, sessions []entity.PracticeSession, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	_, _ = c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	_ = writer.Write(exportHeaders)
	for _, s := range sessions {
		_ = writer.Write(exportRow(s))
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.log.Error("csv export failed", "error", err)
	}
}

// exportXLSX пишет Excel через StreamWriter
func (h *AdminHandler) exportXLSX(c *gin.Context, sessions []entity.PracticeSession, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Результаты"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		h.log.Error("xlsx export: rename sheet", "error", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		h.log.Error("xlsx export: create stream writer", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, v := range exportHeaders {
		headers[i] = v
	}
	if err := sw.SetRow("A1", headers); err != nil {
		h.log.Error("xlsx export: write headers", "error", err)
	}

	for i, s := range sessions {
		rowNum := i + 2
		completed := ""
		if s.CompletedAt != nil {
			completed = s.CompletedAt.UTC().Format(time.RFC3339)
		}
		mock := "Нет"
		if s.IsMockExam {
			mock = "Да"
		}
		row := []interface{}{
			s.ID.String(), s.UserID.String(), sanitizeForExcel(string(s.Difficulty)), mock,
			s.CorrectAnswers, s.TotalQuestions, s.Score, s.TimeSpentSeconds, completed,
		}
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), row); err != nil {
			h.log.Error("xlsx export: write row", "row", rowNum, "error", err)
		}
	}

	if err := sw.Flush(); err != nil {
		h.log.Error("xlsx export: flush", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		h.log.Error("xlsx export: write response", "error", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
