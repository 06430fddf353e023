package practice

import (
	"context"
	"math/rand"
	"time"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/domain/repository"
	"github.com/yourusername/studyhub-api/pkg/llm"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

const (
	MinQuestionCount = 1
	MaxQuestionCount = 20

	DefaultContextBudget = 8000
	KeywordLimit         = 30
)

// Config содержит настройки движка практики
type Config struct {
	// ContextBudget - максимальная длина контекста промпта в символах
	ContextBudget int
	// ContextCacheTTL - время жизни построенного контекста в кеше
	ContextCacheTTL time.Duration
	// MaxDocumentBytes - ограничение на размер загружаемого документа
	MaxDocumentBytes int64
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		ContextBudget:    DefaultContextBudget,
		ContextCacheTTL:  24 * time.Hour,
		MaxDocumentBytes: 50 << 20,
	}
}

// ChatCompleter - клиент LLM, которому достаточно одного метода
type ChatCompleter interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// DocumentSource загружает исходный файл учебного материала
type DocumentSource interface {
	Load(ctx context.Context, content *entity.Content) ([]byte, error)
}

// Dependencies содержит зависимости движка практики
type Dependencies struct {
	QuestionRepo repository.PracticeQuestionRepository
	CacheRepo    repository.CacheRepository // может быть nil: контекст не кешируется
	LLM          ChatCompleter
	Documents    DocumentSource
	Logger       *logger.Logger
	Config       *Config

	// Shuffle перемешивает n элементов. По умолчанию rand.Shuffle (Фишер-Йетс).
	Shuffle func(n int, swap func(i, j int))
}

func (d *Dependencies) shuffle(n int, swap func(i, j int)) {
	if d.Shuffle != nil {
		d.Shuffle(n, swap)
		return
	}
	rand.Shuffle(n, swap)
}
