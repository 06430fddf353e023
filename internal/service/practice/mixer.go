package practice

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/telemetry"
)

// MixResult - набор вопросов для новой сессии
type MixResult struct {
	Questions []entity.PracticeQuestion
	FromPool  int
	Generated int
}

// SplitCounts делит n вопросов на сгенерированные и взятые из пула
func SplitCounts(n int) (aiCount, dbCount int) {
	aiCount = max(1, n/2)
	return aiCount, n - aiCount
}

// Mixer собирает вопросы сессии из пула и новых вопросов от LLM
type Mixer struct {
	deps      *Dependencies
	contexts  *ContextBuilder
	generator *Generator
}

// NewMixer создает сборщик вопросов
func NewMixer(deps *Dependencies) *Mixer {
	if deps.Config == nil {
		deps.Config = DefaultConfig()
	}
	return &Mixer{
		deps:      deps,
		contexts:  NewContextBuilder(deps),
		generator: NewGenerator(deps),
	}
}

// InvalidateContext сбрасывает кешированный контекст промпта материала
func (m *Mixer) InvalidateContext(ctx context.Context, contentID uuid.UUID) error {
	return m.contexts.Invalidate(ctx, contentID)
}

// Assemble возвращает n вопросов по учебному материалу. Если генерация не удалась,
// возвращает то, что нашлось в пуле; если не нашлось ничего - ErrNotFound.
func (m *Mixer) Assemble(ctx context.Context, guide *entity.Content, difficulty entity.Difficulty, n int) (*MixResult, error) {
	if n < MinQuestionCount || n > MaxQuestionCount {
		return nil, fmt.Errorf("%w: question count must be between %d and %d", apperrors.ErrValidation, MinQuestionCount, MaxQuestionCount)
	}
	ctx, span := telemetry.StartSpan(ctx, "practice.Assemble",
		attribute.String("study_guide_id", guide.ID.String()),
		attribute.Int("question_count", n))
	defer span.End()

	_, dbCount := SplitCounts(n)

	pool, err := m.deps.QuestionRepo.ListBySource(ctx, guide.ID, difficulty)
	if err != nil {
		return nil, fmt.Errorf("list question pool: %w", err)
	}
	m.deps.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > dbCount {
		pool = pool[:dbCount]
	}

	result := &MixResult{Questions: pool, FromPool: len(pool)}

	if shortfall := n - len(pool); shortfall > 0 {
		generated := m.generate(ctx, guide, difficulty, shortfall)
		result.Questions = append(result.Questions, generated...)
		result.Generated = len(generated)
	}

	if len(result.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions available for study guide %s", apperrors.ErrNotFound, guide.ID)
	}

	qs := result.Questions
	m.deps.shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })

	span.SetAttributes(attribute.Int("from_pool", result.FromPool), attribute.Int("generated", result.Generated))
	return result, nil
}

// generate запрашивает недостающие вопросы и сохраняет их в пул.
// Любая ошибка логируется, вызывающий продолжает с тем, что есть.
func (m *Mixer) generate(ctx context.Context, guide *entity.Content, difficulty entity.Difficulty, count int) []entity.PracticeQuestion {
	log := m.deps.Logger.With("study_guide_id", guide.ID)

	contextText, err := m.contexts.ForContent(ctx, guide)
	if err != nil {
		log.Warn("failed to build prompt context, using pool questions only", "error", err)
		return nil
	}

	questions, err := m.generator.Generate(ctx, guide.ID, contextText, difficulty, count)
	if err != nil {
		log.Warn("question generation failed, using pool questions only", "error", err)
		return nil
	}

	if err := m.deps.QuestionRepo.CreateBatch(ctx, questions); err != nil {
		log.Warn("failed to persist generated questions", "count", len(questions), "error", err)
		return nil
	}
	log.Info("generated practice questions", "requested", count, "generated", len(questions))
	return questions
}
