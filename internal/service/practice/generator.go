package practice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/pkg/llm"
)

// ErrNoQuestionsParsed - ответ модели не содержит ни одного пригодного вопроса
var ErrNoQuestionsParsed = errors.New("no valid questions in model response")

const systemPrompt = `You are an experienced teacher who writes exam practice questions strictly based on the provided study material.
Respond with a raw JSON array only. Do not wrap it in markdown and do not add any text before or after the array.`

const userPromptTemplate = `Study material:
"""
%s
"""

Write exactly %d practice questions about this material.
Difficulty: %s.
Use a mix of these question types: multiple_choice, true_false, fill_blank, short_answer.

Each array element must be an object with these fields:
{
  "question_type": "multiple_choice" | "true_false" | "fill_blank" | "short_answer",
  "difficulty": "easy" | "medium" | "hard",
  "question": "question text (for fill_blank mark the gap as ____)",
  "answer": "the correct answer",
  "options": ["A", "B", "C", "D"] (multiple_choice only, four options),
  "correct_option": "exact text of the correct option" (multiple_choice and true_false; "True" or "False" for true_false),
  "explanation": "one or two sentences explaining the answer"
}`

type generatedQuestion struct {
	QuestionType  string   `json:"question_type"`
	Type          string   `json:"type"`
	Difficulty    string   `json:"difficulty"`
	Question      string   `json:"question"`
	Answer        string   `json:"answer"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correct_option"`
	Explanation   string   `json:"explanation"`
}

// Generator запрашивает у LLM новые вопросы по учебному материалу
type Generator struct {
	deps *Dependencies
}

// NewGenerator создает генератор вопросов
func NewGenerator(deps *Dependencies) *Generator {
	return &Generator{deps: deps}
}

// BuildPrompt формирует сообщения для chat-completions
func BuildPrompt(contextText string, difficulty entity.Difficulty, count int) []llm.Message {
	level := string(difficulty)
	if level == "" {
		level = "mixed (easy, medium and hard)"
	}
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPromptTemplate, contextText, count, level)},
	}
}

// Generate делает один запрос к модели и возвращает не больше count вопросов
func (g *Generator) Generate(ctx context.Context, sourceID uuid.UUID, contextText string, difficulty entity.Difficulty, count int) ([]entity.PracticeQuestion, error) {
	if count <= 0 {
		return nil, nil
	}
	raw, err := g.deps.LLM.Complete(ctx, BuildPrompt(contextText, difficulty, count))
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	questions, err := ParseQuestions(raw, sourceID, difficulty)
	if err != nil {
		return nil, err
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}

// ParseQuestions разбирает ответ модели. Допускает markdown-ограждение и текст вокруг массива,
// некорректные элементы отбрасываются.
func ParseQuestions(raw string, sourceID uuid.UUID, requested entity.Difficulty) ([]entity.PracticeQuestion, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, ErrNoQuestionsParsed
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoQuestionsParsed, err)
	}

	out := make([]entity.PracticeQuestion, 0, len(items))
	for _, item := range items {
		var gq generatedQuestion
		if err := json.Unmarshal(item, &gq); err != nil {
			continue
		}
		q, ok := gq.toEntity(sourceID, requested)
		if !ok {
			continue
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, ErrNoQuestionsParsed
	}
	return out, nil
}

func (gq generatedQuestion) toEntity(sourceID uuid.UUID, requested entity.Difficulty) (entity.PracticeQuestion, bool) {
	typ := gq.QuestionType
	if typ == "" {
		typ = gq.Type
	}
	q := entity.PracticeQuestion{
		SourceContentID: sourceID,
		QuestionType:    normalizeQuestionType(typ),
		Question:        strings.TrimSpace(gq.Question),
		Answer:          strings.TrimSpace(gq.Answer),
		Explanation:     strings.TrimSpace(gq.Explanation),
		IsAIGenerated:   true,
	}
	if q.Question == "" || !q.QuestionType.Valid() {
		return q, false
	}

	q.Difficulty = requested
	if d, ok := entity.ParseDifficulty(gq.Difficulty); ok && d != "" && requested == "" {
		q.Difficulty = d
	}
	if q.Difficulty == "" {
		q.Difficulty = entity.DifficultyMedium
	}

	switch q.QuestionType {
	case entity.QuestionTypeMultipleChoice:
		options := cleanOptions(gq.Options)
		if len(options) < 2 {
			return q, false
		}
		correct := resolveOption(options, gq.CorrectOption)
		if correct == "" {
			correct = resolveOption(options, gq.Answer)
		}
		if correct == "" {
			return q, false
		}
		q.Options = options
		q.CorrectOption = correct
		if q.Answer == "" || isOptionLetter(q.Answer) {
			q.Answer = correct
		}
	case entity.QuestionTypeTrueFalse:
		correct := normalizeBool(gq.CorrectOption)
		if correct == "" {
			correct = normalizeBool(gq.Answer)
		}
		if correct == "" {
			return q, false
		}
		q.Options = entity.StringArray{"True", "False"}
		q.CorrectOption = correct
		q.Answer = correct
	default:
		if q.Answer == "" {
			return q, false
		}
	}
	return q, true
}

func normalizeQuestionType(s string) entity.QuestionType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_", "/", "_").Replace(s)
	switch s {
	case "multiple_choice", "multiplechoice", "mcq", "mc":
		return entity.QuestionTypeMultipleChoice
	case "true_false", "truefalse", "boolean", "tf":
		return entity.QuestionTypeTrueFalse
	case "fill_blank", "fill_in_the_blank", "fill_in_blank", "fillblank", "fill_in":
		return entity.QuestionTypeFillBlank
	case "short_answer", "shortanswer", "short", "open":
		return entity.QuestionTypeShortAnswer
	}
	return entity.QuestionType(s)
}

func cleanOptions(opts []string) entity.StringArray {
	out := make(entity.StringArray, 0, len(opts))
	for _, o := range opts {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func isOptionLetter(s string) bool {
	s = strings.TrimRight(strings.TrimSpace(s), ".)")
	return len(s) == 1 && strings.ToUpper(s)[0] >= 'A' && strings.ToUpper(s)[0] <= 'Z'
}

// resolveOption находит вариант по тексту или по букве ("B", "b)")
func resolveOption(options []string, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, o := range options {
		if strings.EqualFold(o, value) {
			return o
		}
	}
	if isOptionLetter(value) {
		idx := int(strings.ToUpper(value)[0] - 'A')
		if idx < len(options) {
			return options[idx]
		}
	}
	return ""
}

func normalizeBool(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes":
		return "True"
	case "false", "f", "no":
		return "False"
	}
	return ""
}
