package practice

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
)

// ShortAnswerThreshold - доля слов пользователя, которые должны встретиться в эталоне
const ShortAnswerThreshold = 0.5

// minTokenRunes - слова короче или равные этой длине не учитываются
const minTokenRunes = 3

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Grade - результат проверки одного ответа
type Grade struct {
	QuestionID    string `json:"question_id"`
	IsCorrect     bool   `json:"is_correct"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

// GradeAnswer проверяет ответ пользователя на вопрос
func GradeAnswer(q *entity.PracticeQuestion, userAnswer string) Grade {
	expected := q.ExpectedAnswer()
	return Grade{
		QuestionID:    q.ID.String(),
		IsCorrect:     IsCorrect(q.QuestionType, userAnswer, expected),
		UserAnswer:    userAnswer,
		CorrectAnswer: expected,
		Explanation:   q.Explanation,
	}
}

// IsCorrect решает, верен ли ответ для данного типа вопроса
func IsCorrect(qt entity.QuestionType, userAnswer, expected string) bool {
	switch qt {
	case entity.QuestionTypeShortAnswer:
		return ShortAnswerMatch(userAnswer, expected)
	default:
		// multiple_choice, true_false, fill_blank: точное совпадение без учета регистра
		user := strings.TrimSpace(userAnswer)
		if user == "" {
			return false
		}
		return strings.EqualFold(user, strings.TrimSpace(expected))
	}
}

// ShortAnswerMatch - мягкая проверка развернутого ответа: верен, если не меньше половины
// значимых слов пользователя (длиннее трех символов) есть в эталоне.
// Без стемминга и синонимов.
func ShortAnswerMatch(userAnswer, reference string) bool {
	userTokens := Tokenize(userAnswer)
	if len(userTokens) == 0 {
		return false
	}
	refSet := make(map[string]struct{})
	for _, t := range Tokenize(reference) {
		refSet[t] = struct{}{}
	}
	matched := 0
	for _, t := range userTokens {
		if _, ok := refSet[t]; ok {
			matched++
		}
	}
	return float64(matched)/float64(len(userTokens)) >= ShortAnswerThreshold
}

// Tokenize разбивает текст на слова в нижнем регистре длиннее трех символов
func Tokenize(s string) []string {
	parts := nonWord.Split(strings.ToLower(s), -1)
	out := parts[:0]
	for _, p := range parts {
		if utf8.RuneCountInString(p) > minTokenRunes {
			out = append(out, p)
		}
	}
	return out
}

// Score вычисляет процент верных ответов с округлением
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
