package practice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
)

const (
	maxHeadings      = 40
	maxHeadingRunes  = 100
	minCapsRunes     = 4
	contextCacheKey  = "practice:context:%s:%d"
	headingsShare    = 4 // заголовки занимают не больше 1/4 бюджета
	keywordsShare    = 8 // ключевые слова - не больше 1/8
	excerptSeparator = "\n...\n"
)

var (
	// 1. / 1.2 / 1.2.3) Введение
	numberedHeading = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S`)
	// A. / b) Раздел
	letteredHeading = regexp.MustCompile(`^[A-Za-z][.)]\s+\S`)
	// # Markdown
	markdownHeading = regexp.MustCompile(`^#{1,6}\s+\S`)
	// ЗАГЛАВНЫЕ СТРОКИ: только заглавные буквы, цифры, пробелы и пунктуация
	capsHeading = regexp.MustCompile(`^[\p{Lu}\p{N}\s\p{P}]+$`)

	whitespace = regexp.MustCompile(`\s+`)
	wordRe     = regexp.MustCompile(`\p{L}+`)
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`about above after again against also among because been before
		being below between both could does doing down during each few from further have having here
		into itself just more most much must once only other ought ours ourselves over same should some
		such than that their theirs them themselves then there these they this those through under until
		very were what when where which while whom will with within without would your yours yourself
		yourselves shall upon many like well even make made used using uses include includes including
		however therefore thus also page chapter figure table section example examples`) {
		stopwords[w] = struct{}{}
	}
}

// DocumentContext - ограниченная по длине выжимка документа для промпта
type DocumentContext struct {
	Title    string   `json:"title"`
	Headings []string `json:"headings"`
	Keywords []string `json:"keywords"`
	Excerpts []string `json:"excerpts"`
}

// ExtractHeadings находит строки, похожие на заголовки
func ExtractHeadings(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || utf8.RuneCountInString(line) > maxHeadingRunes {
			continue
		}
		if !isHeading(line) {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		key := strings.ToLower(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, line)
		if len(out) == maxHeadings {
			break
		}
	}
	return out
}

func isHeading(line string) bool {
	if numberedHeading.MatchString(line) || letteredHeading.MatchString(line) || markdownHeading.MatchString(line) {
		return true
	}
	if utf8.RuneCountInString(line) < minCapsRunes || !capsHeading.MatchString(line) {
		return false
	}
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= minCapsRunes-1
}

// ExtractKeywords возвращает limit самых частых слов (длиннее трех букв), исключая стоп-слова.
// При равной частоте порядок алфавитный.
func ExtractKeywords(text string, limit int) []string {
	counts := make(map[string]int)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(w) <= minTokenRunes {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		counts[w]++
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > limit {
		words = words[:limit]
	}
	return words
}

// SampleText берет фрагменты из начала, середины и конца текста общей длиной не больше budget символов
func SampleText(text string, budget int) []string {
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
	runes := []rune(text)
	if budget <= 0 || len(runes) == 0 {
		return nil
	}
	if len(runes) <= budget {
		return []string{text}
	}

	sepRunes := utf8.RuneCountInString(excerptSeparator)
	each := (budget - 2*sepRunes) / 3
	if each <= 0 {
		return []string{string(runes[:budget])}
	}
	mid := len(runes)/2 - each/2
	return []string{
		string(runes[:each]),
		string(runes[mid : mid+each]),
		string(runes[len(runes)-each:]),
	}
}

// BuildDocumentContext строит выжимку документа, укладывающуюся в budget символов после Render
func BuildDocumentContext(title, text string, budget int) *DocumentContext {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	dc := &DocumentContext{Title: truncateRunes(strings.TrimSpace(title), maxHeadingRunes)}

	dc.Headings = fitList(ExtractHeadings(text), budget/headingsShare)
	dc.Keywords = fitList(ExtractKeywords(text, KeywordLimit), budget/keywordsShare)

	used := utf8.RuneCountInString(dc.Render())
	dc.Excerpts = SampleText(text, budget-used-len("\n\nExcerpts:\n"))
	return dc
}

// fitList оставляет столько элементов, сколько помещается в limit символов
func fitList(items []string, limit int) []string {
	total := 0
	for i, it := range items {
		total += utf8.RuneCountInString(it) + 3 // "- " и перевод строки
		if total > limit {
			return items[:i]
		}
	}
	return items
}

// Render собирает текст контекста для промпта
func (d *DocumentContext) Render() string {
	var b strings.Builder
	if d.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", d.Title)
	}
	if len(d.Headings) > 0 {
		b.WriteString("\nKey sections:\n")
		for _, h := range d.Headings {
			b.WriteString("- ")
			b.WriteString(h)
			b.WriteString("\n")
		}
	}
	if len(d.Keywords) > 0 {
		b.WriteString("\nKey terms: ")
		b.WriteString(strings.Join(d.Keywords, ", "))
		b.WriteString("\n")
	}
	if len(d.Excerpts) > 0 {
		b.WriteString("\nExcerpts:\n")
		b.WriteString(strings.Join(d.Excerpts, excerptSeparator))
	}
	return b.String()
}

// RenderBounded возвращает Render, обрезанный до budget символов
func (d *DocumentContext) RenderBounded(budget int) string {
	return truncateRunes(d.Render(), budget)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// ContextBuilder превращает загруженный материал в контекст промпта и кеширует результат
type ContextBuilder struct {
	deps *Dependencies
}

// NewContextBuilder создает построитель контекста
func NewContextBuilder(deps *Dependencies) *ContextBuilder {
	return &ContextBuilder{deps: deps}
}

// ForContent возвращает контекст промпта для учебного материала
func (b *ContextBuilder) ForContent(ctx context.Context, content *entity.Content) (string, error) {
	budget := b.deps.Config.ContextBudget
	key := fmt.Sprintf(contextCacheKey, content.ID, budget)

	if b.deps.CacheRepo != nil {
		var cached DocumentContext
		err := b.deps.CacheRepo.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached.RenderBounded(budget), nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			b.deps.Logger.Warn("context cache read failed", "content_id", content.ID, "error", err)
		}
	}

	data, err := b.deps.Documents.Load(ctx, content)
	if err != nil {
		return "", fmt.Errorf("load study guide %s: %w", content.ID, err)
	}
	text, err := ExtractText(data, content.FileName)
	if err != nil {
		return "", fmt.Errorf("extract study guide %s: %w", content.ID, err)
	}

	dc := BuildDocumentContext(content.Title, text, budget)

	if b.deps.CacheRepo != nil {
		if err := b.deps.CacheRepo.SetJSON(ctx, key, dc, b.deps.Config.ContextCacheTTL); err != nil {
			b.deps.Logger.Warn("context cache write failed", "content_id", content.ID, "error", err)
		}
	}
	return dc.RenderBounded(budget), nil
}

// Invalidate удаляет кешированный контекст материала
func (b *ContextBuilder) Invalidate(ctx context.Context, contentID uuid.UUID) error {
	if b.deps.CacheRepo == nil {
		return nil
	}
	return b.deps.CacheRepo.Delete(ctx, fmt.Sprintf(contextCacheKey, contentID, b.deps.Config.ContextBudget))
}
