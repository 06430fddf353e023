package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPracticeQuestion_ExpectedAnswer(t *testing.T) {
	tests := []struct {
		name string
		q    PracticeQuestion
		want string
	}{
		{
			name: "multiple choice uses correct_option",
			q:    PracticeQuestion{QuestionType: QuestionTypeMultipleChoice, Answer: "B) Paris", CorrectOption: "Paris"},
			want: "Paris",
		},
		{
			name: "true_false falls back to answer",
			q:    PracticeQuestion{QuestionType: QuestionTypeTrueFalse, Answer: "True"},
			want: "True",
		},
		{
			name: "fill_blank ignores correct_option",
			q:    PracticeQuestion{QuestionType: QuestionTypeFillBlank, Answer: "osmosis", CorrectOption: "x"},
			want: "osmosis",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.ExpectedAnswer())
		})
	}
}

func TestParseDifficulty(t *testing.T) {
	d, ok := ParseDifficulty(" Hard ")
	assert.True(t, ok)
	assert.Equal(t, DifficultyHard, d)

	d, ok = ParseDifficulty("")
	assert.True(t, ok)
	assert.Equal(t, Difficulty(""), d, "пустая сложность означает любую")

	d, ok = ParseDifficulty("mixed")
	assert.True(t, ok)
	assert.Equal(t, Difficulty(""), d)

	_, ok = ParseDifficulty("extreme")
	assert.False(t, ok)
}

func TestQuestionType_Valid(t *testing.T) {
	assert.True(t, QuestionTypeShortAnswer.Valid())
	assert.False(t, QuestionType("essay").Valid())
}

func TestStringArray_ScanValue(t *testing.T) {
	var arr StringArray
	require.NoError(t, arr.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, StringArray{"a", "b"}, arr)

	require.NoError(t, arr.Scan(`["c"]`), "sqlite возвращает TEXT как string")
	assert.Equal(t, StringArray{"c"}, arr)

	require.NoError(t, arr.Scan(nil))
	assert.Empty(t, arr)

	v, err := StringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)

	assert.Error(t, arr.Scan(42))
}

func TestContentType_Valid(t *testing.T) {
	assert.True(t, ContentTypeStudyGuide.Valid())
	assert.False(t, ContentType("slides").Valid())
}
