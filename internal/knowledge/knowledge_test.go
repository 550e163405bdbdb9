package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "whitespace and terminal punctuation split",
			input: "請問 通識 課程?有嗎",
			want:  []string{"請問", "通識", "課程", "有嗎"},
		},
		{
			name:  "single-rune tokens dropped",
			input: "我 想 知道 課程",
			want:  []string{"知道", "課程"},
		},
		{
			name:  "punctuation only yields nothing",
			input: "?",
			want:  nil,
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "fullwidth terminators",
			input: "英文通識。時間呢！",
			want:  []string{"英文通識", "時間呢"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if tt.want == nil {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_Matches(t *testing.T) {
	f := NewFilter(FieldTitle, []string{"通識", "English"})

	require.True(t, f.Matches("英文通識課程"))
	require.True(t, f.Matches("INTRO TO ENGLISH"), "substring match is case-insensitive")
	require.False(t, f.Matches("微積分"))
}

func TestFilter_EmptyMatchesNothing(t *testing.T) {
	f := NewFilter(FieldTitle, nil)
	require.True(t, f.Empty())
	require.False(t, f.Matches("anything"))
}

func TestMemoryQuerier_FiltersOnPrimaryField(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQuerier()
	q.AddCourse(Course{Title: "英文通識", Time: "週三 3-4節"})
	q.AddCourse(Course{Title: "微積分", Time: "週五 1-2節"})
	q.AddQA(QA{Question: "停車場在哪裡", Answer: "活動中心地下室"})

	courses, err := q.Courses(ctx, NewFilter(FieldTitle, []string{"通識"}))
	require.NoError(t, err)
	require.Equal(t, []Course{{Title: "英文通識", Time: "週三 3-4節"}}, courses)

	qas, err := q.QAs(ctx, NewFilter(FieldQuestion, []string{"停車"}))
	require.NoError(t, err)
	require.Len(t, qas, 1)
}

func TestMemoryQuerier_EmptyFilterReturnsNothing(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQuerier()
	q.AddCourse(Course{Title: "英文通識", Time: "週三 3-4節"})

	courses, err := q.Courses(ctx, NewFilter(FieldTitle, nil))
	require.NoError(t, err)
	require.Empty(t, courses)
}
