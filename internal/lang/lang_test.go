package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()
	tests := []struct {
		ext       string
		name      string
		family    Family
		analyzers int
	}{
		{"ts", "typescript", FamilyECMAScript, 3},
		{".tsx", "tsx", FamilyECMAScript, 3},
		{"js", "javascript", FamilyECMAScript, 3},
		{"JSX", "javascript", FamilyECMAScript, 3},
		{"go", "go", FamilyGo, 6},
		{".py", "python", FamilyPython, 3},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			l, ok := Resolve(tt.ext)
			require.True(t, ok)
			assert.Equal(t, tt.name, l.Name)
			assert.Equal(t, tt.family, l.Family)
			assert.NotNil(t, l.Grammar)
			assert.Len(t, l.Analyzers, tt.analyzers)
		})
	}
}

func TestResolve_Unsupported(t *testing.T) {
	t.Parallel()
	for _, ext := range []string{"rb", ".java", "", "md"} {
		l, ok := Resolve(ext)
		assert.False(t, ok, ext)
		assert.Nil(t, l, ext)
	}
}

func TestResolve_FreshAnalyzers(t *testing.T) {
	t.Parallel()
	a, _ := Resolve("go")
	b, _ := Resolve("go")
	assert.NotSame(t, a.Analyzers[0], b.Analyzers[0])
}

func TestResolve_DistinctGrammars(t *testing.T) {
	t.Parallel()
	ts, _ := Resolve("ts")
	tsx, _ := Resolve("tsx")
	js, _ := Resolve("js")
	assert.NotSame(t, ts.Grammar, tsx.Grammar)
	assert.NotSame(t, ts.Grammar, js.Grammar)
}

func TestForPath(t *testing.T) {
	t.Parallel()
	l, ok := ForPath("src/app/main.PY")
	require.True(t, ok)
	assert.Equal(t, "python", l.Name)

	_, ok = ForPath("Makefile")
	assert.False(t, ok)
}

func TestExtensions(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{".go", ".js", ".jsx", ".py", ".ts", ".tsx"}, Extensions())
}

func TestFamilyOf(t *testing.T) {
	t.Parallel()
	f, ok := FamilyOf("tsx")
	require.True(t, ok)
	assert.Equal(t, FamilyECMAScript, f)
	_, ok = FamilyOf("ruby")
	assert.False(t, ok)
}
