package textproc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"newspulse/analytics/internal/textproc"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "tags", input: "<b>Breaking</b> news", want: "Breaking news"},
		{name: "urls", input: "read https://example.com/a?b=c now", want: "read now"},
		{name: "collapse whitespace", input: "foo\n\n bar\t baz", want: "foo bar baz"},
		{name: "mixed", input: "<a href=x>link</a> http://t.co/x  深度 报道", want: "link 深度 报道"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textproc.Clean(tt.input); got != tt.want {
				t.Fatalf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanStrict(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "punctuation dropped", input: "50%, off / sale!", want: "50 off sale"},
		{name: "cjk kept", input: "据报道, 市场上涨 3.5%", want: "据报道 市场上涨 35"},
		{name: "underscore kept", input: "snake_case term", want: "snake_case term"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, textproc.CleanStrict(tt.input))
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"<p>Hello   world</p> https://example.com",
		"plain text",
		"深度 <b>报道</b>!",
	}
	for _, input := range inputs {
		once := textproc.Clean(input)
		require.Equal(t, once, textproc.Clean(once))

		strict := textproc.CleanStrict(input)
		require.Equal(t, strict, textproc.CleanStrict(strict))
	}
}

func TestTokenize(t *testing.T) {
	tok := textproc.NewTokenizer(textproc.NewStopwords("the", "and"))

	got := tok.Tokenize("The market AND the trend")
	require.Equal(t, []string{"market", "trend"}, got)

	require.Nil(t, tok.Tokenize(""))
	require.Nil(t, tok.Tokenize("... !!! ---"))
}

func TestTokenizeCJK(t *testing.T) {
	tok := textproc.NewTokenizer(nil)

	got := tok.Tokenize("市场 trend")
	require.NotEmpty(t, got)
	require.Contains(t, got, "trend")
}

func TestStopwordsNilSafe(t *testing.T) {
	var s textproc.Stopwords
	require.False(t, s.Contains("anything"))
}
