package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "plain text unchanged",
			input: "NameError: name 'x' is not defined",
			want:  "NameError: name 'x' is not defined",
		},
		{
			name:  "strips color codes",
			input: "\x1b[0;31mNameError\x1b[0m: name 'x' is not defined",
			want:  "NameError: name 'x' is not defined",
		},
		{
			name:  "strips cursor column codes",
			input: "\x1b[1G\x1b[32mok\x1b[39m",
			want:  "ok",
		},
		{
			name:  "trims every line",
			input: "  Traceback (most recent call last):  \n\t  File \"<cell>\", line 1\t\n   x + 1",
			want:  "Traceback (most recent call last):\nFile \"<cell>\", line 1\nx + 1",
		},
		{
			name:  "keeps blank lines",
			input: "first\n   \nthird",
			want:  "first\n\nthird",
		},
		{
			name:  "nested sequences collapse",
			input: "\x1b[\x1b[0mmred",
			want:  "red",
		},
		{
			name:  "other escape sequences are kept",
			input: "\x1b[2Kline",
			want:  "\x1b[2Kline",
		},
		{
			name: "ipython traceback",
			input: "\x1b[0;31m---------------------------------------------------------------------------\x1b[0m\n" +
				"\x1b[0;31mZeroDivisionError\x1b[0m                         Traceback (most recent call last)\n" +
				"    \x1b[0;32m----> 1\x1b[0m \x1b[38;5;241m1\x1b[39m\x1b[38;5;241m/\x1b[39m\x1b[38;5;241m0\x1b[39m\n",
			want: "---------------------------------------------------------------------------\n" +
				"ZeroDivisionError                         Traceback (most recent call last)\n" +
				"----> 1 1/0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitizeProperties(t *testing.T) {
	inputs := []string{
		"",
		"\x1b[31m  red  \x1b[0m\n  \x1b[1;4mbold underline\x1b[22;24m  ",
		"\x1b[\x1b[\x1b[0mmm\x1b[0G",
		"   \n\n   padded   \n",
		"line with trailing tab\t\r\nnext",
		"한국어 오류 \x1b[33m메시지\x1b[0m   ",
	}

	for _, input := range inputs {
		once := Sanitize(input)

		assert.False(t, ansiColor.MatchString(once), "output still contains ANSI sequence: %q", once)
		assert.Equal(t, once, Sanitize(once), "sanitize must be idempotent for %q", input)

		for _, line := range strings.Split(once, "\n") {
			assert.Equal(t, strings.TrimSpace(line), line)
		}
	}
}

func TestSanitizeLineCountPreserved(t *testing.T) {
	input := "a\n\x1b[31m b \x1b[0m\n c"
	got := Sanitize(input)

	assert.Equal(t, strings.Count(input, "\n"), strings.Count(got, "\n"))
	assert.Equal(t, []string{"a", "b", "c"}, strings.Split(got, "\n"))
}
