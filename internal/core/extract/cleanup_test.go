package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "page markers and form feed",
			in:   "Page 1 of 10\n\nHello world.\n\nThis is a test.\f",
			want: "Hello world.\n\nThis is a test.",
		},
		{
			name: "windows line endings",
			in:   "first line\r\nsecond line\r\n",
			want: "first line\nsecond line",
		},
		{
			name: "hyphen broken word",
			in:   "an exam-\nple of wrapping",
			want: "an example of wrapping",
		},
		{
			name: "standalone page number dropped",
			in:   "intro text\n42\noutro text",
			want: "intro text\noutro text",
		},
		{
			name: "inline number kept",
			in:   "chapter 42 begins here",
			want: "chapter 42 begins here",
		},
		{
			name: "space runs collapsed",
			in:   "too    many \t spaces   here",
			want: "too many spaces here",
		},
		{
			name: "blank runs capped",
			in:   "para one\n\n\n\n\npara two",
			want: "para one\n\npara two",
		},
		{
			name: "form feed becomes paragraph break",
			in:   "end of page one\fstart of page two",
			want: "end of page one\n\nstart of page two",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	in := "Page 1 of 10\n\nHello   world.\n\n\n\nThis is a test.\f"
	once := Clean(in)
	assert.Equal(t, once, Clean(once))
}

func TestCleanMarkdownPreservesFences(t *testing.T) {
	in := "# Title\n\n```go\nx :=    1   \n```\n\n\n\nclosing text   "
	want := "# Title\n\n```go\nx :=    1   \n```\n\nclosing text"
	assert.Equal(t, want, CleanMarkdown(in))
}

func TestCleanMarkdownTrimsOutsideFences(t *testing.T) {
	in := "heading   \nbody line\t\n"
	assert.Equal(t, "heading\nbody line", CleanMarkdown(in))
}
