package media

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImageURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "markdown image",
			content: "intro ![a](https://cdn.example.com/post-images/a.png) outro",
			want:    []string{"https://cdn.example.com/post-images/a.png"},
		},
		{
			name:    "html attribute and upper case ext",
			content: `<img src="http://x.io/b.JPG"><img src='https://x.io/c.webp'>`,
			want:    []string{"http://x.io/b.JPG", "https://x.io/c.webp"},
		},
		{
			name:    "query string cut and dedup",
			content: "https://x.io/d.gif?w=100 and https://x.io/d.gif",
			want:    []string{"https://x.io/d.gif"},
		},
		{
			name:    "trailing punctuation",
			content: "see https://x.io/e.jpeg.",
			want:    []string{"https://x.io/e.jpeg"},
		},
		{
			name:    "non images and relative paths ignored",
			content: "https://x.io/doc.pdf /local/f.png https://x.io/page",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ImageURLs(tt.content))
		})
	}
}

func TestDifferenceUnion(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"a", "c"}, Difference([]string{"a", "b", "c", "a"}, []string{"b"}))
	require.Nil(t, Difference([]string{"a"}, []string{"a"}))
	require.Equal(t, []string{"a", "b", "c"}, Union([]string{"a", "b"}, []string{"b", "c"}))
}

func TestOrphaned(t *testing.T) {
	t.Parallel()

	oldC := "![x](https://s/x.png) ![y](https://s/y.png)"
	newC := "![y](https://s/y.png)"
	got := Orphaned(oldC, []string{"https://s/f1.pdf", "https://s/f2.pdf"}, newC, []string{"https://s/f2.pdf"})
	require.Equal(t, []string{"https://s/x.png", "https://s/f1.pdf"}, got)

	require.Empty(t, Orphaned(oldC, nil, oldC, nil))
}

func TestAll(t *testing.T) {
	t.Parallel()

	got := All("![x](https://s/x.png)", []string{"https://s/f.zip", "https://s/x.png"})
	require.Equal(t, []string{"https://s/x.png", "https://s/f.zip"}, got)
}
