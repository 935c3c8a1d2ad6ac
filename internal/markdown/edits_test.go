package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEdits(t *testing.T) {
	src := []byte("![a](/img/a.png|p1)\r\n![b](/img/b.png|p2)\n")

	tests := []struct {
		name  string
		edits []edit
		want  string
	}{
		{"none", nil, string(src)},
		{"single", []edit{{start: 5, end: 15, text: []byte("img/p1.png")}}, "![a](img/p1.png|p1)\r\n![b](/img/b.png|p2)\n"},
		{"out of order", []edit{
			{start: 26, end: 36, text: []byte("B")},
			{start: 5, end: 15, text: []byte("A")},
		}, "![a](A|p1)\r\n![b](B|p2)\n"},
		{"insertion", []edit{{start: 0, end: 0, text: []byte("> ")}}, "> " + string(src)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := applyEdits(src, tt.edits)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestApplyEditsRejectsBadRanges(t *testing.T) {
	src := []byte("abcdef")
	for name, edits := range map[string][]edit{
		"overlap":        {{start: 1, end: 4}, {start: 3, end: 5}},
		"reversed":       {{start: 4, end: 2}},
		"past the end":   {{start: 4, end: 9}},
		"negative start": {{start: -1, end: 2}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := applyEdits(src, edits)
			assert.Error(t, err)
		})
	}
}

func TestRewriteImageLinks(t *testing.T) {
	src := []byte("Intro ![x](/img/a.png | p1) and ![y](</img/my b.png>|p2)\n\n![p3]\n\n[p3]: /img/c.png\n")
	p := NewParser(Options{})
	doc := p.Parse(src)

	out, err := RewriteImageLinks(src, doc, func(ref ImageRef) (string, bool) {
		return "img/" + ref.Alias + ".png", ref.Alias != ""
	})
	require.NoError(t, err)
	assert.Equal(t, "Intro ![x](img/p1.png | p1) and ![y](img/p2.png|p2)\n\n![p3]\n\n[p3]: /img/c.png\n", string(out))
}
