package alias

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestIsValidChar(t *testing.T) {
	tests := []struct {
		c     byte
		first bool
		want  bool
	}{
		{'a', true, true},
		{'Z', true, true},
		{'0', true, false},
		{'-', true, false},
		{'0', false, true},
		{'9', false, true},
		{'-', false, true},
		{'_', false, false},
		{'.', false, false},
		{' ', false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidChar(tt.c, tt.first), "char %q first=%v", tt.c, tt.first)
	}
}

func TestIsValid(t *testing.T) {
	valid := []string{"a", "pic1", "Hero-Image", "x-1-y", "A"}
	for _, s := range valid {
		assert.True(t, IsValid(s), s)
	}

	invalid := []string{"", "1pic", "-pic", "pic_1", "pic 1", "pic.png", "é", "pic!"}
	for _, s := range invalid {
		assert.False(t, IsValid(s), s)
	}
}

func TestIsValid_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringMatching(`[A-Za-z][A-Za-z0-9-]*`).Draw(t, "alias")
		if !IsValid(s) {
			t.Fatalf("expected %q to be a valid alias", s)
		}
	})
}

func TestIsValid_PropertyLeadingDigitOrHyphen(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringMatching(`[0-9-][A-Za-z0-9-]*`).Draw(t, "alias")
		if IsValid(s) {
			t.Fatalf("expected %q to be rejected", s)
		}
	})
}

func TestScan(t *testing.T) {
	tests := []struct {
		name string
		src  string
		pos  int
		want ScanResult
	}{
		{"stops at paren", "pic1)", 0, ScanResult{OK: true, End: 4, Text: "pic1"}},
		{"stops at space", "pic1 )", 0, ScanResult{OK: true, End: 4, Text: "pic1"}},
		{"offset start", "| pic-2)", 2, ScanResult{OK: true, End: 6, Text: "pic-2"}},
		{"runs past end", "pic1", 0, ScanResult{}},
		{"invalid char", "pic_1)", 0, ScanResult{}},
		{"leading digit", "1pic)", 0, ScanResult{}},
		{"empty before stop", ")", 0, ScanResult{}},
		{"empty before space", " pic)", 0, ScanResult{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := []byte(tt.src)
			got := Scan(src, tt.pos, len(src), []byte{')'})
			require.Equal(t, tt.want, got)
		})
	}
}

func TestScan_RespectsMax(t *testing.T) {
	src := []byte("pic1)")
	got := Scan(src, 0, 3, []byte{')'})
	assert.False(t, got.OK)
}
