package utils

import (
	"testing"
)

func TestNormalizeSubredditName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"GoLang", "golang"},
		{"r/AskReddit", "askreddit"},
		{"/r/AskReddit", "askreddit"},
		{"  Fitness  ", "fitness"},
		{"already_lower", "already_lower"},
	}
	for _, c := range cases {
		if got := NormalizeSubredditName(c.in); got != c.want {
			t.Errorf("NormalizeSubredditName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsValidSubredditName(t *testing.T) {
	valid := []string{"golang", "ask_reddit", "a", "r4r"}
	for _, name := range valid {
		if !IsValidSubredditName(name) {
			t.Errorf("expected %q to be valid", name)
		}
	}
	invalid := []string{"", "Has Spaces", "UPPER", "emoji🚀", "hyphen-ated"}
	for _, name := range invalid {
		if IsValidSubredditName(name) {
			t.Errorf("expected %q to be invalid", name)
		}
	}
}

func TestIsValidAuthor(t *testing.T) {
	cases := []struct {
		author string
		want   bool
	}{
		{"spez", true},
		{"", false},
		{"[deleted]", false},
		{"[removed]", false},
		{"AutoModerator", false},
		{"automoderator", false},
		{"this_username_is_way_too_long_to_be_real", false},
	}
	for _, c := range cases {
		if got := IsValidAuthor(c.author); got != c.want {
			t.Errorf("IsValidAuthor(%q) = %v, want %v", c.author, got, c.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("hello", 10); got != "hello" {
		t.Errorf("short string should be unchanged, got %q", got)
	}
	if got := TruncateString("hello world", 5); got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
	// Multi-byte rune straddling the cut must not produce invalid UTF-8.
	s := "aaaé" // 3 ascii bytes + 2-byte é
	got := TruncateString(s, 4)
	if got != "aaa" {
		t.Errorf("got %q, want %q", got, "aaa")
	}
}

func TestLowerQuartile(t *testing.T) {
	cases := []struct {
		vals []int64
		want int64
	}{
		{nil, 0},
		{[]int64{5}, 5},
		{[]int64{1, 2, 3, 4}, 1},
		{[]int64{10, 20, 30, 40, 50, 60, 70, 80}, 20},
		{[]int64{80, 70, 60, 50, 40, 30, 20, 10}, 20},
	}
	for _, c := range cases {
		if got := LowerQuartile(c.vals); got != c.want {
			t.Errorf("LowerQuartile(%v) = %d, want %d", c.vals, got, c.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(-5, 0, 100); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
	if got := Clamp(150, 0, 100); got != 100 {
		t.Errorf("got %v, want 100", got)
	}
	if got := Clamp(42, 0, 100); got != 42 {
		t.Errorf("got %v, want 42", got)
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(98.004); got != 98.0 {
		t.Errorf("got %v, want 98.0", got)
	}
	if got := Round2(1.005); got != 1.01 && got != 1.0 {
		// 1.005 is not exactly representable; accept either side of the tie.
		t.Errorf("got %v", got)
	}
	if got := Round2(2.675); got < 2.67 || got > 2.68 {
		t.Errorf("got %v", got)
	}
}

func TestUniqueStrings(t *testing.T) {
	got := UniqueStrings([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}
