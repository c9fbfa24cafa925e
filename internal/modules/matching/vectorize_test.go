package matching

import "testing"

func TestVectorizeDropsStopwordsAndCounts(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		want  map[string]int
		empty bool
	}{
		{
			name: "anxious about work",
			text: "I feel anxious about work deadlines",
			want: map[string]int{"anxious": 1, "work": 1, "deadlines": 1},
		},
		{
			name: "case and punctuation",
			text: "Work... WORK, work! deadlines?",
			want: map[string]int{"work": 3, "deadlines": 1},
		},
		{
			name: "contraction splits",
			text: "I don't sleep",
			want: map[string]int{"sleep": 1},
		},
		{name: "empty", text: "", empty: true},
		{name: "only stopwords", text: "I feel so me about it", empty: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Vectorize(tc.text)
			if tc.empty {
				if !v.Empty() {
					t.Fatalf("want empty vector, got %v", v)
				}
				return
			}
			if len(v) != len(tc.want) {
				t.Fatalf("terms: want=%d got=%d (%v)", len(tc.want), len(v), v)
			}
			for word, n := range tc.want {
				if got := v.Count(word); got != n {
					t.Fatalf("count(%q): want=%d got=%d", word, n, got)
				}
			}
		})
	}
}

func TestVectorizeIsSorted(t *testing.T) {
	v := Vectorize("zebra apple mango apple")
	for i := 1; i < len(v); i++ {
		if v[i-1].Word >= v[i].Word {
			t.Fatalf("not sorted: %v", v)
		}
	}
}
