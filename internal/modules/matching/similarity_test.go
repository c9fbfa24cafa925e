package matching

import (
	"math"
	"testing"
)

func TestSimilarityIdenticalAfterStopwords(t *testing.T) {
	a := Vectorize("I feel anxious about work deadlines")
	b := Vectorize("work deadlines make me so anxious")
	if got := Similarity(a, b); got != 1 {
		t.Fatalf("want=1 got=%v", got)
	}
}

func TestSimilarityZeroMagnitude(t *testing.T) {
	a := Vectorize("lonely tonight")
	if got := Similarity(a, nil); got != 0 {
		t.Fatalf("nil rhs: want=0 got=%v", got)
	}
	if got := Similarity(Vectorize("the and of"), a); got != 0 {
		t.Fatalf("stopword lhs: want=0 got=%v", got)
	}
}

func TestSimilaritySymmetricAndBounded(t *testing.T) {
	texts := []string{
		"exams exams exams and no sleep",
		"sleep is impossible before exams",
		"my dog died and I miss him",
		"miss my grandmother every single day",
		"work deadlines pile up",
		"",
	}
	for _, x := range texts {
		for _, y := range texts {
			a, b := Vectorize(x), Vectorize(y)
			ab, ba := Similarity(a, b), Similarity(b, a)
			if ab != ba {
				t.Fatalf("asymmetric for %q / %q: %v vs %v", x, y, ab, ba)
			}
			if ab < 0 || ab > 1 || math.IsNaN(ab) {
				t.Fatalf("out of range for %q / %q: %v", x, y, ab)
			}
		}
	}
}

func TestSimilarityPartialOverlap(t *testing.T) {
	// {exams:1, sleep:1} vs {exams:1, tired:1} => 1/2
	got := Similarity(Vectorize("exams sleep"), Vectorize("exams tired"))
	if math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("want=0.5 got=%v", got)
	}
}
