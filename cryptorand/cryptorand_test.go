package cryptorand

import "testing"

func TestInt63(t *testing.T) {
	var src Source
	for i := 0; i < 1000; i++ {
		if n := src.Int63(); n < 0 {
			t.Fatalf("Int63 returned a negative value: %d", n)
		}
	}
}

func TestNew(t *testing.T) {
	// Mostly a smoke test that the Source satisfies math/rand.
	rng := New()
	if n := rng.Intn(10); n < 0 || n >= 10 {
		t.Errorf("Intn(10) = %d", n)
	}

	deck := make([]int, 52)
	for i := range deck {
		deck[i] = i
	}
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	sum := 0
	for _, v := range deck {
		sum += v
	}
	if want := 52 * 51 / 2; sum != want {
		t.Errorf("shuffle changed the deck contents, sum = %d, want %d", sum, want)
	}
}
