// Package domain defines the interview engine's entities and plan logic.
package domain

// difficultyTables are the canonical ramps for common session lengths.
// Anything else falls back to even thirds with the remainder on hard.
var difficultyTables = map[int][]Difficulty{
	5: {DifficultyEasy, DifficultyMedium, DifficultyMedium, DifficultyHard, DifficultyHard},
	7: {DifficultyEasy, DifficultyEasy, DifficultyMedium, DifficultyMedium, DifficultyMedium, DifficultyHard, DifficultyHard},
	10: {DifficultyEasy, DifficultyEasy, DifficultyEasy, DifficultyMedium, DifficultyMedium, DifficultyMedium,
		DifficultyHard, DifficultyHard, DifficultyHard, DifficultyHard},
}

// DifficultySequenceFor returns the difficulty ordering for n technical
// questions. The result is a fresh slice: plans are frozen per session and
// must not alias shared table storage.
func DifficultySequenceFor(n int) []Difficulty {
	if n <= 0 {
		return nil
	}
	if seq, ok := difficultyTables[n]; ok {
		return append([]Difficulty(nil), seq...)
	}
	easy := n / 3
	medium := n / 3
	out := make([]Difficulty, 0, n)
	for i := 0; i < easy; i++ {
		out = append(out, DifficultyEasy)
	}
	for i := 0; i < medium; i++ {
		out = append(out, DifficultyMedium)
	}
	for len(out) < n {
		out = append(out, DifficultyHard)
	}
	return out
}
