package game

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidDefinitions - список карт не годится для колоды
var ErrInvalidDefinitions = errors.New("invalid card definitions")

// Card одна карта колоды, пары имеют одинаковый ImageKey
type Card struct {
	ID       int    `json:"id"`
	ImageKey string `json:"image_key"`
}

// Deck перемешанная колода одного раунда
type Deck []Card

// Difficulty уровень сложности раунда
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyNormal Difficulty = "Normal"
	DifficultyHard   Difficulty = "Hard"
)

// наборы картинок для уровней сложности
var difficultyImages = map[Difficulty][]string{
	DifficultyEasy:   {"meteor", "comet"},
	DifficultyNormal: {"meteor", "comet", "planet", "rocket"},
	DifficultyHard:   {"meteor", "comet", "planet", "rocket", "satellite", "galaxy"},
}

// Generate возвращает случайную перестановку определений (Fisher-Yates, crypto random)
func Generate(defs []Card) Deck {
	return GenerateWith(defs, cryptoIntn)
}

// GenerateWith то же самое, но с внешним источником индексов.
// intn(n) должен возвращать число в [0, n)
func GenerateWith(defs []Card, intn func(n int) int) Deck {
	deck := make(Deck, len(defs))
	copy(deck, defs)

	for i := len(deck) - 1; i > 0; i-- {
		j := intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

func cryptoIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand на поддерживаемых платформах не падает
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return int(v.Int64())
}

// ValidateDefinitions проверяет что каждая картинка встречается ровно дважды
// и id карт не повторяются
func ValidateDefinitions(defs []Card) error {
	if len(defs) == 0 {
		return fmt.Errorf("%w: empty list", ErrInvalidDefinitions)
	}

	ids := make(map[int]bool, len(defs))
	counts := make(map[string]int)
	for _, c := range defs {
		if ids[c.ID] {
			return fmt.Errorf("%w: duplicate id %d", ErrInvalidDefinitions, c.ID)
		}
		ids[c.ID] = true
		if c.ImageKey == "" {
			return fmt.Errorf("%w: card %d has no image", ErrInvalidDefinitions, c.ID)
		}
		counts[c.ImageKey]++
	}

	for key, n := range counts {
		if n != 2 {
			return fmt.Errorf("%w: image %q appears %d times", ErrInvalidDefinitions, key, n)
		}
	}
	return nil
}

// Pairs дублирует каждую картинку, id идут подряд начиная с 1
func Pairs(keys ...string) []Card {
	defs := make([]Card, 0, len(keys)*2)
	for i, key := range keys {
		defs = append(defs,
			Card{ID: 2*i + 1, ImageKey: key},
			Card{ID: 2*i + 2, ImageKey: key},
		)
	}
	return defs
}

// Definitions возвращает определения карт для уровня сложности
func Definitions(d Difficulty) ([]Card, error) {
	keys, ok := difficultyImages[d]
	if !ok {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidDefinitions, d)
	}
	return Pairs(keys...), nil
}

// ParseDifficulty разбирает название уровня, пустая строка - Easy
func ParseDifficulty(s string) (Difficulty, bool) {
	if s == "" {
		return DifficultyEasy, true
	}
	for d := range difficultyImages {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}
