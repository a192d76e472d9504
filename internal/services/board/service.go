package board

import (
	"github.com/mcoot/kelimeoyunu/internal/dependencies/random"
	"github.com/mcoot/kelimeoyunu/internal/model"
)

const (
	// Vowels of the Turkish alphabet
	Vowels = "AEIİOÖUÜ"
	// Consonants of the Turkish alphabet
	Consonants = "BCÇDFGĞHJKLMNPRSŞTVYZ"

	// VowelPercent is the chance, out of 100, that a cell holds a vowel
	VowelPercent = 30
)

var (
	vowels     = []rune(Vowels)
	consonants = []rune(Consonants)
)

// Service generates letter boards
type Service struct {
	random random.Random
}

// New creates a new board Service
func New(rng random.Random) *Service {
	return &Service{random: rng}
}

// Generate fills a fresh board cell by cell. No solvability is guaranteed.
func (s *Service) Generate() model.Board {
	var b model.Board
	for row := range b {
		for col := range b[row] {
			b[row][col] = s.letter()
		}
	}
	return b
}

func (s *Service) letter() string {
	if s.random.Intn(100) < VowelPercent {
		return string(vowels[s.random.Intn(len(vowels))])
	}
	return string(consonants[s.random.Intn(len(consonants))])
}

// IsVowel reports whether the letter is a Turkish vowel
func IsVowel(letter string) bool {
	for _, v := range vowels {
		if letter == string(v) {
			return true
		}
	}
	return false
}

// Interface for dependency injection
type ServiceInterface interface {
	Generate() model.Board
}

var _ ServiceInterface = (*Service)(nil)
