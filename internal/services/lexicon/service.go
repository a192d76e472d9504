package lexicon

import (
	"bufio"
	"context"
	_ "embed"
	"os"
	"strings"
	"sync"

	"github.com/mcoot/kelimeoyunu/internal/storage"
)

//go:embed words.txt
var defaultWords string

// Service answers dictionary membership for submitted words.
// It is read-only after loading and safe to share.
type Service struct {
	storage storage.GameStore

	mu     sync.RWMutex
	words  map[string]struct{}
	loaded bool
}

// New creates a new lexicon Service
func New(storage storage.GameStore) *Service {
	return &Service{
		storage: storage,
		words:   make(map[string]struct{}),
	}
}

// dottedCapitalI folds the Turkish capital İ onto I. Plain uppercasing maps
// both i and ı to I, so lookups treat the two as one letter.
var dottedCapitalI = strings.NewReplacer("İ", "I")

// Normalize trims surrounding whitespace and uppercases the word, folding
// dotted and dotless I together. "şiir", "ŞİİR" and "ŞIIR" are one key.
func Normalize(word string) string {
	return dottedCapitalI.Replace(strings.ToUpper(strings.TrimSpace(word)))
}

// LoadDefault loads the built-in Turkish word list
func (s *Service) LoadDefault() error {
	return s.loadWords(strings.Split(defaultWords, "\n"))
}

// LoadFromStorage loads dictionary words from storage
func (s *Service) LoadFromStorage(ctx context.Context) error {
	words, err := s.storage.GetDictionaryWords(ctx)
	if err != nil {
		return err
	}
	return s.loadWords(words)
}

// LoadFromFile loads dictionary words from a file (one word per line)
// and persists them for other instances
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if word := Normalize(scanner.Text()); word != "" {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if err := s.storage.SaveDictionaryWords(ctx, words); err != nil {
		return err
	}

	return s.loadWords(words)
}

// LoadWords directly loads a slice of words (useful for testing)
func (s *Service) LoadWords(words []string) error {
	return s.loadWords(words)
}

func (s *Service) loadWords(words []string) error {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		if w := Normalize(word); w != "" {
			set[w] = struct{}{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = set
	s.loaded = true
	return nil
}

// Contains reports whether the normalized word is in the lexicon.
// Always false before a load.
func (s *Service) Contains(word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.words[Normalize(word)]
	return ok
}

// IsLoaded returns whether the lexicon has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// WordCount returns the number of distinct words
func (s *Service) WordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// ServiceInterface is the lookup surface consumed by scoring
type ServiceInterface interface {
	Contains(word string) bool
	IsLoaded() bool
	WordCount() int
}

var _ ServiceInterface = (*Service)(nil)
