package badwords

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/joy095/reservation/logger"
)

// List is a case-insensitive set of words screened out of guest free text.
type List struct {
	mu    sync.RWMutex
	words map[string]struct{}
}

// New builds a list from words.
func New(words ...string) *List {
	l := &List{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			l.words[w] = struct{}{}
		}
	}
	return l
}

// LoadBadWords reads one word per line from filename.
func LoadBadWords(filename string) (*List, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read bad words file: %w", err)
	}
	l := New(strings.Split(string(data), "\n")...)
	logger.InfoLogger.Infof("Loaded %d bad words from %s", l.Len(), filename)
	return l, nil
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.words)
}

// ContainsBadWords splits text on anything that is not a letter or digit and
// reports whether any token is listed. A nil list matches nothing.
func (l *List) ContainsBadWords(text string) bool {
	if l == nil {
		return false
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})

	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, word := range words {
		if _, found := l.words[word]; found {
			logger.InfoLogger.Infof("Bad word detected: %s", word)
			return true
		}
	}
	return false
}

// AddBadWord adds a word to the list.
func (l *List) AddBadWord(badWord string) error {
	badWord = strings.ToLower(strings.TrimSpace(badWord))
	if badWord == "" {
		return errors.New("bad word must not be empty")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.words[badWord] = struct{}{}
	return nil
}

// RemoveBadWord removes a word and reports whether it was present.
func (l *List) RemoveBadWord(badWord string) bool {
	badWord = strings.ToLower(strings.TrimSpace(badWord))
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, found := l.words[badWord]; !found {
		return false
	}
	delete(l.words, badWord)
	return true
}

// ListBadWords returns the words in sorted order.
func (l *List) ListBadWords() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	words := make([]string, 0, len(l.words))
	for word := range l.words {
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}
