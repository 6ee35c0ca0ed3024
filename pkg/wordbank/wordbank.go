// Package wordbank generates anonymous display names by joining a random
// color with a random animal.
package wordbank

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
)

//go:embed colors.txt
var defaultColors string

//go:embed animals.txt
var defaultAnimals string

var ErrEmptyBank = errors.New("wordbank: word list is empty")

// Bank holds the two word lists.
type Bank struct {
	Colors  []string
	Animals []string
}

// Default returns the compiled-in word lists.
func Default() *Bank {
	colors, _ := parseWords(strings.NewReader(defaultColors))
	animals, _ := parseWords(strings.NewReader(defaultAnimals))
	return &Bank{Colors: colors, Animals: animals}
}

// Load reads newline-delimited word lists. An empty path keeps the
// compiled-in list for that half.
func Load(colorsPath, animalsPath string) (*Bank, error) {
	b := Default()
	if colorsPath != "" {
		words, err := readFile(colorsPath)
		if err != nil {
			return nil, fmt.Errorf("wordbank: colors: %w", err)
		}
		b.Colors = words
	}
	if animalsPath != "" {
		words, err := readFile(animalsPath)
		if err != nil {
			return nil, fmt.Errorf("wordbank: animals: %w", err)
		}
		b.Animals = words
	}
	return b, nil
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path from server config
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return parseWords(f)
}

func parseWords(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, ErrEmptyBank
	}
	return words, nil
}

// Name returns a random color+animal combination.
func (b *Bank) Name() string {
	return b.Colors[rand.IntN(len(b.Colors))] + b.Animals[rand.IntN(len(b.Animals))]
}

// Size is the number of distinct names the bank can produce.
func (b *Bank) Size() int {
	return len(b.Colors) * len(b.Animals)
}
