package wordbank

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NicolasHaas/gomoku/pkg/model"
)

func TestDefaultNamesAreValidUsernames(t *testing.T) {
	b := Default()
	if b.Size() < 100 {
		t.Fatalf("default bank too small: %d", b.Size())
	}
	for _, c := range b.Colors {
		for _, a := range b.Animals {
			if err := model.ValidateUsername(c + a); err != nil {
				t.Fatalf("%s%s: %v", c, a, err)
			}
		}
	}
}

func TestNameJoinsColorAndAnimal(t *testing.T) {
	b := &Bank{Colors: []string{"Red"}, Animals: []string{"Fox"}}
	if got := b.Name(); got != "RedFox" {
		t.Fatalf("Name() = %q, want RedFox", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	colors := filepath.Join(dir, "colors.txt")
	if err := os.WriteFile(colors, []byte("# palette\nBlack\n\nWhite\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	b, err := Load(colors, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if strings.Join(b.Colors, ",") != "Black,White" {
		t.Errorf("Colors = %v", b.Colors)
	}
	if len(b.Animals) != len(Default().Animals) {
		t.Errorf("Animals should keep defaults, got %d", len(b.Animals))
	}

	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load("", empty); !errors.Is(err, ErrEmptyBank) {
		t.Errorf("Load(empty animals) err = %v, want ErrEmptyBank", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.txt"), ""); err == nil {
		t.Error("Load(missing) should fail")
	}
}
