package assets

import (
	"bufio"
	"embed"
	"io"
	"os"
	"strings"
)

//go:embed words.txt games.yaml
var FS embed.FS

// WordLine is one "word<TAB>definition" entry.
type WordLine struct {
	Word       string
	Definition string
}

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLines(f)
}

// ReadLines returns the trimmed lines of r, skipping blanks and # comments.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// Words returns the embedded word bank.
func Words() ([]WordLine, error) {
	lines, err := readLines("words.txt")
	if err != nil {
		return nil, err
	}
	return ParseWordLines(lines), nil
}

// WordsFile reads a word list in the words.txt format from disk.
func WordsFile(path string) ([]WordLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := ReadLines(f)
	if err != nil {
		return nil, err
	}
	return ParseWordLines(lines), nil
}

// ParseWordLines splits "word<TAB>definition" lines; the definition is optional.
func ParseWordLines(lines []string) []WordLine {
	out := make([]WordLine, 0, len(lines))
	for _, l := range lines {
		word, def, _ := strings.Cut(l, "\t")
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		out = append(out, WordLine{Word: word, Definition: strings.TrimSpace(def)})
	}
	return out
}

// GameRules returns the embedded games.yaml.
func GameRules() ([]byte, error) {
	return FS.ReadFile("games.yaml")
}
