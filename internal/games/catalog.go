// internal/games/catalog.go
//
// Game catalog: rule tables (assets/games.yaml or a GAMES_FILE override)
// bound to each game's strategies and content provider.

package games

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/arcade/assets"
	"github.com/robalobadob/arcade/internal/content"
	"github.com/robalobadob/arcade/internal/hints"
	"github.com/robalobadob/arcade/internal/result"
	"github.com/robalobadob/arcade/internal/scoring"
)

// Known game kinds.
const (
	KindWordGuess  = "wordguess"
	KindWhackAMole = "whackamole"
	KindTiles      = "tiles"
)

// ErrUnknownKind is returned by Lookup for kinds not in the catalog.
var ErrUnknownKind = errors.New("unknown game kind")

// Rules is one game's entry in games.yaml.
type Rules struct {
	Name            string                        `yaml:"name"`
	Description     string                        `yaml:"description"`
	TargetCount     int                           `yaml:"target_count"`
	GridSize        int                           `yaml:"grid_size"`
	WordLength      int                           `yaml:"word_length"`
	DurationSeconds int                           `yaml:"duration_seconds"`
	Scoring         *scoring.Policy               `yaml:"scoring"`
	Hints           *hints.Ledger                 `yaml:"hints"`
	Ratings         []result.Bucket               `yaml:"ratings"`
	Modes           map[string][]scoring.Modifier `yaml:"modes"`
}

type rulesFile struct {
	Games map[string]Rules `yaml:"games"`
}

// Game bundles everything the engine needs for one kind.
type Game struct {
	Kind       string
	Rules      Rules
	Policy     scoring.Policy
	Ledger     hints.Ledger
	Content    content.Provider
	Classifier Classifier
	Hints      HintGenerator
	Modifiers  ModifierProvider
	Finalizer  Finalizer
}

// Duration is the default time budget (0 = untimed).
func (g *Game) Duration() time.Duration {
	return time.Duration(g.Rules.DurationSeconds) * time.Second
}

// Info is the public description of a game.
type Info struct {
	Kind        string          `json:"kind"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	TargetCount int             `json:"targetCount"`
	Duration    int             `json:"durationSeconds"`
	MaxHints    int             `json:"maxHints"`
	HintTypes   []hints.Type    `json:"hintTypes"`
	Modes       []string        `json:"modes"`
	Ratings     []result.Bucket `json:"ratings"`
}

// Info describes g for listings.
func (g *Game) Info() Info {
	modes := make([]string, 0, len(g.Rules.Modes))
	for m := range g.Rules.Modes {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	return Info{
		Kind:        g.Kind,
		Name:        g.Rules.Name,
		Description: g.Rules.Description,
		TargetCount: g.Rules.TargetCount,
		Duration:    g.Rules.DurationSeconds,
		MaxHints:    g.Ledger.MaxHints,
		HintTypes:   g.Ledger.Types(),
		Modes:       modes,
		Ratings:     g.Rules.Ratings,
	}
}

// Catalog maps kinds to games.
type Catalog struct {
	games map[string]*Game
}

// LoadCatalog reads rules from path (embedded games.yaml when empty) and
// binds them to the built-in games. words backs the word games.
func LoadCatalog(path string, words content.Provider) (*Catalog, error) {
	var raw []byte
	var err error
	if path != "" {
		raw, err = os.ReadFile(path)
	} else {
		raw, err = assets.GameRules()
	}
	if err != nil {
		return nil, fmt.Errorf("read game rules: %w", err)
	}
	return ParseCatalog(raw, words)
}

// ParseCatalog builds a catalog from YAML bytes.
func ParseCatalog(raw []byte, words content.Provider) (*Catalog, error) {
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse game rules: %w", err)
	}
	c := &Catalog{games: make(map[string]*Game, len(f.Games))}
	for kind, rules := range f.Games {
		g, err := build(kind, rules, words)
		if err != nil {
			return nil, err
		}
		c.games[kind] = g
	}
	return c, nil
}

// NewCatalog builds a catalog from already-constructed games.
func NewCatalog(list ...*Game) *Catalog {
	c := &Catalog{games: make(map[string]*Game, len(list))}
	for _, g := range list {
		c.games[g.Kind] = g
	}
	return c
}

// Lookup returns the game for kind.
func (c *Catalog) Lookup(kind string) (*Game, error) {
	if g, ok := c.games[kind]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// List returns every game's Info, sorted by kind.
func (c *Catalog) List() []Info {
	out := make([]Info, 0, len(c.games))
	for _, g := range c.games {
		out = append(out, g.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

func build(kind string, r Rules, words content.Provider) (*Game, error) {
	g := &Game{
		Kind:      kind,
		Rules:     r,
		Policy:    scoring.DefaultPolicy(),
		Ledger:    hints.DefaultLedger(),
		Finalizer: result.NewFinalizer(r.Ratings),
	}
	if r.Scoring != nil {
		g.Policy = *r.Scoring
	}
	if r.Hints != nil {
		g.Ledger = *r.Hints
	}
	if len(g.Rules.Ratings) == 0 {
		g.Rules.Ratings = result.DefaultBuckets()
	}
	for mode, mods := range r.Modes {
		for _, m := range mods {
			if err := m.Validate(); err != nil {
				return nil, fmt.Errorf("game %s mode %s: %w", kind, mode, err)
			}
		}
	}
	modes := ModeModifiers{Modes: r.Modes}

	switch kind {
	case KindWordGuess:
		if words == nil {
			return nil, fmt.Errorf("game %s: no word provider", kind)
		}
		g.Content = words
		g.Classifier = WordClassifier{}
		g.Hints = WordHints{}
		g.Modifiers = modes
	case KindWhackAMole:
		if g.Rules.GridSize < 2 {
			g.Rules.GridSize = 3
		}
		g.Content = content.Moles{}
		g.Classifier = MoleClassifier{Holes: g.Rules.GridSize * g.Rules.GridSize}
		g.Hints = TargetHints{}
		g.Modifiers = FrenzyModifiers{ModeModifiers: modes, Threshold: 10, Factor: 1.5}
	case KindTiles:
		if g.Rules.GridSize < 3 {
			g.Rules.GridSize = 9
		}
		g.Content = content.Tiles{}
		g.Classifier = TileClassifier{Width: g.Rules.GridSize}
		g.Hints = TargetHints{}
		g.Modifiers = modes
	default:
		return nil, fmt.Errorf("%w: %q in rules file", ErrUnknownKind, kind)
	}
	if g.Rules.TargetCount <= 0 {
		g.Rules.TargetCount = 5
	}
	return g, nil
}
