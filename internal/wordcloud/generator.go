// Package wordcloud renders per-group trend word-cloud images from corpus
// groupings and resolves previously rendered artifacts.
package wordcloud

import (
	"context"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/psykhi/wordclouds"
	"github.com/rs/zerolog/log"

	"newspulse/analytics/internal/corpus"
	"newspulse/analytics/internal/textproc"
)

// Config controls rendering.
type Config struct {
	FontPath string // TTF font used for drawing, required for Render
	MaxWords int    // frequency cap per image, defaults to 200
	Width    int    // defaults to 1024
	Height   int    // defaults to 768
}

func (c Config) normalized() Config {
	if c.MaxWords <= 0 {
		c.MaxWords = 200
	}
	if c.Width <= 0 {
		c.Width = 1024
	}
	if c.Height <= 0 {
		c.Height = 768
	}
	return c
}

var palette = []color.Color{
	color.RGBA{0x1f, 0x77, 0xb4, 0xff},
	color.RGBA{0xff, 0x7f, 0x0e, 0xff},
	color.RGBA{0x2c, 0xa0, 0x2c, 0xff},
	color.RGBA{0xd6, 0x27, 0x28, 0xff},
	color.RGBA{0x94, 0x67, 0xbd, 0xff},
}

// Generator renders word clouds. Rendering is CPU- and I/O-bound; callers
// offload Render through the worker pool.
type Generator struct {
	tok *textproc.Tokenizer
	cfg Config
}

// NewGenerator creates a generator with the tokenizer and config.
func NewGenerator(tok *textproc.Tokenizer, cfg Config) *Generator {
	return &Generator{tok: tok, cfg: cfg.normalized()}
}

// Frequencies tokenizes the texts and counts term occurrences, keeping at
// most the configured MaxWords highest counts. Ties resolve
// lexicographically so the cap is deterministic.
func (g *Generator) Frequencies(texts []string) map[string]int {
	counts := make(map[string]int)
	for _, text := range texts {
		for _, token := range g.tok.Tokenize(text) {
			counts[token]++
		}
	}
	if len(counts) <= g.cfg.MaxWords {
		return counts
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	capped := make(map[string]int, g.cfg.MaxWords)
	for _, term := range terms[:g.cfg.MaxWords] {
		capped[term] = counts[term]
	}
	return capped
}

// Render draws one image per group and writes it under
// outputRoot/<group>/wc_<id>.png, creating directories on demand. It
// returns the written paths in grouping order. An empty grouping or groups
// with no usable tokens yield no output and no error.
func (g *Generator) Render(ctx context.Context, grouping *corpus.Grouping, outputRoot string) ([]string, error) {
	paths := []string{}
	for _, key := range grouping.Keys() {
		select {
		case <-ctx.Done():
			return paths, ctx.Err()
		default:
		}

		freqs := g.Frequencies(grouping.Texts(key))
		if len(freqs) == 0 {
			log.Debug().Str("group", key).Msg("No terms to render for group")
			continue
		}

		dir := filepath.Join(outputRoot, key)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return paths, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}

		img := wordclouds.NewWordcloud(freqs,
			wordclouds.FontFile(g.cfg.FontPath),
			wordclouds.FontMaxSize(96),
			wordclouds.FontMinSize(10),
			wordclouds.Colors(palette),
			wordclouds.BackgroundColor(color.White),
			wordclouds.Width(g.cfg.Width),
			wordclouds.Height(g.cfg.Height),
		).Draw()

		name := fmt.Sprintf("wc_%s.png", strings.ReplaceAll(uuid.NewString(), "-", ""))
		path := filepath.Join(dir, name)

		f, err := os.Create(path)
		if err != nil {
			return paths, fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return paths, fmt.Errorf("failed to encode %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return paths, fmt.Errorf("failed to close %s: %w", path, err)
		}

		log.Info().
			Str("group", key).
			Str("path", path).
			Int("terms", len(freqs)).
			Msg("Word cloud rendered")
		paths = append(paths, path)
	}
	return paths, nil
}
