// Package colors assigns a stable color to arbitrary keys, such as tag names,
// and tells whether a color is light enough to need dark text on top of it.
package colors

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/logging"
)

const (
	hexColorLength      = 6
	hexDigits           = "0123456789ABCDEF"
	lightnessBreakpoint = 128
)

// Storage persists the color table between runs.
type Storage interface {
	Load() (map[string]string, error)
	Save(colors map[string]string) error
}

// Generator is not safe for concurrent use.
type Generator struct {
	storage Storage
	colors  map[string]string
	lights  map[string]bool
}

// NewGenerator loads the color table from storage once. storage may be nil.
func NewGenerator(storage Storage) *Generator {
	g := &Generator{
		storage: storage,
		colors:  map[string]string{},
		lights:  map[string]bool{},
	}
	if storage == nil {
		return g
	}

	loaded, err := storage.Load()
	if err != nil {
		logging.Warn().Err(err).Msg("could not load tag colors")
		return g
	}
	for k, v := range loaded {
		g.colors[k] = v
	}
	return g
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// ColorFor returns the color recorded for key, generating and persisting a
// random one the first time a key is seen.
func (g *Generator) ColorFor(key string) string {
	k := normalizeKey(key)
	if c, ok := g.colors[k]; ok && c != "" {
		return c
	}
	return g.SetColorFor(k, RandomColor())
}

// SetColorFor records color for key as-is and persists the table.
func (g *Generator) SetColorFor(key, color string) string {
	g.colors[normalizeKey(key)] = color
	g.persist()
	return color
}

// IsLight reports whether the color of key has a perceived lightness of at
// least 128.
func (g *Generator) IsLight(key string) bool {
	hex := strings.ToLower(strings.TrimPrefix(g.ColorFor(key), "#"))
	if light, ok := g.lights[hex]; ok {
		return light
	}

	light := IsLightColor(hex)
	g.lights[hex] = light
	return light
}

// Colors returns a copy of the color table.
func (g *Generator) Colors() map[string]string {
	out := make(map[string]string, len(g.colors))
	for k, v := range g.colors {
		out[k] = v
	}
	return out
}

func (g *Generator) persist() {
	if g.storage == nil {
		return
	}
	if err := g.storage.Save(g.Colors()); err != nil {
		logging.Warn().Err(err).Msg("could not store tag colors")
	}
}

// RandomColor builds a "#RRGGBB" color with independently random digits.
func RandomColor() string {
	var b strings.Builder
	b.Grow(hexColorLength + 1)
	b.WriteByte('#')
	for range hexColorLength {
		b.WriteByte(hexDigits[rand.IntN(len(hexDigits))])
	}
	return b.String()
}

// IsLightColor classifies a "#RRGGBB" or "RRGGBB" color. Components which
// are missing or not valid hex count as 0.
func IsLightColor(hex string) bool {
	hex = strings.TrimPrefix(hex, "#")
	var rgb [3]float64
	for i := range rgb {
		if len(hex) < (i+1)*2 {
			break
		}
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err == nil {
			rgb[i] = float64(v)
		}
	}
	return perceivedLightness(rgb[0], rgb[1], rgb[2]) >= lightnessBreakpoint
}

// HSP color model, https://alienryderflex.com/hsp.html
func perceivedLightness(r, g, b float64) int {
	return int(math.Round(math.Sqrt(0.299*r*r + 0.587*g*g + 0.114*b*b)))
}
