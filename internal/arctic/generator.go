package arctic

import (
	"encoding/json"
	"fmt"
	"maps"
	"math/rand/v2"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/6529-Collections/arctic/pkg/jsonvalue"
)

// Generated arrays hold between minArrayLen and maxArrayLen elements.
const (
	minArrayLen = 1
	maxArrayLen = 4
)

// LoadTemplate reads one JSON value from path. Numbers stay json.Number so the
// generator can tell integers from floats.
func LoadTemplate(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	defer f.Close()

	template, err := jsonvalue.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	return template, nil
}

// Generator produces random documents shaped like a template. Not safe for
// concurrent use.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *Generator) Generate(template any) any {
	switch v := template.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		// Sorted so a seed always yields the same document
		for _, key := range slices.Sorted(maps.Keys(v)) {
			out[key] = g.Generate(v[key])
		}
		return out
	case []any:
		out := []any{}
		if len(v) == 0 {
			return out
		}
		n := minArrayLen + g.rng.IntN(maxArrayLen-minArrayLen+1)
		for i := 0; i < n; i++ {
			out = append(out, g.Generate(v[0]))
		}
		return out
	case string:
		return strconv.FormatUint(uint64(g.rng.Uint32()), 10)
	case json.Number:
		return g.generateNumber(v)
	case bool:
		return g.rng.IntN(2) == 1
	default:
		return v
	}
}

// Integers that overflow int64 are neither int nor float here and are copied as-is.
func (g *Generator) generateNumber(n json.Number) any {
	if _, err := n.Int64(); err == nil {
		return int64(g.rng.Uint64())
	}
	if strings.ContainsAny(n.String(), ".eE") {
		return g.rng.Float64()
	}
	return n
}
