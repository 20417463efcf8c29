package advice

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solaradvisor/pkg/types"
	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

// CurrentPlaceholder is replaced in a message with the computed current.
const CurrentPlaceholder = "{max_ac_current}"

// Audience is who the advisory text is written for.
type Audience string

const (
	AudienceHomeowner Audience = "homeowner"
	AudienceInstaller Audience = "installer"
)

// Pool holds the candidate messages for every category.
type Pool map[types.Category][]string

// Pools holds a Pool per audience.
type Pools struct {
	Homeowner Pool `yaml:"homeowner"`
	Installer Pool `yaml:"installer"`
}

// Picker chooses the advisory message for a category. The choice is purely
// presentational.
type Picker interface {
	Pick(category types.Category) string
}

// PickerFunc adapts a function to a Picker.
type PickerFunc func(category types.Category) string

// Pick implements Picker.
func (f PickerFunc) Pick(category types.Category) string {
	return f(category)
}

// Configured returns the default pools, or the pools read from the
// -messages-file flag if it is set.
func Configured() *Pools {
	path := lflag.String("messages-file", "", "YAML file with advisory messages per audience and category (defaults to the built-in messages)")

	p := &Pools{}
	lflag.Do(func() {
		var (
			loaded Pools
			err    error
		)
		if *path == "" {
			loaded, err = DefaultPools()
		} else {
			loaded, err = LoadPoolsFile(*path)
		}
		if err != nil {
			panic(fmt.Sprintf("failed to load advisory messages: %v", err))
		}
		*p = loaded
	})
	return p
}

// DefaultPools returns the built-in messages.
func DefaultPools() (Pools, error) {
	return LoadPools(bytes.NewReader(defaultMessages))
}

// LoadPoolsFile reads pools from a YAML file.
func LoadPoolsFile(path string) (Pools, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pools{}, fmt.Errorf("failed to open messages file: %w", err)
	}
	defer f.Close()
	return LoadPools(f)
}

// LoadPools decodes and validates pools from YAML.
func LoadPools(r io.Reader) (Pools, error) {
	var p Pools
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Pools{}, fmt.Errorf("failed to decode messages: %w", err)
	}
	if err := p.Homeowner.validate(); err != nil {
		return Pools{}, fmt.Errorf("homeowner messages: %w", err)
	}
	if err := p.Installer.validate(); err != nil {
		return Pools{}, fmt.Errorf("installer messages: %w", err)
	}
	return p, nil
}

func (p Pool) validate() error {
	for _, c := range types.Categories {
		if len(p[c]) == 0 {
			return fmt.Errorf("no messages for category %s", c)
		}
	}
	for c := range p {
		if !knownCategory(c) {
			return fmt.Errorf("unknown category %s", c)
		}
	}
	return nil
}

func knownCategory(c types.Category) bool {
	for _, known := range types.Categories {
		if c == known {
			return true
		}
	}
	return false
}

// For returns the pool of an audience, defaulting to the homeowner pool.
func (p Pools) For(audience Audience) Pool {
	if audience == AudienceInstaller {
		return p.Installer
	}
	return p.Homeowner
}

// RandomPicker picks uniformly among the messages of a category.
type RandomPicker struct {
	pool Pool
}

// NewRandomPicker returns a picker over pool.
func NewRandomPicker(pool Pool) *RandomPicker {
	return &RandomPicker{pool: pool}
}

// Pick implements Picker.
func (r *RandomPicker) Pick(category types.Category) string {
	msgs := r.pool[category]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[rand.IntN(len(msgs))]
}

// FirstPicker always returns the first message of a category.
type FirstPicker struct {
	pool Pool
}

// NewFirstPicker returns a deterministic picker over pool.
func NewFirstPicker(pool Pool) *FirstPicker {
	return &FirstPicker{pool: pool}
}

// Pick implements Picker.
func (f *FirstPicker) Pick(category types.Category) string {
	msgs := f.pool[category]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0]
}

// Render fills the current placeholder of msg with amps rounded to two
// decimals.
func Render(msg string, amps float64) string {
	if !strings.Contains(msg, CurrentPlaceholder) {
		return msg
	}
	return strings.ReplaceAll(msg, CurrentPlaceholder, strconv.FormatFloat(amps, 'f', 2, 64))
}
