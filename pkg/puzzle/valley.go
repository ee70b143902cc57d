package puzzle

import (
	_ "embed"
	"fmt"
)

//go:embed data/murder_in_the_valley.yaml
var valleyYAML []byte

// Valley returns the built-in "A Murder in the Valley" puzzle. Each call
// returns a fresh copy.
func Valley() *Definition {
	d, err := Parse(valleyYAML, FormatYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in puzzle is invalid: %v", err))
	}
	return d
}

// LoadOrBuiltin loads the definition at path, or the built-in puzzle when
// path is empty.
func LoadOrBuiltin(path string) (*Definition, error) {
	if path == "" {
		return Valley(), nil
	}
	return Load(path)
}
