package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPuzzle = `id: two_blanks
sentences:
  - segments:
      - type: blank
        blank_id: ceo
        expected: Sam
      - type: text
        text: " met "
      - type: blank
        blank_id: rival
        expected: Elon
pool:
  - id: tok_sam
    value: Sam
  - id: tok_elon
    value: Elon
victory_prompt: "Congratulate the user."
`

func writePuzzle(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		body        string
		expectError string
	}{
		{
			name:     "valid",
			filename: "two_blanks.yaml",
			body:     validPuzzle,
		},
		{
			name:     "experimental prefix",
			filename: "x.two_blanks.yml",
			body:     validPuzzle,
		},
		{
			name:        "bad extension",
			filename:    "two_blanks.txt",
			body:        validPuzzle,
			expectError: "unsupported puzzle file extension",
		},
		{
			name:        "dashed filename",
			filename:    "two-blanks.yaml",
			body:        validPuzzle,
			expectError: "must be lowercase snake_case",
		},
		{
			name:        "unknown field",
			filename:    "two_blanks.yaml",
			body:        validPuzzle + "bogus: true\n",
			expectError: "failed strict unmarshaling",
		},
		{
			name:        "camel case blank id",
			filename:    "two_blanks.yaml",
			body:        strings.Replace(validPuzzle, "blank_id: ceo", "blank_id: theCEO", 1),
			expectError: "blank ID 'theCEO' should be lowercase snake_case",
		},
		{
			name:        "token without id",
			filename:    "two_blanks.yaml",
			body:        strings.Replace(validPuzzle, "  - id: tok_elon\n    value: Elon", "  - value: Elon", 1),
			expectError: "token ID",
		},
		{
			name:        "short pool",
			filename:    "two_blanks.yaml",
			body:        strings.Replace(validPuzzle, "value: Elon", "value: Dario", 1),
			expectError: `pool has 0 token(s) with value "Elon"`,
		},
		{
			name:        "no victory prompt",
			filename:    "two_blanks.yaml",
			body:        strings.Replace(validPuzzle, `victory_prompt: "Congratulate the user."`, "", 1),
			expectError: "victory_prompt is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePuzzle(t, tt.filename, tt.body)
			v := &PuzzleValidator{}
			err := v.validateFile(path)
			if tt.expectError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestValidateFile_BuiltinPuzzle(t *testing.T) {
	v := &PuzzleValidator{}
	assert.NoError(t, v.validateFile(filepath.Join("..", "..", "pkg", "puzzle", "data", "murder_in_the_valley.yaml")))
}

func TestIsValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"a", true},
		{"tok_elon_1", true},
		{"murderer", true},
		{"", false},
		{"_tok", false},
		{"tok_", false},
		{"Tok", false},
		{"tok-elon", false},
		{"1tok", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isValidID(tt.id), tt.id)
	}
}

