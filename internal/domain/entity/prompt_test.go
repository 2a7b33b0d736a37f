package entity_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"text2model/internal/domain/entity"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		prompt string
		want   entity.Category
	}{
		{"A brave hero with a glowing sword", entity.CategoryCharacter},
		{"A futuristic city with flying cars", entity.CategoryEnvironment},
		{"An antique wooden furniture piece", entity.CategoryObject},
		{"The feeling of a surreal dream", entity.CategoryAbstract},
		{"A ROBOT", entity.CategoryCharacter},
		{"something unremarkable", entity.CategoryCharacter},
		// one keyword each for character and environment; the earlier category wins
		{"a creature in the forest", entity.CategoryCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			assert.Equal(t, tt.want, entity.Classify(tt.prompt))
		})
	}
}

func TestRender(t *testing.T) {
	out := entity.Render(entity.CategoryObject, "a brass lantern")
	assert.True(t, strings.HasPrefix(out, "A highly detailed 3D model of a brass lantern."))
	assert.Contains(t, out, "Material properties")

	fallback := entity.Render(entity.Category("unknown"), "love")
	assert.True(t, strings.HasPrefix(fallback, "A 3D representation that embodies the concept of love."))
}

func TestTrimEnhanced(t *testing.T) {
	short := "a lamp"
	assert.Equal(t, short, entity.TrimEnhanced(short))

	long := strings.Repeat("é", entity.MaxEnhancedPromptLen+10)
	trimmed := entity.TrimEnhanced(long)
	assert.Equal(t, entity.MaxEnhancedPromptLen, len([]rune(trimmed)))
}
