package validator_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text2model/internal/domain/entity"
	"text2model/internal/infrastructure/validator"
)

func TestImagePayload(t *testing.T) {
	tests := []struct {
		name    string
		result  map[string]any
		want    string
		wantErr bool
	}{
		{name: "string", result: map[string]any{"image": "aGVsbG8="}, want: "aGVsbG8="},
		{name: "bytes", result: map[string]any{"image": []byte("hello")}, want: "aGVsbG8="},
		{name: "nil result", result: nil, wantErr: true},
		{name: "missing key", result: map[string]any{"other": "x"}, wantErr: true},
		{name: "empty string", result: map[string]any{"image": "  "}, wantErr: true},
		{name: "empty bytes", result: map[string]any{"image": []byte{}}, wantErr: true},
		{name: "wrong type", result: map[string]any{"image": 42}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validator.ImagePayload(tt.result)
			if tt.wantErr {
				assert.ErrorIs(t, err, entity.ErrImageGeneration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateModelResult(t *testing.T) {
	assert.ErrorIs(t, validator.ValidateModelResult(nil), entity.ErrModelGeneration)
	assert.ErrorIs(t, validator.ValidateModelResult(map[string]any{}), entity.ErrModelGeneration)
	assert.NoError(t, validator.ValidateModelResult(map[string]any{"format": "glb"}))
}

func TestAnalyzeModel(t *testing.T) {
	res := validator.AnalyzeModel(map[string]any{"format": "glb", "model": "base64_data_would_go_here"})
	assert.True(t, res.Passed)
	assert.Empty(t, res.Notes)

	res = validator.AnalyzeModel(map[string]any{"format": "xyz", "model": ""})
	assert.False(t, res.Passed)
	require.Len(t, res.Notes, 2)
	assert.Equal(t, "format", res.Notes[0].Field)
	assert.Equal(t, "model", res.Notes[1].Field)

	res = validator.AnalyzeModel(map[string]any{"preview": "x"})
	assert.Len(t, res.Notes, 2)
}

func TestAnalyzePrompt(t *testing.T) {
	good := "A weathered oak chair with rich brown color, rough texture, a curved shape and fine carved detail"
	assert.True(t, validator.AnalyzePrompt(good).Passed)

	res := validator.AnalyzePrompt("a chair")
	assert.False(t, res.Passed)
	assert.Len(t, res.Notes, 2)

	res = validator.AnalyzePrompt(strings.Repeat("color texture shape detail ", 100))
	require.Len(t, res.Notes, 1)
	assert.Contains(t, res.Notes[0].Message, "too long")
}
