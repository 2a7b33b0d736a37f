package entity

import (
	"fmt"
	"strings"
)

// Category selects the template used to frame a prompt for enhancement.
type Category string

const (
	CategoryCharacter   Category = "character"
	CategoryEnvironment Category = "environment"
	CategoryObject      Category = "object"
	CategoryAbstract    Category = "abstract"
)

// MaxEnhancedPromptLen caps the enhanced prompt handed to the image service.
const MaxEnhancedPromptLen = 1000

// categories is ordered: ties go to the earlier entry.
var categories = []struct {
	category Category
	keywords []string
}{
	{CategoryCharacter, []string{
		"character", "person", "figure", "hero", "villain", "creature",
		"monster", "animal", "being", "humanoid", "robot", "alien",
	}},
	{CategoryEnvironment, []string{
		"landscape", "scene", "environment", "world", "terrain", "nature",
		"forest", "mountain", "river", "ocean", "city", "village", "room",
	}},
	{CategoryObject, []string{
		"object", "item", "tool", "weapon", "furniture", "vehicle", "machine",
		"artifact", "device", "instrument", "gadget", "product", "building",
	}},
	{CategoryAbstract, []string{
		"concept", "abstract", "idea", "emotion", "feeling", "thought",
		"dream", "imagination", "fantasy", "surreal", "symbolic", "metaphor",
	}},
}

var templates = map[Category]string{
	CategoryCharacter: `A highly detailed 3D character model of %s.
Include specific details about:
- Facial features (eyes, mouth, nose structure)
- Physical proportions and body type
- Surface textures for skin/fur/scales
- Clothing and accessories with fabric details
- Pose and expression conveying personality
- Lighting that highlights the character's form`,
	CategoryEnvironment: `A detailed 3D environment model of %s.
Include specific details about:
- Terrain features and topography
- Vegetation types and distribution
- Material properties (rock, water, soil, vegetation)
- Atmospheric conditions and lighting
- Scale indicators and perspective
- Key focal points and landmarks`,
	CategoryObject: `A highly detailed 3D model of %s.
Include specific details about:
- Precise shape and proportions
- Material properties (metal, wood, plastic, etc.)
- Surface textures and finishes
- Mechanical components and connections
- Wear patterns or imperfections for realism
- Scale reference and physical dimensions`,
	CategoryAbstract: `A 3D representation that embodies the concept of %s.
Include specific details about:
- Symbolic shapes and forms
- Color relationships and transitions
- Texture contrasts to convey meaning
- Dynamic elements suggesting motion or energy
- Spatial relationships and composition
- Emotional tone and atmosphere`,
}

// Classify scores the prompt against each category's keywords (substring match,
// case-insensitive) and returns the best one.
func Classify(prompt string) Category {
	lower := strings.ToLower(prompt)
	best, bestScore := categories[0].category, -1
	for _, c := range categories {
		score := 0
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = c.category, score
		}
	}
	return best
}

// Render frames the prompt with the category template.
func Render(category Category, prompt string) string {
	tmpl, ok := templates[category]
	if !ok {
		tmpl = templates[CategoryAbstract]
	}
	return fmt.Sprintf(tmpl, prompt)
}

// EnhancementSystemPrompt instructs the language model how to expand a prompt.
const EnhancementSystemPrompt = `You are an expert visual artist and creative writer specializing in 3D modeling concepts.

Your task is to enhance and expand simple user descriptions into vivid, detailed prompts that will:
1. Work well for text-to-image generation
2. Ultimately be converted to 3D models

Focus on:
- Visual elements (colors, textures, materials)
- Lighting and shadows
- Spatial relationships and depth
- Form and structure details that will translate well to 3D
- Keeping a cohesive artistic style

Maintain the core subject and intent of the original prompt while enhancing it with rich details.
Your output should be a single detailed paragraph without using bullet points or numbered lists.
Do not include phrases like "here's an enhanced description" - just provide the enhanced description directly.`

// TrimEnhanced cuts an enhanced prompt to MaxEnhancedPromptLen runes.
func TrimEnhanced(s string) string {
	r := []rune(s)
	if len(r) <= MaxEnhancedPromptLen {
		return s
	}
	return string(r[:MaxEnhancedPromptLen])
}
