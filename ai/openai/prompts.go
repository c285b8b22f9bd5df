package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/docquery/ai"
)

const classificationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "tags": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "tag": {
            "type": "string",
            "pattern": "^[a-z_]+$"
          },
          "confidence": {
            "type": "integer",
            "minimum": 1,
            "maximum": 10
          }
        },
        "required": ["tag", "confidence"],
        "additionalProperties": false
      }
    }
  },
  "required": ["tags"],
  "additionalProperties": false
}`

const classificationPromptTemplate = `Assign topical tags to the given text and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- The tag field must match exactly one of the listed values: %s.
- Confidence is an integer from 1 (weakly applicable) to 10 (clearly the topic of the text).
- Assign only tags that the text itself supports. Do not guess from a single word.
- Assign at most 3 tags per text.
- If no tags apply, return "tags": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "The quarterly revenue grew 12%% year over year, driven by subscription renewals."
Output:
{
  "tags": [
    {"tag":"finance","confidence":9},
    {"tag":"business","confidence":8}
  ]
}

Example (informal):
Input: "heres how u can reset ur router in 3 steps"
Output:
{
  "tags": [
    {"tag":"howto","confidence":9},
    {"tag":"technical","confidence":7}
  ]
}

Example (nothing applies):
Input: "asdf qwerty zxcv"
Output:
{
  "tags": []
}`

// buildClassifierPrompt creates the classifier system prompt with the tag
// taxonomy embedded.
func buildClassifierPrompt() string {
	return fmt.Sprintf(classificationPromptTemplate,
		classificationResponseSchema,
		strings.Join(ai.TagTypes, ", "))
}
