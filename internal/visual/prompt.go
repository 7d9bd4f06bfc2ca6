package visual

import (
	"encoding/json"
	"fmt"

	"echoframe-go/internal/types"
)

const promptTemplate = `You are an AI assistant analyzing a video. Based on the following transcript segments,
generate detailed visual descriptions for each segment. Focus on what a person would see
(e.g., people, objects, actions, text on screen).

Transcript segments:
%s

Generate visual descriptions in the following exact JSON format:
[
    {
        "start_time": "00:00:00",
        "end_time": "00:00:05",
        "description": "Detailed visual description here"
    },
    ...
]

Important instructions:
1. Match the start_time and end_time exactly with the transcript segments
2. Provide detailed visual descriptions
3. Return ONLY the JSON array, nothing else
4. Do not include any markdown formatting or code block markers
5. Ensure the JSON is valid and properly formatted
6. Use double quotes for all property names and string values
7. Do not include any explanatory text before or after the JSON
8. Make sure the JSON is complete and properly closed with a closing bracket
9. Return exactly %d elements, one per transcript segment, in the same order
`

// BuildPrompt renders the visual-description request for one chunk.
func BuildPrompt(chunk []types.TranscriptSegment) string {
	segs, _ := json.MarshalIndent(chunk, "", "  ")
	return fmt.Sprintf(promptTemplate, segs, len(chunk))
}
