package llm

import (
	"fmt"
	"strings"

	"github.com/polzovatel/web-agent-ai/internal/action"
	"github.com/polzovatel/web-agent-ai/internal/snapshot"
)

// noElements stands in for the element list when the page gave none.
const noElements = "none"

const systemPrompt = "You are an assistant that generates web browser operations."

const promptTemplate = `Based on the user instruction below, output the required web operations as pure JSON.
Do not use Markdown code blocks (no ` + "```json" + ` and no ` + "```" + `).
User instruction: %s
DOM elements:
%s
Output ONLY a JSON array whose members are objects, in this form:
[
    {"action": "ACTION_TYPE", "selector": "CSS_SELECTOR", "value": "VALUE"}
]
ACTION_TYPE is one of %s.
Use null for a selector or value that does not apply.`

// BuildPrompt renders the generation request for instruction and elems.
func BuildPrompt(instruction string, elems []snapshot.Element) (string, error) {
	domText := noElements
	if len(elems) > 0 {
		encoded, err := snapshot.Marshal(elems)
		if err != nil {
			return "", fmt.Errorf("marshal elements: %w", err)
		}
		domText = encoded
	}
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(instruction), domText, kindList()), nil
}

func kindList() string {
	quoted := make([]string, 0, len(action.Kinds))
	for _, k := range action.Kinds {
		quoted = append(quoted, fmt.Sprintf("%q", string(k)))
	}
	return strings.Join(quoted, ", ")
}
