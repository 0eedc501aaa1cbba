package agent

import (
	"errors"
	"regexp"
	"strings"
)

var ErrEmptyInstruction = errors.New("instruction is empty")

var urlPattern = regexp.MustCompile(`https?://[^\s\p{Z}]+`)

// Task is a parsed instruction. Text is what the model sees: the
// instruction with the target URL cut out.
type Task struct {
	Instruction string
	URL         string
	Text        string
}

// ParseTask pulls the first http(s) URL out of instruction.
func ParseTask(instruction string) (Task, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return Task{}, ErrEmptyInstruction
	}
	t := Task{Instruction: instruction, Text: instruction}
	if loc := urlPattern.FindStringIndex(instruction); loc != nil {
		t.URL = instruction[loc[0]:loc[1]]
		t.Text = strings.TrimSpace(instruction[:loc[0]] + instruction[loc[1]:])
	}
	return t, nil
}
