package postprocess

import "testing"

func TestRemoveThinkingBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no thinking blocks",
			input:    "Score: 14/20. Clear thesis.",
			expected: "Score: 14/20. Clear thesis.",
		},
		{
			name:     "simple thinking block",
			input:    "Score<thinking>Let me weigh the rubric</thinking>: 12/20",
			expected: "Score: 12/20",
		},
		{
			name:     "think block",
			input:    "<think>\nThe student cites two sources.\n</think>\nScore: 15/20",
			expected: "Score: 15/20",
		},
		{
			name:     "reasoning block",
			input:    "Start<reasoning>Analyzing the argument</reasoning>End",
			expected: "StartEnd",
		},
		{
			name:     "multiple thinking blocks",
			input:    "<thinking>First</thinking>middle<thinking>Second</thinking>",
			expected: "middle",
		},
		{
			name:     "truncated thinking block (no closing)",
			input:    "<thinking>Evaluation in progress",
			expected: "",
		},
		{
			name:     "truncated thinking in middle",
			input:    "Before<think>Incomplete",
			expected: "Before",
		},
		{
			name:     "case insensitive",
			input:    "<THINK>x</THINK>Grade: B",
			expected: "Grade: B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeThinkingBlocks(tt.input)
			if result != tt.expected {
				t.Errorf("removeThinkingBlocks(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveInstructionEchoes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "here is the evaluation",
			input:    "Here is the evaluation: Score 13/20",
			expected: "Score 13/20",
		},
		{
			name:     "here's my final evaluation",
			input:    "Here's my final evaluation:\nScore 16/20",
			expected: "Score 16/20",
		},
		{
			name:     "sure prefix",
			input:    "Sure, here is the moderated assessment: 14/20",
			expected: "14/20",
		},
		{
			name:     "no colon is kept",
			input:    "Here is the evaluation of a strong paper",
			expected: "Here is the evaluation of a strong paper",
		},
		{
			name:     "echo in middle is kept",
			input:    "Overall. Here is the evaluation: fine",
			expected: "Overall. Here is the evaluation: fine",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeInstructionEchoes(tt.input)
			if result != tt.expected {
				t.Errorf("removeInstructionEchoes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no fence",
			input:    "Score: 12/20",
			expected: "Score: 12/20",
		},
		{
			name:     "plain fence",
			input:    "```\nScore: 12/20\n```",
			expected: "Score: 12/20",
		},
		{
			name:     "fence with info string",
			input:    "```markdown\n# Feedback\nGood work\n```",
			expected: "# Feedback\nGood work",
		},
		{
			name:     "inner fences are kept",
			input:    "```\ncode\n```\ntext\n```\nmore\n```",
			expected: "```\ncode\n```\ntext\n```\nmore\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeCodeFence(tt.input)
			if result != tt.expected {
				t.Errorf("removeCodeFence(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestClean(t *testing.T) {
	input := "<think>weighing</think>\nHere is my evaluation:\n\"Strong\" thesis, weak citations. Score: 13/20"
	want := "\"Strong\" thesis, weak citations. Score: 13/20"

	if got := Clean(input); got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}
