// Package prompt assembles the text sent to a backend for grading and
// moderation. Assembly is pure: equal inputs always give the same prompt.
package prompt

import (
	"strings"

	"github.com/valpere/gradefactory/internal/rubric"
)

// Calibration is prepended to every prompt.
const Calibration = `Calibrate evaluations for community college freshmen: Be fair, constructive, and motivational. Typical papers should score 10-15/20, not failing unless severely deficient.`

// GradingInstructions is the role block for the two independent graders.
const GradingInstructions = `You are an experienced writing instructor grading a student paper.
Evaluate the paper strictly against the rubric below. For each rubric criterion:
- state the points awarded and the points available;
- quote or paraphrase the passage of the paper that justifies the score;
- give one concrete suggestion for improvement.
Finish with a "Total Score" line and a short paragraph of overall feedback addressed to the student.
If a question and correct answers are provided, check the paper's answers against them before applying the rubric.`

// ModerationInstructions is the role block for the moderator.
const ModerationInstructions = `You are the moderator of a grading panel. Two graders, Grader A and Grader B, have independently evaluated the same student paper against the same rubric.
Read the rubric, the paper and both evaluations, then produce one final, decisive evaluation:
- where the graders agree, confirm the score;
- where they disagree, decide which judgment is better supported by the paper and explain why in one sentence;
- correct any criterion that either grader misapplied.
Use the same layout as the graders: points per criterion with justification, a "Total Score" line, and overall feedback addressed to the student.
Refer to the graders as Grader A and Grader B.`

// Grading returns the prompt for a grader. It never contains another
// grader's output.
func Grading(spec *rubric.Spec, paper string) string {
	var sb strings.Builder
	writeHeader(&sb, GradingInstructions)
	writeContext(&sb, spec, paper)
	return sb.String()
}

// Moderation returns the prompt for the moderator, with the two grader
// evaluations appended in A, B order.
func Moderation(spec *rubric.Spec, paper, evaluationA, evaluationB string) string {
	var sb strings.Builder
	writeHeader(&sb, ModerationInstructions)
	writeContext(&sb, spec, paper)
	sb.WriteString("\n\nEvaluation from Grader A:\n")
	sb.WriteString(evaluationA)
	sb.WriteString("\n\nEvaluation from Grader B:\n")
	sb.WriteString(evaluationB)
	return sb.String()
}

func writeHeader(sb *strings.Builder, instructions string) {
	sb.WriteString(Calibration)
	sb.WriteString("\n\n")
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
}

func writeContext(sb *strings.Builder, spec *rubric.Spec, paper string) {
	if spec.Question != "" {
		sb.WriteString("Question:\n")
		sb.WriteString(spec.Question)
		sb.WriteString("\n\n")
	}
	if len(spec.CorrectAnswers) > 0 {
		sb.WriteString("Correct Answers:\n")
		for _, a := range spec.CorrectAnswers {
			sb.WriteString("- ")
			sb.WriteString(a)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Rubric:\n")
	sb.WriteString(spec.Text)
	sb.WriteString("\n\nStudent Paper:\n")
	sb.WriteString(paper)
}
