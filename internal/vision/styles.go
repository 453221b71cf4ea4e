package vision

// Style selects the wording and length budget of a screenshot answer.
type Style string

const (
	StyleCodeOnly            Style = "code-only"
	StyleAssignment          Style = "assignment"
	StyleApproachAndSolution Style = "approach-and-solution"
	StyleFullAnalysis        Style = "full-analysis"
)

// stylePrompt returns the analysis instruction and response token budget
// for a style. Unknown styles get the full analysis treatment.
func stylePrompt(style Style) (string, int) {
	switch style {
	case StyleCodeOnly:
		return "Analyze this technical question.\n" +
			"Provide ONLY:\n" +
			"1. **Complete Code Solution** (correct, efficient, handling edge cases).\n" +
			"2. **Expected Output** (for the provided example or a standard test case).\n" +
			"DO NOT provide explanations, theory, or summaries. Code and Output ONLY.", 800

	case StyleAssignment:
		return "Analyze this assignment question.\n" +
			"Provide:\n" +
			"1. **Complete Solution** (clean, commented code or full written answer, ready to submit).\n" +
			"2. **Brief Explanation** (2-3 sentences on how it works).\n" +
			"3. **Expected Output** where applicable.", 1200

	case StyleApproachAndSolution:
		return "Analyze this technical question.\n" +
			"Provide:\n" +
			"1. **Problem Analysis** (Brief constraints/edge cases).\n" +
			"2. **Approach** (Logic/Algorithm).\n" +
			"3. **Code Solution** (Clean, commented).\n" +
			"4. **Time/Space Complexity**.", 1000

	default:
		return "Analyze this technical question/screenshot.\n" +
			"Provide:\n" +
			"1. **Direct Answer / Code Solution**: The core answer or complete code.\n" +
			"2. **Brief Summary**: Explain the approach/concept concisely (2-3 sentences).\n" +
			"3. **Output/Example**: Show the expected result or a usage example.\n" +
			"Keep the tone confident and professional.", 1000
	}
}
