package insight

import (
	"fmt"
	"strings"
)

// QuestionDelimiter separates questions in the model's reply.
const QuestionDelimiter = "|||"

func questionPrompt(summary string) string {
	return fmt.Sprintf("Given the following CSV data summary:\n\n%s\n\n"+
		"Provide a list of insightful questions about this dataset. "+
		"Output ONLY the questions, each separated by '%s'. "+
		"Do not include any other text or formatting.", summary, QuestionDelimiter)
}

func answerPrompt(question, preview string, columns []string) string {
	return fmt.Sprintf("For the question: %s\nGiven the CSV data head:\n%s\nAnd columns: [%s]\n\n"+
		"Provide a concise answer, suggest a suitable chart type (bar chart, line chart, or scatter plot), "+
		"and suggest specific columns for plotting (x, y, and optionally hue). "+
		"Respond ONLY with a JSON object with keys: 'answer', 'chart_type', and 'plot_columns' (an object). "+
		`Example: {"answer": "The average beer servings is X.", "chart_type": "bar chart", "plot_columns": {"x": "country", "y": "beer_servings"}}.`,
		question, preview, quoteList(columns))
}

func quoteList(items []string) string {
	q := make([]string, len(items))
	for i, s := range items {
		q[i] = "'" + s + "'"
	}
	return strings.Join(q, ", ")
}
