package analysis

import (
	"fmt"
	"strings"
)

func sectionPrompt(text string) string {
	return "Please analyze the following text and provide a structured response with the following headings: " +
		"Historical Accuracy, Scientific Accuracy, Speculative Claims, and Religious/Mythological References.\n\n" +
		"Text: \"" + text + "\"\n\n" +
		"Response:"
}

func summaryPrompt(analyses []string, title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following section analyses for the video titled '%s', please create a comprehensive summary that includes key findings "+
		"under the headings of Historical Accuracy, Scientific Accuracy, Speculative Claims, and "+
		"Religious/Mythological References.\n\n", title)
	for i, a := range analyses {
		fmt.Fprintf(&b, "Section %d Analysis:\n%s\n\n", i+1, a)
	}
	b.WriteString("Please integrate all key points from the above analyses into a final structured summary.")
	return b.String()
}
