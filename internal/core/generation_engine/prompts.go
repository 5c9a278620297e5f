package generation_engine

import "fmt"

const QuizSystemPrompt = "You are an AI study assistant. Given any input text, generate exactly 10 questions and answers. " +
	"Each question should test understanding of the text. Each answer must be clear and complete, short if a word or phrase makes sense, " +
	"or a full sentence if needed. Do not create multiple choice options. Keep answers natural and easy to understand. " +
	"Return the output in this format: Title: [very short topic name] Summary: [your summary (add some emoji)] " +
	"Question 1: [your question] Answer 1: [your answer] Question 2: [your question] Answer 2: [your answer] " +
	"... up to as many possible but maximum should be 20."

const SummarySystemPrompt = `You are an AI study assistant that turns documents into short slide decks.
Return plain text in exactly this format, one field per line, with no markdown headings:
Title: [very short topic name]
Minute Read: [estimated reading time in whole minutes]
Overview: [one or two sentence overview (add some emoji)]
Slide 1: [slide heading]
- [key point]
- [key point]
Slide 2: [slide heading]
- [key point]
... between 4 and 8 slides ...
Key Takeaway: [the single most important idea]`

func quizUserPrompt(text string) string {
	return fmt.Sprintf("Here is the extracted text:\n\n%s\n\nPlease generate 10 short-answer questions and answers based only on this content.", text)
}

func summaryUserPrompt(text string) string {
	return fmt.Sprintf("Here is the extracted text:\n\n%s\n\nPlease summarize it as slides based only on this content.", text)
}
