package generation_engine

import (
	"regexp"
	"strconv"
	"strings"
)

type ParsedQuestion struct {
	Question string
	Answer   string
}

type ParsedQuiz struct {
	Title     string
	Summary   string
	Questions []ParsedQuestion
	MinRead   int
}

// quizMarker finds every field label, whether the model put them on their own
// lines or ran everything together on one.
var quizMarker = regexp.MustCompile(`\b(Title|Summary|Minute Read|Question\s*(\d+)|Answer\s*(\d+))\s*:`)

// ParseQuizText turns a completion in the "Title: / Summary: / Question N: / Answer N:"
// shape into a quiz. Questions keep the order they appear in; a question whose
// answer is missing or empty is dropped.
func ParseQuizText(text string) ParsedQuiz {
	text = strings.ReplaceAll(text, "**", "")
	locs := quizMarker.FindAllStringSubmatchIndex(text, -1)

	var (
		pq        ParsedQuiz
		order     []int
		questions = map[int]string{}
		answers   = map[int]string{}
		minRead   int
	)

	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		value := cleanField(text[loc[1]:end])
		label := text[loc[2]:loc[3]]

		switch {
		case label == "Title":
			if pq.Title == "" {
				pq.Title = value
			}
		case label == "Summary":
			if pq.Summary == "" {
				pq.Summary = value
			}
		case label == "Minute Read":
			if m := leadingDigits.FindString(value); m != "" && minRead == 0 {
				minRead, _ = strconv.Atoi(m)
			}
		case loc[4] >= 0:
			n, _ := strconv.Atoi(text[loc[4]:loc[5]])
			if _, seen := questions[n]; !seen {
				questions[n] = value
				order = append(order, n)
			}
		case loc[6] >= 0:
			n, _ := strconv.Atoi(text[loc[6]:loc[7]])
			if _, seen := answers[n]; !seen {
				answers[n] = value
			}
		}
	}

	for _, n := range order {
		q, a := questions[n], answers[n]
		if q == "" || a == "" {
			continue
		}
		pq.Questions = append(pq.Questions, ParsedQuestion{Question: q, Answer: a})
	}

	pq.MinRead = minRead
	if pq.MinRead <= 0 {
		pq.MinRead = (len(pq.Questions) + 1) / 2
		if pq.MinRead < 1 {
			pq.MinRead = 1
		}
	}
	return pq
}

var leadingDigits = regexp.MustCompile(`^\d+`)

// cleanField trims whitespace, stray heading marks and the placeholder brackets
// models sometimes echo back from the prompt.
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimRight(s, "#"))
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") && strings.Count(s, "[") == 1 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
