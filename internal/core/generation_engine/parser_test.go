package generation_engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuizText(t *testing.T) {
	t.Run("separate lines", func(t *testing.T) {
		in := "Title: Cells\nSummary: All about cells 🧬\n\nQuestion 1: What is a cell?\nAnswer 1: The basic unit of life.\nQuestion 2: What powers the cell?\nAnswer 2: Mitochondria.\n"
		pq := ParseQuizText(in)

		assert.Equal(t, "Cells", pq.Title)
		assert.Equal(t, "All about cells 🧬", pq.Summary)
		require.Len(t, pq.Questions, 2)
		assert.Equal(t, ParsedQuestion{Question: "What is a cell?", Answer: "The basic unit of life."}, pq.Questions[0])
		assert.Equal(t, "Mitochondria.", pq.Questions[1].Answer)
		assert.Equal(t, 1, pq.MinRead)
	})

	t.Run("inline", func(t *testing.T) {
		in := "Title: Cells Summary: All about cells Question 1: What is a cell? Answer 1: The basic unit of life. Question 2: What powers the cell? Answer 2: Mitochondria."
		pq := ParseQuizText(in)

		assert.Equal(t, "Cells", pq.Title)
		assert.Equal(t, "All about cells", pq.Summary)
		require.Len(t, pq.Questions, 2)
		assert.Equal(t, "What powers the cell?", pq.Questions[1].Question)
	})

	t.Run("markdown emphasis and placeholders", func(t *testing.T) {
		in := "**Title:** [Photosynthesis]\n**Summary:** Plants make food 🌱\n**Question 1:** Where does it happen?\n**Answer 1:** In the chloroplast."
		pq := ParseQuizText(in)

		assert.Equal(t, "Photosynthesis", pq.Title)
		assert.Equal(t, "Plants make food 🌱", pq.Summary)
		require.Len(t, pq.Questions, 1)
		assert.Equal(t, "In the chloroplast.", pq.Questions[0].Answer)
	})

	t.Run("unanswered question dropped", func(t *testing.T) {
		in := "Question 1: A?\nAnswer 1: a\nQuestion 2: B?\nQuestion 3: C?\nAnswer 3: c"
		pq := ParseQuizText(in)

		require.Len(t, pq.Questions, 2)
		assert.Equal(t, "A?", pq.Questions[0].Question)
		assert.Equal(t, "C?", pq.Questions[1].Question)
		assert.Empty(t, pq.Title)
	})

	t.Run("minute read", func(t *testing.T) {
		pq := ParseQuizText("Title: T\nMinute Read: 7 minutes\nQuestion 1: A?\nAnswer 1: a")
		assert.Equal(t, 7, pq.MinRead)
	})

	t.Run("reading time from question count", func(t *testing.T) {
		in := ""
		for _, n := range []string{"1", "2", "3", "4", "5"} {
			in += "Question " + n + ": q" + n + "\nAnswer " + n + ": a" + n + "\n"
		}
		assert.Equal(t, 3, ParseQuizText(in).MinRead)
	})

	t.Run("nothing parseable", func(t *testing.T) {
		pq := ParseQuizText("I cannot help with that.")
		assert.Empty(t, pq.Questions)
		assert.Equal(t, 1, pq.MinRead)
	})
}

func TestParseSummaryText(t *testing.T) {
	in := `Title: The Water Cycle
Minute Read: 3
Overview: How water moves 🌊

Slide 1: Evaporation
- Sun heats water
- Vapor rises
Slide 2: Empty slide
Slide 3: Condensation
  * Clouds form
Key Takeaway: Water is recycled.
Trailing text is ignored`

	ps := ParseSummaryText(in)

	assert.Equal(t, "The Water Cycle", ps.Title)
	assert.Equal(t, 3, ps.MinuteRead)
	assert.Equal(t, "How water moves 🌊", ps.Overview)
	assert.Equal(t, "Water is recycled.", ps.KeyTakeaway)
	assert.Equal(t, []ParsedSlide{
		{Heading: "Evaporation", Content: "- Sun heats water\n- Vapor rises"},
		{Heading: "Condensation", Content: "* Clouds form"},
	}, ps.Slides)
}

func TestParseSummaryTextSlideWithoutNumber(t *testing.T) {
	// a bare "Slide..." line closes the slide but keeps its heading
	ps := ParseSummaryText("Slide 1: Intro\na\nSlides continue\nb")

	assert.Equal(t, []ParsedSlide{
		{Heading: "Intro", Content: "a"},
		{Heading: "Intro", Content: "b"},
	}, ps.Slides)
}

func TestParseSummaryTextEmptyFields(t *testing.T) {
	ps := ParseSummaryText("Title:\nMinute Read: soon\nOverview:")

	assert.Empty(t, ps.Title)
	assert.Zero(t, ps.MinuteRead)
	assert.Empty(t, ps.Overview)
	assert.Empty(t, ps.Slides)
}
