package generation_engine

import (
	"regexp"
	"strconv"
	"strings"
)

type ParsedSlide struct {
	Heading string
	Content string
}

type ParsedSummary struct {
	Title       string
	Overview    string
	Slides      []ParsedSlide
	KeyTakeaway string
	MinuteRead  int
}

var (
	titleLine    = regexp.MustCompile(`Title:\s*(.+)`)
	minuteLine   = regexp.MustCompile(`Minute Read:\s*(\d+)`)
	overviewLine = regexp.MustCompile(`Overview:\s*(.+)`)
	slideLine    = regexp.MustCompile(`Slide \d+:\s*(.+)`)
	takeawayLine = regexp.MustCompile(`Key Takeaway:\s*(.+)`)
)

// ParseSummaryText reads a slide deck completion line by line. Any line starting
// with "Slide" closes the open slide; lines in between become its content.
// Slides that never got content are dropped.
func ParseSummaryText(text string) ParsedSummary {
	var (
		ps      ParsedSummary
		heading string
		content []string
	)

	flush := func() bool {
		if heading == "" || len(content) == 0 {
			return false
		}
		ps.Slides = append(ps.Slides, ParsedSlide{Heading: heading, Content: strings.Join(content, "\n")})
		content = nil
		return true
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Title:"):
			if m := titleLine.FindStringSubmatch(line); m != nil {
				ps.Title = m[1]
			}
		case strings.HasPrefix(line, "Minute Read:"):
			if m := minuteLine.FindStringSubmatch(line); m != nil {
				ps.MinuteRead, _ = strconv.Atoi(m[1])
			}
		case strings.HasPrefix(line, "Overview:"):
			if m := overviewLine.FindStringSubmatch(line); m != nil {
				ps.Overview = m[1]
			}
		case strings.HasPrefix(line, "Slide"):
			flush()
			if m := slideLine.FindStringSubmatch(line); m != nil {
				heading = m[1]
			}
		case strings.HasPrefix(line, "Key Takeaway:"):
			if flush() {
				heading = ""
			}
			if m := takeawayLine.FindStringSubmatch(line); m != nil {
				ps.KeyTakeaway = m[1]
			}
		case heading != "":
			content = append(content, line)
		}
	}
	flush()

	return ps
}
