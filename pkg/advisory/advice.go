package advisory

import (
	"fmt"

	"github.com/littlelibrary/server/pkg/models"
)

// Reading levels, from youngest to oldest.
const (
	ReadingLevelEarlyReader  = "Early Reader"
	ReadingLevelBeginning    = "Beginning"
	ReadingLevelIntermediate = "Intermediate"
	ReadingLevelAdvanced     = "Advanced"
)

const fallbackReasoning = "Age recommendation based on book length and typical reading patterns."

// Advice is age range, reading level and theme guidance for one book.
type Advice struct {
	SuggestedMinAge int      `json:"suggestedMinAge"`
	SuggestedMaxAge int      `json:"suggestedMaxAge"`
	Reasoning       string   `json:"reasoning"`
	ReadingLevel    string   `json:"readingLevel"`
	Themes          []string `json:"themes"`
}

// AgeRecommendation renders the age range for display.
func (a *Advice) AgeRecommendation() string {
	return fmt.Sprintf("Recommended for ages %d-%d", a.SuggestedMinAge, a.SuggestedMaxAge)
}

// Fallback derives advice from the page count alone. It is used whenever the
// advisory service can't answer. Books with an unknown page count get the
// oldest band.
func Fallback(book *models.Book) *Advice {
	advice := &Advice{
		SuggestedMinAge: 6,
		SuggestedMaxAge: 12,
		ReadingLevel:    ReadingLevelIntermediate,
		Reasoning:       fallbackReasoning,
		Themes:          []string{"Adventure", "Learning", "Fun"},
	}

	if book == nil || book.PageCount == nil {
		return advice
	}
	switch pages := *book.PageCount; {
	case pages < 32:
		advice.SuggestedMinAge, advice.SuggestedMaxAge = 2, 5
		advice.ReadingLevel = ReadingLevelEarlyReader
	case pages < 64:
		advice.SuggestedMinAge, advice.SuggestedMaxAge = 4, 8
		advice.ReadingLevel = ReadingLevelBeginning
	}
	return advice
}
