package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// Candidate-facing texts.
const (
	ClosedMessage    = "Thank you! The interview has been completed. We appreciate your time and interest in our position."
	CompletedMessage = "**Interview Complete!**\n\n" +
		"Thank you for completing our AI-powered pre-screening interview. Your responses will be carefully evaluated, " +
		"and we will follow up with you regarding the next steps in our hiring process. We appreciate your interest in joining our team!"
	ExpiredMessage = "**Time is up.**\n\n" +
		"The interview time limit has been reached, so no further answers can be accepted. Thank you for your time."
)

// QuestionPrompt renders one question as shown to the candidate.
func QuestionPrompt(q domain.Question) string {
	return fmt.Sprintf("**Question %d:** %s", q.ID, q.Text)
}

// SectionCounts tallies questions by their well-known section.
type SectionCounts struct {
	Technical  int
	Scenario   int
	Behavioral int
	Total      int
}

func countSections(qs []domain.Question) SectionCounts {
	c := SectionCounts{Total: len(qs)}
	for _, q := range qs {
		switch q.Section {
		case domain.SectionTechnical:
			c.Technical++
		case domain.SectionScenario:
			c.Scenario++
		case domain.SectionBehavioral:
			c.Behavioral++
		}
	}
	return c
}

// WelcomeMessage greets the candidate and shows the first question.
func WelcomeMessage(company string, cand *domain.Candidate, qs []domain.Question, t domain.LevelThresholds) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome to %s's Interactive AI Screening Interview", company)
	if cand != nil {
		fmt.Fprintf(&b, " for %s", cand.DisplayName())
	}
	b.WriteString("!\n\n")
	b.WriteString("This structured interview will evaluate your technical proficiency, problem-solving skills, " +
		"and professional experience. Please answer each question thoughtfully and clearly.\n\n")

	c := countSections(qs)
	fmt.Fprintf(&b, "I'll ask you %d questions covering:\n", c.Total)
	fmt.Fprintf(&b, "• %s (%d questions)\n", domain.SectionTechnical, c.Technical)
	fmt.Fprintf(&b, "• %s (%d questions)\n", domain.SectionScenario, c.Scenario)
	fmt.Fprintf(&b, "• %s (%d questions)\n\n", domain.SectionBehavioral, c.Behavioral)

	b.WriteString("Each answer will be evaluated and scored:\n")
	fmt.Fprintf(&b, "• Score %g-100: %s (Advanced expertise)\n", t.Level3, domain.Level3)
	fmt.Fprintf(&b, "• Score %g-%g: %s (Solid foundation)\n", t.Level2, t.Level3-1, domain.Level2)
	fmt.Fprintf(&b, "• Score 1-%g: %s (Basic understanding)\n\n", t.Level2-1, domain.Level1)
	b.WriteString("Ready to begin?")
	if len(qs) > 0 {
		b.WriteString("\n\n")
		b.WriteString(QuestionPrompt(qs[0]))
	}
	return b.String()
}

// AlreadySubmittedMessage tells a returning candidate their interview is on record.
func AlreadySubmittedMessage(completedAt time.Time) string {
	return "**Your Interview Result Already Submitted**\n\n" +
		"We found that you have already completed this AI screening interview. Each candidate can only take the " +
		"interview once to ensure fairness and integrity in our assessment process.\n\n" +
		fmt.Sprintf("Your previous interview was completed on: %s\n\n", completedAt.Format("January 2, 2006")) +
		"If you believe this is an error or have questions about your interview status, please contact our recruitment team.\n\n" +
		"Thank you for your understanding."
}
