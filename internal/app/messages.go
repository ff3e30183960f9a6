package app

import (
	"fmt"
	"time"

	"quizbot/internal/domain"
)

const (
	msgWelcome        = "Welcome to the testing system!\nEnter your last name:"
	msgEnterLastName  = "Enter your last name:"
	msgEnterFirstName = "Enter your first name:"
	msgEnterGroup     = "Enter your group:"
	msgStartFirst     = "Please start with the /start command"
	msgSessionExpired = "Session expired. Start again with /start"
	msgRestart        = "An error occurred. Restart the test with /start"
)

func identityPrompt(state domain.State) string {
	switch state {
	case domain.StateAwaitingFirstName:
		return msgEnterFirstName
	case domain.StateAwaitingGroup:
		return msgEnterGroup
	default:
		return msgEnterLastName
	}
}

func questionText(q domain.Question, index, total int, left time.Duration) string {
	return fmt.Sprintf("[%s] Question %d/%d:\n%s", domain.FormatClock(left), index+1, total, q.Prompt)
}

func userReport(r domain.Result) string {
	return fmt.Sprintf(
		"Test finished!\n"+
			"Results for %s (%s):\n"+
			"Correct answers: %d/%d\n"+
			"Score: %d%%\n"+
			"Time taken: %s",
		r.Identity.FullName(), r.Identity.Group,
		r.Score, r.Total,
		r.Percent,
		domain.FormatClock(r.Elapsed),
	)
}

func adminReport(r domain.Result) string {
	return fmt.Sprintf("Group %s\n%s\nResult: %d/%d", r.Identity.Group, r.Identity.FullName(), r.Score, r.Total)
}
