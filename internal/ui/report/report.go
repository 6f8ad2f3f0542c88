// Package report renders weakness records and attempt results for the
// terminal.
package report

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/abhisek/adaptiq/internal/session"
	"github.com/abhisek/adaptiq/internal/store"
	"github.com/abhisek/adaptiq/internal/ui/theme"
	"github.com/abhisek/adaptiq/internal/weakness"
)

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(theme.TableBorder)
}

// Weakness renders a user's weakness records, worst first. Topics above
// the weakness threshold are highlighted.
func Weakness(userID string, recs []store.WeaknessRecord) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Weakness report: " + userID))
	b.WriteString("\n")

	if len(recs) == 0 {
		b.WriteString(theme.Hint.Render("No weakness records yet."))
		b.WriteString("\n")
		return b.String()
	}

	active := weakness.Rank(recs)
	isActive := make(map[string]bool, len(active))
	for _, t := range active {
		isActive[t.Key()] = true
	}

	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		status := "ok"
		switch {
		case isActive[r.Key()]:
			status = "remediating"
		case weakness.IsWeak(r.Score):
			status = "weak"
		}
		rows = append(rows, []string{
			r.Key(),
			fmt.Sprintf("%.2f", r.Score),
			r.Trend,
			fmt.Sprintf("%d", r.RemediationAttempts),
			status,
		})
	}

	t := newTable().
		Headers("TOPIC", "SCORE", "TREND", "ATTEMPTS", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeader
			}
			if col == 4 {
				switch rows[row][4] {
				case "remediating", "weak":
					return theme.TableCell.Inherit(theme.Weak)
				default:
					return theme.TableCell.Inherit(theme.Recovered)
				}
			}
			return theme.TableCell
		})
	b.WriteString(t.Render())
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d topics, %d remediated in the next session\n", len(recs), len(active))
	return b.String()
}

// Results renders the outcome of an attempt with its per-question scores.
func Results(r *session.Results) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render(fmt.Sprintf("Results: %s (attempt %d)", r.QuizID, r.AttemptNumber)))
	b.WriteString("\n")

	verdict := theme.Incorrect.Render("NOT PASSED")
	if r.QuizPassed {
		verdict = theme.Correct.Render("PASSED")
	}
	lines := []string{
		line("Official percentage", fmt.Sprintf("%.1f%%  %s", r.CurrentTopicPercentage, verdict)),
		line("Total score", fmt.Sprintf("%.2f", r.TotalScore)),
		line("Questions", fmt.Sprintf("%d / %d", r.QuestionsAnswered, r.TotalQuestions)),
		line("Ability", fmt.Sprintf("%.2f -> %.2f", r.InitialAbility, r.AbilityEstimate)),
		line("Hints used", fmt.Sprintf("%d", r.HintsUsed)),
		line("Time spent", fmt.Sprintf("%.0fs", r.TimeSpent)),
	}
	if len(r.WeakTopics) > 0 {
		lines = append(lines, line("Weak topics", strings.Join(r.WeakTopics, ", ")))
	}
	b.WriteString(theme.Card.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")

	if len(r.QuestionScores) == 0 {
		return b.String()
	}

	rows := make([][]string, 0, len(r.QuestionScores))
	for i, qs := range r.QuestionScores {
		result := "wrong"
		if qs.Correct {
			result = "correct"
		}
		kind := ""
		if qs.IsRemedial {
			kind = "remedial"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", qs.QuestionID),
			qs.Topic,
			string(qs.Difficulty),
			result,
			fmt.Sprintf("%.2f", qs.Points),
			kind,
		})
	}
	t := newTable().
		Headers("#", "QUESTION", "TOPIC", "DIFFICULTY", "RESULT", "POINTS", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeader
			}
			switch {
			case col == 4 && rows[row][4] == "correct":
				return theme.TableCell.Inherit(theme.Correct)
			case col == 4:
				return theme.TableCell.Inherit(theme.Incorrect)
			case col == 6:
				return theme.TableCell.Inherit(theme.Remedial)
			}
			return theme.TableCell
		})
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// Audit renders the recorded answers of a session in sequence order.
func Audit(a *session.AuditResult) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Audit: " + a.SessionID))
	b.WriteString("\n")

	rows := make([][]string, 0, len(a.Answers))
	for _, ev := range a.Answers {
		result := "wrong"
		if ev.Correct {
			result = "correct"
		}
		kind := ""
		if ev.Remedial {
			kind = "remedial"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", ev.Sequence),
			fmt.Sprintf("%d", ev.QuestionID),
			result,
			fmt.Sprintf("%.2f", ev.Points),
			fmt.Sprintf("%.0fs", ev.TimeSpent),
			fmt.Sprintf("%d", ev.HintsUsed),
			kind,
		})
	}
	t := newTable().
		Headers("SEQ", "QUESTION", "RESULT", "POINTS", "TIME", "HINTS", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeader
			}
			switch {
			case col == 2 && rows[row][2] == "correct":
				return theme.TableCell.Inherit(theme.Correct)
			case col == 2:
				return theme.TableCell.Inherit(theme.Incorrect)
			case col == 6:
				return theme.TableCell.Inherit(theme.Remedial)
			}
			return theme.TableCell
		})
	b.WriteString(t.Render())
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d answers, %d hints revealed\n", len(a.Answers), a.HintsRevealed)
	return b.String()
}

func line(label, value string) string {
	return theme.Label.Render(label) + theme.Value.Render(value)
}
