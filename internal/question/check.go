package question

// CheckAnswer reports whether the submission is fully correct.
//
// Single-answer questions require an exact id match. Multi-answer questions
// require the submitted set to equal the correct set; a lone id sent to a
// multi-answer question is treated as a one-element selection, so it can
// only ever earn partial credit.
func CheckAnswer(q *Question, a Answer) bool {
	if len(a.IDs) == 0 || len(q.CorrectIDs) == 0 {
		return false
	}
	if !q.IsMultiAnswer() {
		return len(a.IDs) == 1 && a.IDs[0] == q.CorrectIDs[0]
	}
	return equalSets(a.IDs, q.CorrectIDs)
}

// CorrectSelected counts the distinct submitted ids that are correct.
func CorrectSelected(q *Question, a Answer) int {
	correct := make(map[string]bool, len(q.CorrectIDs))
	for _, id := range q.CorrectIDs {
		correct[id] = true
	}
	n := 0
	seen := make(map[string]bool, len(a.IDs))
	for _, id := range a.IDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if correct[id] {
			n++
		}
	}
	return n
}

func equalSets(a, b []string) bool {
	seen := make(map[string]int, len(b))
	for _, s := range a {
		seen[s] |= 1
	}
	for _, s := range b {
		seen[s] |= 2
	}
	for _, v := range seen {
		if v != 3 {
			return false
		}
	}
	return true
}
