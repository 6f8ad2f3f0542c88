package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Timestamps are stored as unix seconds in int64 columns so both dialects
// share one representation.

var (
	// QuestionsColumns holds the columns for the "questions" table.
	QuestionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64},
		{Name: "year", Type: field.TypeString},
		{Name: "subject", Type: field.TypeString},
		{Name: "topic", Type: field.TypeString},
		{Name: "difficulty", Type: field.TypeString},
		{Name: "text", Type: field.TypeString, Size: 2147483647},
		{Name: "options_json", Type: field.TypeString, Size: 2147483647},
		{Name: "correct_json", Type: field.TypeString, Size: 2147483647},
		{Name: "hints_json", Type: field.TypeString, Size: 2147483647, Default: "[]"},
		{Name: "created_at", Type: field.TypeInt64},
	}
	// QuestionsTable holds the schema information for the "questions" table.
	QuestionsTable = &schema.Table{
		Name:       "questions",
		Columns:    QuestionsColumns,
		PrimaryKey: []*schema.Column{QuestionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "question_year_subject_topic",
				Columns: []*schema.Column{QuestionsColumns[1], QuestionsColumns[2], QuestionsColumns[3]},
			},
		},
	}

	// WeaknessRecordsColumns holds the columns for the "weakness_records" table.
	WeaknessRecordsColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeString},
		{Name: "year", Type: field.TypeString},
		{Name: "subject", Type: field.TypeString},
		{Name: "topic", Type: field.TypeString},
		{Name: "weakness_score", Type: field.TypeFloat64, Default: 0.5},
		{Name: "improvement_trend", Type: field.TypeString, Default: "stable"},
		{Name: "remediation_attempts", Type: field.TypeInt, Default: 0},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	// WeaknessRecordsTable holds the schema information for the "weakness_records" table.
	WeaknessRecordsTable = &schema.Table{
		Name:       "weakness_records",
		Columns:    WeaknessRecordsColumns,
		PrimaryKey: WeaknessRecordsColumns[0:4],
	}

	// QuizAttemptsColumns holds the columns for the "quiz_attempts" table.
	QuizAttemptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "quiz_id", Type: field.TypeString},
		{Name: "attempt_number", Type: field.TypeInt},
		{Name: "score", Type: field.TypeFloat64},
		{Name: "time_taken", Type: field.TypeFloat64},
		{Name: "questions_answered", Type: field.TypeInt},
		{Name: "total_questions", Type: field.TypeInt},
		{Name: "ability_estimate", Type: field.TypeFloat64},
		{Name: "passed", Type: field.TypeBool},
		{Name: "created_at", Type: field.TypeInt64},
	}
	// QuizAttemptsTable holds the schema information for the "quiz_attempts" table.
	QuizAttemptsTable = &schema.Table{
		Name:       "quiz_attempts",
		Columns:    QuizAttemptsColumns,
		PrimaryKey: []*schema.Column{QuizAttemptsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "quizattempt_user_id_quiz_id_attempt_number",
				Unique:  true,
				Columns: []*schema.Column{QuizAttemptsColumns[1], QuizAttemptsColumns[2], QuizAttemptsColumns[3]},
			},
		},
	}

	// QuizProgressColumns holds the columns for the "quiz_progress" table.
	QuizProgressColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeString},
		{Name: "quiz_id", Type: field.TypeString},
		{Name: "year", Type: field.TypeString},
		{Name: "subject", Type: field.TypeString},
		{Name: "topic", Type: field.TypeString},
		{Name: "passed", Type: field.TypeBool},
		{Name: "last_score", Type: field.TypeFloat64},
		{Name: "best_score", Type: field.TypeFloat64},
		{Name: "total_attempts", Type: field.TypeInt},
		{Name: "last_activity", Type: field.TypeInt64},
	}
	// QuizProgressTable holds the schema information for the "quiz_progress" table.
	QuizProgressTable = &schema.Table{
		Name:       "quiz_progress",
		Columns:    QuizProgressColumns,
		PrimaryKey: QuizProgressColumns[0:2],
	}

	// QuizSessionsColumns holds the columns for the "quiz_sessions" table.
	QuizSessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "completed", Type: field.TypeBool, Default: false},
		{Name: "data_json", Type: field.TypeString, Size: 2147483647},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	// QuizSessionsTable holds the schema information for the "quiz_sessions" table.
	QuizSessionsTable = &schema.Table{
		Name:       "quiz_sessions",
		Columns:    QuizSessionsColumns,
		PrimaryKey: []*schema.Column{QuizSessionsColumns[0]},
	}

	// AnswerEventsColumns holds the columns for the "answer_events" table.
	AnswerEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "session_id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "question_id", Type: field.TypeInt64},
		{Name: "correct", Type: field.TypeBool},
		{Name: "points", Type: field.TypeFloat64},
		{Name: "time_spent", Type: field.TypeFloat64},
		{Name: "hints_used", Type: field.TypeInt},
		{Name: "remedial", Type: field.TypeBool},
		{Name: "created_at", Type: field.TypeInt64},
	}
	// AnswerEventsTable holds the schema information for the "answer_events" table.
	AnswerEventsTable = &schema.Table{
		Name:       "answer_events",
		Columns:    AnswerEventsColumns,
		PrimaryKey: []*schema.Column{AnswerEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "answerevent_session_id", Columns: []*schema.Column{AnswerEventsColumns[2]}},
		},
	}

	// HintEventsColumns holds the columns for the "hint_events" table.
	HintEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "session_id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "question_id", Type: field.TypeInt64},
		{Name: "hint_index", Type: field.TypeInt},
		{Name: "created_at", Type: field.TypeInt64},
	}
	// HintEventsTable holds the schema information for the "hint_events" table.
	HintEventsTable = &schema.Table{
		Name:       "hint_events",
		Columns:    HintEventsColumns,
		PrimaryKey: []*schema.Column{HintEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "hintevent_session_id", Columns: []*schema.Column{HintEventsColumns[2]}},
		},
	}

	// GlobalSequenceColumns holds the columns for the "global_sequence" table.
	// The counter lives in the single row with id 1.
	GlobalSequenceColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		{Name: "next_val", Type: field.TypeInt64, Default: 1},
	}
	// GlobalSequenceTable holds the schema information for the "global_sequence" table.
	GlobalSequenceTable = &schema.Table{
		Name:       "global_sequence",
		Columns:    GlobalSequenceColumns,
		PrimaryKey: []*schema.Column{GlobalSequenceColumns[0]},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		QuestionsTable,
		WeaknessRecordsTable,
		QuizAttemptsTable,
		QuizProgressTable,
		QuizSessionsTable,
		AnswerEventsTable,
		HintEventsTable,
		GlobalSequenceTable,
	}
)

// migrate creates missing tables, columns and indexes. It never drops.
func migrate(ctx context.Context, db *sql.DB, dia string) error {
	m, err := schema.NewMigrate(entsql.OpenDB(dia, db))
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
