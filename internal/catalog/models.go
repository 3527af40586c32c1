package catalog

// Question types supported by the program.
const (
	TypeMultipleChoice = "multiple_choice"
	TypeWritten        = "written"
)

type Step struct {
	ID          int64  `json:"step_id"`
	Number      int    `json:"step_number"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Assessment struct {
	ID           int64  `json:"assessment_id"`
	StepID       int64  `json:"step_id"`
	Title        string `json:"title"`
	Instructions string `json:"instructions,omitempty"`
	Randomize    bool   `json:"randomize"`
}

type Option struct {
	ID         int64  `json:"option_id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	// Value is reserved for scoring; nothing reads it yet.
	Value *int `json:"value,omitempty"`
}

type Question struct {
	ID           int64    `json:"question_id"`
	AssessmentID int64    `json:"assessment_id"`
	Text         string   `json:"text"`
	Type         string   `json:"type"` // multiple_choice | written
	DisplayOrder int      `json:"display_order"`
	Options      []Option `json:"options,omitempty"` // multiple_choice only
}
