package httpapi

type optionPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type questionPayload struct {
	ID              string          `json:"id"`
	Text            string          `json:"text"`
	Options         []optionPayload `json:"options"`
	CorrectAnswerID string          `json:"correct_answer_id"`
	CorrectIndex    *int            `json:"correct_index,omitempty"`
}

type testRequest struct {
	Title       string            `json:"title"`
	TeacherName string            `json:"teacher_name"`
	Questions   []questionPayload `json:"questions"`
}

type testResponse struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	TeacherName   string            `json:"teacher_name"`
	QuestionCount int               `json:"question_count"`
	Questions     []questionPayload `json:"questions"`
}

type testsResponse struct {
	Tests []testResponse `json:"tests"`
}

type triviaImportRequest struct {
	TeacherName string `json:"teacher_name"`
	Title       string `json:"title"`
	Amount      int    `json:"amount"`
	Category    int    `json:"category"`
	Difficulty  string `json:"difficulty"`
}

type startAttemptRequest struct {
	TestID      string `json:"test_id"`
	StudentName string `json:"student_name"`
}

type answerRequest struct {
	// QuestionID defaults to the question on screen.
	QuestionID string `json:"question_id"`
	AnswerID   string `json:"answer_id"`
}

// attemptQuestion is what a learner sees; it never carries the answer key.
type attemptQuestion struct {
	ID      string          `json:"id"`
	Text    string          `json:"text"`
	Options []optionPayload `json:"options"`
}

type attemptResponse struct {
	AttemptID        string              `json:"attempt_id"`
	TestID           string              `json:"test_id"`
	TestTitle        string              `json:"test_title"`
	StudentName      string              `json:"student_name"`
	State            string              `json:"state"`
	QuestionIndex    int                 `json:"question_index"`
	TotalQuestions   int                 `json:"total_questions"`
	Question         attemptQuestion     `json:"question"`
	SelectedAnswerID string              `json:"selected_answer_id"`
	AnsweredCount    int                 `json:"answered_count"`
	TimeLeftSeconds  int                 `json:"time_left_seconds"`
	CanAdvance       bool                `json:"can_advance"`
	CanRetreat       bool                `json:"can_retreat"`
	IsLast           bool                `json:"is_last"`
	TimedOut         bool                `json:"timed_out"`
	Submission       *submissionResponse `json:"submission,omitempty"`
}

type answerPayload struct {
	QuestionID       string `json:"question_id"`
	SelectedAnswerID string `json:"selected_answer_id"`
}

type submissionResponse struct {
	ID             string          `json:"id"`
	StudentName    string          `json:"student_name"`
	TestID         string          `json:"test_id"`
	TestTitle      string          `json:"test_title"`
	Answers        []answerPayload `json:"answers"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"total_questions"`
	Percentage     int             `json:"percentage"`
	SubmittedAt    string          `json:"submitted_at"`
}

type submissionsResponse struct {
	Submissions []submissionResponse `json:"submissions"`
}

type healthResponse struct {
	Status         string `json:"status"`
	ActiveAttempts int    `json:"active_attempts"`
}

type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}
