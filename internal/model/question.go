package model

// Option labels are fixed: every question carries exactly four options A–D
// with a single correct label.
var OptionLabels = []string{"A", "B", "C", "D"}

// ValidLabel reports whether s is one of the four permitted option labels.
func ValidLabel(s string) bool {
	for _, l := range OptionLabels {
		if s == l {
			return true
		}
	}
	return false
}

// Question is the at-rest form of an exam question. Text, options, correct
// answer, and explanation are AES-256-GCM ciphertexts; they never leave the
// database unencrypted except through the question store's decrypt paths.
type Question struct {
	ID             int64  `json:"id"`
	TestID         int64  `json:"test_id"`
	QuestionNumber int    `json:"question_number"`
	EncryptedText  []byte `json:"-"`
	// EncryptedOptions holds an encrypted JSON object of label → option text.
	EncryptedOptions       []byte `json:"-"`
	EncryptedCorrectAnswer []byte `json:"-"`
	EncryptedExplanation   []byte `json:"-"`
	Difficulty             string `json:"difficulty"`
	Points                 int    `json:"points"`
}

// DisplayQuestion is the decrypted, student-facing view of a question.
// It never contains the correct answer.
type DisplayQuestion struct {
	ID             int64             `json:"id"`
	QuestionNumber int               `json:"question_number"`
	Text           string            `json:"text"`
	Options        map[string]string `json:"options"`
	Explanation    string            `json:"explanation,omitempty"`
	Points         int               `json:"points"`
	// Unreadable marks a record that failed authenticated decryption and
	// was replaced with a placeholder so one bad row doesn't block the exam.
	Unreadable bool `json:"unreadable,omitempty"`
}

// NewQuestionInput is the plaintext payload for creating a question; the
// question store encrypts it before it touches storage.
type NewQuestionInput struct {
	QuestionNumber int               `json:"question_number" binding:"required,min=1"`
	Text           string            `json:"text" binding:"required,min=1,max=2000"`
	Options        map[string]string `json:"options" binding:"required"`
	CorrectAnswer  string            `json:"correct_answer" binding:"required,oneof=A B C D"`
	Explanation    string            `json:"explanation" binding:"omitempty,max=2000"`
	Difficulty     string            `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Points         int               `json:"points" binding:"omitempty,min=1"`
}
