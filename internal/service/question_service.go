package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/proctorhub/proctorhub-backend/internal/crypto"
	"github.com/proctorhub/proctorhub-backend/internal/model"
	"github.com/rs/zerolog"
)

const unreadablePlaceholder = "This question could not be loaded. Please continue with the remaining questions."

// QuestionService is the encrypted question store. Question text, options,
// correct answer, and explanation are sealed with AES-256-GCM before they
// reach the database and only opened here, on two paths with different
// failure contracts: display tolerates a corrupt record, grading does not.
type QuestionService struct {
	questionRepo QuestionRepo
	cipher       *crypto.Cipher
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo QuestionRepo, cipher *crypto.Cipher, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		cipher:       cipher,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// Create encrypts a plaintext question and persists it. The correct answer
// must be one of the four labels and must name an option that exists.
func (s *QuestionService) Create(ctx context.Context, testID int64, in *model.NewQuestionInput) (*model.Question, error) {
	for _, label := range model.OptionLabels {
		if _, ok := in.Options[label]; !ok {
			return nil, fmt.Errorf("%w: option %s is missing", ErrInvalidAnswer, label)
		}
	}
	if !model.ValidLabel(in.CorrectAnswer) {
		return nil, ErrInvalidAnswer
	}

	optionsJSON, err := json.Marshal(in.Options)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	q := &model.Question{
		TestID:         testID,
		QuestionNumber: in.QuestionNumber,
		Difficulty:     in.Difficulty,
		Points:         in.Points,
	}
	if q.Difficulty == "" {
		q.Difficulty = "medium"
	}
	if q.Points == 0 {
		q.Points = 1
	}

	if q.EncryptedText, err = s.cipher.EncryptString(in.Text); err != nil {
		return nil, fmt.Errorf("encrypt text: %w", err)
	}
	if q.EncryptedOptions, err = s.cipher.Encrypt(optionsJSON); err != nil {
		return nil, fmt.Errorf("encrypt options: %w", err)
	}
	if q.EncryptedCorrectAnswer, err = s.cipher.EncryptString(in.CorrectAnswer); err != nil {
		return nil, fmt.Errorf("encrypt correct answer: %w", err)
	}
	if in.Explanation != "" {
		if q.EncryptedExplanation, err = s.cipher.EncryptString(in.Explanation); err != nil {
			return nil, fmt.Errorf("encrypt explanation: %w", err)
		}
	}

	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// DecryptForDisplay opens a question for the student-facing view: text,
// options, and explanation. The correct answer stays sealed. A record that
// fails authentication comes back as a placeholder with Unreadable set
// rather than an error, so one corrupt row never blocks an exam in progress.
func (s *QuestionService) DecryptForDisplay(q *model.Question) *model.DisplayQuestion {
	dq := &model.DisplayQuestion{
		ID:             q.ID,
		QuestionNumber: q.QuestionNumber,
		Points:         q.Points,
	}

	text, err := s.cipher.DecryptString(q.EncryptedText)
	if err != nil {
		return s.placeholder(dq, q.ID, err)
	}
	optionsJSON, err := s.cipher.Decrypt(q.EncryptedOptions)
	if err != nil {
		return s.placeholder(dq, q.ID, err)
	}
	options := map[string]string{}
	if err := json.Unmarshal(optionsJSON, &options); err != nil {
		return s.placeholder(dq, q.ID, err)
	}

	dq.Text = text
	dq.Options = options

	if len(q.EncryptedExplanation) > 0 {
		explanation, err := s.cipher.DecryptString(q.EncryptedExplanation)
		if err != nil {
			// The question itself is readable; serve it without the note.
			s.log.Warn().Err(err).Int64("question_id", q.ID).Msg("Explanation unreadable, omitting")
		} else {
			dq.Explanation = explanation
		}
	}
	return dq
}

func (s *QuestionService) placeholder(dq *model.DisplayQuestion, questionID int64, err error) *model.DisplayQuestion {
	s.log.Warn().Err(err).Int64("question_id", questionID).Msg("Question unreadable, serving placeholder")
	dq.Text = unreadablePlaceholder
	dq.Options = map[string]string{}
	dq.Unreadable = true
	return dq
}

// AnswerKey decrypts the correct answers for every question of a test and
// returns them keyed by question id. Unlike display, grading cannot shrug
// off a corrupt record: any failure aborts with ErrDecryptionFailed so a
// result is never computed from a partial key.
func (s *QuestionService) AnswerKey(ctx context.Context, testID int64) (map[int64]string, error) {
	questions, err := s.questionRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	key := make(map[int64]string, len(questions))
	for i := range questions {
		q := &questions[i]
		answer, err := s.cipher.DecryptString(q.EncryptedCorrectAnswer)
		if err != nil {
			s.log.Error().Err(err).Int64("question_id", q.ID).Int64("test_id", testID).
				Msg("Correct answer unreadable, aborting grading")
			return nil, fmt.Errorf("question %d: %w", q.ID, ErrDecryptionFailed)
		}
		key[q.ID] = answer
	}
	return key, nil
}
