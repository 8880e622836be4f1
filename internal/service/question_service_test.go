package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/proctorhub/proctorhub-backend/internal/model"
	"github.com/stretchr/testify/require"
)

func TestQuestionCreateEncryptsEverything(t *testing.T) {
	f := newEngineFixture(t)

	q, err := f.questionService.Create(context.Background(), testTestID, &model.NewQuestionInput{
		QuestionNumber: 6,
		Text:           "What is the capital of France?",
		Options:        map[string]string{"A": "Paris", "B": "Lyon", "C": "Nice", "D": "Lille"},
		CorrectAnswer:  "A",
		Explanation:    "Paris has been the capital since 987.",
	})
	require.NoError(t, err)
	require.NotZero(t, q.ID)
	require.Equal(t, "medium", q.Difficulty)
	require.Equal(t, 1, q.Points)

	// No plaintext may survive in the at-rest form.
	for _, ct := range [][]byte{q.EncryptedText, q.EncryptedOptions, q.EncryptedCorrectAnswer, q.EncryptedExplanation} {
		require.NotEmpty(t, ct)
		require.False(t, bytes.Contains(ct, []byte("Paris")))
	}
}

func TestQuestionCreateRejectsMissingOption(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.questionService.Create(context.Background(), testTestID, &model.NewQuestionInput{
		QuestionNumber: 6,
		Text:           "Incomplete",
		Options:        map[string]string{"A": "one", "B": "two", "C": "three"},
		CorrectAnswer:  "D",
	})
	require.ErrorIs(t, err, ErrInvalidAnswer)
}

func TestDecryptForDisplayOmitsAnswer(t *testing.T) {
	f := newEngineFixture(t)

	q, err := f.questions.GetByID(context.Background(), f.anyQuestionID())
	require.NoError(t, err)

	dq := f.questionService.DecryptForDisplay(q)
	require.False(t, dq.Unreadable)
	require.Contains(t, dq.Text, "Question text")
	require.Equal(t, map[string]string{"A": "alpha", "B": "beta", "C": "gamma", "D": "delta"}, dq.Options)
	require.Empty(t, dq.Explanation)
}

func TestDecryptForDisplayPlaceholderOnCorruptRecord(t *testing.T) {
	f := newEngineFixture(t)

	q, err := f.questions.GetByID(context.Background(), f.anyQuestionID())
	require.NoError(t, err)
	q.EncryptedText[0] ^= 0xff

	dq := f.questionService.DecryptForDisplay(q)
	require.True(t, dq.Unreadable)
	require.Equal(t, unreadablePlaceholder, dq.Text)
	require.Empty(t, dq.Options)
	require.Equal(t, q.ID, dq.ID)
}

func TestDecryptForDisplayIncludesExplanation(t *testing.T) {
	f := newEngineFixture(t)

	q, err := f.questionService.Create(context.Background(), testTestID, &model.NewQuestionInput{
		QuestionNumber: 6,
		Text:           "Which option comes first?",
		Options:        map[string]string{"A": "alpha", "B": "beta", "C": "gamma", "D": "delta"},
		CorrectAnswer:  "A",
		Explanation:    "Because alpha is first.",
	})
	require.NoError(t, err)

	dq := f.questionService.DecryptForDisplay(q)
	require.False(t, dq.Unreadable)
	require.Equal(t, "Which option comes first?", dq.Text)
	require.Equal(t, "Because alpha is first.", dq.Explanation)
}

func TestDecryptForDisplayOmitsCorruptExplanation(t *testing.T) {
	f := newEngineFixture(t)

	q, err := f.questionService.Create(context.Background(), testTestID, &model.NewQuestionInput{
		QuestionNumber: 6,
		Text:           "Still readable",
		Options:        map[string]string{"A": "one", "B": "two", "C": "three", "D": "four"},
		CorrectAnswer:  "B",
		Explanation:    "This note will be corrupted.",
	})
	require.NoError(t, err)
	q.EncryptedExplanation[0] ^= 0xff

	// Only the explanation is damaged: the question is served without it.
	dq := f.questionService.DecryptForDisplay(q)
	require.False(t, dq.Unreadable)
	require.Equal(t, "Still readable", dq.Text)
	require.Empty(t, dq.Explanation)
}

func TestAnswerKey(t *testing.T) {
	f := newEngineFixture(t)

	key, err := f.questionService.AnswerKey(context.Background(), testTestID)
	require.NoError(t, err)
	require.Len(t, key, 5)
	require.Equal(t, f.correctByID, key)
}

func (f *engineFixture) anyQuestionID() int64 {
	for id := range f.correctByID {
		return id
	}
	return 0
}
