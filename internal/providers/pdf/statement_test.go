package pdf

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStatement(t *testing.T) {
	provider := New()

	reader, err := provider.GenerateStatement(context.Background(), StatementData{
		PayoutID:      "1234",
		IssueDate:     "2026-01-10",
		Status:        "PAID",
		Method:        "PIX",
		AffiliateName: "Ana Souza",
		AffiliateCode: "ANASOUZA",
		Amount:        "100.00",
		Approved:      "250.00",
		Reserved:      "0.00",
		Paid:          "100.00",
		Available:     "150.00",
		Lines: []StatementLine{
			{Label: "ORDER-1", Date: "2026-01-02", Value: "150.00"},
		},
	})
	require.NoError(t, err)

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.True(t, len(content) > 4)
	assert.Equal(t, "%PDF", string(content[:4]))
}

func TestGenerateStatementRequiresPayout(t *testing.T) {
	_, err := New().GenerateStatement(context.Background(), StatementData{})
	assert.ErrorIs(t, err, ErrEmptyStatement)
}
