package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookSubject(t *testing.T) {
	assert.Equal(t, "Refund request", webhookSubject("  Refund request ", "ignored"))
	assert.Equal(t, "Hello there", webhookSubject("", "  Hello there\nsecond line"))

	long := strings.Repeat("é", maxDerivedSubject+10)
	got := webhookSubject("", long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("é", maxDerivedSubject)+"...", got)
}
