package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery_TrimsWhitespace(t *testing.T) {
	assert.Equal(t, "what is pgvector", NormalizeQuery("  what is pgvector \n"))
}

func TestNormalizeQuery_StripsTags(t *testing.T) {
	assert.Equal(t, "hello world", NormalizeQuery("<b>hello</b> world"))
	assert.Equal(t, "alert(1)", NormalizeQuery("<script>alert(1)</script>"))
}

func TestNormalizeQuery_PlainTextUnchanged(t *testing.T) {
	assert.Equal(t, "2 > 1 is true", NormalizeQuery("2 > 1 is true"))
}

func TestValidateQuery_Empty(t *testing.T) {
	assert.Equal(t, ErrEmptyQuery, ValidateQuery(""))
	assert.Equal(t, ErrEmptyQuery, ValidateQuery("   "))
	assert.Equal(t, ErrEmptyQuery, ValidateQuery("<br>"))
}

func TestValidateQuery_Valid(t *testing.T) {
	assert.NoError(t, ValidateQuery("how do I configure the widget?"))
}

func TestRetrievalMatch_MetadataAccessors(t *testing.T) {
	m := RetrievalMatch{
		Score: 0.92,
		Metadata: map[string]string{
			"title": "Billing FAQ",
			"text":  "Invoices are sent monthly.",
			"url":   "https://kb.example.com/billing",
		},
	}

	assert.Equal(t, "Billing FAQ", m.Title())
	assert.Equal(t, "Invoices are sent monthly.", m.Text())
	assert.Equal(t, "https://kb.example.com/billing", m.URL())
}

func TestRetrievalMatch_MissingMetadata(t *testing.T) {
	m := RetrievalMatch{Score: 0.7}

	assert.Equal(t, "", m.Title())
	assert.Equal(t, "", m.Text())
	assert.Equal(t, "", m.URL())
}
