package manual

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTextRejectsNonPDF(t *testing.T) {
	_, err := ExtractText([]byte("this is not a pdf"))
	assert.Error(t, err)
}

func TestExtractTextRejectsEmptyInput(t *testing.T) {
	_, err := ExtractText(nil)
	assert.Error(t, err)
}

func TestExtractTextRejectsTruncatedHeader(t *testing.T) {
	_, err := ExtractText([]byte("%PDF-1.7\n"))
	assert.Error(t, err)
}
