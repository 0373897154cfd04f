package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Roster: Go Basics",
		Headers: []string{"Name", "Progress"},
		Rows: []map[string]string{
			{"Name": "Ada", "Progress": "33%"},
			{"Name": "Linus"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestCSVExporterRender(t *testing.T) {
	out, err := For(FormatCSV).Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Name,Progress\nAda,33%\nLinus,\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	r := For(FormatPDF)
	assert.Equal(t, "application/pdf", r.ContentType())
	out, err := r.Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}
