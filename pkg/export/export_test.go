package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRendererRendersOrderedRows(t *testing.T) {
	recap := Recap{
		Headers: []string{"ID", "Nama", "Status"},
		Rows: [][]string{
			{"p1", "Ahmad", "aktif"},
			{"p2", "Siti", "nonaktif"},
		},
	}

	out, err := NewCSVRenderer().Render(recap)
	require.NoError(t, err)

	expected := "ID,Nama,Status\np1,Ahmad,aktif\np2,Siti,nonaktif\n"
	assert.Equal(t, expected, string(out))
}

func TestCSVRendererPadsShortRows(t *testing.T) {
	recap := Recap{
		Headers: []string{"ID", "Nama", "Status"},
		Rows:    [][]string{{"p1"}},
	}

	out, err := NewCSVRenderer().Render(recap)
	require.NoError(t, err)
	assert.Equal(t, "ID,Nama,Status\np1,,\n", string(out))
}

func TestCSVRendererRequiresHeaders(t *testing.T) {
	_, err := NewCSVRenderer().Render(Recap{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one header")
}

func TestPDFRendererProducesDocument(t *testing.T) {
	recap := Recap{
		Title:   "Rekap Peserta",
		Headers: []string{"ID", "Nama", "Status"},
		Rows:    [][]string{{"p1", "Ahmad", "aktif"}},
	}

	out, err := NewPDFRenderer().Render(recap, time.Date(2025, 10, 26, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFRendererRequiresHeaders(t *testing.T) {
	_, err := NewPDFRenderer().Render(Recap{Title: "Rekap"}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one header")
}
