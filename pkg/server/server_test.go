package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mzmatch/pkg/core"
	"mzmatch/pkg/writer/sqlite"
)

func fp(v float64) *float64 { return &v }

func makeResultDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.db")

	compounds := []core.CompoundTarget{
		{
			MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.1), Row: 1,
			Attrs: core.Attributes{
				{Name: "compound", Value: "caffeine"},
				{Name: "mass_to_charge_ratio", Value: 100.0},
				{Name: "retention_time", Value: 5.0},
				{Name: "retention_time_tolerance", Value: 0.1},
			},
		},
	}
	peaks := []core.Peak{{MZ: 100.0, RT: 5.0, Intensity: 1000, Row: 1}}
	tol := core.Tolerance{Mass: 0.002, Unit: core.ToleranceDa, RTWindow: 0.5}
	results := core.Match(compounds, peaks, tol)

	w, err := sqlite.NewWriter(path, compounds)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.WriteResults(results))
	require.NoError(t, w.WriteSummaries(core.Summarize(results, peaks)))
	require.NoError(t, w.Finalize())
	return path
}

func request(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestNewMissingDatabase(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
}

func TestIndexRendersChart(t *testing.T) {
	s, err := New(makeResultDB(t))
	require.NoError(t, err)

	rec := request(t, s, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Compounds identified by LC-MS")
	assert.Contains(t, rec.Body.String(), "caffeine")
}

func TestResultsJSON(t *testing.T) {
	s, err := New(makeResultDB(t))
	require.NoError(t, err)

	rec := request(t, s, "/api/results")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "caffeine", rows[0]["compound_compound"])
	assert.Equal(t, float64(1), rows[0]["matched"])
}

func TestSummaryJSON(t *testing.T) {
	s, err := New(makeResultDB(t))
	require.NoError(t, err)

	rec := request(t, s, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, float64(1), rows[0]["peak_count"])
}

func TestCSVDownload(t *testing.T) {
	s, err := New(makeResultDB(t))
	require.NoError(t, err)

	rec := request(t, s, "/results.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "compound_compound,"))
}
