// Package server exposes a read-only browsing interface over a result
// database, standing in for the original Datasette deployment.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/mattn/go-sqlite3"

	"mzmatch/pkg/export"
	"mzmatch/pkg/writer/sqlite"
)

// Server serves a previously generated result database. It opens the
// database read-only per request and never mutates the artifact.
type Server struct {
	Echo   *echo.Echo
	dbPath string
}

// New creates a browsing server over an existing result database.
func New(dbPath string) (*Server, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("result database does not exist: %s", dbPath)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{Echo: e, dbPath: dbPath}
	e.GET("/", s.handleIndex)
	e.GET("/api/results", s.handleResults)
	e.GET("/api/summary", s.handleSummary)
	e.GET("/results.csv", s.handleCSV)

	return s, nil
}

// Start blocks serving on the given port until Shutdown or failure.
func (s *Server) Start(port int) error {
	return s.Echo.Start(fmt.Sprintf(":%d", port))
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

// handleIndex renders a bar chart of total intensity per identified compound,
// mirroring the default plot of the original web front.
func (s *Server) handleIndex(c echo.Context) error {
	rows, err := s.queryTable(sqlite.SummaryTable)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var labels []string
	var values []opts.BarData
	for _, row := range rows.records {
		labels = append(labels, compoundLabel(rows.columns, row))
		values = append(values, opts.BarData{Value: row["total_intensity_ppm"]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Compounds identified by LC-MS",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Compounds identified by LC-MS",
			Subtitle: fmt.Sprintf("%d identified target compounds", len(rows.records)),
		}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("Total intensity (ppm)", values)

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return bar.Render(c.Response())
}

func (s *Server) handleResults(c echo.Context) error {
	rows, err := s.queryTable(sqlite.ResultsTable)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rows.records)
}

func (s *Server) handleSummary(c echo.Context) error {
	rows, err := s.queryTable(sqlite.SummaryTable)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rows.records)
}

func (s *Server) handleCSV(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="match_results.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return export.Table(s.dbPath, sqlite.ResultsTable, c.Response())
}

// compoundLabel picks a human-readable label for a summary row: the
// passthrough compound name when the reference table carries one, the
// expected m/z otherwise.
func compoundLabel(columns []string, row map[string]any) string {
	for _, name := range []string{"compound_compound", "compound_name", "compound_compound_id"} {
		for _, col := range columns {
			if col == name && row[col] != nil {
				return fmt.Sprintf("%v", row[col])
			}
		}
	}
	return fmt.Sprintf("m/z %v", row["compound_mass_to_charge_ratio"])
}

type tableRows struct {
	columns []string
	records []map[string]any
}

// queryTable reads a whole table, opened read-only for the scope of the call.
func (s *Server) queryTable(table string) (*tableRows, error) {
	db, err := sql.Open("sqlite3", "file:"+s.dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open result database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT * FROM " + table)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read table columns: %w", err)
	}

	result := &tableRows{columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		record := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
				continue
			}
			record[col] = values[i]
		}
		result.records = append(result.records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table %s: %w", table, err)
	}
	return result, nil
}
