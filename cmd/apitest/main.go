package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// =============================================================================
// Response Types - Match the actual API response structure
// =============================================================================

type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type LunarDate struct {
	Year  int  `json:"year"`
	Month int  `json:"month"`
	Day   int  `json:"day"`
	Leap  bool `json:"is_leap_month"`
}

type CanChi struct {
	Can string `json:"can"`
	Chi string `json:"chi"`
}

// LunarDateResponse is the response for /lunar/date/{date} and /lunar/today
type LunarDateResponse struct {
	Solar      string    `json:"solar"`
	Lunar      LunarDate `json:"lunar"`
	Display    string    `json:"display"`
	YearCanChi CanChi    `json:"year_can_chi"`
}

// RangeResponse is the response for /lunar/range
type RangeResponse struct {
	Days []LunarDateResponse `json:"days"`
}

// SolarDateResponse is the response for /solar
type SolarDateResponse struct {
	Solar string `json:"solar"`
}

// YearMonthsResponse is the response for /years/{year}/months
type YearMonthsResponse struct {
	LeapMonth int `json:"leap_month"`
	Months    []struct {
		Start string `json:"start"`
		Month int    `json:"month"`
		Leap  bool   `json:"is_leap_month"`
	} `json:"months"`
}

// HealthResponse is the response for /health
type HealthResponse struct {
	Status string `json:"status"`
}

// =============================================================================
// Test Runner
// =============================================================================

type TestRunner struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	verbose     bool
	concurrency int

	mu           sync.Mutex
	successCount int
	errorCount   int
	errors       []string
}

func NewTestRunner(baseURL, apiKey string, verbose bool, concurrency int) *TestRunner {
	return &TestRunner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		verbose:     verbose,
		concurrency: concurrency,
	}
}

func (tr *TestRunner) Run(ctx context.Context) {
	fmt.Println("==============================================")
	fmt.Println("Lunar Calendar API Test Suite")
	fmt.Println("==============================================")
	fmt.Printf("Base URL: %s\n", tr.baseURL)
	fmt.Println()

	tr.testHealth(ctx)
	tr.testKnownDates(ctx)
	tr.testLunarToSolar(ctx)
	tr.testDateRange(ctx)
	tr.testLeapMonths(ctx)
	tr.testEdgeCases(ctx)
	tr.testTetSweep(ctx)
	if tr.apiKey != "" {
		tr.testEvents(ctx)
	}

	tr.printSummary()
}

// =============================================================================
// Test Groups
// =============================================================================

func (tr *TestRunner) testHealth(ctx context.Context) {
	tr.printSection("Health Check")

	var health HealthResponse
	if err := tr.getData(ctx, "/health", &health); err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	if health.Status == "healthy" {
		tr.recordSuccess("Health check passed")
	} else {
		tr.recordError("Health", fmt.Sprintf("Unexpected status: %s", health.Status))
	}
}

func (tr *TestRunner) testKnownDates(ctx context.Context) {
	tr.printSection("Solar to Lunar")

	testCases := []struct {
		date        string
		display     string
		description string
	}{
		{"2024-02-10", "1/1/2024", "Tết Giáp Thìn"},
		{"2025-01-29", "1/1/2025", "Tết Ất Tỵ"},
		{"2024-09-17", "15/8/2024", "Tết Trung Thu 2024"},
		{"2023-03-22", "1/N2/2023", "First day of leap month 2, 2023"},
		{"2025-07-25", "1/N6/2025", "First day of leap month 6, 2025"},
		{"2025-01-28", "29/12/2024", "Lunar new year's eve 2025"},
	}

	for _, tc := range testCases {
		var data LunarDateResponse
		if err := tr.getData(ctx, "/api/v1/lunar/date/"+tc.date, &data); err != nil {
			tr.recordError(tc.date, err.Error())
			continue
		}

		if data.Display == tc.display {
			tr.recordSuccess(fmt.Sprintf("%s: %s (%s)", tc.date, data.Display, tc.description))
		} else {
			tr.recordError(tc.date, fmt.Sprintf("Expected '%s', got '%s'", tc.display, data.Display))
		}
		if tr.verbose {
			fmt.Printf("    Year: %s %s\n", data.YearCanChi.Can, data.YearCanChi.Chi)
		}
	}
}

func (tr *TestRunner) testLunarToSolar(ctx context.Context) {
	tr.printSection("Lunar to Solar")

	testCases := []struct {
		query string
		want  string
	}{
		{"year=2024&month=1&day=1", "2024-02-10"},
		{"year=2023&month=2&day=1&leap=true", "2023-03-22"},
		{"year=2024&month=8&day=15", "2024-09-17"},
	}
	for _, tc := range testCases {
		var data SolarDateResponse
		if err := tr.getData(ctx, "/api/v1/solar?"+tc.query, &data); err != nil {
			tr.recordError(tc.query, err.Error())
			continue
		}
		if data.Solar == tc.want {
			tr.recordSuccess(fmt.Sprintf("%s → %s", tc.query, data.Solar))
		} else {
			tr.recordError(tc.query, fmt.Sprintf("Expected %s, got %s", tc.want, data.Solar))
		}
	}

	tr.expectStatus(ctx, "/api/v1/solar?year=2024&month=2&day=1&leap=true", http.StatusBadRequest,
		"Missing leap month rejected")
}

func (tr *TestRunner) testDateRange(ctx context.Context) {
	tr.printSection("Date Range Tests")

	var rangeData RangeResponse
	if err := tr.getData(ctx, "/api/v1/lunar/range?start=2025-01-26&end=2025-02-01", &rangeData); err != nil {
		tr.recordError("Range (week)", err.Error())
		return
	}
	if len(rangeData.Days) == 7 {
		tr.recordSuccess(fmt.Sprintf("Week range returned %d days", len(rangeData.Days)))
	} else {
		tr.recordError("Range (week)", fmt.Sprintf("Expected 7 days, got %d", len(rangeData.Days)))
	}

	tr.expectStatus(ctx, "/api/v1/lunar/range?start=2020-01-01&end=2025-12-31", http.StatusBadRequest,
		"Range limit enforced")
	tr.expectStatus(ctx, "/api/v1/lunar/range?start=2025-12-31&end=2025-01-01", http.StatusBadRequest,
		"Invalid range rejected (end before start)")
}

func (tr *TestRunner) testLeapMonths(ctx context.Context) {
	tr.printSection("Leap Months")

	testCases := []struct {
		year int
		leap int
	}{
		{2020, 4},
		{2023, 2},
		{2024, 0},
		{2025, 6},
	}
	for _, tc := range testCases {
		var data YearMonthsResponse
		path := fmt.Sprintf("/api/v1/years/%d/months", tc.year)
		if err := tr.getData(ctx, path, &data); err != nil {
			tr.recordError(path, err.Error())
			continue
		}
		want := 12
		if tc.leap != 0 {
			want = 13
		}
		if data.LeapMonth == tc.leap && len(data.Months) == want {
			tr.recordSuccess(fmt.Sprintf("%d: %d months, leap month %d", tc.year, len(data.Months), data.LeapMonth))
		} else {
			tr.recordError(path, fmt.Sprintf("Expected leap %d and %d months, got %d and %d",
				tc.leap, want, data.LeapMonth, len(data.Months)))
		}
		if tr.verbose {
			for _, m := range data.Months {
				fmt.Printf("    %s month %d leap=%v\n", m.Start, m.Month, m.Leap)
			}
		}
	}
}

func (tr *TestRunner) testEdgeCases(ctx context.Context) {
	tr.printSection("Edge Cases")

	tr.expectStatus(ctx, "/api/v1/lunar/date/invalid", http.StatusBadRequest, "Invalid date format rejected")
	tr.expectStatus(ctx, "/api/v1/lunar/date/2025-02-30", http.StatusBadRequest, "Impossible date rejected")
	tr.expectStatus(ctx, "/api/v1/lunar/range?start=2025-01-01", http.StatusBadRequest, "Missing end parameter rejected")
	tr.expectStatus(ctx, "/api/v1/canchi/2025-01-01?hour=25", http.StatusBadRequest, "Out of range hour rejected")

	var data LunarDateResponse
	if err := tr.getData(ctx, "/api/v1/lunar/date/2024-02-29", &data); err != nil {
		tr.recordError("Leap year", err.Error())
	} else {
		tr.recordSuccess(fmt.Sprintf("Leap year date (2024-02-29) is %s", data.Display))
	}
}

// testTetSweep fetches the first day of every lunar year from 1900 to 2100
// in parallel and checks that each falls between January 21 and February 20.
func (tr *TestRunner) testTetSweep(ctx context.Context) {
	tr.printSection("Tết 1900-2100")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tr.concurrency)
	for year := 1900; year <= 2100; year++ {
		g.Go(func() error {
			var data SolarDateResponse
			path := fmt.Sprintf("/api/v1/solar?year=%d&month=1&day=1", year)
			if err := tr.getData(gctx, path, &data); err != nil {
				tr.recordError(path, err.Error())
				return nil
			}
			if len(data.Solar) != len("2006-01-02") {
				tr.recordError(path, fmt.Sprintf("Malformed date %q", data.Solar))
				return nil
			}
			if md := data.Solar[5:]; md < "01-21" || md > "02-20" {
				tr.recordError(path, fmt.Sprintf("Tết on %s is outside Jan 21 - Feb 20", data.Solar))
			}
			return nil
		})
	}
	_ = g.Wait()

	tr.mu.Lock()
	failed := tr.errorCount
	tr.mu.Unlock()
	tr.recordSuccess(fmt.Sprintf("Swept 201 years (%d failures so far)", failed))
}

func (tr *TestRunner) testEvents(ctx context.Context) {
	tr.printSection("Events")

	body := `{"name":"apitest giỗ","rule":{"frequency":"yearly","day":10,"month":3},"master_date":"2020-05-02"}`
	resp, err := tr.do(ctx, http.MethodPost, "/api/v1/events", strings.NewReader(body))
	if err != nil {
		tr.recordError("Create event", err.Error())
		return
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		tr.recordError("Create event", err.Error())
		return
	}
	tr.recordSuccess(fmt.Sprintf("Created event %d", created.ID))

	path := fmt.Sprintf("/api/v1/events/%d", created.ID)
	occ, err := tr.do(ctx, http.MethodGet, path+"/occurrences?start=2024-01-01&end=2024-12-31", nil)
	if err != nil {
		tr.recordError("Occurrences", err.Error())
	} else {
		var data struct {
			Occurrences []struct {
				Date string `json:"date"`
			} `json:"occurrences"`
		}
		_ = json.Unmarshal(occ.Data, &data)
		if len(data.Occurrences) == 1 && data.Occurrences[0].Date == "2024-04-18" {
			tr.recordSuccess("10/3 in 2024 falls on 2024-04-18")
		} else {
			tr.recordError("Occurrences", fmt.Sprintf("Expected [2024-04-18], got %+v", data.Occurrences))
		}
	}

	if _, err := tr.do(ctx, http.MethodDelete, path, nil); err != nil {
		tr.recordError("Delete event", err.Error())
	} else {
		tr.recordSuccess("Deleted event")
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

func (tr *TestRunner) getData(ctx context.Context, path string, target any) error {
	resp, err := tr.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(resp.Data, target)
}

func (tr *TestRunner) do(ctx context.Context, method, path string, body io.Reader) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, tr.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if tr.apiKey != "" {
		req.Header.Set("X-API-Key", tr.apiKey)
	}

	resp, err := tr.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return &APIResponse{Success: true}, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	if !apiResp.Success {
		errMsg := "unknown error"
		if apiResp.Error != nil {
			errMsg = apiResp.Error.Message
		}
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, errMsg)
	}

	return &apiResp, nil
}

func (tr *TestRunner) expectStatus(ctx context.Context, path string, status int, msg string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tr.baseURL+path, nil)
	if err != nil {
		tr.recordError(path, err.Error())
		return
	}
	resp, err := tr.client.Do(req)
	if err != nil {
		tr.recordError(path, err.Error())
		return
	}
	resp.Body.Close()

	if resp.StatusCode == status {
		tr.recordSuccess(msg)
	} else {
		tr.recordError(path, fmt.Sprintf("Expected status %d, got %d", status, resp.StatusCode))
	}
}

func (tr *TestRunner) printSection(name string) {
	fmt.Println()
	fmt.Printf("--- %s ---\n", name)
	fmt.Println()
}

func (tr *TestRunner) recordSuccess(msg string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.successCount++
	fmt.Printf("  ✓ %s\n", msg)
}

func (tr *TestRunner) recordError(label, msg string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.errorCount++
	errStr := fmt.Sprintf("%s: %s", label, msg)
	tr.errors = append(tr.errors, errStr)
	fmt.Printf("  ✗ %s\n", errStr)
}

func (tr *TestRunner) printSummary() {
	fmt.Println()
	fmt.Println("==============================================")
	fmt.Println("Summary")
	fmt.Println("==============================================")
	fmt.Printf("  Passed: %d\n", tr.successCount)
	fmt.Printf("  Failed: %d\n", tr.errorCount)
	fmt.Println()

	if tr.errorCount > 0 {
		fmt.Println("Failures:")
		for _, err := range tr.errors {
			fmt.Printf("  • %s\n", err)
		}
		fmt.Println()
	}

	if tr.errorCount == 0 {
		fmt.Println("All tests passed! ✓")
	} else {
		fmt.Printf("Tests completed with %d failure(s)\n", tr.errorCount)
	}
}

// =============================================================================
// Main
// =============================================================================

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the API")
	apiKey := flag.String("key", os.Getenv("API_KEY"), "API key for the events endpoints; events are skipped when empty")
	verbose := flag.Bool("v", false, "Verbose output")
	concurrency := flag.Int("c", 8, "Parallel requests for the Tết sweep")
	flag.Parse()

	// Check if server is reachable
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(*baseURL + "/health")
	if err != nil {
		fmt.Printf("Error: Cannot connect to %s\n", *baseURL)
		fmt.Println("Make sure the API server is running.")
		os.Exit(1)
	}
	resp.Body.Close()

	runner := NewTestRunner(*baseURL, *apiKey, *verbose, *concurrency)
	runner.Run(context.Background())

	if runner.errorCount > 0 {
		os.Exit(1)
	}
}
