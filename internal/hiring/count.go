package hiring

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonathan/hr-portal/internal/backend"
	"github.com/jonathan/hr-portal/internal/types"
)

// RowLimit caps each of the two reads; the backend is not paginated here.
const RowLimit = 10000

// Breakdown splits the hire count by how the job was identified.
type Breakdown struct {
	DirectJobID     int `json:"direct_job_id"`
	PayloadFallback int `json:"payload_fallback"`
}

// Scanned records how many rows were examined.
type Scanned struct {
	DirectRows        int `json:"direct_rows"`
	LegacyRows        int `json:"legacy_rows"`
	LegacyMatchingJob int `json:"legacy_matching_job"`
}

// Report is the hire count for one job.
type Report struct {
	JobID          string    `json:"job_id"`
	Hired          int       `json:"hired"`
	HiredBreakdown Breakdown `json:"hired_breakdown"`
	Scanned        Scanned   `json:"scanned"`
}

// Count tallies hires for jobID. direct holds rows read by job_id and legacy
// rows whose job_id is null. Each row lands in at most one bucket: a legacy
// row that nevertheless carries a job_id is ignored. Job ids compare
// case-insensitively, as uuid columns do in the backend filter.
func Count(jobID string, direct, legacy []types.Application) Report {
	jobID = strings.TrimSpace(jobID)
	r := Report{JobID: jobID}

	r.Scanned.DirectRows = len(direct)
	for i := range direct {
		app := &direct[i]
		if app.JobID == nil || !strings.EqualFold(app.JobID.String(), jobID) {
			continue
		}
		if app.IsHired() {
			r.HiredBreakdown.DirectJobID++
		}
	}

	r.Scanned.LegacyRows = len(legacy)
	for i := range legacy {
		app := &legacy[i]
		if app.JobID != nil {
			continue
		}
		if !strings.EqualFold(ExtractJobID(app.Payload), jobID) {
			continue
		}
		r.Scanned.LegacyMatchingJob++
		if app.IsHired() {
			r.HiredBreakdown.PayloadFallback++
		}
	}

	r.Hired = r.HiredBreakdown.DirectJobID + r.HiredBreakdown.PayloadFallback
	return r
}

// Fetcher reads typed application rows.
type Fetcher interface {
	FetchApplications(ctx context.Context, query url.Values) ([]types.Application, error)
}

// ClientFetcher reads applications through a backend client.
type ClientFetcher struct {
	Client *backend.Client
}

// FetchApplications implements Fetcher.
func (f ClientFetcher) FetchApplications(ctx context.Context, query url.Values) ([]types.Application, error) {
	return backend.Fetch[types.Application](ctx, f.Client, "applications", query)
}

// Load issues the direct and legacy reads for jobID and counts the result.
func Load(ctx context.Context, fetcher Fetcher, jobID string) (Report, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return Report{}, fmt.Errorf("job id is required")
	}

	const columns = "id,status,job_id,payload"
	limit := strconv.Itoa(RowLimit)

	direct, err := fetcher.FetchApplications(ctx, url.Values{
		"select": {columns},
		"job_id": {backend.Eq(jobID)},
		"limit":  {limit},
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to load applications for job %s: %w", jobID, err)
	}

	legacy, err := fetcher.FetchApplications(ctx, url.Values{
		"select": {columns},
		"job_id": {backend.IsNull},
		"limit":  {limit},
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to load legacy applications: %w", err)
	}

	return Count(jobID, direct, legacy), nil
}
