// Package runclient contains a HTTP client for the CI run API, which serves
// the run history of build workflows and stores the artifacts those runs
// produced.
package runclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
	"github.com/iver-wharf/wharf-core/v2/pkg/problem"
	"github.com/iver-wharf/wharf-release-publish/internal/tarutil"
	"github.com/iver-wharf/wharf-release-publish/internal/urlutil"
	"gopkg.in/guregu/null.v4"
)

var log = logger.NewScoped("RUN-CLIENT")

// Config holds settings for the CI run API client.
type Config struct {
	// APIURL is the base API URL used to reach the CI run API.
	//
	// Added in v0.1.0.
	APIURL string

	// Workflow is the name of the build workflow whose runs are queried when
	// resolving which run to publish artifacts from.
	//
	// Added in v0.1.0.
	Workflow string
}

// Client is a HTTP client that talks to the CI run API.
type Client struct {
	// APIURL is the base API URL used. Example value:
	// 	http://wharf-run-api.default.svc.cluster.local
	APIURL string
}

// Run is a single historical execution of a build workflow.
type Run struct {
	RunID      uint      `json:"runId"`
	HeadCommit string    `json:"headCommit"`
	Status     Status    `json:"status"`
	FinishedOn null.Time `json:"finishedOn"`
}

// Status is the lifecycle state of a run, as reported by the CI run API.
type Status string

const (
	// StatusQueued means the run has not started yet.
	StatusQueued Status = "queued"
	// StatusRunning means the run is still executing.
	StatusRunning Status = "running"
	// StatusCompleted means the run finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the run finished unsuccessfully.
	StatusFailed Status = "failed"
)

// Artifact is a named bundle of files produced and stored by one run.
type Artifact struct {
	ArtifactID uint   `json:"artifactId"`
	Name       string `json:"name"`
}

// ListRuns returns all historical runs of a workflow, in the order the CI run
// API returns them.
func (c Client) ListRuns(workflow string) ([]Run, error) {
	u, err := urlutil.BuildURL(c.APIURL, "api", "workflow", workflow, "run")
	if err != nil {
		return nil, err
	}
	resp, err := doRequest(http.MethodGet, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	dec := json.NewDecoder(resp.Body)
	var runs []Run
	if err := dec.Decode(&runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// ListArtifacts returns all artifact bundles associated with a run.
func (c Client) ListArtifacts(runID uint) ([]Artifact, error) {
	u, err := urlutil.BuildURL(c.APIURL, "api", "run", uitoa(runID), "artifact")
	if err != nil {
		return nil, err
	}
	resp, err := doRequest(http.MethodGet, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	dec := json.NewDecoder(resp.Body)
	var artifacts []Artifact
	if err := dec.Decode(&artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// DownloadArtifacts streams every artifact bundle of a run and extracts them
// all into the same directory. Bundles holding duplicate file names are
// merged, where the bundle extracted last wins. Returns the merged and sorted
// list of extracted file paths.
func (c Client) DownloadArtifacts(runID uint, dir string) ([]string, error) {
	artifacts, err := c.ListArtifacts(runID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts for run %d: %w", runID, err)
	}
	seen := make(map[string]struct{})
	var files []string
	for _, artifact := range artifacts {
		extracted, err := c.downloadArtifact(runID, artifact, dir)
		if err != nil {
			return nil, fmt.Errorf("download artifact %q for run %d: %w",
				artifact.Name, runID, err)
		}
		for _, file := range extracted {
			if _, ok := seen[file]; ok {
				continue
			}
			seen[file] = struct{}{}
			files = append(files, file)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (c Client) downloadArtifact(runID uint, artifact Artifact, dir string) ([]string, error) {
	u, err := urlutil.BuildURL(c.APIURL, "api", "run", uitoa(runID), "artifact", uitoa(artifact.ArtifactID))
	if err != nil {
		return nil, err
	}
	resp, err := doRequest(http.MethodGet, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	extracted, err := tarutil.Extract(dir, resp.Body)
	if err != nil {
		return nil, err
	}
	log.Debug().
		WithString("name", artifact.Name).
		WithInt("files", len(extracted)).
		Message("Extracted artifact bundle.")
	return extracted, nil
}

func doRequest(method string, u *url.URL) (*http.Response, error) {
	urlStr := u.String()
	req, err := http.NewRequest(method, urlStr, nil)
	if err != nil {
		return nil, err
	}
	log.Debug().
		WithString("method", method).
		WithString("url", urlStr).
		Message("")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if err := parseErrorResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func parseErrorResponse(resp *http.Response) error {
	if problem.IsHTTPResponse(resp) {
		prob, err := problem.ParseHTTPResponse(resp)
		if err != nil {
			return err
		}
		return prob
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx status code: %s", resp.Status)
	}
	return nil
}

func uitoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
