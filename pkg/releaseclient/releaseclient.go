// Package releaseclient contains a HTTP client for the release API, which
// stores published releases and their attached assets.
package releaseclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
	"github.com/iver-wharf/wharf-core/v2/pkg/problem"
	"github.com/iver-wharf/wharf-release-publish/internal/urlutil"
	"gopkg.in/guregu/null.v4"
)

var log = logger.NewScoped("RELEASE-CLIENT")

// Config holds settings for the release API client.
type Config struct {
	// APIURL is the base API URL used to reach the release API.
	//
	// Added in v0.1.0.
	APIURL string
}

// Client is a HTTP client that talks to the release API.
type Client struct {
	// APIURL is the base API URL used. Example value:
	// 	http://wharf-release-api.default.svc.cluster.local
	APIURL string
}

// Release is a published release record.
type Release struct {
	ReleaseID   uint      `json:"releaseId"`
	TagName     string    `json:"tagName"`
	Name        string    `json:"name"`
	PublishedOn null.Time `json:"publishedOn"`
}

// GetRelease returns the published release identified by a tag.
func (c Client) GetRelease(tag string) (Release, error) {
	u, err := urlutil.BuildURL(c.APIURL, "api", "release", tag)
	if err != nil {
		return Release{}, err
	}
	resp, err := doRequest(http.MethodGet, u, nil)
	if err != nil {
		return Release{}, err
	}
	defer resp.Body.Close()
	dec := json.NewDecoder(resp.Body)
	var release Release
	if err := dec.Decode(&release); err != nil {
		return Release{}, err
	}
	return release, nil
}

// UploadAsset attaches a local file to the release identified by a tag,
// under the file's base name. Uploading replaces any existing asset with the
// same name instead of erroring or duplicating.
func (c Client) UploadAsset(tag, path string) error {
	name := filepath.Base(path)
	u, err := urlutil.BuildURL(c.APIURL, "api", "release", tag, "asset", name)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	resp, err := doRequest(http.MethodPut, u, file)
	if err != nil {
		return err
	}
	log.Debug().
		WithString("tag", tag).
		WithString("asset", name).
		Message("Uploaded release asset.")
	return resp.Body.Close()
}

func doRequest(method string, u *url.URL, body io.Reader) (*http.Response, error) {
	urlStr := u.String()
	req, err := http.NewRequest(method, urlStr, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
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
