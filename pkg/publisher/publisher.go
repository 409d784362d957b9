// Package publisher implements the pipeline that takes build artifacts from
// a prior completed run and attaches them as assets on a published release.
//
// The pipeline is three sequential stages: resolve which run to publish from,
// fetch that run's artifacts to a local directory, then upload each file to
// the release. A missing run is a normal terminal outcome and not an error,
// and a failed upload of one asset never stops the upload of the others.
package publisher

import (
	"fmt"
	"path/filepath"

	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
	"github.com/iver-wharf/wharf-release-publish/internal/errutil"
	"github.com/iver-wharf/wharf-release-publish/pkg/runclient"
)

var log = logger.NewScoped("PUBLISHER")

// RunClient is the subset of the CI run API used by the publisher.
type RunClient interface {
	ListRuns(workflow string) ([]runclient.Run, error)
	DownloadArtifacts(runID uint, dir string) ([]string, error)
}

// ReleaseClient is the subset of the release API used by the publisher.
type ReleaseClient interface {
	UploadAsset(tag, path string) error
}

// Trigger is the input of one publish invocation.
type Trigger struct {
	// Tag identifies the published release to attach assets to.
	Tag string
	// RunID is set on manual triggers and names the run to publish artifacts
	// from directly. Zero means the trigger came from a release event, and
	// the run is resolved via Commit instead.
	RunID uint
	// Commit is the commit hash of the triggering release event.
	Commit string
}

// ResolvedTarget is the run and release tag one invocation publishes.
// It is created once per invocation and never changed after that.
type ResolvedTarget struct {
	RunID uint
	Tag   string
}

// Result is the per-asset outcome of the upload stage.
type Result struct {
	// Uploaded are paths of assets that were attached to the release.
	Uploaded []string
	// Failed holds one error per asset that could not be uploaded.
	Failed errutil.Slice
}

// Options for creating a Publisher.
type Options struct {
	// Workflow is the name of the build workflow whose runs are searched
	// when resolving a release-event trigger.
	Workflow string
	// Dir is the local working directory artifacts are downloaded into.
	Dir string
}

// Publisher runs the resolve, fetch, publish pipeline.
type Publisher struct {
	runs     RunClient
	releases ReleaseClient
	workflow string
	dir      string
}

// New creates a Publisher from the two API clients it orchestrates.
func New(runs RunClient, releases ReleaseClient, options Options) Publisher {
	return Publisher{
		runs:     runs,
		releases: releases,
		workflow: options.Workflow,
		dir:      options.Dir,
	}
}

// Publish runs the full pipeline for a trigger. The boolean is false when no
// completed run matched the trigger, in which case nothing was fetched nor
// uploaded. The error is only non-nil on resolve or fetch failures; per-asset
// upload failures are reported in the Result instead.
func (p Publisher) Publish(trigger Trigger) (Result, bool, error) {
	target, ok, err := p.ResolveTarget(trigger)
	if err != nil {
		return Result{}, false, err
	}
	if !ok {
		return Result{}, false, nil
	}
	files, err := p.FetchArtifacts(target.RunID)
	if err != nil {
		return Result{}, false, err
	}
	return p.PublishAssets(target.Tag, files), true, nil
}

// ResolveTarget turns a trigger into the run to publish from. Manual triggers
// pass through unchanged. Release-event triggers search the workflow's run
// history for the first completed run whose head commit matches the trigger.
// The boolean is false when no run matched, which is a normal outcome.
func (p Publisher) ResolveTarget(trigger Trigger) (ResolvedTarget, bool, error) {
	if trigger.RunID != 0 {
		return ResolvedTarget{RunID: trigger.RunID, Tag: trigger.Tag}, true, nil
	}
	runs, err := p.runs.ListRuns(p.workflow)
	if err != nil {
		return ResolvedTarget{}, false, fmt.Errorf("list runs for workflow %q: %w", p.workflow, err)
	}
	for _, run := range runs {
		reason := reasonToSkipRun(run, trigger.Commit)
		if reason != "" {
			log.Debug().
				WithString("reason", reason).
				WithUint("runId", run.RunID).
				Message("Skip run.")
			continue
		}
		log.Info().
			WithUint("runId", run.RunID).
			WithString("commit", trigger.Commit).
			Message("Resolved run for commit.")
		return ResolvedTarget{RunID: run.RunID, Tag: trigger.Tag}, true, nil
	}
	log.Info().
		WithString("commit", trigger.Commit).
		WithString("workflow", p.workflow).
		Message("Found no completed run for commit.")
	return ResolvedTarget{}, false, nil
}

func reasonToSkipRun(run runclient.Run, commit string) string {
	if run.HeadCommit != commit {
		return "run.headCommit does not match"
	}
	if run.Status != runclient.StatusCompleted {
		return "run.status is not completed"
	}
	return ""
}

// FetchArtifacts downloads all artifact bundles of a run into the working
// directory. Any download failure is fatal to the invocation, as the upload
// stage depends on a complete download.
func (p Publisher) FetchArtifacts(runID uint) ([]string, error) {
	files, err := p.runs.DownloadArtifacts(runID, p.dir)
	if err != nil {
		return nil, fmt.Errorf("download artifacts for run %d: %w", runID, err)
	}
	log.Info().
		WithUint("runId", runID).
		WithInt("files", len(files)).
		Message("Downloaded artifacts.")
	return files, nil
}

// PublishAssets attempts to upload every file to the release, independently.
// A failed upload is logged and skipped, never stopping the remaining
// uploads, so every file gets exactly one upload attempt. Uploads overwrite
// existing assets of the same name, making re-publishing idempotent.
func (p Publisher) PublishAssets(tag string, files []string) Result {
	var res Result
	for _, file := range files {
		name := filepath.Base(file)
		if err := p.releases.UploadAsset(tag, file); err != nil {
			log.Warn().
				WithError(err).
				WithString("asset", name).
				Message("Failed uploading asset. Skipping.")
			res.Failed.Add(fmt.Errorf("upload asset %q: %w", name, err))
			continue
		}
		log.Info().
			WithString("asset", name).
			WithString("tag", tag).
			Message("Uploaded asset.")
		res.Uploaded = append(res.Uploaded, file)
	}
	return res
}
