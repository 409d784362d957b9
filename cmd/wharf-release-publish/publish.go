package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/iver-wharf/wharf-release-publish/internal/lastpublish"
	"github.com/iver-wharf/wharf-release-publish/pkg/publisher"
	"github.com/iver-wharf/wharf-release-publish/pkg/releaseclient"
	"github.com/iver-wharf/wharf-release-publish/pkg/runclient"
	"github.com/spf13/cobra"
	"gopkg.in/typ.v4/slices"
)

var (
	colorAssetUploaded = color.New(color.FgGreen)
	colorAssetFailed   = color.New(color.FgRed)
	colorSummaryNote   = color.New(color.FgHiBlack, color.Italic)
)

var publishFlags = struct {
	tag    string
	runID  uint
	commit string
}{}

var publishCmd = &cobra.Command{
	Use:   "publish [dir]",
	Short: "Publishes artifacts from a completed run to a release",
	Long: `Publishes the artifacts a completed run of the build workflow
produced as assets on an already published release.

The run to publish from is either named directly via --run-id, or resolved
via --commit by searching the workflow's run history for the first completed
run whose head commit matches. If no such run exists then nothing is
published and the command still succeeds.

Every artifact file is uploaded independently. Uploads overwrite existing
assets of the same name, so re-running the same publish is safe. A failed
upload of one file is logged and skipped without failing the command.

Use the optional "dir" argument to pick the directory artifacts are
downloaded into. Defaults to a fresh temporary directory that is removed
when the command finishes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if publishFlags.runID == 0 && publishFlags.commit == "" {
			return errors.New("one of --run-id or --commit must be set")
		}
		if publishFlags.runID != 0 && publishFlags.commit != "" {
			return errors.New("--run-id and --commit are mutually exclusive")
		}
		dir, removeDir, err := prepareArtifactDir(slices.SafeGet(args, 0))
		if err != nil {
			return err
		}
		defer removeDir()

		runs := runclient.Client{APIURL: rootConfig.Runs.APIURL}
		releases := releaseclient.Client{APIURL: rootConfig.Release.APIURL}
		logReleaseLookup(releases, publishFlags.tag)

		pub := publisher.New(runs, releases, publisher.Options{
			Workflow: rootConfig.Runs.Workflow,
			Dir:      dir,
		})
		target, ok, err := pub.ResolveTarget(publisher.Trigger{
			Tag:    publishFlags.tag,
			RunID:  publishFlags.runID,
			Commit: publishFlags.commit,
		})
		if err != nil {
			return err
		}
		if !ok {
			log.Info().Message("No completed run found for commit. Nothing to publish.")
			return nil
		}
		files, err := pub.FetchArtifacts(target.RunID)
		if err != nil {
			return err
		}
		res := pub.PublishAssets(target.Tag, files)
		printSummary(target, res)
		if len(res.Uploaded) > 0 {
			saveLastPublish(target, res)
		}
		return nil
	},
}

func prepareArtifactDir(dirArg string) (string, func(), error) {
	if dirArg != "" {
		abs, err := filepath.Abs(dirArg)
		if err != nil {
			return "", nil, err
		}
		if err := os.MkdirAll(abs, 0775); err != nil {
			return "", nil, fmt.Errorf("create artifact dir: %w", err)
		}
		return abs, func() {}, nil
	}
	tmp, err := os.MkdirTemp("", "wharf-release-publish-")
	if err != nil {
		return "", nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return tmp, func() { os.RemoveAll(tmp) }, nil
}

func logReleaseLookup(releases releaseclient.Client, tag string) {
	release, err := releases.GetRelease(tag)
	if err != nil {
		log.Warn().
			WithError(err).
			WithString("tag", tag).
			Message("Failed to look up release. Uploads may fail.")
		return
	}
	log.Info().
		WithString("release", release.Name).
		WithString("tag", release.TagName).
		Message("Publishing to release.")
}

func printSummary(target publisher.ResolvedTarget, res publisher.Result) {
	fmt.Println()
	fmt.Printf("Assets from run #%d on release %s:\n", target.RunID, target.Tag)
	for _, file := range res.Uploaded {
		colorAssetUploaded.Printf("  uploaded  %s\n", filepath.Base(file))
	}
	for _, err := range res.Failed {
		colorAssetFailed.Printf("  failed    %s\n", err)
	}
	if len(res.Uploaded) == 0 && len(res.Failed) == 0 {
		colorSummaryNote.Println("  (the run has no artifact files)")
	}
	fmt.Println()
}

func saveLastPublish(target publisher.ResolvedTarget, res publisher.Result) {
	rec := lastpublish.Record{
		Tag:   target.Tag,
		RunID: target.RunID,
	}
	for _, file := range res.Uploaded {
		rec.Assets = append(rec.Assets, filepath.Base(file))
	}
	if err := lastpublish.Save(rec); err != nil {
		log.Warn().WithError(err).Message("Failed to record publish for the 'last' command.")
	}
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVarP(&publishFlags.tag, "tag", "t", "", "Tag of the published release to attach assets to (required)")
	publishCmd.Flags().UintVar(&publishFlags.runID, "run-id", 0, "ID of the run to publish artifacts from")
	publishCmd.Flags().StringVarP(&publishFlags.commit, "commit", "c", "", "Commit hash to resolve a completed run for")
	publishCmd.MarkFlagRequired("tag")
}
