package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"intakeflow/internal/app"
	"intakeflow/internal/domain/file"
	"intakeflow/internal/domain/pipeline"
)

var reprocessOpts struct {
	fileID string
	failed bool
	mock   string
}

var reprocessCMD = &cobra.Command{
	Use:   "reprocess",
	Short: "rerun the enrichment pipeline",
	Long:  `Run transcription and analysis synchronously for one file (--file-id) or every file with a failed stage (--failed).`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (reprocessOpts.fileID == "") == !reprocessOpts.failed {
			return errors.New("exactly one of --file-id or --failed is required")
		}
		ctx := cmd.Context()
		switch reprocessOpts.mock {
		case "":
		case "true", "false":
			ctx = pipeline.WithMockMode(ctx, reprocessOpts.mock == "true")
		default:
			return fmt.Errorf("--mock must be true or false")
		}

		a, err := initialize(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(ctx))

		n, err := reprocess(ctx, a, reprocessOpts.fileID, reprocessOpts.failed)
		fmt.Fprintf(cmd.OutOrStdout(), "reprocessed %d file(s)\n", n)
		return err
	},
}

// reprocess returns how many runs finished; a failing run does not stop
// the remaining ones. With failed set, files deleted since their failure
// are skipped.
func reprocess(ctx context.Context, a *app.App, fileID string, failed bool) (int, error) {
	ids := []string{fileID}
	if failed {
		var err error
		if ids, err = a.Results.FailedFileIDs(ctx); err != nil {
			return 0, fmt.Errorf("list failed files: %w", err)
		}
	}

	var errs []error
	done := 0
	for _, id := range ids {
		err := a.Runner.Run(ctx, id, "")
		if failed && errors.Is(err, file.ErrFileNotFound) {
			a.Log.Info("reprocess skipped deleted file", "file_id", id)
			continue
		}
		if err != nil {
			a.Log.Error("reprocess failed", "file_id", id, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

func init() {
	reprocessCMD.Flags().StringVar(&reprocessOpts.fileID, "file-id", "", "file to process")
	reprocessCMD.Flags().BoolVar(&reprocessOpts.failed, "failed", false, "process every file with a failed stage")
	reprocessCMD.Flags().StringVar(&reprocessOpts.mock, "mock", "", "force mock (true) or live (false) providers")
	rootCMD.AddCommand(reprocessCMD)
}
