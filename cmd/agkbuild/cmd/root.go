package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"agkbuild/internal/buildfile"
	"agkbuild/internal/export"
	"agkbuild/internal/logu"
	"agkbuild/internal/toolchain"
)

var (
	// agkPath overrides compiler installation discovery.
	agkPath string
	verbose bool

	// rootCmd runs every build declared in the given build file, in order.
	rootCmd = &cobra.Command{
		Use:   "agkbuild <buildfile.yaml>",
		Short: "Export and package AppGameKit projects for release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			logu.Verbose = verbose

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return run(ctx, args[0])
		},
	}
)

func run(ctx context.Context, buildFilePath string) error {
	f, err := buildfile.Load(buildFilePath)
	if err != nil {
		return err
	}

	root := agkPath
	if root == "" {
		root = f.AGKPath
	}
	tc, err := toolchain.Find(root)
	if err != nil {
		return err
	}

	reqs, err := f.Requests()
	if err != nil {
		return err
	}
	for i, req := range reqs {
		logu.Logf("Build %d of %d\n", i+1, len(reqs))
		artifacts, err := export.Run(ctx, tc, req)
		if err != nil {
			return fmt.Errorf("build %d: %w", i+1, err)
		}
		for p, a := range artifacts {
			logu.Logf("  %s: %s\n", p, a.Path)
		}
	}
	return nil
}

// Execute runs the agkbuild CLI and exits with non-zero status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVar(&agkPath, "agk-path", "", "path to the compiler installation (discovered when omitted)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log tool invocations and copied files")
}
