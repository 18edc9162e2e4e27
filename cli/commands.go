package cli

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"groups/snapshot"
	"groups/solver"
)

func loadConfiguration(cmd *cobra.Command, path string) (*snapshot.Configuration, error) {
	if path == "" {
		return nil, errors.New("a configuration file is required (-f)")
	}
	if path == "-" {
		return snapshot.Read(cmd.InOrStdin())
	}
	return snapshot.ReadFile(path)
}

func warnUnknownKinds(opts *globalOptions, cmd *cobra.Command, cfg *snapshot.Configuration) {
	logger := opts.logger(cmd)
	for _, c := range solver.UnknownKinds(cfg.EngineConstraints()) {
		logger.Warn("constraint type is not recognised and will be ignored", "constraint", c.ID, "type", c.Kind)
	}
}

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	var (
		file     string
		size     int
		seed     int64
		attempts int
		save     string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate groups from a configuration file",
		Example: `  groups generate -f class.json
  groups generate -f class.json --size 5 --seed 42 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfiguration(cmd, file)
			if err != nil {
				return err
			}
			warnUnknownKinds(opts, cmd, cfg)
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}

			res, err := cfg.Generate(size,
				solver.WithRand(rand.New(rand.NewSource(seed))),
				solver.WithMaxAttempts(attempts),
				solver.WithLogger(opts.logger(cmd)))
			if err != nil {
				return err
			}
			res.Seed = &seed

			if save != "" {
				if err := snapshot.WriteFile(save, res); err != nil {
					return fmt.Errorf("save groups: %w", err)
				}
			}
			return printResult(cmd.OutOrStdout(), opts.output, cfg, res)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Configuration file (- for stdin)")
	cmd.Flags().IntVar(&size, "size", solver.DefaultGroupSize, "Maximum members per group")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default: time based)")
	cmd.Flags().IntVar(&attempts, "attempts", solver.DefaultMaxAttempts, "Maximum placement attempts")
	cmd.Flags().StringVar(&save, "save", "", "Also write the groups as JSON to this file")
	return cmd
}

// loadPartition reads a configuration and a groups file and builds a
// generator sized like the groups file unless size overrides it.
func loadPartition(cmd *cobra.Command, file, groupsFile string, size int) (*snapshot.Configuration, *snapshot.Result, []solver.Group, error) {
	cfg, err := loadConfiguration(cmd, file)
	if err != nil {
		return nil, nil, nil, err
	}
	if groupsFile == "" {
		return nil, nil, nil, errors.New("a groups file is required (-g)")
	}
	res, err := snapshot.ReadResultFile(groupsFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if size > 0 {
		res.GroupSize = size
	}
	groups, err := res.Partition(cfg.Members())
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, res, groups, nil
}

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var (
		file       string
		groupsFile string
		size       int
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a groups file against a configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, res, groups, err := loadPartition(cmd, file, groupsFile, size)
			if err != nil {
				return err
			}
			gen := cfg.Generator(res.GroupSize)
			valid := gen.Validate(groups)
			violated := gen.Violations(groups)

			report := validationReport{Valid: valid, GroupSize: gen.GroupSize()}
			for _, c := range violated {
				report.Violations = append(report.Violations, c.ID)
			}
			if err := printValidation(cmd.OutOrStdout(), opts.output, report, violated); err != nil {
				return err
			}
			if !valid {
				return errors.New("groups are not a valid partition")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Configuration file (- for stdin)")
	cmd.Flags().StringVarP(&groupsFile, "groups", "g", "", "Groups file written by generate --save or -o json")
	cmd.Flags().IntVar(&size, "size", 0, "Group size (default: the groups file's)")
	return cmd
}

func newStatsCmd(opts *globalOptions) *cobra.Command {
	var (
		file       string
		groupsFile string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise a groups file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, groups, err := loadPartition(cmd, file, groupsFile, 0)
			if err != nil {
				return err
			}
			st := snapshot.NewStats(solver.ComputeStats(groups, cfg.EngineConstraints()))
			return printStats(cmd.OutOrStdout(), opts.output, st)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Configuration file (- for stdin)")
	cmd.Flags().StringVarP(&groupsFile, "groups", "g", "", "Groups file")
	return cmd
}

func newSampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample [file]",
		Short: "Write the bundled sample class configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := snapshot.Sample()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return snapshot.Write(cmd.OutOrStdout(), cfg)
			}
			if err := snapshot.WriteFile(args[0], cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d students and %d constraints to %s\n",
				len(cfg.Students), len(cfg.Constraints), args[0])
			return nil
		},
	}
}
