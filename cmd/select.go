package cmd

import (
	"fmt"

	"github.com/JakeTRogers/hpoBuddy/filter"
	"github.com/JakeTRogers/hpoBuddy/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewSelectCmd creates and returns a new select command.
// Each call returns a fresh instance for test isolation.
func NewSelectCmd(v *viper.Viper) *cobra.Command {
	log := logger.GetLogger()
	var remove, clearFirst bool

	selectCmd := &cobra.Command{
		Use:   "select [TERM_ID...]",
		Short: "Add or remove phenotypes without the interactive browser",
		Long: `Select phenotypes by term id and write the result to the filter file. Selecting a term also selects every
term beneath it; removing a term removes its whole subtree. The existing filter value is the starting point.

Examples:
  # Add a term and its descendants to the selection:
  $ hpoBuddy select HP:0000152

  # Remove a subtree again:
  $ hpoBuddy select --remove HP:0000234

  # Start over with a single term:
  $ hpoBuddy select --clear HP:0001626`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !clearFirst {
				return fmt.Errorf("requires at least one term id, or --clear")
			}
			return nil
		},
	}

	// runSelectCmd executes the select command.
	runSelectCmd := func(cmd *cobra.Command, args []string) error {
		tree, err := cfg.loadTree(cmd.Context())
		if err != nil {
			log.Error().Stack().Err(err).Msg("loading phenotype data")
			return err
		}
		ch, mode, err := cfg.channel()
		if err != nil {
			return err
		}
		restoreSelection(tree, ch)

		for _, id := range args {
			if _, ok := tree.Index().Node(id); !ok {
				return fmt.Errorf("unknown term id %q", id)
			}
		}

		pub := filter.NewPublisher(ch, mode)
		if clearFirst {
			tree.Clear()
		}
		for _, id := range args {
			if remove {
				tree.Deselect(id)
			} else {
				tree.Select(id)
			}
		}
		pub.Publish(tree.Selected())
		if err := pub.Err(); err != nil {
			return fmt.Errorf("writing filter: %w", err)
		}

		savePreferences(v)
		log.Info().Str("filter", ch.Path()).Int("selected", tree.SelectedCount()).Msg("filter updated")
		printSelectionTable(cmd.OutOrStdout(), tree, colorEnabled)
		return nil
	}

	selectCmd.RunE = runSelectCmd
	selectCmd.Flags().BoolVarP(&remove, "remove", "r", false, "remove the given terms and their descendants instead of adding them")
	selectCmd.Flags().BoolVar(&clearFirst, "clear", false, "clear the selection before applying the given terms")

	return selectCmd
}
