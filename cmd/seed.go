package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

// venueFile is the YAML shape accepted by the seed command.
type venueFile struct {
	Venues []model.SubmittedVenue `yaml:"venues"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <venues.yaml>",
	Short: "Resolve venue fixtures from a YAML file into the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}

		var vf venueFile
		if err := yaml.Unmarshal(data, &vf); err != nil {
			return eris.Wrapf(err, "parse %s", args[0])
		}
		if len(vf.Venues) == 0 {
			return eris.New("no venues in file")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var created, matched int
		for _, sub := range vf.Venues {
			v, isNew, err := env.Venues.FindOrCreate(ctx, sub)
			if err != nil {
				zap.L().Warn("venue seed skipped",
					zap.String("name", sub.Name),
					zap.Error(err),
				)
				continue
			}
			if isNew {
				created++
			} else {
				matched++
			}
			zap.L().Debug("venue resolved",
				zap.String("venue_id", v.ID),
				zap.String("name", v.Name),
				zap.Bool("created", isNew),
			)
		}

		fmt.Printf("seeded %d venues: %d created, %d matched existing\n",
			created+matched, created, matched)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
