package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/match-engine/internal/domain"
	"github.com/spigell/match-engine/internal/logger"
	"github.com/spigell/match-engine/internal/matching"
)

const PromptExit = "exit"

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank matches for a professional or a job",
}

var matchJobsCmd = &cobra.Command{
	Use:   "jobs <professional-id>",
	Short: "Rank open jobs for a professional",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runMatch(cmd, func(ctx context.Context, e *matching.Engine, req matching.Request) (any, []entry, error) {
			result, err := e.JobsForProfessional(ctx, args[0], req)
			if err != nil {
				return nil, nil, err
			}
			return result, entries(result, func(j domain.Job) string { return j.Title }), nil
		})
	},
}

var matchProfessionalsCmd = &cobra.Command{
	Use:   "professionals <job-id>",
	Short: "Rank professionals for a job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runMatch(cmd, func(ctx context.Context, e *matching.Engine, req matching.Request) (any, []entry, error) {
			result, err := e.ProfessionalsForJob(ctx, args[0], req)
			if err != nil {
				return nil, nil, err
			}
			return result, entries(result, func(p domain.Profile) string { return p.Title }), nil
		})
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.AddCommand(matchJobsCmd, matchProfessionalsCmd)

	flags := matchCmd.PersistentFlags()
	flags.IntP("limit", "l", 0, "maximum number of matches (default is matching.default-limit)")
	flags.String("sector", "", "preferred sector, enables contextual scoring")
	flags.String("language", "", "preferred language, enables contextual scoring")
	flags.String("format", "", "preferred work format (remote, hybrid, onsite), enables contextual scoring")
	flags.String("emirate", "", "only match candidates located in this emirate")
	flags.BoolP("contextual", "c", false, "score sector, language, format and cultural fit")
	flags.BoolP("interactive", "i", false, "browse matches interactively")
}

// entry is one selectable line of the interactive browser.
type entry struct {
	Label  string
	Detail any
}

func entries[T domain.Entity](result *matching.Result[T], title func(T) string) []entry {
	out := make([]entry, 0, len(result.Matches))
	for _, m := range result.Matches {
		out = append(out, entry{
			Label: fmt.Sprintf("%3.0f%%  %-12s %s (%s)",
				m.Overall*100, m.Strength, title(m.Entity), m.Entity.EntityID()),
			Detail: m,
		})
	}
	return out
}

type matchFunc func(ctx context.Context, e *matching.Engine, req matching.Request) (any, []entry, error)

func runMatch(cmd *cobra.Command, match matchFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	rt, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the matching engine", zap.Error(err))
	}
	defer rt.Close()

	req, err := requestFromFlags(cmd)
	if err != nil {
		logger.Fatal("parsing flags", zap.Error(err))
	}

	result, items, err := match(ctx, rt.engine, req)
	if err != nil {
		logger.Fatal("matching", zap.Error(err))
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	if interactive {
		if err := browse(items); err != nil && !errors.Is(err, promptui.ErrInterrupt) {
			logger.Fatal("browsing matches", zap.Error(err))
		}
		return
	}

	if err := printJSON(result); err != nil {
		logger.Fatal("printing matches", zap.Error(err))
	}
}

func requestFromFlags(cmd *cobra.Command) (matching.Request, error) {
	flags := cmd.Flags()

	var req matching.Request
	var err error

	if req.Limit, err = flags.GetInt("limit"); err != nil {
		return req, err
	}
	if req.Contextual, err = flags.GetBool("contextual"); err != nil {
		return req, err
	}
	if req.Preferences.Sector, err = flags.GetString("sector"); err != nil {
		return req, err
	}
	if req.Preferences.Language, err = flags.GetString("language"); err != nil {
		return req, err
	}
	if req.Preferences.Format, err = flags.GetString("format"); err != nil {
		return req, err
	}
	if req.Preferences.Emirate, err = flags.GetString("emirate"); err != nil {
		return req, err
	}
	return req, nil
}

// browse lets the user pick matches one by one until exit is chosen.
func browse(items []entry) error {
	if len(items) == 0 {
		fmt.Println("no matches found")
		return nil
	}

	labels := make([]string, 0, len(items)+1)
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	labels = append(labels, PromptExit)

	for {
		prompt := promptui.Select{
			Label: "Matches",
			Items: labels,
			Size:  10,
		}

		idx, _, err := prompt.Run()
		if err != nil {
			return err
		}
		if idx == len(items) {
			return nil
		}

		if err := printJSON(items[idx].Detail); err != nil {
			return err
		}
	}
}

func printJSON(v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}
