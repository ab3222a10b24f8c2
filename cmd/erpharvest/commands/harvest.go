package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"erpharvest/lib/scrapers/hrerp"
	"erpharvest/lib/serviceutil"
	"erpharvest/services/harvest/batch"
	"erpharvest/services/harvest/ids"
	"erpharvest/services/harvest/metadata"
	"erpharvest/services/harvest/outcome"
	"erpharvest/services/harvest/report"
	"erpharvest/services/harvest/resolver"

	"github.com/spf13/cobra"
)

var idSpec string
var idSpace string
var startPage int
var maxPages int
var skipCandidates bool
var noDownload bool

func init() {
	harvestCmd.PersistentFlags().StringVar(&idSpec, "ids", "", `id specification: "N", "HIGH-LOW" or "a,b,c"`)
	harvestCmd.PersistentFlags().StringVar(&idSpace, "space", "", `id space of --ids: "url", "real" or empty for automatic`)
	harvestCmd.PersistentFlags().BoolVar(&noDownload, "no-download", false, "skip resume downloads")

	candidatesCmd.Flags().IntVar(&startPage, "start-page", 0, "walk the search listing starting at this page instead of using --ids")
	candidatesCmd.Flags().IntVar(&maxPages, "max-pages", 0, "cap the listing walk at this many pages")
	casesCmd.Flags().BoolVar(&skipCandidates, "skip-candidates", false, "record connected candidate ids without harvesting their pages")

	harvestCmd.AddCommand(candidatesCmd)
	harvestCmd.AddCommand(casesCmd)
	rootCmd.AddCommand(harvestCmd)
}

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest records out of the ERP over a single logged-in session.",
}

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Harvest candidate profiles and their resumes.",
	Run: func(cmd *cobra.Command, args []string) {
		h := setup(cmd.Context())

		opts := batch.Options{
			Delay:     h.config.delay(),
			Jitter:    h.config.jitter(),
			Candidate: resolver.CandidateOptions{FetchResume: !noDownload},
		}

		var result *batch.Result
		var err error
		if startPage > 0 {
			result, err = h.orchestrator.RunCandidatePages(cmd.Context(), batch.PageOptions{
				Options:   opts,
				StartPage: startPage,
				MaxPages:  maxPages,
			})
		} else {
			spec := parseSpec(h.config)
			result, err = h.orchestrator.Run(cmd.Context(), &spec, ids.Candidate, opts)
		}
		if err != nil {
			serviceutil.Fatal("harvest run aborted", err)
		}

		for _, cand := range result.Candidates {
			if err := h.saver.SaveCandidate(cmd.Context(), cand); err != nil {
				slog.WarnContext(cmd.Context(), "metadata save failed", "url_id", cand.URLID, "err", err)
			}
		}
		h.finish(cmd.Context(), result)
	},
}

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Harvest cases along with their connected candidates.",
	Run: func(cmd *cobra.Command, args []string) {
		h := setup(cmd.Context())
		spec := parseSpec(h.config)

		result, err := h.orchestrator.Run(cmd.Context(), &spec, ids.Case, batch.Options{
			Delay:  h.config.delay(),
			Jitter: h.config.jitter(),
			Case: resolver.CaseOptions{
				HarvestCandidates: !skipCandidates,
				FetchResumes:      !skipCandidates && !noDownload,
			},
		})
		if err != nil {
			serviceutil.Fatal("harvest run aborted", err)
		}

		for _, c := range result.Cases {
			if err := h.saver.SaveCase(cmd.Context(), c); err != nil {
				slog.WarnContext(cmd.Context(), "metadata save failed", "url_id", c.URLID, "err", err)
			}
		}
		h.finish(cmd.Context(), result)
	},
}

// harness wires one logged-in session to the whole harvest pipeline.
type harness struct {
	config       Config
	client       *hrerp.Client
	tracker      *outcome.Tracker
	resumes      *metadata.ResumeStore
	saver        *metadata.Saver
	resolver     *resolver.Resolver
	orchestrator *batch.Orchestrator
}

func setup(ctx context.Context) *harness {
	config, err := readConfig()
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	client, err := hrerp.NewClient(ctx, hrerp.ClientOptions{
		BaseUrl:    config.BaseUrl,
		Timeout:    time.Duration(config.Http.TimeoutSeconds) * time.Second,
		MaxRetries: config.Http.MaxRetries,
		RetryWait:  time.Duration(config.Http.RetryWaitSeconds) * time.Second,
	})
	if err != nil {
		serviceutil.Fatal("failed to create erp client", err)
	}

	slog.Info("logging in...", "base_url", config.BaseUrl)
	if err := client.Login(ctx, config.Username, config.Password); err != nil {
		serviceutil.Fatal("login failed", err)
	}

	tracker := outcome.NewTracker()
	var sink resolver.ResumeSink
	resumes := metadata.NewResumeStore(config.Output.ResumeDir, client)
	if !noDownload {
		sink = resumes
	}
	res := resolver.New(client, tracker, sink)

	return &harness{
		config:       config,
		client:       client,
		tracker:      tracker,
		resumes:      resumes,
		saver:        metadata.NewSaver(config.Output.MetadataDir, tracker),
		resolver:     res,
		orchestrator: batch.New(client, res, tracker),
	}
}

func parseSpec(config Config) ids.Spec {
	if idSpec == "" {
		serviceutil.Fatal("no ids requested", fmt.Errorf("--ids is required unless --start-page is given"))
	}
	space, err := ids.ParseSpace(idSpace)
	if err != nil {
		serviceutil.Fatal("invalid --space", err)
	}
	spec, err := ids.ParseSpec(idSpec, space)
	if err != nil {
		serviceutil.Fatal("invalid --ids", err)
	}
	spec.AutoThreshold = config.AutoSpaceThreshold
	return spec
}

// finish re-finalizes the outcome report so metadata save failures land
// in it, then writes every run artifact.
func (h *harness) finish(ctx context.Context, result *batch.Result) {
	result.Report = h.tracker.Finalize()

	writer := report.NewWriter(h.config.Output.ResultsDir)
	if err := writer.WriteRecords(result); err != nil {
		serviceutil.Fatal("failed to export records", err)
	}
	path, err := writer.WriteRunReport(result, h.resumes.Stats)
	if err != nil {
		serviceutil.Fatal("failed to write run report", err)
	}
	slog.Info("wrote run report", "path", path)

	report.Summary(os.Stdout, result, h.resumes.Stats)

	notifier := report.NewNotifier(h.config.Smtp)
	if notifier.Enabled() {
		if err := notifier.SendSummary(ctx, result, h.resumes.Stats); err != nil {
			slog.WarnContext(ctx, "failed to send summary email", "err", err)
		}
	}
}
