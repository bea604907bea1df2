package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"montage/internal/api"
	"montage/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"job"},
		Short:   "Inspect and manage render jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsRemoveCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List render jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				jobs, err := api.NewJobService(store).List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, jobs)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No render jobs")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Status", "Progress", "Source", "Output", "Created"},
					buildJobRows(jobs),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (pending, running, completed, failed, canceled)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print jobs as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one render job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				job, err := api.NewJobService(store).Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				rows := [][]string{
					{"ID", job.ID},
					{"Status", job.Status},
					{"Progress", fmt.Sprintf("%.1f%%", job.ProgressPercent)},
					{"Source", job.SourceVideo},
					{"Output", job.OutputPath},
					{"Created", job.CreatedAt},
				}
				if job.StartedAt != "" {
					rows = append(rows, []string{"Started", job.StartedAt})
				}
				if job.FinishedAt != "" {
					rows = append(rows, []string{"Finished", job.FinishedAt})
				}
				if job.ElapsedSeconds > 0 {
					rows = append(rows, []string{"Elapsed", formatDuration(time.Duration(job.ElapsedSeconds * float64(time.Second)))})
				}
				if job.ProgressMessage != "" {
					rows = append(rows, []string{"Message", job.ProgressMessage})
				}
				if job.ErrorMessage != "" {
					rows = append(rows, []string{"Error", job.ErrorMessage})
				}
				fmt.Fprint(out, renderTable([]string{"Field", "Value"}, rows, nil))
				if job.FilterComplex != "" {
					fmt.Fprintln(out, "Filter graph:")
					fmt.Fprintln(out, job.FilterComplex)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the job as JSON")
	return cmd
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>...",
		Aliases: []string{"rm"},
		Short:   "Remove render jobs that are not running",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				svc := api.NewJobService(store)
				out := cmd.OutOrStdout()
				for _, arg := range args {
					job, err := svc.Resolve(cmd.Context(), arg)
					if err != nil {
						return err
					}
					removed, err := store.Remove(cmd.Context(), job.ID)
					if err != nil {
						return err
					}
					if !removed {
						fmt.Fprintf(out, "Job %s is running; not removed\n", shortID(job.ID))
						continue
					}
					fmt.Fprintf(out, "Removed job %s\n", shortID(job.ID))
				}
				return nil
			})
		},
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Move failed or canceled jobs back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				svc := api.NewJobService(store)
				ids := make([]string, 0, len(args))
				for _, arg := range args {
					job, err := svc.Resolve(cmd.Context(), arg)
					if err != nil {
						return err
					}
					ids = append(ids, job.ID)
				}
				count, err := store.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				if count == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No failed jobs to retry")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retrying %d job(s); run `montage serve` to render them\n", count)
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed, failed and canceled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				count, err := store.ClearFinished(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d finished job(s)\n", count)
				return nil
			})
		},
	}
}

func parseStatuses(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func buildJobRows(jobs []api.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			shortID(job.ID),
			job.Status,
			fmt.Sprintf("%.0f%%", job.ProgressPercent),
			truncate(job.SourceVideo, 40),
			truncate(job.OutputPath, 40),
			job.CreatedAt,
		})
	}
	return rows
}
