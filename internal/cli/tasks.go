package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/taskclient/internal/api"
	"github.com/nhle/taskclient/internal/message"
	"github.com/nhle/taskclient/internal/model"
	"github.com/nhle/taskclient/internal/tasks"
	"github.com/nhle/taskclient/internal/view"
)

func newListCmd(rt *runtime) *cobra.Command {
	var (
		status, sortKey, search, title string
		asJSON                         bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("status") {
				status = rt.cfg.Display.DefaultStatus
			}
			if !cmd.Flags().Changed("sort") {
				sortKey = rt.cfg.Display.DefaultSort
			}
			q, err := parseQuery(status, sortKey, search)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			cache := rt.openCache()
			if cache != nil {
				defer cache.Close()
			}
			ctrl := rt.controller(cache)
			defer ctrl.Close()
			ctrl.SetTitleFilter(title)

			if _, err := ctrl.Restore(ctx); err != nil {
				cmd.PrintErrln("Warning: reading saved tasks:", err)
			}
			if err := ctrl.Refresh(ctx); err != nil {
				snap := ctrl.Snapshot()
				if !api.IsKind(err, api.KindNetwork) || !snap.Cached {
					return rt.handleAuthFailure(err)
				}
				cmd.PrintErrln("Warning:", rt.catalog.Describe(err))
				cmd.PrintErrln(rt.catalog.T(message.StateCached, map[string]any{
					"Age": rt.now().Sub(snap.UpdatedAt).Round(time.Minute).String(),
				}))
			}

			shown := ctrl.View(q)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(shown)
			}

			total := len(ctrl.Snapshot().Tasks)
			if len(shown) == 0 {
				if total == 0 {
					cmd.Println(rt.catalog.T(message.StateEmpty, nil))
				} else {
					cmd.Println(rt.catalog.T(message.StateNoMatch, nil))
				}
				return nil
			}
			cmd.Println(renderTable(shown, rt.now()))
			cmd.Printf("%d of %d tasks\n", len(shown), total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "all", "show only all|in-progress|completed")
	cmd.Flags().StringVar(&sortKey, "sort", "none", "order by none|deadline|priority")
	cmd.Flags().StringVarP(&search, "search", "q", "", "keep tasks whose title or description contains text")
	cmd.Flags().StringVarP(&title, "title", "t", "", "ask the service for titles containing text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func parseQuery(status, sortKey, search string) (view.Query, error) {
	s, err := view.ParseStatusFilter(status)
	if err != nil {
		return view.Query{}, err
	}
	k, err := view.ParseSortKey(sortKey)
	if err != nil {
		return view.Query{}, err
	}
	return view.Query{Search: search, Status: s, Sort: k}, nil
}

// taskFlags are the editable fields shared by add and update.
type taskFlags struct {
	title, description, deadline, status, priority string
}

func (f *taskFlags) register(cmd *cobra.Command, withTitle bool) {
	if withTitle {
		cmd.Flags().StringVar(&f.title, "title", "", "new title")
	}
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "description")
	cmd.Flags().StringVar(&f.deadline, "deadline", "", "deadline as YYYY-MM-DD")
	cmd.Flags().StringVarP(&f.status, "status", "s", "", "in-progress|completed")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "low|medium|high")
}

func newAddCmd(rt *runtime) *cobra.Command {
	var f taskFlags

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := model.Draft{Title: args[0], Description: f.description}

			var err error
			if draft.Deadline, err = model.ParseDate(f.deadline); err != nil {
				return err
			}
			if f.status != "" {
				if draft.Status, err = model.ParseStatus(f.status); err != nil {
					return err
				}
			}
			if f.priority != "" {
				if draft.Priority, err = model.ParsePriority(f.priority); err != nil {
					return err
				}
			}

			return rt.mutate(cmd, message.TaskCreated, func(ctrl *tasks.Controller) (*model.Task, error) {
				return ctrl.Create(cmd.Context(), draft)
			})
		},
	}
	f.register(cmd, false)
	return cmd
}

func newUpdateCmd(rt *runtime) *cobra.Command {
	var f taskFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := f.patch(cmd)
			if err != nil {
				return err
			}
			return rt.mutate(cmd, message.TaskUpdated, func(ctrl *tasks.Controller) (*model.Task, error) {
				return ctrl.Update(cmd.Context(), args[0], patch)
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

// patch builds a patch from the flags given on the command line.
func (f *taskFlags) patch(cmd *cobra.Command) (model.Patch, error) {
	var p model.Patch
	changed := cmd.Flags().Changed

	if changed("title") {
		p.Title = &f.title
	}
	if changed("description") {
		p.Description = &f.description
	}
	if changed("deadline") {
		d, err := model.ParseDate(f.deadline)
		if err != nil {
			return p, err
		}
		p.Deadline = &d
	}
	if changed("status") {
		s, err := model.ParseStatus(f.status)
		if err != nil {
			return p, err
		}
		p.Status = &s
	}
	if changed("priority") {
		pr, err := model.ParsePriority(f.priority)
		if err != nil {
			return p, err
		}
		p.Priority = &pr
	}
	return p, nil
}

func newStatusCmd(rt *runtime, use, short string, status model.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.mutate(cmd, message.TaskUpdated, func(ctrl *tasks.Controller) (*model.Task, error) {
				return ctrl.Update(cmd.Context(), args[0], model.StatusPatch(status))
			})
		},
	}
}

func newDeleteCmd(rt *runtime) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !yes {
				confirmed := false
				err := huh.NewConfirm().
					Title(rt.catalog.T(message.ConfirmDelete, map[string]any{"Title": id})).
					Affirmative("Delete").
					Negative("Keep").
					Value(&confirmed).
					Run()
				if err != nil && !errors.Is(err, huh.ErrUserAborted) {
					return fmt.Errorf("reading confirmation: %w", err)
				}
				if !confirmed {
					return nil
				}
			}
			return rt.mutate(cmd, message.TaskDeleted, func(ctrl *tasks.Controller) (*model.Task, error) {
				return nil, ctrl.Delete(cmd.Context(), id)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// mutate runs fn against a fresh controller and reports the outcome. A
// change that was applied but not reloaded still succeeds, with a warning.
func (rt *runtime) mutate(cmd *cobra.Command, done string, fn func(*tasks.Controller) (*model.Task, error)) error {
	cache := rt.openCache()
	if cache != nil {
		defer cache.Close()
	}
	ctrl := rt.controller(cache)
	defer ctrl.Close()

	t, err := fn(ctrl)
	if !tasks.Applied(err) {
		return rt.handleAuthFailure(err)
	}

	cmd.Println(rt.catalog.T(done, nil))
	if t != nil {
		cmd.Println(renderTable([]model.Task{*t}, rt.now()))
	}
	if err != nil {
		cmd.PrintErrln("Warning:", strings.TrimSpace(rt.catalog.Describe(err)))
	}
	return nil
}
