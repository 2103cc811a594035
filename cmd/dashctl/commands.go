package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/academic-dashboard-api/internal/dto"
	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/reconcile"
	"github.com/noah-isme/academic-dashboard-api/internal/service"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
)

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dashctl",
		Short:         "Inspect the academic dashboards from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Duration("timeout", 30*time.Second, "deadline for calls to the academic API")

	root.AddCommand(newDashboardCommand(a))
	root.AddCommand(newListCommand(a))
	root.AddCommand(newSnapshotCommand(a))
	root.AddCommand(newTokenCommand(a))
	return root
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

func newDashboardCommand(a *app) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "dashboard <name>",
		Short: "Print the stat cards of a dashboard",
		Example: `  dashctl dashboard superadmin
  dashctl dashboard teacher --user 64f1c2`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: models.RoleSuperAdmin.Dashboards(),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.services()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			cards, meta, err := loadDashboard(ctx, svc.dashboards, args[0], userID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderBanners(out, meta.Banners)
			return renderCards(out, cards)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "teacher or tutor id for personal dashboards")
	return cmd
}

func loadDashboard(ctx context.Context, svc dashboards, name, userID string) ([]dto.StatCard, dto.DashboardMeta, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case models.DashboardSuperAdmin:
		d, _, err := svc.SuperAdmin(ctx)
		return cardsOf(d, err, func() ([]dto.StatCard, dto.DashboardMeta) { return d.Cards, d.DashboardMeta })
	case models.DashboardAcademicHead:
		d, _, err := svc.AcademicHead(ctx)
		return cardsOf(d, err, func() ([]dto.StatCard, dto.DashboardMeta) { return d.Cards, d.DashboardMeta })
	case models.DashboardSubDirector:
		d, _, err := svc.SubDirector(ctx)
		return cardsOf(d, err, func() ([]dto.StatCard, dto.DashboardMeta) { return d.Cards, d.DashboardMeta })
	case models.DashboardPsychopedagogical:
		d, _, err := svc.Psychopedagogical(ctx)
		return cardsOf(d, err, func() ([]dto.StatCard, dto.DashboardMeta) { return d.Cards, d.DashboardMeta })
	case models.DashboardTeacher, models.DashboardTutor:
		if userID == "" {
			return nil, dto.DashboardMeta{}, appErrors.Clone(appErrors.ErrValidation, "--user is required for the "+name+" dashboard")
		}
		if name == models.DashboardTeacher {
			d, _, err := svc.Teacher(ctx, userID)
			return cardsOf(d, err, func() ([]dto.StatCard, dto.DashboardMeta) { return d.Cards, d.DashboardMeta })
		}
		d, _, err := svc.Tutor(ctx, userID)
		return cardsOf(d, err, func() ([]dto.StatCard, dto.DashboardMeta) { return d.Cards, d.DashboardMeta })
	}
	return nil, dto.DashboardMeta{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown dashboard %q", name))
}

func cardsOf[T any](d *T, err error, get func() ([]dto.StatCard, dto.DashboardMeta)) ([]dto.StatCard, dto.DashboardMeta, error) {
	if err != nil {
		return nil, dto.DashboardMeta{}, err
	}
	if d == nil {
		return nil, dto.DashboardMeta{}, appErrors.ErrInternal
	}
	cards, meta := get()
	return cards, meta, nil
}

func newListCommand(a *app) *cobra.Command {
	var search, format string
	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "Print a reconciled collection",
		Example: `  dashctl list groups --search sistemas
  dashctl list users --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, ok := models.ParseCollection(args[0])
			if !ok {
				return appErrors.Clone(appErrors.ErrUnknownCollection, fmt.Sprintf("unknown collection %q", args[0]))
			}
			format = strings.ToLower(format)
			if format != formatTable && format != formatJSON {
				return appErrors.Clone(appErrors.ErrValidation, "format must be table or json")
			}
			svc, err := a.services()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			list, err := svc.entities.List(ctx, collection, search)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == formatJSON {
				return renderJSON(out, list)
			}
			renderBanners(out, list.Banners)
			if err := renderDataset(out, service.Table(list)); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d registros\n", list.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive search term")
	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "output format: table or json")
	return cmd
}

func newSnapshotCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot [collection...]",
		Short: "Load collections and print how each one loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			collections := models.AllCollections
			if len(args) > 0 {
				collections = make([]models.Collection, 0, len(args))
				for _, arg := range args {
					c, ok := models.ParseCollection(arg)
					if !ok {
						return appErrors.Clone(appErrors.ErrUnknownCollection, fmt.Sprintf("unknown collection %q", arg))
					}
					collections = append(collections, c)
				}
			}
			svc, err := a.services()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			snap := svc.snapshots.Load(ctx, collections...)
			out := cmd.OutOrStdout()
			renderBanners(out, snap.Banners())
			return renderStates(out, snap.States())
		},
	}
}

func newTokenCommand(a *app) *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Sign a development access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := reconcile.InternalRole(strings.ToLower(strings.TrimSpace(role)))
			if !r.Known() {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role %q", role))
			}
			svc, err := a.services()
			if err != nil {
				return err
			}
			token, expires, err := svc.tokens.IssueToken(models.Principal{UserID: args[0], Role: r}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(models.RoleSuperAdmin), "role tag, dashboard or academic API form")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
