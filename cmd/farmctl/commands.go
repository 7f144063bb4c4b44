package main

import (
	"fmt"
	"strconv"
	"time"

	"sbr_farm/internal/domain"
	"sbr_farm/internal/migrations"
	"sbr_farm/internal/scheduler"
	"sbr_farm/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// every change made from the CLI is audited under this actor
const cliActor = "farmctl"

func newMigrateCmd(e *env) *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "List pending migrations, or apply them with --apply",
		RunE: func(cmd *cobra.Command, args []string) error {
			e.open()
			ctx := cmd.Context()
			if !apply {
				pending, err := migrations.Pending(ctx, e.pool)
				if err != nil {
					return err
				}
				for _, name := range pending {
					fmt.Println(name)
				}
				return nil
			}
			applied, err := migrations.Apply(ctx, e.pool)
			for _, name := range applied {
				fmt.Printf("applied %s\n", name)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "apply pending migrations")
	return cmd
}

func newUserCmd(e *env) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Create and inspect players",
	}

	var username, firstName string
	create := &cobra.Command{
		Use:   "create <tg_id>",
		Short: "Register a player (idempotent) and print a player token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tgID, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc := e.open()
			u, created, err := svc.Players.Register(cmd.Context(), tgID, username, firstName)
			if err != nil {
				return err
			}
			tokens, err := service.NewTokens(e.cfg.JWTSecret, svc.Clock)
			if err != nil {
				return err
			}
			token, err := tokens.Generate(u.ID, "", 30*24*time.Hour)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"user": u, "created": created, "token": token})
		},
	}
	create.Flags().StringVar(&username, "username", "", "chat username")
	create.Flags().StringVar(&firstName, "first-name", "", "chat first name")

	show := &cobra.Command{
		Use:   "show <id|tg_id>",
		Short: "Show a player's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := e.open().Admin.FindUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(u)
		},
	}

	user.AddCommand(create, show)
	return user
}

func newAdjustCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "adjust <user_id> <resource> <amount>",
		Short: "Credit (positive) or debit (negative) a resource",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			r, ok := domain.ParseResource(args[1])
			if !ok {
				return fmt.Errorf("unknown resource %q", args[1])
			}
			amount, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[2])
			}
			bal, err := e.open().Admin.AdjustResource(cmd.Context(), cliActor, id, r, amount)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"user_id": id, "resource": r, "balance": bal})
		},
	}
}

func newVIPCmd(e *env) *cobra.Command {
	vip := &cobra.Command{
		Use:   "vip",
		Short: "Manage VIP tiers",
	}

	var days int
	set := &cobra.Command{
		Use:   "set <user_id> <tier>",
		Short: "Override a player's VIP tier (tier 0 clears it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			tier, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid tier %q", args[1])
			}
			svc := e.open()
			var expires *time.Time
			if tier > 0 {
				t := svc.Clock.Now().UTC().AddDate(0, 0, days)
				expires = &t
			}
			u, err := svc.Admin.SetVipTier(cmd.Context(), cliActor, id, tier, expires)
			if err != nil {
				return err
			}
			return printJSON(u)
		},
	}
	set.Flags().IntVar(&days, "days", 30, "days until the tier expires")

	vip.AddCommand(set)
	return vip
}

func newPaymentsCmd(e *env) *cobra.Command {
	payments := &cobra.Command{
		Use:   "payments",
		Short: "Review deposits and withdrawals",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List pending payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			pending, err := e.open().Admin.PendingPayments(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(pending)
		},
	}

	approve := &cobra.Command{
		Use:   "approve <payment_id>",
		Short: "Approve a pending payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := e.open().Admin.ApprovePayment(cmd.Context(), cliActor, id)
			if err != nil {
				return err
			}
			return printJSON(p)
		},
	}

	var reason string
	reject := &cobra.Command{
		Use:   "reject <payment_id>",
		Short: "Reject a pending payment, refunding any reserved amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := e.open().Admin.RejectPayment(cmd.Context(), cliActor, id, reason)
			if err != nil {
				return err
			}
			return printJSON(p)
		},
	}
	reject.Flags().StringVar(&reason, "reason", "", "note stored on the payment")

	payments.AddCommand(list, approve, reject)
	return payments
}

func newJobCmd(e *env) *cobra.Command {
	job := &cobra.Command{
		Use:   "job",
		Short: "Run scheduler jobs by hand",
	}
	job.AddCommand(&cobra.Command{
		Use:       "run <name>",
		Short:     "Run crop_sweep, vip_benefits or contest_rollover once",
		Args:      cobra.ExactArgs(1),
		ValidArgs: scheduler.JobNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := e.open().Scheduler(nil).RunNow(cmd.Context(), args[0])
			if report != nil {
				if perr := printJSON(report); perr != nil {
					return perr
				}
			}
			return err
		},
	})
	return job
}

func newTokenCmd(e *env) *cobra.Command {
	var admin bool
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user_id>",
		Short: "Mint a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc := e.open()
			tokens, err := service.NewTokens(e.cfg.JWTSecret, svc.Clock)
			if err != nil {
				return err
			}
			role := ""
			if admin {
				role = service.RoleAdmin
			}
			token, err := tokens.Generate(id, role, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func newStatsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print economy totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := e.open().Admin.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(st)
		},
	}
}
