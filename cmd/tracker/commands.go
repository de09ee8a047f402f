package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"canteen-tracker/internal/config"
	"canteen-tracker/internal/coupon"
	"canteen-tracker/internal/model"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cli carries state shared by every subcommand.
type cli struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "canteen-tracker",
		Short: "Tracks canteen orders, queue, payments and spending",
		Long: `canteen-tracker follows a canteen user's orders by polling the canteen backend,
announces status changes, estimates wait times, settles payments and reports spending analytics.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			c.cfg = cfg
			c.logger = config.NewLogger(cfg.Logger)
			return nil
		},
	}

	root.AddCommand(
		c.watchCmd(),
		c.serveCmd(),
		c.menuCmd(),
		c.ordersCmd(),
		c.placeCmd(),
		c.cancelCmd(),
		c.payCmd(),
		c.analyticsCmd(),
		c.couponsCmd(),
	)
	return root
}

// withApp wires the application for one command and tears it down afterwards.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, c.cfg, c.logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll orders and queue size until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				orders := a.tracker.WatchOrders(ctx)
				defer orders.Release()
				queue := a.tracker.WatchQueue(ctx)
				defer queue.Release()

				a.logger.Info().
					Int64("user_id", a.session.UserID()).
					Str("user", a.session.DisplayName()).
					Msg("watching orders")

				<-ctx.Done()
				a.logger.Info().Msg("stopping watch")
				return nil
			})
		},
	}
}

func (c *cli) menuCmd() *cobra.Command {
	var (
		filter    model.MenuFilter
		recommend bool
		with      int64
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Browse the menu or today's recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				var (
					items []model.MenuItem
					err   error
				)
				switch {
				case with > 0:
					items, err = a.orders.FrequentlyWith(ctx, with, limit)
				case recommend:
					items, err = a.orders.Recommendations(ctx, limit)
				default:
					items, err = a.orders.Menu(ctx, filter)
				}
				if err != nil {
					return err
				}
				return printMenu(cmd.OutOrStdout(), items)
			})
		},
	}

	cmd.Flags().StringVar(&filter.Category, "category", "", "Only show items of this category")
	cmd.Flags().StringVarP(&filter.Query, "search", "s", "", "Only show items whose name contains this text")
	cmd.Flags().BoolVar(&recommend, "recommend", false, "Show the items ordered most today")
	cmd.Flags().Int64Var(&with, "with", 0, "Show the items often ordered with this food item")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of recommendations (default 5)")
	return cmd
}

func printMenu(out io.Writer, items []model.MenuItem) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID	NAME	CATEGORY	PRICE	PREP")
	for _, item := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%d min\n",
			item.ID, item.Name, item.Category, item.Price, item.EstimatedPrepTime)
	}
	return tw.Flush()
}

func (c *cli) ordersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List your orders with wait-time estimates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.tracker.RefreshOrders(ctx); err != nil {
					return err
				}
				if err := a.tracker.RefreshETA(ctx); err != nil {
					return err
				}
				if err := a.tracker.RefreshQueue(ctx); err != nil {
					a.logger.Warn().Err(err).Msg("failed to fetch queue size")
				}
				return printOrders(cmd.OutOrStdout(), a)
			})
		},
	}
}

func printOrders(out io.Writer, a *app) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tSTATUS\tPLACED\tITEMS\tTOTAL\tETA")
	for _, o := range a.orders.Orders() {
		eta := "-"
		if o.ETAMinutes != nil {
			eta = fmt.Sprintf("%d min", *o.ETAMinutes)
		}
		names := make([]string, 0, len(o.Items))
		for _, item := range o.Items {
			names = append(names, item.Name)
		}
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%s\t%.2f\t%s\n",
			o.ID,
			o.Status,
			o.OrderTime.In(a.cfg.AnalyticsLocation()).Format("02 Jan 15:04"),
			strings.Join(names, ", "),
			o.TotalAmount,
			eta,
		)
	}
	if size, ok := a.orders.QueueSize(); ok {
		fmt.Fprintf(tw, "\nQueue size: %d\n", size)
	}
	return tw.Flush()
}

func (c *cli) placeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "place FOOD_ITEM_ID...",
		Short: "Place an order for one or more menu items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				order, err := a.orders.Place(ctx, ids)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Order #%d placed, total %.2f\n", order.ID, order.TotalAmount)
				return nil
			})
		},
	}
}

func (c *cli) cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ORDER_ID",
		Short: "Cancel an order that has not been completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				// Load the current status so terminal orders are rejected locally.
				if err := a.tracker.RefreshOrders(ctx); err != nil {
					a.logger.Warn().Err(err).Msg("failed to load orders before cancel")
				}
				return a.orders.Cancel(ctx, id)
			})
		},
	}
}

func (c *cli) payCmd() *cobra.Command {
	var (
		gateway bool
		qrPath  string
		qrSize  int
	)

	cmd := &cobra.Command{
		Use:   "pay ORDER_ID",
		Short: "Pay for an order and receive its pickup coupon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				var issued *model.Coupon
				if gateway {
					issued, err = payThroughGateway(ctx, cmd, a, id)
				} else {
					issued, err = a.payments.PayDirect(ctx, id)
				}
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Coupon %s issued for order #%d (%.2f)\n", issued.Code, issued.OrderID, issued.Amount)

				if qrPath != "" {
					png, err := a.payments.CouponQR(ctx, id, qrSize)
					if err != nil {
						return err
					}
					if err := os.WriteFile(qrPath, png, 0o644); err != nil {
						return fmt.Errorf("failed to write coupon QR: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Coupon QR written to %s\n", qrPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&gateway, "gateway", false, "Pay through the payment gateway checkout")
	cmd.Flags().StringVar(&qrPath, "qr", "", "Write the coupon QR code PNG to this path")
	cmd.Flags().IntVar(&qrSize, "qr-size", coupon.DefaultQRSize, "QR code size in pixels")
	return cmd
}

// payThroughGateway opens a checkout and reads the identifiers the gateway returns after payment.
func payThroughGateway(ctx context.Context, cmd *cobra.Command, a *app, orderID int64) (*model.Coupon, error) {
	gs, err := a.payments.BeginGateway(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer a.payments.Close(orderID)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Checkout opened: gateway order %s, amount %d %s, key %s\n", gs.GatewayOrderID, gs.Amount, gs.Currency, gs.KeyID)

	in := bufio.NewScanner(cmd.InOrStdin())
	prompt := func(label string) (string, error) {
		fmt.Fprintf(out, "%s: ", label)
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("checkout abandoned")
		}
		return strings.TrimSpace(in.Text()), nil
	}

	paymentID, err := prompt("razorpay_payment_id")
	if err != nil {
		return nil, err
	}
	signature, err := prompt("razorpay_signature")
	if err != nil {
		return nil, err
	}

	return a.payments.CompleteGateway(ctx, orderID, model.GatewayCallback{
		GatewayOrderID:   gs.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        signature,
	})
}

func (c *cli) analyticsCmd() *cobra.Command {
	var (
		days     int
		doExport bool
	)

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show spending analytics merged with canteen-wide statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days > 0 {
				c.cfg.Analytics.WindowDays = days
			}

			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.tracker.RefreshOrders(ctx); err != nil {
					return err
				}
				if err := a.analytics.RefreshBackend(ctx); err != nil {
					a.logger.Warn().Err(err).Msg("backend analytics unavailable, showing local analytics only")
				}

				now := time.Now()
				if doExport {
					location, err := a.analytics.Export(ctx, now)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Report exported to %s\n", location)
					return nil
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(a.analytics.Report(now))
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Trailing window in days (defaults to ANALYTICS_WINDOW_DAYS)")
	cmd.Flags().BoolVar(&doExport, "export", false, "Export the report to S3 or the export directory")
	return cmd
}

func (c *cli) couponsCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "coupons",
		Short: "List your pickup coupons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				var coupons []model.Coupon
				if code != "" {
					cp, err := a.payments.CouponByCode(ctx, code)
					if err != nil {
						return err
					}
					coupons = []model.Coupon{*cp}
				} else {
					var err error
					if coupons, err = a.payments.Coupons(ctx); err != nil {
						return err
					}
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ORDER\tCODE\tAMOUNT\tMETHOD\tISSUED")
				for _, cp := range coupons {
					fmt.Fprintf(tw, "#%d\t%s\t%.2f\t%s\t%s\n",
						cp.OrderID, cp.Code, cp.Amount, cp.Method,
						cp.IssuedAt.In(a.cfg.AnalyticsLocation()).Format("02 Jan 2006 15:04"))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Look up a single coupon by its code")
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", raw)
	}
	return id, nil
}
