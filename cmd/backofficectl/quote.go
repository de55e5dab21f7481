package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
	"github.com/spf13/cobra"

	"github.com/devstudio/backoffice/pkg/calendar"
	"github.com/devstudio/backoffice/pkg/money"
	"github.com/devstudio/backoffice/pkg/pricing"
)

const dateLayout = "02/01/2006"

func quoteCmd() *cobra.Command {
	var (
		in       pricing.EstimateInput
		start    string
		asJSON   bool
		rules    string
		percent  int
		projType string
		level    string
		timeline string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a project without touching the database",
		Long: `Price a project with the same rules as the public estimate endpoint.

Examples:
  backofficectl quote --type landing_page --complexity low --timeline normal
  backofficectl quote --type ecommerce --complexity high --timeline urgent \
      --feature payment_gateway --integration stripe --pages 12 --start "next monday"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			extra, err := cfg.ExtraHolidayDates()
			if err != nil {
				return err
			}

			now := time.Now().In(cfg.Location())
			in.ProjectType = pricing.ProjectType(projType)
			in.Complexity = pricing.Complexity(level)
			in.Timeline = pricing.Timeline(timeline)
			if start != "" {
				t, err := parseStartDate(start, now)
				if err != nil {
					return err
				}
				in.StartDate = &t
			} else {
				today := calendar.Truncate(now)
				in.StartDate = &today
			}

			if percent == 0 {
				percent = cfg.Pricing.DownPaymentPercent
			}
			if rules == "" {
				rules = cfg.Pricing.RulesFile
			}
			var opts []pricing.Option
			if rules != "" {
				rs, err := pricing.LoadRuleSet(rules)
				if err != nil {
					return err
				}
				opts = append(opts, pricing.WithRules(rs))
			}

			est, err := pricing.NewEstimator(calendar.New(extra...), percent, opts...).Estimate(in)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(est)
			}
			printEstimate(cmd.OutOrStdout(), est)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projType, "type", "t", "", "project type (landing_page, institutional_site, ecommerce, web_app, mobile_app, custom_system)")
	cmd.Flags().StringVar(&level, "complexity", string(pricing.ComplexityMedium), "low, medium or high")
	cmd.Flags().StringVar(&timeline, "timeline", string(pricing.TimelineNormal), "urgent, normal or flexible")
	cmd.Flags().StringSliceVarP(&in.Features, "feature", "f", nil, "feature key, repeatable")
	cmd.Flags().StringSliceVarP(&in.Integrations, "integration", "i", nil, "integration key, repeatable")
	cmd.Flags().IntVarP(&in.Pages, "pages", "p", 0, "number of pages")
	cmd.Flags().StringVarP(&start, "start", "s", "", `start date, e.g. "16/10/2026", "tomorrow", "next monday"`)
	cmd.Flags().IntVar(&percent, "down-payment", 0, "down payment percent (defaults to configuration)")
	cmd.Flags().StringVar(&rules, "rules", "", "pricing rules file")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// parseStartDate accepts dd/mm/yyyy or a natural language expression in
// Portuguese or English, relative to now.
func parseStartDate(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if t, err := time.ParseInLocation(dateLayout, input, now.Location()); err == nil {
		return calendar.Truncate(t), nil
	}

	cfg := &dateparser.Configuration{
		CurrentTime: now,
		Languages:   []string{"pt", "en"},
	}
	result, err := dateparser.Parse(cfg, input)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not understand start date %q: %w", input, err)
	}
	return calendar.Truncate(result.Time), nil
}

func printEstimate(w io.Writer, est *pricing.Estimate) {
	fmt.Fprintf(w, "%s · %s · %s\n", est.ProjectType, est.Complexity, est.Timeline)
	for _, line := range est.Breakdown {
		fmt.Fprintf(w, "  %-12s %-24s %14s\n", line.Kind, line.Key, money.FormatBRL(line.Amount))
	}
	fmt.Fprintf(w, "Subtotal        %s\n", money.FormatBRL(est.Subtotal))
	fmt.Fprintf(w, "Total           %s\n", money.FormatBRL(est.Total))
	fmt.Fprintf(w, "Down payment    %s\n", money.FormatBRL(est.DownPayment))
	if est.FinalPayment > 0 {
		fmt.Fprintf(w, "Final payment   %s\n", money.FormatBRL(est.FinalPayment))
	}
	fmt.Fprintf(w, "Business days   %d\n", est.BusinessDays)
	fmt.Fprintf(w, "Start           %s\n", est.StartDate.Format(dateLayout))
	fmt.Fprintf(w, "Delivery        %s\n", est.DeliveryDate.Format(dateLayout))
}
