package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/devstudio/backoffice/pkg/calendar"
)

func holidaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "holidays [year]",
		Short: "List the non-business days of a year",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			year := time.Now().In(cfg.Location()).Year()
			if len(args) == 1 {
				if year, err = strconv.Atoi(args[0]); err != nil || year < 1900 {
					return fmt.Errorf("invalid year %q", args[0])
				}
			}
			extra, err := cfg.ExtraHolidayDates()
			if err != nil {
				return err
			}

			cal := calendar.New(extra...)
			from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
			for _, h := range cal.HolidaysBetween(from, to) {
				marker := ""
				if h.Movable {
					marker = " *"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-3s %s%s\n", h.Date.Format(dateLayout), weekday(h.Date), h.Name, marker)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d business days in %d\n", cal.BusinessDaysBetween(from.AddDate(0, 0, -1), to), year)
			return nil
		},
	}
}

var weekdaysPT = [...]string{"dom", "seg", "ter", "qua", "qui", "sex", "sáb"}

func weekday(t time.Time) string {
	return weekdaysPT[t.Weekday()]
}
