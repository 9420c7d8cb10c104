// Package listcmder provides the `stamps list` CLI command.
package listcmder

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tomp11/sb-stamp-manager/pkg/app"
	"github.com/tomp11/sb-stamp-manager/pkg/cliui"
	"github.com/tomp11/sb-stamp-manager/pkg/stamp"
	"github.com/tomp11/sb-stamp-manager/pkg/storage"
	"github.com/tomp11/sb-stamp-manager/pkg/utils"
)

type listCommander struct {
	sortBy  string
	desc    bool
	showIDs bool
	debug   bool
}

const listLongDesc string = `Show the stamp collection.

By default records appear in collection order, most recently added first.

Examples:
  stamps list                   Show the collection
  stamps list --sort date       Order by last visit, newest first
  stamps list --sort name       Order by store name
  stamps list --sort count --desc
  stamps list --ids             Include record ids (for stamps remove)`

const listShortDesc string = "Show the stamp collection"

func NewListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context(), configDir)
		},
	}

	cmd.Flags().StringVar(&cmder.sortBy, "sort", "", "Sort key: date, name, prefecture, or count")
	cmd.Flags().BoolVar(&cmder.desc, "desc", false, "Reverse the sort order")
	cmd.Flags().BoolVar(&cmder.showIDs, "ids", false, "Show record ids")

	return cmd
}

func (c *listCommander) run(ctx context.Context, configDir string) error {
	a, err := app.New(ctx, configDir, c.debug)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.ActivateCurrent(ctx)
	if err != nil {
		return err
	}

	records := a.Store.Records()
	switch c.sortBy {
	case "":
	case "date":
		storage.SortByVisitDate(records)
	case "name":
		sort.SliceStable(records, func(i, j int) bool {
			return stamp.NormalizeName(records[i].StoreName) < stamp.NormalizeName(records[j].StoreName)
		})
	case "prefecture":
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Prefecture < records[j].Prefecture
		})
	case "count":
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Visits() > records[j].Visits()
		})
	default:
		return fmt.Errorf("unknown sort key: %q (valid: date, name, prefecture, count)", c.sortBy)
	}
	if c.desc {
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
	}

	owner := "signed out"
	if !session.IsAnonymous() {
		owner = session.OwnerID()
	}

	fmt.Printf("\n  %s %s\n",
		cliui.HeaderStyle.Render(fmt.Sprintf("%d stamps", len(records))),
		cliui.DimStyle.Render("("+owner+")"),
	)
	if a.Store.IsDirty() {
		fmt.Printf("  %s unsynced changes, run 'stamps sync'\n", cliui.WarnStyle.Render("!"))
	}
	fmt.Println()

	if len(records) == 0 {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("No stamps yet. Use 'stamps ingest <image>' to add some."))
		return nil
	}

	for _, rec := range records {
		fmt.Printf("  %s %s\n",
			cliui.NameStyle.Render(rec.StoreName),
			cliui.DimStyle.Render(rec.Prefecture),
		)

		details := ""
		if rec.LastVisitDate != nil {
			details += "last visit " + *rec.LastVisitDate
		}
		if rec.VisitCount != nil {
			if details != "" {
				details += ", "
			}
			details += fmt.Sprintf("%d visits", *rec.VisitCount)
		}
		if details != "" {
			fmt.Printf("    %s\n", cliui.StepStyle.Render(details))
		}
		if rec.Address != "" {
			fmt.Printf("    %s\n", cliui.DimStyle.Render(utils.Truncate(rec.Address, 60)))
		}
		if c.showIDs {
			fmt.Printf("    %s\n", cliui.DimStyle.Render(rec.ID))
		}
	}
	fmt.Println()

	return nil
}
