package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/IshaanNene/NewsHarvest/internal/engine"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

func printArticle(a *types.Article) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendRows([]table.Row{
		{"Title", a.Title},
		{"URL", a.URL},
		{"Source", a.Source},
		{"Published", fmt.Sprintf("%s (%s)", a.PublishTime.Format(time.DateTime), a.PublishTimeSource)},
		{"Keywords", strings.Join(a.Keywords, ", ")},
		{"Content", contentSummary(a)},
		{"Fetched", a.FetchTime.Format(time.DateTime)},
	})
	t.Render()
}

func printBatch(o *engine.BatchOutcome) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Title", "Source", "Published", "URL"})
	for i, a := range o.Result.Succeeded {
		t.AppendRow(table.Row{i + 1, a.Title, a.Source, a.PublishTime.Format(time.DateTime), a.URL})
	}
	t.Render()

	if len(o.Result.Failed) > 0 {
		f := table.NewWriter()
		f.SetOutputMirror(os.Stdout)
		f.SetStyle(table.StyleLight)
		f.AppendHeader(table.Row{"Failed URL", "Class", "Error"})
		for _, fail := range o.Result.Failed {
			f.AppendRow(table.Row{fail.URL, types.ClassOf(fail.Err), fail.Err.Error()})
		}
		f.Render()
	}

	fmt.Printf("\nCrawled %d articles from %s (%d failed) in %s\n",
		o.Summary.Count, o.EntryURL, o.Summary.FailedCount, o.Result.Duration.Round(time.Millisecond))
	if o.Keyword != "" {
		fmt.Printf("Keyword: %s\n", o.Keyword)
	}
	if o.History != nil {
		fmt.Printf("History: %s\n", o.History.ID)
	}
}

func contentSummary(a *types.Article) string {
	if a.ContentMissing {
		return a.Content
	}
	runes := []rune(a.Content)
	if len(runes) > 80 {
		return string(runes[:80]) + "..."
	}
	return a.Content
}
