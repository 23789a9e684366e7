package main

import (
	"encoding/json"
	"io"
	"strconv"

	"datalanding/landing"
	"datalanding/posix"
	"datalanding/store"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	return table
}

func printBuckets(w io.Writer, buckets []string) {
	table := newTable(w, "BUCKET")
	for _, bucket := range buckets {
		table.Append([]string{bucket})
	}
	table.Render()
}

func printObjects(w io.Writer, objects []store.ObjectInfo) {
	table := newTable(w, "KEY", "SIZE", "MODIFIED")
	for _, object := range objects {
		table.Append([]string{object.Key, humanize.IBytes(uint64(object.Size)), humanize.Time(object.Modified)})
	}
	table.Render()
}

func printSummary(w io.Writer, summary store.PrefixSummary) {
	table := newTable(w, "FOLDER", "OBJECTS", "SIZE", "SIZE (MB)")
	table.Append([]string{
		summary.Folder,
		humanize.Comma(int64(summary.ObjectCount)),
		humanize.IBytes(uint64(summary.TotalSize)),
		strconv.FormatFloat(summary.TotalSizeMB, 'f', 2, 64),
	})
	table.Render()
}

func printListing(w io.Writer, entries []posix.ListingEntry) {
	table := newTable(w, "MODE", "LINKS", "OWNER", "GROUP", "SIZE", "MODIFIED", "NAME")
	for _, entry := range entries {
		name := entry.Name
		if entry.SymlinkTarget != "" {
			name += " -> " + entry.SymlinkTarget
		}
		table.Append([]string{
			entry.Mode,
			strconv.FormatUint(entry.LinkCount, 10),
			entry.Owner,
			entry.Group,
			humanize.IBytes(uint64(entry.Size)),
			entry.Modified.Format("Jan _2 15:04"),
			name,
		})
	}
	table.Render()
}

func printResult(w io.Writer, result landing.Result) {
	table := newTable(w, "TARGET", "LOCATION", "ROWS", "SIZE")
	size := ""
	switch {
	case result.Size > 0:
		size = humanize.IBytes(uint64(result.Size))
	case result.TableRows > 0:
		size = humanize.Comma(result.TableRows) + " rows in table"
	}
	table.Append([]string{result.Target.String(), result.Location, humanize.Comma(int64(result.Rows)), size})
	table.Render()
}
