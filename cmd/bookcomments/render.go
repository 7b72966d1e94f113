package main

import (
	"fmt"
	"strconv"
	"strings"

	"bookcomments/internal/model"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const timeLayout = "2006-01-02 15:04"

func renderThreadList(threads []model.Thread) string {
	lw := list.NewWriter()
	lw.SetStyle(list.StyleConnectedRounded)
	for _, t := range threads {
		appendThread(lw, t)
	}
	return lw.Render()
}

func appendThread(lw list.Writer, t model.Thread) {
	lw.AppendItem(describe(t.Comment))
	if len(t.Replies) == 0 {
		return
	}
	lw.Indent()
	for _, r := range t.Replies {
		appendThread(lw, r)
	}
	lw.UnIndent()
}

func describe(c model.Comment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s", c.UserName, c.CreatedAt.UTC().Format(timeLayout))
	if c.EditedAt != nil {
		b.WriteString(", edited")
	}
	fmt.Fprintf(&b, ") +%d/-%d: %s", len(c.Likes), len(c.Dislikes), oneLine(c.Text))
	return b.String()
}

func renderThreadTable(threads []model.Thread) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Parent", "Author", "Created", "Likes", "Dislikes", "Text"})

	var walk func(t model.Thread)
	walk = func(t model.Thread) {
		c := t.Comment
		parent := ""
		if !c.IsRoot() {
			parent = shortID(*c.ParentID)
		}
		tw.AppendRow(table.Row{
			shortID(c.ID),
			parent,
			c.UserName,
			c.CreatedAt.UTC().Format(timeLayout),
			strconv.Itoa(len(c.Likes)),
			strconv.Itoa(len(c.Dislikes)),
			oneLine(c.Text),
		})
		for _, r := range t.Replies {
			walk(r)
		}
	}
	for _, t := range threads {
		walk(t)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, WidthMax: 60, WidthMaxEnforcer: text.Trim},
	})
	return tw.Render()
}

func summary(threads []model.Thread) string {
	total := 0
	for _, t := range threads {
		total += t.Size()
	}
	return fmt.Sprintf("%d threads, %d comments", len(threads), total)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

