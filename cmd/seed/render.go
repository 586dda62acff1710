package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"bookseed/internal/entity"
	"bookseed/internal/seeder"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// renderPlan prints the plan. The password is never shown.
func renderPlan(w io.Writer, p seeder.Plan) {
	roles := make([]string, 0, len(p.Admin.Roles))
	for _, r := range p.Admin.Roles {
		roles = append(roles, r.Role+"@"+r.DB)
	}

	t := newTable(w, "Seed plan")
	t.AppendHeader(table.Row{"Setting", "Value"})
	t.AppendRow(table.Row{"admin user", p.Admin.Username})
	t.AppendRow(table.Row{"admin database", p.Admin.Database})
	t.AppendRow(table.Row{"admin roles", strings.Join(roles, ", ")})
	t.AppendRow(table.Row{"target", p.Target.String()})
	t.AppendRow(table.Row{"books", len(p.Books)})
	t.Render()

	renderBooks(w, "Books", p.Books)
}

// renderBooks quotes titles so surrounding spaces and quotes stay visible.
func renderBooks(w io.Writer, title string, books []entity.Book) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"#", "id", "title"})
	for i, b := range books {
		t.AppendRow(table.Row{i + 1, b.ID, strconv.Quote(b.Title)})
	}
	t.AppendFooter(table.Row{"", "total", len(books)})
	t.Render()
}

func renderVerification(w io.Writer, v seeder.Verification) {
	t := newTable(w, "")
	t.AppendHeader(table.Row{"Check", "Value"})
	t.AppendRow(table.Row{"documents", v.Count})
	t.AppendRow(table.Row{"expected", v.Expected})
	t.AppendRow(table.Row{"duplicates", v.Duplicates})
	t.AppendRow(table.Row{"matches plan", v.Matches})
	t.Render()
}

func renderReport(w io.Writer, p seeder.Plan, r seeder.Report, v seeder.Verification) {
	t := newTable(w, "Seed report")
	t.AppendHeader(table.Row{"Step", "Result"})
	t.AppendRow(table.Row{"run id", r.RunID})
	t.AppendRow(table.Row{"admin user", fmt.Sprintf("%s (created: %t)", p.Admin.Username, r.UserCreated)})
	t.AppendRow(table.Row{"inserted into " + p.Target.String(), r.Inserted})
	t.AppendRow(table.Row{"total documents", v.Count})
	t.AppendRow(table.Row{"took", r.Finished.Sub(r.Started).String()})
	t.Render()
}
