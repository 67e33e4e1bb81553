package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/message"

	"github.com/y-ui/yuictl/internal/api"
	"github.com/y-ui/yuictl/internal/ui"
)

type pageInfo struct {
	page  int
	pages int
	total int64
}

type tableData struct {
	rows [][]string
	info *pageInfo
}

// TableModel is a paginated resource list.
type TableModel struct {
	Title string
	Page  int

	p         *message.Printer
	empty     string
	paginated bool
	info      *pageInfo
	loaded    bool
	err       error
	table     table.Model
	fetch     func(ctx context.Context, a *api.API, page int) (any, error)
}

func newTableModel[T any](schema ui.Table[T], p *message.Printer,
	list func(ctx context.Context, a *api.API, page int) ([]T, *pageInfo, error)) *TableModel {

	headers, widths := schema.Headers(p), schema.Widths()
	columns := make([]table.Column, len(headers))
	for i := range headers {
		columns[i] = table.Column{Title: headers[i], Width: widths[i]}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	t.SetStyles(tableStyles())

	return &TableModel{
		Title:     schema.Title,
		Page:      1,
		p:         p,
		empty:     schema.EmptyText,
		paginated: schema.Paginated,
		table:     t,
		fetch: func(ctx context.Context, a *api.API, page int) (any, error) {
			items, info, err := list(ctx, a, page)
			if err != nil {
				return nil, err
			}
			return tableData{rows: schema.Rows(items, p), info: info}, nil
		},
	}
}

func paged[T any](pg *api.Page[T], err error) ([]T, *pageInfo, error) {
	if err != nil {
		return nil, nil, err
	}
	return pg.List, &pageInfo{page: pg.Page, pages: pg.Pages(), total: pg.Total}, nil
}

func newTables(p *message.Printer) map[string]*TableModel {
	opts := func(page int) api.ListOptions { return api.ListOptions{Page: page} }
	return map[string]*TableModel{
		"/clients": newTableModel(ui.Clients, p, func(ctx context.Context, a *api.API, page int) ([]api.Client, *pageInfo, error) {
			return paged(a.Clients.List(ctx, opts(page)))
		}),
		"/inbounds": newTableModel(ui.Inbounds, p, func(ctx context.Context, a *api.API, page int) ([]api.Inbound, *pageInfo, error) {
			return paged(a.Inbounds.List(ctx, opts(page)))
		}),
		"/outbounds": newTableModel(ui.Outbounds, p, func(ctx context.Context, a *api.API, page int) ([]api.Outbound, *pageInfo, error) {
			return paged(a.Outbounds.List(ctx, opts(page)))
		}),
		"/certificates": newTableModel(ui.Certificates, p, func(ctx context.Context, a *api.API, page int) ([]api.Certificate, *pageInfo, error) {
			return paged(a.Certificates.List(ctx, opts(page)))
		}),
		"/users": newTableModel(ui.Users, p, func(ctx context.Context, a *api.API, page int) ([]api.User, *pageInfo, error) {
			return paged(a.Users.List(ctx, opts(page)))
		}),
		"/audit": newTableModel(ui.Audit, p, func(ctx context.Context, a *api.API, page int) ([]api.AuditLog, *pageInfo, error) {
			return paged(a.Audit.List(ctx, api.AuditFilter{ListOptions: opts(page)}))
		}),
		"/traffic": newTableModel(ui.Daily, p, func(ctx context.Context, a *api.API, _ int) ([]api.DailyTraffic, *pageInfo, error) {
			days, err := a.Stats.Daily(ctx, 30)
			return days, nil, err
		}),
	}
}

// Apply stores a load result. A failed refresh keeps the last rows.
func (m *TableModel) Apply(data any, err error) {
	m.err = err
	d, ok := data.(tableData)
	if !ok {
		return
	}
	m.loaded = true
	m.info = d.info
	if d.info != nil && d.info.page > 0 {
		m.Page = d.info.page
	}
	rows := make([]table.Row, len(d.rows))
	for i, r := range d.rows {
		rows[i] = table.Row(r)
	}
	m.table.SetRows(rows)
}

// HandleKey moves the cursor or changes page. It returns the page to load
// when the page changed.
func (m *TableModel) HandleKey(msg tea.KeyMsg) (int, bool) {
	if m.paginated && m.info != nil {
		switch msg.String() {
		case "n", "right":
			if m.Page < m.info.pages {
				return m.Page + 1, true
			}
			return m.Page, false
		case "p", "left":
			if m.Page > 1 {
				return m.Page - 1, true
			}
			return m.Page, false
		}
	}
	m.table, _ = m.table.Update(msg)
	return m.Page, false
}

func (m *TableModel) Resize(width, height int) {
	if h := height - 14; h > 3 {
		m.table.SetHeight(h)
	}
	if w := width - 6; w > 20 {
		m.table.SetWidth(w)
	}
}

// Rows returns the rendered cells; used by tests.
func (m *TableModel) Rows() []table.Row {
	return m.table.Rows()
}

func (m *TableModel) View() string {
	parts := []string{StyleHeader.Render(m.p.Sprintf(m.Title))}
	switch {
	case !m.loaded && m.err == nil:
		parts = append(parts, m.p.Sprintf("Loading..."))
	case m.loaded && len(m.table.Rows()) == 0:
		parts = append(parts, StyleSubtitle.Render(m.p.Sprintf(m.empty)))
	case m.loaded:
		parts = append(parts, m.table.View())
	}
	if m.paginated && m.info != nil && m.info.pages > 1 {
		parts = append(parts, StyleSubtitle.Render(
			m.p.Sprintf("Page %d of %d (%d total)", m.Page, m.info.pages, m.info.total)+"  [p/n]"))
	}
	if m.err != nil {
		parts = append(parts, errText(m.err))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
