package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-dashboard/internal/model"
	"task-dashboard/internal/query"
)

const (
	cbPagePrefix = "page:"
	cbNoop       = "noop"
)

const (
	iconDefault   = "🟢"
	iconDue       = "⏳"
	iconOverdue   = "⚠️"
	iconCompleted = "✅"
	iconCancelled = "🚫"
)

func renderPage(res query.Result, f query.FilterState, now time.Time) string {
	var b strings.Builder
	pages := res.PageCount()
	if pages == 0 {
		pages = 1
	}
	b.WriteString(fmt.Sprintf("📋 <b>Tasks</b> · page %d/%d · %d matching\n", res.Page, pages, res.TotalMatching))
	b.WriteString(describeFilter(f))
	b.WriteString("\n\n")

	if res.TotalMatching == 0 {
		b.WriteString("Nothing matches. Loosen the filters or /clear them.")
		return b.String()
	}
	if len(res.Visible) == 0 {
		b.WriteString("This page is empty. Go back with the buttons below.")
		return b.String()
	}

	offset := (res.Page - 1) * res.PageSize
	for i, task := range res.Visible {
		b.WriteString(formatRow(offset+i+1, task, now))
	}
	return strings.TrimSpace(b.String())
}

func describeFilter(f query.FilterState) string {
	var parts []string
	if len(f.Priorities) > 0 {
		parts = append(parts, "priority "+escape(strings.Join(f.Priorities, ", ")))
	}
	if f.CategoryID != "" {
		parts = append(parts, "category #"+escape(f.CategoryID.String()))
	}
	if f.Title.Active() {
		parts = append(parts, "search "+describeTerm(f.Title))
	}
	if f.SubCategory.Active() {
		parts = append(parts, "subcategory "+describeTerm(f.SubCategory))
	}
	arrow := "↑"
	if f.Direction == query.Desc {
		arrow = "↓"
	}
	key := f.SortKey
	if key == "" {
		key = query.SortTitle
	}
	parts = append(parts, fmt.Sprintf("sort %s %s", key, arrow))
	return "<i>" + strings.Join(parts, " · ") + "</i>"
}

func describeTerm(t query.SearchTerm) string {
	if t.Kind == query.TermResolved {
		return "#" + escape(t.ID.String())
	}
	return "“" + escape(t.Text) + "”"
}

func formatRow(n int, task model.Task, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d. %s <b>%s</b>", n, statusIcon(task, now), escape(normalizeTitle(task.Title))))
	if p := strings.TrimSpace(string(task.Priority)); p != "" {
		b.WriteString(fmt.Sprintf(" [%s]", escape(p)))
	}
	b.WriteString(fmt.Sprintf(" · %s\n", escape(string(task.Status))))

	var details []string
	if task.Deadline != nil {
		details = append(details, "⏰ "+task.Deadline.In(now.Location()).Format("2006-01-02 15:04"))
	}
	if name := strings.TrimSpace(task.SubCategoryName()); name != "" {
		details = append(details, "🏷️ "+escape(name))
	}
	if len(details) > 0 {
		b.WriteString("   " + strings.Join(details, " · ") + "\n")
	}
	if desc := strings.TrimSpace(task.Description); desc != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(shortTitle(desc, 80))))
	}
	return b.String()
}

func statusIcon(task model.Task, now time.Time) string {
	switch task.Status {
	case model.StatusCompleted:
		return iconCompleted
	case model.StatusCancelled:
		return iconCancelled
	}
	if task.Deadline != nil {
		d := task.Deadline.In(now.Location())
		if now.After(d) {
			return iconOverdue
		} else if d.Sub(now) <= 48*time.Hour {
			return iconDue
		}
	}
	return iconDefault
}

// pageKeyboard returns nil when everything fits on one page.
func pageKeyboard(res query.Result) *tgbotapi.InlineKeyboardMarkup {
	pages := res.PageCount()
	if pages <= 1 && res.Page <= 1 {
		return nil
	}
	var row []tgbotapi.InlineKeyboardButton
	if res.Page > 1 {
		prev := res.Page - 1
		if pages > 0 && prev > pages {
			prev = pages
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("◀️ Prev", cbPagePrefix+strconv.Itoa(prev)))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d/%d", res.Page, pages), cbNoop))
	if res.Page < pages {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Next ▶️", cbPagePrefix+strconv.Itoa(res.Page+1)))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}

func parsePage(data string) (int, error) {
	return strconv.Atoi(strings.TrimPrefix(data, cbPagePrefix))
}

func escape(s string) string {
	return html.EscapeString(s)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
