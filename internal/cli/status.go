package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/quintave/quintave/internal/access"
	"github.com/quintave/quintave/internal/allocation"
	"github.com/quintave/quintave/internal/model"
)

const timeLayout = "2006-01-02 15:04 MST"

// RenderAccount renders a user's access state and bucket summary for the
// operator status command.
func RenderAccount(user *model.User, status access.Status, summary allocation.Summary) string {
	var b strings.Builder

	b.WriteString(FormatTitle(fmt.Sprintf("%s (#%d)", displayName(user), user.ID)))
	b.WriteString("\n")
	b.WriteString(RenderBox("Access", renderAccess(user, status)))
	b.WriteString("\n")

	if len(summary.Buckets) == 0 {
		b.WriteString(FormatInfo("No buckets yet"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(renderBuckets(summary))
	b.WriteString("\n")
	if summary.OverspentCount > 0 {
		b.WriteString(FormatWarning(fmt.Sprintf("%d overspent, total debt %s", summary.OverspentCount, summary.TotalDebt.StringFixed(2))))
	} else {
		b.WriteString(FormatSuccess("No bucket is overspent"))
	}
	b.WriteString("\n")
	return b.String()
}

func displayName(user *model.User) string {
	if user.Name != "" {
		return user.Name
	}
	return user.OpenID
}

func renderAccess(user *model.User, status access.Status) string {
	var state string
	switch status.State {
	case access.StatePurchased:
		state = SuccessStyle.Render(string(status.State))
	case access.StateTrial:
		state = InfoStyle.Render(fmt.Sprintf("%s, %d days left", status.State, status.TrialDaysRemaining))
	default:
		state = ErrorStyle.Render(string(status.State))
	}

	lines := []string{
		BoldStyle.Render("State: ") + state,
		BoldStyle.Render("Open ID: ") + user.OpenID,
		BoldStyle.Render("Signed up: ") + user.CreatedAt.Format(timeLayout),
		BoldStyle.Render("Trial ends: ") + status.TrialEndsAt.Format(timeLayout),
	}
	if status.PurchasedAt != nil {
		lines = append(lines, BoldStyle.Render("Purchased: ")+status.PurchasedAt.Format(timeLayout))
	}
	if user.RevenueCatAppUserID != "" {
		lines = append(lines, BoldStyle.Render("RevenueCat ID: ")+user.RevenueCatAppUserID)
	}
	if !user.HasCompletedOnboarding {
		lines = append(lines, SubtleStyle.Render("Onboarding not completed"))
	}
	return strings.Join(lines, "\n")
}

func renderBuckets(summary allocation.Summary) string {
	headers := []string{"Bucket", "Balance", "Allocated", "Spent", "Remaining"}
	rows := make([][]string, 0, len(summary.Buckets)+1)
	for _, v := range summary.Buckets {
		rows = append(rows, []string{
			v.Name,
			v.Balance.StringFixed(2),
			v.Allocated.StringFixed(2),
			v.Spent.StringFixed(2),
			v.Remaining.StringFixed(2),
		})
	}
	rows = append(rows, []string{
		"Total",
		summary.TotalBalance.StringFixed(2),
		summary.TotalAllocated.StringFixed(2),
		summary.TotalSpent.StringFixed(2),
		"",
	})

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	cells := func(values []string, style lipgloss.Style, overspent bool) string {
		parts := make([]string, len(values))
		for i, v := range values {
			s := style.Width(widths[i] + 2)
			if i > 0 {
				s = s.Align(lipgloss.Right)
			}
			if overspent && i == 3 {
				s = s.Foreground(ErrorColor)
			}
			parts[i] = s.Render(v)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}

	lines := []string{cells(headers, TableHeaderStyle, false)}
	for i, row := range rows {
		overspent := i < len(summary.Buckets) && summary.Buckets[i].IsOverspent
		lines = append(lines, cells(row, TableCellStyle, overspent))
	}
	return strings.Join(lines, "\n")
}
