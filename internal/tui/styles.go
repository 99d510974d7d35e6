package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("39")  // 青色
	mutedColor  = lipgloss.Color("243") // 灰色
	downColor   = lipgloss.Color("42")  // 绿色
	upColor     = lipgloss.Color("214") // 橙色
	sortColor   = lipgloss.Color("226") // 黄色

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(mutedColor)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accentColor).
				Padding(0, 1)

	// 行样式的左右内边距计入 Program.Columns
	tableRowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("236")).
				Foreground(lipgloss.Color("255")).
				Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	inRateStyle = lipgloss.NewStyle().
			Foreground(downColor)

	outRateStyle = lipgloss.NewStyle().
			Foreground(upColor)

	sortModeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(sortColor)
)
