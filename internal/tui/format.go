package tui

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nickproject/sniwatch/internal/aggregator"
)

const (
	// SizeWidth 字节数列宽
	SizeWidth = 9
	// 4 个分隔空格 + 2 个速率列 (9+"/s↑") + 2 个总量列 (9+"↑")
	fixedColumns = 4 + (SizeWidth+3)*2 + (SizeWidth+1)*2

	scaleThreshold = 1100
)

var sizeUnits = [...]byte{'K', 'M', 'G', 'T'}

// FormatSize 将字节数格式化为固定宽度字符串，如 "    1.5 KB"
func FormatSize(n uint64, width int) string {
	if n <= scaleThreshold {
		return fmt.Sprintf("%*d B", pad(width, 2), n)
	}
	value := float64(n)
	unit := -1
	for value > scaleThreshold && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%*.1f %cB", pad(width, 3), value, sizeUnits[unit])
}

// FormatRate 格式化速率
func FormatRate(bytesPerSec uint64) string {
	return strings.TrimSpace(FormatSize(bytesPerSec, 0)) + "/s"
}

func pad(width, suffix int) int {
	if width < suffix {
		return 0
	}
	return width - suffix
}

// Row 一行渲染结果
type Row struct {
	Group aggregator.Group
	Title string
	Line  string
}

// TitleWidth 根据终端列数计算标题列宽度
func TitleWidth(cols int) int {
	if cols < fixedColumns {
		return 0
	}
	return cols - fixedColumns
}

// Title 生成分组标题；多个连接时追加 " ×N"，并为后缀预留宽度
func Title(g aggregator.Group, width int) string {
	if g.Conns <= 1 {
		return truncate(g.Hostname, width)
	}
	count := strconv.Itoa(g.Conns)
	avail := width - 2 - len(count)
	if avail < 0 {
		avail = 0
	}
	return truncate(g.Hostname, avail) + " ×" + count
}

// RenderRows 将分组渲染为固定宽度的行
func RenderRows(groups []aggregator.Group, cols int) []Row {
	width := TitleWidth(cols)
	rows := make([]Row, 0, len(groups))
	for _, g := range groups {
		title := Title(g, width)
		line := fmt.Sprintf("%s %s/s↑ %s/s↓ %s↑ %s↓",
			PadRight(title, width),
			FormatSize(g.Sent, SizeWidth),
			FormatSize(g.Received, SizeWidth),
			FormatSize(g.TotalSent, SizeWidth),
			FormatSize(g.TotalReceived, SizeWidth),
		)
		rows = append(rows, Row{Group: g, Title: title, Line: line})
	}
	return rows
}

// truncate 按字符截断
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// PadRight 右填充字符串到指定宽度
func PadRight(s string, width int) string {
	runeCount := utf8.RuneCountInString(s)
	if runeCount >= width {
		return s
	}
	return s + strings.Repeat(" ", width-runeCount)
}
