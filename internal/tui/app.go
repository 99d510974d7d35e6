package tui

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sys/unix"

	"github.com/nickproject/sniwatch/internal/aggregator"
)

// Config TUI 配置
type Config struct {
	Hostname   string
	Device     string
	Backend    string
	Interfaces []string
	Columns    int // 收到窗口尺寸前使用的默认列数
}

// Frame 一个刷新周期的显示内容
type Frame struct {
	At    time.Time
	Rows  []Row
	Total aggregator.Group
	Flows int // 状态表中的连接数（含隐藏的空闲连接）
}

// Program 基于 bubbletea 的终端输出
type Program struct {
	cfg    Config
	frames chan Frame
	cols   atomic.Int64
}

// NewProgram 创建终端输出
func NewProgram(cfg Config) *Program {
	if cfg.Columns <= 0 {
		cfg.Columns = 80
	}
	p := &Program{
		cfg:    cfg,
		frames: make(chan Frame, 1),
	}
	p.cols.Store(int64(cfg.Columns))
	return p
}

// Columns 返回可用于渲染行的列数
func (p *Program) Columns() int {
	// 行样式左右各占 1 列
	return int(p.cols.Load()) - 2
}

// Present 非阻塞地提交一帧，界面尚未取走上一帧时丢弃并返回 false
func (p *Program) Present(f Frame) bool {
	select {
	case p.frames <- f:
		return true
	default:
		return false
	}
}

// Run 运行 TUI，阻塞直到用户退出或 ctx 取消
func (p *Program) Run(ctx context.Context) error {
	prog := tea.NewProgram(
		newModel(p.cfg, p.frames, &p.cols),
		tea.WithAltScreen(),
	)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			prog.Quit()
		case <-done:
		}
	}()

	_, err := prog.Run()
	return err
}

// Model TUI 模型
type Model struct {
	config      Config
	frame       Frame
	sortMode    aggregator.SortMode
	paused      bool
	filterInput textinput.Model
	filtering   bool
	filterText  string
	selected    int
	width       int
	height      int
	startTime   time.Time
	showHelp    bool
	frames      <-chan Frame
	cols        *atomic.Int64
	interrupt   func()
}

type frameMsg Frame

func newModel(cfg Config, frames <-chan Frame, cols *atomic.Int64) Model {
	ti := textinput.New()
	ti.Placeholder = "输入域名关键词..."
	ti.CharLimit = 50

	return Model{
		config:      cfg,
		sortMode:    aggregator.SortByReceived,
		filterInput: ti,
		startTime:   time.Now(),
		frames:      frames,
		cols:        cols,
		width:       cfg.Columns,
		height:      24,
		interrupt:   sendInterrupt,
	}
}

// sendInterrupt 向自身发送 SIGINT，由主流程统一退出
func sendInterrupt() {
	_ = unix.Kill(os.Getpid(), unix.SIGINT)
}

// Init 初始化
func (m Model) Init() tea.Cmd {
	return waitForFrame(m.frames)
}

func waitForFrame(ch <-chan Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-ch
		if !ok {
			return nil
		}
		return frameMsg(f)
	}
}

// Update 更新状态
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterInput(msg)
		}
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.cols.Store(int64(msg.Width))
		return m, tea.ClearScreen

	case frameMsg:
		if !m.paused {
			m.frame = Frame(msg)
			if m.selected >= len(m.frame.Rows) {
				m.selected = 0
			}
		}
		return m, waitForFrame(m.frames)
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	switch msg.String() {
	case "q", "ctrl+c":
		m.interrupt()
		return m, tea.Quit
	case "ctrl+l":
		return m, tea.ClearScreen
	case "s":
		m.sortMode = (m.sortMode + 1) % 4
	case "p":
		m.paused = !m.paused
	case "/":
		m.filtering = true
		m.filterInput.Focus()
		return m, textinput.Blink
	case "?":
		m.showHelp = true
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.frame.Rows)-1 {
			m.selected++
		}
	case "home":
		m.selected = 0
	case "end":
		if len(m.frame.Rows) > 0 {
			m.selected = len(m.frame.Rows) - 1
		}
	}
	return m, nil
}

func (m Model) handleFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filterText = m.filterInput.Value()
		m.filtering = false
		m.filterInput.Blur()
		m.selected = 0
	case "esc":
		m.filtering = false
		m.filterInput.Blur()
		m.filterInput.SetValue(m.filterText)
	default:
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// visibleRows 应用关键词过滤与排序
func (m Model) visibleRows() []Row {
	rows := make([]Row, 0, len(m.frame.Rows))
	keyword := strings.ToLower(m.filterText)
	for _, r := range m.frame.Rows {
		if keyword == "" || strings.Contains(strings.ToLower(r.Group.Hostname), keyword) {
			rows = append(rows, r)
		}
	}
	if m.sortMode != aggregator.SortByReceived {
		sort.SliceStable(rows, func(i, j int) bool {
			return m.sortMode.Less(rows[i].Group, rows[j].Group)
		})
	}
	return rows
}

// View 渲染视图
func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTable())
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	runtime := time.Since(m.startTime).Round(time.Second)

	line1 := fmt.Sprintf(" sniwatch | Host: %s | Device: %s (%s)",
		m.config.Hostname, m.config.Device, m.config.Backend)
	if len(m.config.Interfaces) > 0 {
		line1 += " | NICs: " + strings.Join(m.config.Interfaces, ", ")
	}

	line2 := fmt.Sprintf(" Total: down %s  up %s | Hosts: %d | Flows: %d | Runtime: %s",
		inRateStyle.Render(FormatRate(m.frame.Total.Received)),
		outRateStyle.Render(FormatRate(m.frame.Total.Sent)),
		len(m.frame.Rows),
		m.frame.Flows,
		runtime)
	if m.paused {
		line2 += " [PAUSED]"
	}

	return titleStyle.Render(line1) + "\n" + headerStyle.Render(line2)
}

func (m Model) renderTable() string {
	var b strings.Builder

	width := TitleWidth(m.width - 2)
	header := fmt.Sprintf("%s %12s %12s %10s %10s",
		PadRight("Host", width), "Up/s", "Down/s", "Up", "Down")
	b.WriteString(tableHeaderStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", max(m.width, 0)))
	b.WriteString("\n")

	maxRows := m.height - 8
	if maxRows < 1 {
		maxRows = 10
	}

	for i, row := range m.visibleRows() {
		if i >= maxRows {
			break
		}
		if i == m.selected {
			b.WriteString(selectedRowStyle.Render(row.Line))
		} else {
			b.WriteString(tableRowStyle.Render(row.Line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderFooter() string {
	var footer string
	if m.filtering {
		footer = " Filter: " + m.filterInput.View()
	} else {
		footer = fmt.Sprintf(" [q]uit  [s]ort: %s  [p]ause  [/]filter  [^L]redraw  [?]help",
			sortModeStyle.Render(m.sortMode.String()))
		if m.filterText != "" {
			footer += fmt.Sprintf("  Filter: %s", m.filterText)
		}
	}
	return footerStyle.Render(footer)
}

func (m Model) renderHelp() string {
	help := `
 sniwatch 快捷键帮助

 导航:
   up/k     向上移动
   down/j   向下移动
   Home     跳到顶部
   End      跳到底部

 操作:
   s        切换排序 (Down -> Up -> Total -> Conns)
   p        暂停/恢复刷新
   /        按域名关键词过滤
   Ctrl+L   重绘屏幕
   ?        显示/隐藏帮助

 退出:
   q        退出程序
   Ctrl+C   退出程序

 按任意键返回...
`
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1, 2).
		Render(help)
}
