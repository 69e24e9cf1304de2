package sim

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"planthealth-sim/internal/config"
	"planthealth-sim/internal/health"
	"planthealth-sim/internal/state"
	"planthealth-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// treatmentMsg carries a treatment.applied log line.
type treatmentMsg struct{ line string }

// zoneMsg carries a zone summary update.
type zoneMsg struct{ telemetry.ZoneRow }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

// Scheduler queues a treatment for every plant of a zone.
type Scheduler func(zoneID, optionID string, target state.HealthTarget) error

type setSchedulerMsg struct{ fn Scheduler }

// scheduleResultMsg reports the outcome of a dialog submission.
type scheduleResultMsg struct{ line string }

const (
	maxSectionHeightPct = 0.2
	maxLogLines         = 500
)

// TUIWriter renders health events using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	zoneColors map[string]string
	colorIdx   int
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	zc := make(map[string]string)
	w := &TUIWriter{zoneColors: zc, done: make(chan struct{})}
	w.sendSignal.Store(true)
	for _, s := range cfg.World.Structures {
		for _, r := range s.Rooms {
			for _, z := range r.Zones {
				w.zoneColor(z.ID)
			}
		}
	}
	m := newTUIModel(cfg, zc)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

func (w *TUIWriter) zoneColor(id string) string {
	if c, ok := w.zoneColors[id]; ok {
		return c
	}
	c := zonePalette[w.colorIdx%len(zonePalette)]
	w.zoneColors[id] = c
	w.colorIdx++
	return c
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(row telemetry.EventRow) error {
	zColor := w.zoneColor(row.ZoneID)
	switch row.Type {
	case health.EventTreatmentApplied:
		line := fmt.Sprintf("%s[%d]%s %szone=%s%s %s",
			colorGray, row.Tick, colorReset,
			zColor, row.ZoneID, colorReset, row.Payload)
		w.program.Send(treatmentMsg{line: line})
	default:
		col := colorGray
		if row.Type == health.EventPestDetected {
			col = colorRed
		}
		line := fmt.Sprintf("%s[%s]%s %s%s%s tick=%d %szone=%s%s %s",
			colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
			col, row.Type, colorReset, row.Tick,
			zColor, row.ZoneID, colorReset, row.Payload)
		w.program.Send(logMsg{line: line})
	}
	return nil
}

// WriteEvents outputs multiple event rows.
func (w *TUIWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		_ = w.WriteEvent(r)
	}
	return nil
}

// WriteZone implements ZoneWriter.
func (w *TUIWriter) WriteZone(row telemetry.ZoneRow) error {
	w.program.Send(zoneMsg{ZoneRow: row})
	return nil
}

// WriteZones outputs multiple zone rows.
func (w *TUIWriter) WriteZones(rows []telemetry.ZoneRow) error {
	for _, r := range rows {
		_ = w.WriteZone(r)
	}
	return nil
}

// SetAdminStatus updates the admin UI indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetScheduler registers the callback used by the treatment dialog.
func (w *TUIWriter) SetScheduler(fn Scheduler) {
	w.program.Send(setSchedulerMsg{fn: fn})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg          *config.SimulationConfig
	table        table.Model
	zoneTable    table.Model
	vp           viewport.Model
	treatVP      viewport.Model
	logs         []string
	treatLogs    []string
	zones        map[string]telemetry.ZoneRow
	zoneColors   map[string]string
	tick         int64
	admin        bool
	wrap         bool
	autoscroll   bool
	help         bool
	showZones    bool
	header       string
	headerHeight int
	height       int
	schedule     Scheduler
	input        textinput.Model
	dialog       bool
}

func newTUIModel(cfg *config.SimulationConfig, zoneColors map[string]string) tuiModel {
	cols := []table.Column{
		{Title: "Config", Width: 18},
		{Title: "Value", Width: 14},
	}
	rows := []table.Row{
		{"Tick Length (min)", fmt.Sprintf("%.0f", cfg.Simulation.TickLengthMinutes)},
		{"Ticks Per Day", fmt.Sprintf("%d", health.TicksPerDay(cfg.Simulation.TickLengthMinutes))},
		{"Scenario", cfg.Scenario},
		{"Treatments", fmt.Sprintf("%d", len(cfg.TreatmentOptions))},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	zt := table.New(table.WithColumns([]table.Column{
		{Title: "Zone", Width: 14},
		{Title: "Dis", Width: 4},
		{Title: "Pest", Width: 4},
		{Title: "Queued", Width: 6},
		{Title: "Applied", Width: 7},
		{Title: "REI", Width: 6},
		{Title: "PHI", Width: 6},
	}))
	in := textinput.New()
	in.Placeholder = "zone,option,target"
	if zoneColors == nil {
		zoneColors = map[string]string{}
	}
	return tuiModel{
		cfg:        cfg,
		table:      t,
		zoneTable:  zt,
		vp:         viewport.New(0, 0),
		treatVP:    viewport.New(0, 0),
		zones:      make(map[string]telemetry.ZoneRow),
		zoneColors: zoneColors,
		autoscroll: true,
		showZones:  true,
		input:      in,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width / 2)
		m.vp.Width = msg.Width
		m.treatVP.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshTreatments()
	case tea.KeyMsg:
		if m.dialog {
			return m.updateDialog(msg)
		}
		if m.help {
			switch msg.String() {
			case "h", "esc", "q":
				m.help = false
			case "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.treatVP.GotoBottom()
			}
		case "z":
			m.showZones = !m.showZones
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
		case "h":
			m.help = true
		case "t":
			m.dialog = true
			m.input.SetValue("")
			m.input.Focus()
			m.updateViewportHeight()
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case logMsg:
		m.logs = appendCapped(m.logs, msg.line)
		m.refreshViewport()
	case treatmentMsg:
		m.treatLogs = appendCapped(m.treatLogs, msg.line)
		m.updateViewportHeight()
		m.refreshTreatments()
	case scheduleResultMsg:
		m.logs = appendCapped(m.logs, msg.line)
		m.refreshViewport()
	case zoneMsg:
		m.zones[msg.ZoneID] = msg.ZoneRow
		if msg.Tick > m.tick {
			m.tick = msg.Tick
		}
		m.refreshZones()
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
	case adminMsg:
		m.admin = msg.active
	case setSchedulerMsg:
		m.schedule = msg.fn
	}
	return m, nil
}

func (m tuiModel) updateDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.dialog = false
		m.updateViewportHeight()
		zoneID, optionID, target, err := parseTreatmentInput(m.input.Value())
		if err != nil {
			m.logs = appendCapped(m.logs, fmt.Sprintf("%sschedule failed: %v%s", colorRed, err, colorReset))
			m.refreshViewport()
			return m, nil
		}
		if m.schedule == nil {
			return m, nil
		}
		fn := m.schedule
		return m, func() tea.Msg {
			if err := fn(zoneID, optionID, target); err != nil {
				return scheduleResultMsg{line: fmt.Sprintf("%sschedule failed: %v%s", colorRed, err, colorReset)}
			}
			return scheduleResultMsg{line: fmt.Sprintf("%sscheduled %s on %s (%s)%s", colorGreen, optionID, zoneID, target, colorReset)}
		}
	case tea.KeyEsc:
		m.dialog = false
		m.updateViewportHeight()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// parseTreatmentInput reads "zone,option[,target]". The target defaults to disease.
func parseTreatmentInput(val string) (string, string, state.HealthTarget, error) {
	parts := strings.Split(val, ",")
	if len(parts) < 2 {
		return "", "", "", fmt.Errorf("expected zone,option[,target]")
	}
	zoneID := strings.TrimSpace(parts[0])
	optionID := strings.TrimSpace(parts[1])
	if zoneID == "" || optionID == "" {
		return "", "", "", fmt.Errorf("zone and option are required")
	}
	target := state.TargetDisease
	if len(parts) > 2 {
		switch t := state.HealthTarget(strings.TrimSpace(parts[2])); t {
		case state.TargetDisease, state.TargetPest:
			target = t
		default:
			return "", "", "", fmt.Errorf("unknown target %q", t)
		}
	}
	return zoneID, optionID, target, nil
}

func appendCapped(lines []string, line string) []string {
	lines = append(lines, line)
	if extra := len(lines) - maxLogLines; extra > 0 {
		lines = lines[extra:]
	}
	return lines
}

func (m *tuiModel) refreshZones() {
	ids := make([]string, 0, len(m.zones))
	for id := range m.zones {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		z := m.zones[id]
		rows = append(rows, table.Row{
			id,
			fmt.Sprintf("%d", z.Diseases),
			fmt.Sprintf("%d", z.Pests),
			fmt.Sprintf("%d", z.PendingTreatments),
			fmt.Sprintf("%d", z.AppliedTreatments),
			restriction(z.ReentryRestrictedUntilTick),
			restriction(z.PreHarvestRestrictedUntilTick),
		})
	}
	m.zoneTable.SetRows(rows)
	m.zoneTable.SetHeight(len(rows) + 1)
}

func restriction(until int64) string {
	if until < 0 {
		return "-"
	}
	return fmt.Sprintf("%d", until)
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())

	treatLines := len(m.treatLogs)
	if treatLines == 0 {
		treatLines = 1
	}
	if limit := m.maxSectionLines(); treatLines > limit {
		treatLines = limit
	}
	m.treatVP.Height = treatLines

	dialogHeight := 0
	if m.dialog {
		dialogHeight = 2
	}
	h := m.height - m.headerHeight - bottomHeight - (1 + m.treatVP.Height) - dialogHeight - 4
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.treatVP.GotoBottom()
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshTreatments() {
	content := "none"
	if len(m.treatLogs) > 0 {
		content = strings.Join(m.treatLogs, "\n")
	}
	m.treatVP.SetContent(content)
	if m.autoscroll {
		m.treatVP.GotoBottom()
	}
}

func (m tuiModel) maxSectionLines() int {
	h := int(float64(m.height) * maxSectionHeightPct)
	if h < 1 {
		h = 1
	}
	return h
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		"Treatments:",
		m.treatVP.View(),
	}
	if m.dialog {
		sections = append(sections, divider, "Schedule treatment (zone,option,target):", m.input.View())
	}
	sections = append(sections, divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	left := m.table.View()
	if m.showZones && len(m.zones) > 0 {
		left = lipgloss.JoinVertical(lipgloss.Left, left, m.zoneTable.View())
	}
	width := m.vp.Width/2 - 1
	tree := renderZoneTree(m.cfg, m.zoneColors, m.wrap, width)
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, sep, tree)
}

func renderZoneTree(cfg *config.SimulationConfig, colors map[string]string, wrap bool, width int) string {
	var b strings.Builder
	b.WriteString("Facility\n")
	for _, s := range cfg.World.Structures {
		b.WriteString(s.ID + "\n")
		for _, r := range s.Rooms {
			b.WriteString("  " + r.ID + "\n")
			for i, z := range r.Zones {
				prefix := "├─"
				if i == len(r.Zones)-1 {
					prefix = "└─"
				}
				line := fmt.Sprintf("    %s %s%s%s %s", prefix, colors[z.ID], z.ID, colorReset, z.Name)
				if wrap && width > 0 {
					line = wordwrap.String(line, width)
				}
				b.WriteString(line + "\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	var diseases, pests, queued int
	for _, z := range m.zones {
		diseases += z.Diseases
		pests += z.Pests
		queued += z.PendingTreatments
	}
	status := fmt.Sprintf("%sTICK%s %d %sdiseases=%d%s %spests=%d%s %squeued=%d%s",
		colorBlue, colorReset, m.tick,
		colorMagenta, diseases, colorReset,
		colorYellow, pests, colorReset,
		colorCyan, queued, colorReset)
	return fmt.Sprintf("%s | Admin UI %s | Wrap %s | Scroll %s | Zones %s | Help %s",
		status, indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll), indicator(m.showZones), indicator(m.help))
}

func (m tuiModel) renderHelp() string {
	return strings.Join([]string{
		"Keys",
		"  w  toggle line wrap",
		"  s  toggle autoscroll",
		"  z  toggle zone table",
		"  t  schedule a treatment (zone,option[,target])",
		"  h  toggle help",
		"  q  quit",
	}, "\n")
}
