package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/betbot/copybot/internal/statusapi"
	sdkhttp "github.com/betbot/copybot/pkg/sdk/http"
)

const refreshInterval = 2 * time.Second

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	okStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // 绿色

	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // 红色

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

func newAPIClient(cmd *cli.Command) *sdkhttp.Client {
	return sdkhttp.NewClient(cmd.String("addr"), sdkhttp.WithTimeout(5*time.Second), sdkhttp.WithRetryCount(0))
}

// tickMsg 定时刷新
type tickMsg time.Time

type statusMsg struct {
	status *statusapi.StatusResponse
	err    error
}

type model struct {
	api     *sdkhttp.Client
	addr    string
	status  *statusapi.StatusResponse
	err     error
	fetched time.Time
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchStatus(m.api), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, fetchStatus(m.api)
		}
	case tickMsg:
		return m, tea.Batch(fetchStatus(m.api), tickCmd())
	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
			m.fetched = time.Now()
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("copybot status · "+m.addr) + "\n\n")

	if m.err != nil {
		b.WriteString(errStyle.Render("error: "+m.err.Error()) + "\n\n")
	}
	if m.status == nil {
		b.WriteString("waiting for status...\n")
		return b.String()
	}

	st := m.status
	state := errStyle.Render("stopped")
	if st.IsRunning {
		state = okStyle.Render("running")
	}
	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-18s", label)) + value + "\n"
	}

	var body strings.Builder
	body.WriteString(row("state", state))
	body.WriteString(row("target", st.TargetUser))
	body.WriteString(row("me", st.MyUser))
	body.WriteString(row("target markets", strconv.Itoa(st.TargetPositions)))
	body.WriteString(row("own markets", strconv.Itoa(st.CurrentPositions)))
	body.WriteString(row("last snapshot", formatTime(st.LastUpdated)))
	body.WriteString(row("max notional", fmt.Sprintf("$%.2f", st.MaxPositionLimit)))
	body.WriteString(row("min trade size", fmt.Sprintf("%g", st.MinTradeSize)))
	body.WriteString(row("blacklist", strings.Join(st.Blacklist, ", ")))
	if c := st.LastCycle; c != nil {
		result := fmt.Sprintf("%d diffs, %d ok, %d failed (%v)", c.Diffs, c.Success, c.Failed, c.Duration.Round(time.Millisecond))
		if c.Error != "" {
			result += " " + errStyle.Render(c.Error)
		}
		body.WriteString(row("last cycle", formatTime(c.StartedAt)))
		body.WriteString(row("", result))
	}
	b.WriteString(borderStyle.Render(strings.TrimRight(body.String(), "\n")) + "\n\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("updated %s · r refresh · q quit", m.fetched.Format("15:04:05"))) + "\n")
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func fetchStatus(api *sdkhttp.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var st statusapi.StatusResponse
		if err := api.Do(ctx, http.MethodGet, "/api/status", nil, &st); err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{status: &st}
	}
}

func statusAction(_ context.Context, cmd *cli.Command) error {
	m := model{api: newAPIClient(cmd), addr: cmd.String("addr")}
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type blacklistResponse struct {
	Markets []string `json:"markets"`
}

func printBlacklist(r blacklistResponse) {
	if len(r.Markets) == 0 {
		fmt.Println("(empty)")
		return
	}
	for _, m := range r.Markets {
		fmt.Println(m)
	}
}

func blacklistListAction(ctx context.Context, cmd *cli.Command) error {
	var out blacklistResponse
	if err := newAPIClient(cmd).Do(ctx, http.MethodGet, "/api/blacklist", nil, &out); err != nil {
		return err
	}
	printBlacklist(out)
	return nil
}

func blacklistAddAction(ctx context.Context, cmd *cli.Command) error {
	market := strings.TrimSpace(cmd.Args().First())
	if market == "" {
		return fmt.Errorf("market is required")
	}
	var out blacklistResponse
	opt := &sdkhttp.RequestOptions{Data: map[string]string{"market": market}}
	if err := newAPIClient(cmd).Do(ctx, http.MethodPost, "/api/blacklist", opt, &out); err != nil {
		return err
	}
	printBlacklist(out)
	return nil
}

func blacklistRemoveAction(ctx context.Context, cmd *cli.Command) error {
	market := strings.TrimSpace(cmd.Args().First())
	if market == "" {
		return fmt.Errorf("market is required")
	}
	var out blacklistResponse
	if err := newAPIClient(cmd).Do(ctx, http.MethodDelete, "/api/blacklist/"+url.PathEscape(market), nil, &out); err != nil {
		return err
	}
	printBlacklist(out)
	return nil
}

func limitAction(ctx context.Context, cmd *cli.Command) error {
	limit, err := strconv.ParseFloat(strings.TrimSpace(cmd.Args().First()), 64)
	if err != nil || limit <= 0 {
		return fmt.Errorf("limit must be a positive number")
	}
	var out struct {
		MaxPositionLimit float64 `json:"maxPositionLimit"`
	}
	opt := &sdkhttp.RequestOptions{Data: map[string]float64{"maxPositionLimit": limit}}
	if err := newAPIClient(cmd).Do(ctx, http.MethodPut, "/api/limits", opt, &out); err != nil {
		return err
	}
	fmt.Printf("max position limit: $%.2f\n", out.MaxPositionLimit)
	return nil
}
