// Package tui is a terminal explorer for word neighbours backed by the embex
// HTTP API.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/embex/internal/models"
)

// API is the subset of the HTTP client the explorer needs.
type API interface {
	Similar(ctx context.Context, word string, model models.ModelType, topN int) (*models.SimilarityResult, error)
	Compare(ctx context.Context, word string, topN int) (*models.CompareResult, error)
}

const requestTimeout = 30 * time.Second

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("86")).Padding(0, 1)
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type resultMsg struct {
	similar *models.SimilarityResult
	compare *models.CompareResult
	err     error
}

type explorerModel struct {
	api     API
	topN    int
	models  []models.ModelType
	current int
	compare bool
	input   string
	cursor  int
	loading bool
	similar *models.SimilarityResult
	cmp     *models.CompareResult
	err     error
}

func newModel(api API, topN int) explorerModel {
	if topN <= 0 {
		topN = 10
	}
	return explorerModel{api: api, topN: topN, models: models.AllModelTypes()}
}

// Run starts the explorer and blocks until the user quits.
func Run(api API, topN int) error {
	_, err := tea.NewProgram(newModel(api, topN), tea.WithAltScreen()).Run()
	return err
}

func (m explorerModel) Init() tea.Cmd { return nil }

func (m explorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.KeyMsg:
		switch v.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			word := strings.TrimSpace(m.input)
			if word == "" || m.loading {
				return m, nil
			}
			m.loading = true
			m.err = nil
			return m, m.query(word)
		case tea.KeyTab:
			m.current = (m.current + 1) % len(m.models)
		case tea.KeyShiftTab:
			m.current = (m.current + len(m.models) - 1) % len(m.models)
		case tea.KeyCtrlT:
			m.compare = !m.compare
		case tea.KeyBackspace:
			if m.cursor > 0 {
				m.input = m.input[:m.cursor-1] + m.input[m.cursor:]
				m.cursor--
			}
		case tea.KeyLeft:
			if m.cursor > 0 {
				m.cursor--
			}
		case tea.KeyRight:
			if m.cursor < len(m.input) {
				m.cursor++
			}
		case tea.KeyRunes, tea.KeySpace:
			s := string(v.Runes)
			if v.Type == tea.KeySpace {
				s = " "
			}
			m.input = m.input[:m.cursor] + s + m.input[m.cursor:]
			m.cursor += len(s)
		}
		return m, nil

	case resultMsg:
		m.loading = false
		m.err = v.err
		if v.err == nil {
			m.similar, m.cmp = v.similar, v.compare
		}
		return m, nil
	}
	return m, nil
}

func (m explorerModel) query(word string) tea.Cmd {
	api, topN, compare, model := m.api, m.topN, m.compare, m.models[m.current]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if compare {
			res, err := api.Compare(ctx, word, topN)
			return resultMsg{compare: res, err: err}
		}
		res, err := api.Similar(ctx, word, model, topN)
		return resultMsg{similar: res, err: err}
	}
}

func (m explorerModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Embedding Explorer") + "\n\n")

	tabs := make([]string, len(m.models))
	for i, t := range m.models {
		style := inactiveStyle
		if i == m.current && !m.compare {
			style = activeStyle
		}
		tabs[i] = style.Render(t.DisplayName())
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n")
	mode := "single model"
	if m.compare {
		mode = "compare all models"
	}
	b.WriteString(hintStyle.Render("mode: "+mode) + "\n\n")

	cursor := min(m.cursor, len(m.input))
	b.WriteString("> " + m.input[:cursor] + "_" + m.input[cursor:] + "\n\n")

	switch {
	case m.loading:
		b.WriteString("searching...\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	case m.compare && m.cmp != nil:
		panels := make([]string, 0, len(m.models))
		for _, t := range m.models {
			if res, ok := m.cmp.Results[t]; ok {
				panels = append(panels, panelStyle.Render(t.DisplayName()+"\n"+renderResult(res)))
			}
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panels...) + "\n")
	case !m.compare && m.similar != nil:
		b.WriteString(panelStyle.Render(renderResult(m.similar)) + "\n")
	}

	b.WriteString("\n" + hintStyle.Render("enter: search  tab: next model  ctrl+t: compare  esc: quit"))
	return b.String()
}

func renderResult(r *models.SimilarityResult) string {
	if !r.InVocabulary {
		s := r.Message
		if len(r.Suggestions) > 0 {
			s += "\nDid you mean: " + strings.Join(r.Suggestions, ", ") + "?"
		}
		return s
	}
	lines := make([]string, 0, len(r.SimilarWords))
	for _, w := range r.SimilarWords {
		n := int(w.Similarity*20 + 0.5)
		n = max(0, min(n, 20))
		lines = append(lines, fmt.Sprintf("%-16s %.4f %s", w.Word, w.Similarity, barStyle.Render(strings.Repeat("█", n))))
	}
	return strings.Join(lines, "\n")
}
