package tui

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alexeiveselov92/geological-tiff-search/internal/domain"
	"github.com/alexeiveselov92/geological-tiff-search/internal/rag"
)

// Searcher is the TUI-facing subset of the search engine.
type Searcher interface {
	SearchWithDetails(query string, topK int) (*domain.SearchDetails, error)
}

// Asker produces grounded answers. It is nil in search-only mode, when no
// generator API key is configured.
type Asker interface {
	Ask(ctx context.Context, question string) rag.Answer
}

type mode int

const (
	modeSearch mode = iota
	modeAsk
)

func (m mode) String() string {
	if m == modeAsk {
		return "ask"
	}
	return "search"
}

// Model is the Bubble Tea model for the interactive console.
type Model struct {
	searcher  Searcher
	asker     Asker
	input     textinput.Model
	viewport  viewport.Model
	mode      mode
	topK      int
	stats     string
	status    string
	ready     bool
	lastQuery string
}

// New builds the console model. stats is the index summary shown behind
// ctrl+t.
func New(searcher Searcher, asker Asker, topK int, stats string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Введите запрос и нажмите Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	status := "Индекс загружен. Tab переключает режим, ctrl+t — статистика."
	if asker == nil {
		status = "Индекс загружен. Режим ответов отключён: нет ключа API."
	}
	return Model{
		searcher: searcher,
		asker:    asker,
		input:    ti,
		viewport: vp,
		topK:     topK,
		stats:    stats,
		status:   status,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			if m.asker != nil {
				if m.mode == modeSearch {
					m.mode = modeAsk
				} else {
					m.mode = modeSearch
				}
				m.status = "Режим: " + m.mode.String()
			}
			return m, nil
		case "ctrl+t":
			m.viewport.SetContent(m.stats)
			m.status = "Статистика индекса"
			return m, nil
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			m.lastQuery = q
			if m.mode == modeAsk {
				m.runAsk(q)
			} else {
				m.runSearch(q)
			}
			m.viewport.GotoTop()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) runSearch(query string) {
	details, err := m.searcher.SearchWithDetails(query, m.topK)
	if err != nil {
		m.status = "Ошибка поиска: " + err.Error()
		m.viewport.SetContent("")
		return
	}
	m.status = fmt.Sprintf("Найдено фрагментов: %d, документов: %d", details.TotalResults, details.Stats.FilesCount)
	m.viewport.SetContent(m.renderDetails(details))
}

func (m *Model) runAsk(question string) {
	answer := m.asker.Ask(context.Background(), question)
	if answer.Err != "" {
		m.status = "Ошибка генерации: " + answer.Err
	} else {
		m.status = fmt.Sprintf("Уверенность: %s, фрагментов: %d", answer.Confidence, answer.ChunksUsed)
	}
	m.viewport.SetContent(renderAnswer(answer))
}

// View lays out header, viewport, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Загрузка..."
	}
	header := headerStyle.Render("Поиск по геологическим отчётам") +
		"  " + modeStyle.Render("["+m.mode.String()+"]")
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderDetails(d *domain.SearchDetails) string {
	if d.TotalResults == 0 {
		return "Ничего не найдено."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Похожесть: средняя %.3f, максимальная %.3f\n\n", d.Stats.AverageSimilarity, d.Stats.MaxSimilarity)

	files := make([]string, 0, len(d.FilesFound))
	for f := range d.FilesFound {
		files = append(files, f)
	}
	sort.Strings(files)

	for _, f := range files {
		group := d.FilesFound[f]
		b.WriteString(fileStyle.Render(group[0].Filename) + "\n")
		for _, r := range group {
			fmt.Fprintf(&b, "  #%d  %.3f  %s\n", r.Rank, r.Similarity, r.ChunkID)
			b.WriteString("  " + highlightBestSentence(snippet(r.Text, 400), m.lastQuery) + "\n\n")
		}
	}
	return b.String()
}

func renderAnswer(a rag.Answer) string {
	var b strings.Builder
	b.WriteString(a.Answer + "\n\n")
	if len(a.Sources) > 0 {
		b.WriteString(fileStyle.Render("Источники:") + "\n")
		for _, s := range a.Sources {
			fmt.Fprintf(&b, "  %.3f  %s (%s)\n", s.Similarity, s.Filename, s.ChunkID)
		}
	}
	fmt.Fprintf(&b, "\nУверенность: %s\n", a.Confidence)
	return b.String()
}

func snippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	modeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	fileStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	wordRe         = regexp.MustCompile(`\p{L}+`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasizes the sentence sharing the most words
// with the query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		score := overlap(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func overlap(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range wordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
