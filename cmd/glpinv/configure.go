package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"glpinv/internal/settings"
)

func newConfigureCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Store GLPI connection settings in ~/.glpinv/settings.yaml",
		Long: `Prompt for the GLPI API URL, tokens and default groups file, then write
them to ~/.glpinv/settings.yaml (mode 0600). Leave an answer empty to keep
the stored value.`,
		Args: cobra.NoArgs,
		// The settings file may be unreadable; configure is how it gets fixed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			current, err := settings.Load()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "ignoring current settings: %v\n", err)
				current = nil
			}
			answers, err := promptQuestions(settings.Questions(), current,
				tea.WithInput(stdin), tea.WithOutput(stdout))
			if err != nil {
				return configError(errors.Wrap(err, "prompt"))
			}
			path, err := settings.Save(settings.FromAnswers(current, answers))
			if err != nil {
				return configError(err)
			}
			fmt.Fprintln(stdout, successStyle.Render("settings written to "+path))
			return nil
		},
	}
}

// promptModel is a bubbletea model that asks one question at a time.
// Enter moves forward, shift+tab goes back to the previous question.
type promptModel struct {
	questions []settings.Question
	// stored holds the current settings value of each question.
	stored []string
	idx    int
	inputs []textinput.Model
	// invalid is shown under the input until the answer changes.
	invalid string
	done    bool
}

// newPromptModel builds the prompt. Non-secret questions show the stored
// value as placeholder.
func newPromptModel(questions []settings.Question, current *settings.Settings) promptModel {
	inputs := make([]textinput.Model, len(questions))
	stored := make([]string, len(questions))
	for i, q := range questions {
		stored[i] = storedValue(current, q.Key)
		ti := textinput.New()
		ti.CharLimit = 512
		ti.Prompt = "> "
		if q.Secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '*'
			if stored[i] != "" {
				ti.Placeholder = "(unchanged)"
			}
		} else {
			ti.Placeholder = stored[i]
		}
		inputs[i] = ti
	}
	m := promptModel{
		questions: questions,
		stored:    stored,
		inputs:    inputs,
	}
	if len(inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func storedValue(s *settings.Settings, key string) string {
	if s == nil {
		return ""
	}
	switch key {
	case settings.KeyURL:
		return s.URL
	case settings.KeyAppToken:
		return s.AppToken
	case settings.KeyUserToken:
		return s.UserToken
	case settings.KeyGroupsFile:
		return s.GroupsFile
	}
	return ""
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyShiftTab:
			if m.idx == 0 {
				return m, nil
			}
			return m.moveTo(m.idx - 1)
		case tea.KeyEnter:
			if m.missingAnswer() {
				m.invalid = "a value is required"
				return m, nil
			}
			if m.idx < len(m.inputs)-1 {
				return m.moveTo(m.idx + 1)
			}
			m.done = true
			return m, tea.Quit
		}
	}
	m.invalid = ""
	var cmd tea.Cmd
	m.inputs[m.idx], cmd = m.inputs[m.idx].Update(msg)
	return m, cmd
}

func (m promptModel) moveTo(idx int) (tea.Model, tea.Cmd) {
	m.inputs[m.idx].Blur()
	m.idx = idx
	m.invalid = ""
	m.inputs[m.idx].Focus()
	return m, textinput.Blink
}

// missingAnswer reports a required question left empty with nothing stored.
func (m promptModel) missingAnswer() bool {
	q := m.questions[m.idx]
	return q.Required && m.stored[m.idx] == "" && strings.TrimSpace(m.inputs[m.idx].Value()) == ""
}

func (m promptModel) View() string {
	if m.done || len(m.questions) == 0 {
		return ""
	}
	q := m.questions[m.idx]
	progress := mutedStyle.Render(fmt.Sprintf("(%d/%d)", m.idx+1, len(m.questions)))
	view := fmt.Sprintf("%s %s\n%s\n", titleStyle.Render(q.Prompt), progress, m.inputs[m.idx].View())
	if m.invalid != "" {
		view += invalidStyle.Render(m.invalid) + "\n"
	}
	return view
}

// answers returns the typed values keyed by Question.Key.
func (m promptModel) answers() map[string]string {
	out := make(map[string]string, len(m.questions))
	for i, q := range m.questions {
		out[q.Key] = m.inputs[i].Value()
	}
	return out
}

// promptQuestions runs the TUI and returns answers keyed by Question.Key.
func promptQuestions(questions []settings.Question, current *settings.Settings, opts ...tea.ProgramOption) (map[string]string, error) {
	if len(questions) == 0 {
		return map[string]string{}, nil
	}
	p := tea.NewProgram(newPromptModel(questions, current), opts...)
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final, ok := result.(promptModel)
	if !ok || !final.done {
		return nil, errors.New("prompt cancelled")
	}
	return final.answers(), nil
}
