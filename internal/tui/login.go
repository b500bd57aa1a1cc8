// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	inputLogin = iota
	inputPassword
)

type loginModel struct {
	inputs     []textinput.Model
	focus      int
	submitting bool
	err        string
}

func newLoginModel() loginModel {
	inputs := make([]textinput.Model, 2)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Width = 32
	}
	inputs[inputLogin].Placeholder = "логин"
	inputs[inputPassword].Placeholder = "пароль"
	inputs[inputPassword].EchoMode = textinput.EchoPassword
	inputs[inputPassword].EchoCharacter = '*'
	inputs[inputLogin].Focus()

	return loginModel{inputs: inputs}
}

func (m loginModel) values() (login, password string) {
	return m.inputs[inputLogin].Value(), m.inputs[inputPassword].Value()
}

// update returns submit=true when the form should be sent.
func (m loginModel) update(msg tea.KeyMsg) (loginModel, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.tab):
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + 1) % len(m.inputs)
		return m, m.inputs[m.focus].Focus(), false
	case key.Matches(msg, keys.enter):
		if m.focus == inputLogin {
			m.inputs[m.focus].Blur()
			m.focus = inputPassword
			return m, m.inputs[m.focus].Focus(), false
		}
		if m.submitting {
			return m, nil, false
		}
		m.submitting = true
		m.err = ""
		return m, nil, true
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd, false
}

func (m loginModel) View() string {
	out := "Логин:  [" + m.inputs[inputLogin].View() + "]\n"
	out += "Пароль: [" + m.inputs[inputPassword].View() + "]\n"
	if m.submitting {
		out += "\nВход..."
	}
	if m.err != "" {
		out += "\n" + errorStyle.Render(m.err)
	}
	return renderPage("ВХОД", out, "tab: следующее поле  enter: войти  esc: выход")
}
