package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dis-maja/swesrc/internal/config"
	"github.com/dis-maja/swesrc/internal/importer"
)

type settingsState struct {
	cursor   int
	behavior config.Behavior
	dirty    bool
}

type setting struct {
	label string
	value func(*config.Behavior) *bool
}

var settingsList = []setting{
	{"International repository addresses", func(b *config.Behavior) *bool { return &b.RepoI8n }},
	{"Country in source titles", func(b *config.Behavior) *bool { return &b.SourCountry }},
	{"Country written in Swedish", func(b *config.Behavior) *bool { return &b.SourI8n }},
	{"Leave signum out of titles", func(b *config.Behavior) *bool { return &b.SourAvoidSignum }},
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &m.settings
	switch {
	case key.Matches(msg, m.keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if s.cursor < len(settingsList)-1 {
			s.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		v := settingsList[s.cursor].value(&s.behavior)
		*v = !*v
		s.dirty = true
		if m.importer != nil {
			m.importer.SetBehavior(behaviorOf(s.behavior))
		}
	case key.Matches(msg, m.keys.Save):
		m.cfg.Behavior = s.behavior
		s.dirty = false
		return m, m.saveConfigCmd("Settings")
	}
	return m, nil
}

func behaviorOf(b config.Behavior) importer.Behavior {
	return importer.Behavior{
		RepoI8n:         b.RepoI8n,
		SourCountry:     b.SourCountry,
		SourI8n:         b.SourI8n,
		SourAvoidSignum: b.SourAvoidSignum,
	}
}

func (m Model) saveConfigCmd(what string) tea.Cmd {
	path, cfg := m.configPath, m.cfg
	return func() tea.Msg {
		return savedMsg{what: what, err: config.Save(path, cfg)}
	}
}

func (m Model) settingsItems() []listItem {
	b := m.settings.behavior
	items := make([]listItem, 0, len(settingsList))
	for _, s := range settingsList {
		mark := "[ ]"
		if *s.value(&b) {
			mark = "[x]"
		}
		items = append(items, listItem{text: mark + " " + s.label})
	}
	return items
}
