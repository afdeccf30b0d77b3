package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hyperjump/embex/internal/models"
)

type fakeAPI struct {
	lastModel models.ModelType
	lastWord  string
	err       error
}

func (f *fakeAPI) Similar(ctx context.Context, word string, model models.ModelType, topN int) (*models.SimilarityResult, error) {
	f.lastModel, f.lastWord = model, word
	if f.err != nil {
		return nil, f.err
	}
	return &models.SimilarityResult{
		QueryWord: word, ModelType: model, InVocabulary: true,
		SimilarWords: []models.SimilarWord{{Word: "kitten", Similarity: 0.9939}},
	}, nil
}

func (f *fakeAPI) Compare(ctx context.Context, word string, topN int) (*models.CompareResult, error) {
	f.lastWord = word
	res := &models.CompareResult{QueryWord: word, Results: map[models.ModelType]*models.SimilarityResult{}}
	for _, t := range models.AllModelTypes() {
		res.Results[t] = &models.SimilarityResult{QueryWord: word, Message: "Word '" + word + "' not found in " + string(t) + " vocabulary"}
	}
	return res, nil
}

func press(t *testing.T, m tea.Model, keys ...tea.KeyMsg) (tea.Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		m, cmd = m.Update(k)
	}
	return m, cmd
}

func typeText(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestExplorer_SimilarFlow(t *testing.T) {
	api := &fakeAPI{}
	m, cmd := press(t, newModel(api, 5), typeText("cat"), tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should issue a query")
	}
	if !strings.Contains(m.View(), "searching...") {
		t.Errorf("view while loading = %q", m.View())
	}
	m, _ = m.Update(cmd())
	if api.lastWord != "cat" || api.lastModel != models.ModelCBOW {
		t.Errorf("queried %q on %s", api.lastWord, api.lastModel)
	}
	view := m.View()
	if !strings.Contains(view, "kitten") || !strings.Contains(view, "0.9939") {
		t.Errorf("view = %q", view)
	}
}

func TestExplorer_CompareMode(t *testing.T) {
	api := &fakeAPI{}
	m, cmd := press(t, newModel(api, 5), typeText("zebra"), tea.KeyMsg{Type: tea.KeyCtrlT}, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = m.Update(cmd())
	view := m.View()
	if !strings.Contains(view, "compare all models") || !strings.Contains(view, "word2vec_skipgram vocabulary") {
		t.Errorf("view = %q", view)
	}
}

func TestExplorer_Editing(t *testing.T) {
	m, _ := press(t, newModel(&fakeAPI{}, 0),
		typeText("dgo"),
		tea.KeyMsg{Type: tea.KeyLeft},
		tea.KeyMsg{Type: tea.KeyBackspace},
		tea.KeyMsg{Type: tea.KeyRight},
		typeText("g"),
	)
	em := m.(explorerModel)
	if em.input != "dog" || em.topN != 10 {
		t.Errorf("input = %q topN = %d", em.input, em.topN)
	}
}

func TestExplorer_EmptyEnterAndError(t *testing.T) {
	api := &fakeAPI{err: errors.New("server returned 503: model missing")}
	m, cmd := press(t, newModel(api, 5), tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("empty input should not query")
	}
	m, cmd = press(t, m, typeText("cat"), tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = m.Update(cmd())
	if !strings.Contains(m.View(), "model missing") {
		t.Errorf("view = %q", m.View())
	}
}

func TestExplorer_Quit(t *testing.T) {
	_, cmd := press(t, newModel(&fakeAPI{}, 5), tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc did not produce QuitMsg")
	}
}
