package form

import (
	"github.com/m3rciful/formbot/core/telegram/keyboard"
)

// Callback uniques of the form menu.
const (
	CallbackField  = "form_field"
	CallbackFinish = "form_finish"
	CallbackClear  = "form_clear"
	CallbackCancel = "form_cancel"
)

// MenuLabels are the texts of the fixed menu buttons.
type MenuLabels struct {
	Finish string
	Clear  string
	Cancel string
}

// BuildMenu lays out the form menu: one row per visible field, labelled by
// fill state, then a row with finish and clear. It is the only menu builder;
// /start and every in-conversation rebuild go through it.
func BuildMenu(def Definition, values Values, labels MenuLabels) [][]keyboard.InlineBtn {
	rows := make([][]keyboard.InlineBtn, 0, len(def.Fields)+1)
	for _, f := range def.Fields {
		if f.Hidden {
			continue
		}
		rows = append(rows, []keyboard.InlineBtn{{
			Text:   f.MenuLabel(values.Filled(f.Name)),
			Unique: CallbackField,
			Data:   f.Name,
		}})
	}
	return append(rows, []keyboard.InlineBtn{
		{Text: labels.Finish, Unique: CallbackFinish},
		{Text: labels.Clear, Unique: CallbackClear},
	})
}

// CancelMenu is the single-button layout shown while a field prompt is open.
func CancelMenu(field string, labels MenuLabels) [][]keyboard.InlineBtn {
	return [][]keyboard.InlineBtn{{{Text: labels.Cancel, Unique: CallbackCancel, Data: field}}}
}
