package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		cb          *tele.Callback
		key, payload string
	}{
		{nil, "", ""},
		{&tele.Callback{Data: "\fform_field|Dollar"}, "form_field", "Dollar"},
		{&tele.Callback{Data: "\fform_finish|"}, "form_finish", ""},
		{&tele.Callback{Data: "form_clear"}, "form_clear", ""},
		{&tele.Callback{Data: "\fform_field|a|b"}, "form_field", "a|b"},
		{&tele.Callback{Unique: "form_cancel", Data: "Euro"}, "form_cancel", "Euro"},
	}
	for _, tc := range cases {
		key, payload := ParseCallbackData(tc.cb)
		if key != tc.key || payload != tc.payload {
			t.Errorf("ParseCallbackData(%+v) = %q, %q; want %q, %q", tc.cb, key, payload, tc.key, tc.payload)
		}
	}
}
