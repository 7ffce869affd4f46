package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	tg "github.com/m3rciful/formbot/core/telegram"
	"github.com/m3rciful/formbot/internal/acl"
	"github.com/m3rciful/formbot/internal/form"
	"github.com/m3rciful/formbot/internal/locale"
	"github.com/m3rciful/formbot/internal/render"
	"github.com/m3rciful/formbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

const adminID int64 = 1001

// botAPI records the texts the bot sends.
type botAPI struct {
	mu    sync.Mutex
	texts []string
	calls []string
}

func (f *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	var params map[string]any
	_ = json.NewDecoder(r.Body).Decode(&params)
	f.mu.Lock()
	f.calls = append(f.calls, method)
	if text, ok := params["text"].(string); ok && method == "sendMessage" {
		f.texts = append(f.texts, text)
	}
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`))
}

func (f *botAPI) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

type fixture struct {
	app   *App
	bot   *tele.Bot
	api   *botAPI
	acl   *acl.Store
	store session.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	api := &botAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	b, err := tele.NewBot(tele.Settings{Token: "test", URL: srv.URL, Offline: true})
	if err != nil {
		t.Fatal(err)
	}
	aclStore, err := acl.Open(filepath.Join(dir, "acl.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := AdminSeeder(aclStore, []string{"1001"}).Seed(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	catalog, err := form.Open("")
	if err != nil {
		t.Fatal(err)
	}
	store, err := session.NewFileStore(filepath.Join(dir, "sessions"), "currency")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &Config{Form: FormConfig{Product: "currency"}, Locale: LocaleConfig{Default: locale.En}}
	cfg.Telegram.Token = "test"
	if err := cfg.Normalize(); err != nil {
		t.Fatal(err)
	}
	a, err := New(context.Background(), cfg, Deps{
		ACL:     aclStore,
		Catalog: catalog,
		Store:   store,
		Renderer: render.Func(func(_ context.Context, req render.Request) (string, error) {
			return req.OutputPath, nil
		}),
	})
	if err != nil {
		t.Fatal(err)
	}
	a.transport.Attach(b)
	return &fixture{app: a, bot: b, api: api, acl: aclStore, store: store}
}

func textUpdate(id int, userID int64, chatType tele.ChatType, text string) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{
		ID:     id,
		Sender: &tele.User{ID: userID, Username: "u"},
		Chat:   &tele.Chat{ID: userID, Type: chatType},
		Text:   text,
	}}
}

// chain applies the app's middlewares around h in registration order.
func (f *fixture) chain(h tele.HandlerFunc) tele.HandlerFunc {
	mws := f.app.middlewares()
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i].Use(h)
	}
	return h
}

func (f *fixture) route(endpoint string, reg *tg.Registry) tele.HandlerFunc {
	for _, r := range f.app.routes(reg) {
		if r.Endpoint == endpoint {
			return f.chain(r.Handler)
		}
	}
	return nil
}

func TestParseTarget(t *testing.T) {
	cases := []struct {
		text  string
		reply int64
		want  string
		err   error
	}{
		{text: "/add 555", want: "555"},
		{text: "/add@formbot   42 ", want: "42"},
		{text: "/remove", err: ErrNoTarget},
		{text: "/add abc", err: ErrBadTarget},
		{text: "/add -5", err: ErrBadTarget},
		{text: "/add 1 2", err: ErrBadTarget},
		{text: "/add", reply: 77, want: "77"},
		{text: "/add 555", reply: 77, want: "77"},
	}
	for _, tc := range cases {
		got, err := ParseTarget(tc.text, tc.reply)
		if !errors.Is(err, tc.err) || got != tc.want {
			t.Errorf("ParseTarget(%q, %d) = %q, %v", tc.text, tc.reply, got, err)
		}
	}
}

func TestAdminAddRemoveFlow(t *testing.T) {
	f := newFixture(t)
	reg, err := f.app.registry()
	if err != nil {
		t.Fatal(err)
	}
	add := f.route("/add", reg)
	remove := f.route("/remove", reg)

	_ = add(f.bot.NewContext(textUpdate(1, adminID, tele.ChatPrivate, "/add 555")))
	allowed, _ := f.acl.ListAllowed()
	if !slices.Contains(allowed, "555") || f.api.lastText() != "✅ Added 555" {
		t.Fatalf("allowed = %v, reply = %q", allowed, f.api.lastText())
	}

	_ = add(f.bot.NewContext(textUpdate(2, adminID, tele.ChatPrivate, "/add 555")))
	if f.api.lastText() != "ℹ️ User already allowed." {
		t.Fatalf("reply = %q", f.api.lastText())
	}

	_ = remove(f.bot.NewContext(textUpdate(3, adminID, tele.ChatPrivate, "/remove 1001")))
	if f.api.lastText() != "ℹ️ Cannot remove an admin." {
		t.Fatalf("reply = %q", f.api.lastText())
	}

	_ = remove(f.bot.NewContext(textUpdate(4, adminID, tele.ChatPrivate, "/remove 555")))
	allowed, _ = f.acl.ListAllowed()
	if slices.Contains(allowed, "555") || f.api.lastText() != "🗑️ Removed 555" {
		t.Fatalf("allowed = %v, reply = %q", allowed, f.api.lastText())
	}

	_ = add(f.bot.NewContext(textUpdate(5, adminID, tele.ChatPrivate, "/add")))
	if !strings.HasPrefix(f.api.lastText(), "Usage:") {
		t.Fatalf("reply = %q", f.api.lastText())
	}
	_ = add(f.bot.NewContext(textUpdate(6, adminID, tele.ChatPrivate, "/add bob")))
	if f.api.lastText() != "Provide a numeric Telegram user ID." {
		t.Fatalf("reply = %q", f.api.lastText())
	}
}

func TestAdminCommandsIgnoreNonAdmins(t *testing.T) {
	f := newFixture(t)
	if _, err := f.acl.AddAllowed("2002"); err != nil {
		t.Fatal(err)
	}
	reg, _ := f.app.registry()
	add := f.route("/add", reg)

	_ = add(f.bot.NewContext(textUpdate(1, 2002, tele.ChatPrivate, "/add 3003")))
	allowed, _ := f.acl.ListAllowed()
	if slices.Contains(allowed, "3003") {
		t.Fatal("non-admin changed the allow-list")
	}
	if f.api.lastText() != "" {
		t.Fatalf("non-admin got a reply: %q", f.api.lastText())
	}
}

func TestListText(t *testing.T) {
	f := newFixture(t)
	got, err := f.app.listText()
	if err != nil {
		t.Fatal(err)
	}
	if want := "👑 Admins:\n• 1001\n\n✅ Allowed:\n  (none)"; got != want {
		t.Fatalf("list = %q, want %q", got, want)
	}
}

func TestGateRejectsStrangerStart(t *testing.T) {
	f := newFixture(t)
	reg, _ := f.app.registry()
	start := f.route("/start", reg)

	_ = start(f.bot.NewContext(textUpdate(1, 4004, tele.ChatPrivate, "/start")))
	if f.api.lastText() != "⛔️ You are not allowed to use this bot." {
		t.Fatalf("reply = %q", f.api.lastText())
	}
	s, err := f.store.Get(context.Background(), 4004)
	if err != nil {
		t.Fatal(err)
	}
	if s.MainMessageID != 0 || s.OutputPath != "" {
		t.Fatalf("session touched: %+v", s)
	}
	for _, call := range f.api.calls {
		if call == "sendPhoto" {
			t.Fatal("stranger got a menu")
		}
	}
}

func TestGateSilentInGroups(t *testing.T) {
	f := newFixture(t)
	reg, _ := f.app.registry()
	start := f.route("/start", reg)

	_ = start(f.bot.NewContext(textUpdate(1, 4004, tele.ChatGroup, "/start")))
	if len(f.api.calls) != 0 {
		t.Fatalf("calls = %v", f.api.calls)
	}
}

func TestStrayInputGetsMenuHint(t *testing.T) {
	f := newFixture(t)
	reg, _ := f.app.registry()

	photo := textUpdate(1, adminID, tele.ChatPrivate, "")
	photo.Message.Photo = &tele.Photo{File: tele.File{FileID: "AgAD"}}
	if err := f.route(tele.OnPhoto, reg)(f.bot.NewContext(photo)); err != nil {
		t.Fatalf("photo: %v", err)
	}
	if f.api.lastText() != "Use the menu buttons to edit the form." {
		t.Fatalf("photo reply = %q", f.api.lastText())
	}

	doc := textUpdate(2, adminID, tele.ChatPrivate, "")
	doc.Message.Document = &tele.Document{File: tele.File{FileID: "BQAD"}}
	if err := f.route(tele.OnDocument, reg)(f.bot.NewContext(doc)); err != nil {
		t.Fatalf("document: %v", err)
	}
	if n := len(f.api.texts); n != 2 {
		t.Fatalf("replies = %d", n)
	}
}

func TestAdminStartSendsMenu(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(root); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.MkdirAll("assets", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join("assets", "CURRENCY_TEMPLATE.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, _ := f.app.registry()
	start := f.route("/start", reg)
	if err := start(f.bot.NewContext(textUpdate(1, adminID, tele.ChatPrivate, "/start"))); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !slices.Contains(f.api.calls, "sendPhoto") {
		t.Fatalf("calls = %v", f.api.calls)
	}
	s, _ := f.store.Get(context.Background(), adminID)
	if s.MainMessageID != 1 || s.OutputPath != filepath.Join("OutPut", "currency_post_1001.png") {
		t.Fatalf("session = %+v", s)
	}
}

func TestRegistryPublishesCommands(t *testing.T) {
	f := newFixture(t)
	reg, err := f.app.registry()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, c := range reg.ListCommands(true) {
		names = append(names, c.Text)
	}
	slices.Sort(names)
	if want := []string{"add", "list", "remove", "start"}; !slices.Equal(names, want) {
		t.Fatalf("commands = %v", names)
	}
	for _, key := range []string{form.CallbackField, form.CallbackCancel, form.CallbackFinish, form.CallbackClear} {
		if _, ok := reg.GetCallback(key); !ok {
			t.Errorf("callback %s not registered", key)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formbot.yaml")
	yml := `telegram:
  token: from-file
storage:
  driver: sqlite
  database:
    sqlite_path: data/x.db
form:
  product: gold
broadcast:
  enabled: true
  chat_id: -1002302354978
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOT_LOCALE", "EN")
	t.Setenv("RENDER_TIMEOUT", "15")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-file" || cfg.Form.Product != "gold" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Locale.Default != locale.En || cfg.Renderer.TimeoutSeconds != 15 || cfg.Renderer.Interpreter != "python3" {
		t.Fatalf("renderer/locale = %+v %+v", cfg.Renderer, cfg.Locale)
	}
	if !cfg.Storage.UsesSQL() || cfg.Storage.Database.Driver != "sqlite" || cfg.Storage.Database.SQLitePath != "data/x.db" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.BroadcastChatID() != -1002302354978 {
		t.Fatalf("broadcast = %d", cfg.BroadcastChatID())
	}
	if cfg.CoreConfig() != &cfg.Config {
		t.Fatal("core config not shared")
	}
}

func TestConfigNormalizeRejects(t *testing.T) {
	cases := map[string]Config{
		"no product":     {},
		"bad locale":     {Form: FormConfig{Product: "gold"}, Locale: LocaleConfig{Default: "de"}},
		"broadcast zero": {Form: FormConfig{Product: "gold"}, Broadcast: BroadcastConfig{Enabled: true}},
		"bad storage":    {Form: FormConfig{Product: "gold"}, Storage: session.Config{Driver: "mongo"}},
	}
	for name, cfg := range cases {
		cfg := cfg
		if err := cfg.Normalize(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
