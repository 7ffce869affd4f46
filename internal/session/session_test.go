package session

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	coredatabase "github.com/m3rciful/formbot/core/database"
	"github.com/m3rciful/formbot/internal/form"
)

func filled() Session {
	return Session{
		Fields:        form.Values{"Dollar": "42000", "Euro": "41"},
		MainMessageID: 17,
		OutputPath:    "OutPut/currency_post_5.png",
		SentDocMsgIDs: []int{20, 21},
		Variant:       "List2",
	}
}

func TestClearFormKeepsBookkeeping(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("clear empties fields and sent ids only", prop.ForAll(
		func(values map[string]string, ids []int, mainID int, output string) bool {
			s := Session{Fields: form.Values(values), SentDocMsgIDs: ids, MainMessageID: mainID, OutputPath: output, Variant: "v"}
			s.ClearForm()
			return len(s.Fields) == 0 && s.Fields != nil &&
				len(s.SentDocMsgIDs) == 0 &&
				s.Variant == "" &&
				s.MainMessageID == mainID &&
				s.OutputPath == output
		},
		gen.MapOf(gen.AlphaString(), gen.AlphaString()),
		gen.SliceOf(gen.Int()),
		gen.Int(),
		gen.AlphaString(),
	))
	properties.TestingRun(t)
}

func TestCloneIsIndependent(t *testing.T) {
	a := filled()
	b := a.Clone()
	b.Fields["Dollar"] = "1"
	b.SentDocMsgIDs[0] = 99
	if a.Fields["Dollar"] != "42000" || a.SentDocMsgIDs[0] != 20 {
		t.Fatalf("clone shares storage: %+v", a)
	}
}

func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	got, err := st.Get(ctx, 5)
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if got.Fields == nil || len(got.Fields) != 0 || got.MainMessageID != 0 {
		t.Fatalf("empty session = %+v", got)
	}

	want := filled()
	if err := st.Set(ctx, 5, want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = st.Get(ctx, 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	// overwrite
	want.Fields["Lira"] = "3"
	if err := st.Set(ctx, 5, want); err != nil {
		t.Fatalf("set again: %v", err)
	}
	if got, _ = st.Get(ctx, 5); got.Fields["Lira"] != "3" {
		t.Fatalf("overwrite lost: %+v", got)
	}

	if err := st.Reset(ctx, 5); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got, err = st.Get(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Fields) != 0 || len(got.SentDocMsgIDs) != 0 || got.MainMessageID != 17 || got.OutputPath != want.OutputPath {
		t.Fatalf("after reset = %+v", got)
	}

	other, err := st.Get(ctx, 6)
	if err != nil || len(other.Fields) != 0 {
		t.Fatalf("chats not independent: %+v %v", other, err)
	}
}

func TestFileStore(t *testing.T) {
	st, err := NewFileStore(filepath.Join(t.TempDir(), "sessions"), "currency")
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, st)
}

func TestSQLiteStore(t *testing.T) {
	cfg := coredatabase.Config{Driver: coredatabase.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "s.db")}
	db, err := coredatabase.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()
	if err := coredatabase.RunMigrations(cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	exerciseStore(t, NewSQLStore(db, "currency"))

	// products sharing a database do not see each other's rows
	gold := NewSQLStore(db, "gold")
	s, err := gold.Get(context.Background(), 5)
	if err != nil || len(s.Fields) != 0 {
		t.Fatalf("gold sees currency row: %+v %v", s, err)
	}
}

type countingStore struct {
	Store
	gets int
	fail error
}

func (c *countingStore) Get(ctx context.Context, chatID int64) (Session, error) {
	c.gets++
	return c.Store.Get(ctx, chatID)
}

func (c *countingStore) Set(ctx context.Context, chatID int64, s Session) error {
	if c.fail != nil {
		return c.fail
	}
	return c.Store.Set(ctx, chatID, s)
}

func TestCachedStore(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "currency")
	if err != nil {
		t.Fatal(err)
	}
	inner := &countingStore{Store: fs}
	c, err := NewCached(inner, 100, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	exerciseStore(t, c)

	ctx := context.Background()
	before := inner.gets
	s, _ := c.Get(ctx, 5)
	s.Fields["mutated"] = "x"
	again, _ := c.Get(ctx, 5)
	if inner.gets != before {
		t.Fatalf("cache hit went to inner store")
	}
	if again.Fields.Filled("mutated") {
		t.Fatal("cached session shared with caller")
	}

	boom := errors.New("disk full")
	inner.fail = boom
	if err := c.Set(ctx, 5, filled()); !errors.Is(err, boom) {
		t.Fatalf("set err = %v", err)
	}
}

func TestConfigNormalize(t *testing.T) {
	var c Config
	if err := c.Normalize(); err != nil {
		t.Fatal(err)
	}
	if c.Driver != DriverFile || c.Dir != "data/sessions" || c.CacheCapacity != 1000 || c.UsesSQL() {
		t.Fatalf("defaults = %+v", c)
	}

	c = Config{Driver: "SQLite"}
	if err := c.Normalize(); err != nil {
		t.Fatal(err)
	}
	if c.Database.Driver != coredatabase.DriverSQLite || c.Database.SQLitePath == "" || !c.UsesSQL() {
		t.Fatalf("sqlite = %+v", c)
	}

	c = Config{Driver: "redis"}
	if err := c.Normalize(); !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("err = %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, Config{Dir: t.TempDir(), CacheCapacity: -1}, "gold", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(*FileStore); !ok {
		t.Fatalf("store = %T", st)
	}

	st, err = Open(ctx, Config{Dir: t.TempDir()}, "gold", nil)
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := st.(*Cached); !ok {
		t.Fatalf("store = %T", st)
	} else {
		c.Close()
	}

	if _, err := Open(ctx, Config{Driver: "sqlite"}, "gold", nil); err == nil {
		t.Fatal("expected error without db")
	}
}
