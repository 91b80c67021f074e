package rules

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/rulenet/internal/symbols"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestUpdaterResolvesAndLogs(t *testing.T) {
	db := newDB(t)
	core, logs := observer.New(zapcore.DebugLevel)
	u := db.Updater()
	u.SetLogger(zap.New(core))

	if err := u.Call(nil, nil, nil); err != nil {
		t.Fatalf("empty Call: %v", err)
	}
	if logs.FilterMessage("no rule requests pending").Len() != 1 {
		t.Fatalf("expected debug entry, got %v", logs.All())
	}

	if err := db.RequestAdd(r1, MustRule(chC, []symbols.Symbol{chA}, nil)); err != nil {
		t.Fatal(err)
	}
	if err := u.Call(nil, nil, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !db.Contains(r1) {
		t.Fatal("request not applied by updater")
	}

	entries := logs.FilterMessage("resolved rule requests").All()
	if len(entries) != 1 {
		t.Fatalf("expected one resolution entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["added"] != int64(1) || fields["deleted"] != int64(0) || fields["size"] != int64(1) {
		t.Fatalf("fields = %v", fields)
	}
}

func TestUpdaterHooks(t *testing.T) {
	db := newDB(t)
	var seen []Resolution
	db.Updater().OnResolve(func(got *Rules, res Resolution) error {
		if got != db {
			t.Error("hook received a different database")
		}
		seen = append(seen, res)
		return nil
	})

	if err := db.Updater().Call(nil, nil, nil); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 0 {
		t.Fatal("hook ran on empty resolution")
	}

	db.RequestAdd(r1, MustRule(chC, []symbols.Symbol{chA}, nil))
	if err := db.Updater().Call(nil, nil, nil); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || len(seen[0].Added) != 1 {
		t.Fatalf("hook calls = %+v", seen)
	}
}

func TestUpdaterHookError(t *testing.T) {
	db := newDB(t)
	boom := errors.New("boom")
	db.Updater().OnResolve(func(*Rules, Resolution) error { return boom })
	db.RequestAdd(r1, MustRule(chC, []symbols.Symbol{chA}, nil))

	err := db.Updater().Call(nil, nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if !db.Contains(r1) {
		t.Fatal("resolution should stand even when a hook fails")
	}
}

func TestUpdaterMetadata(t *testing.T) {
	u := newDB(t).Updater()
	if u.Serves() != symbols.ContainerType {
		t.Errorf("Serves() = %v", u.Serves())
	}
	if u.Expected() != nil {
		t.Errorf("Expected() = %v", u.Expected())
	}
	u.SetLogger(nil)
	if err := u.Call(nil, nil, nil); err != nil {
		t.Fatal(err)
	}
}
