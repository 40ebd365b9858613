package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	assistantx "github.com/tanpawarit/sales-assistant/sales/assistant"
	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
	conversationx "github.com/tanpawarit/sales-assistant/sales/conversation"
	profilex "github.com/tanpawarit/sales-assistant/sales/profile"
	sessionx "github.com/tanpawarit/sales-assistant/sales/session"
	storagex "github.com/tanpawarit/sales-assistant/sales/storage"
)

type staticGateway struct {
	suggestions []contractx.Suggestion
}

func (g staticGateway) Generate(context.Context, contractx.GenerationRequest) []contractx.Suggestion {
	out := make([]contractx.Suggestion, len(g.suggestions))
	copy(out, g.suggestions)
	return out
}

func newTestConsole(t *testing.T, script string) (*console, *bytes.Buffer) {
	t.Helper()

	kv, err := storagex.NewInMemoryBadgerKV()
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	profiles := profilex.New(kv, profilex.Config{Debounce: time.Millisecond, WriteTimeout: time.Second})
	profiles.Load(context.Background())
	t.Cleanup(func() {
		_ = profiles.Close(context.Background())
		_ = kv.Close()
	})

	gw := staticGateway{suggestions: []contractx.Suggestion{
		{ID: "s1", Text: "reply one", Explanation: "mirrors the customer"},
		{ID: "s2", Text: "reply two", Explanation: "asks about budget"},
	}}
	a, err := assistantx.New(profiles, conversationx.New(), gw, assistantx.Config{
		DefaultMode:     string(contractx.ModeQualification),
		DefaultLanguage: string(contractx.LanguageGulf),
		GenerateTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("assistant.New() error = %v", err)
	}

	out := &bytes.Buffer{}
	return newConsole(a, sessionx.NewLocal("Rep"), strings.NewReader(script), out), out
}

func TestConsoleGenerateAndUse(t *testing.T) {
	t.Parallel()

	c, out := newTestConsole(t, "كم السعر؟\n/use 2\n/show\n/quit\n")
	if err := c.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Signed in as Rep",
		"1) reply one",
		"2) reply two",
		"rep: reply two",
		"customer: كم السعر؟",
		`Input: ""`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestConsoleEmptyInputIsRejected(t *testing.T) {
	t.Parallel()

	c, out := newTestConsole(t, "/generate\n")
	if err := c.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "type a message first") {
		t.Fatalf("output = %s", out.String())
	}
}

func TestConsoleLogoutReturnsToAuth(t *testing.T) {
	t.Parallel()

	c, out := newTestConsole(t, strings.Join([]string{
		"/logout",
		"/show",
		"/login bad-email secret",
		"/login rep@example.com secret",
		"/mode closing",
	}, "\n"))
	if err := c.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	got := out.String()
	if strings.Contains(got, "Conversation is empty") {
		t.Fatalf("signed-out console ran an app command:\n%s", got)
	}
	for _, want := range []string{"Signed out.", "auth> ", "error: ", "Mode: Closing"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestConsoleProfileExportImport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, out := newTestConsole(t, strings.Join([]string{
		"/company companyName Acme Cloud",
		"/customer painPoints slow onboarding",
		"/export " + dir,
		"/reset",
		"/import " + filepath.Join(dir, "sales-pro-backup-2024-03-05.json"),
		"/company",
		"/customer",
	}, "\n"))
	c.now = func() time.Time { return time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC) }

	if err := c.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "sales-pro-backup-2024-03-05.json")); err != nil {
		t.Fatalf("export file: %v\n%s", err, out.String())
	}
	got := out.String()
	for _, want := range []string{"Profiles reset to defaults.", "Profiles imported.", "Acme Cloud", "slow onboarding"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestConsoleStopsOnCancel(t *testing.T) {
	t.Parallel()

	kv, err := storagex.NewInMemoryBadgerKV()
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	profiles := profilex.New(kv, profilex.Config{Debounce: time.Millisecond, WriteTimeout: time.Second})
	a, err := assistantx.New(profiles, conversationx.New(), staticGateway{}, assistantx.Config{})
	if err != nil {
		t.Fatalf("assistant.New() error = %v", err)
	}

	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		_ = writer.Close()
		_ = reader.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	c := newConsole(a, sessionx.NewLocal(""), reader, &bytes.Buffer{})
	done := make(chan error, 1)
	go func() { done <- c.run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}

func TestConsoleReaderExitsAfterQuit(t *testing.T) {
	t.Parallel()

	c, _ := newTestConsole(t, "/quit\nleft over\nstill unread\n")
	if err := c.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	select {
	case <-c.readerOut:
	case <-time.After(2 * time.Second):
		t.Fatal("stdin reader still blocked after run() returned")
	}
}

func TestSplitCommand(t *testing.T) {
	t.Parallel()

	cmd, args := splitCommand("  /Company   companyName  Acme ")
	if cmd != "/company" || len(args) != 2 || args[0] != "companyName" || args[1] != "Acme" {
		t.Fatalf("splitCommand() = %q %q", cmd, args)
	}
	if cmd, args := splitCommand("   "); cmd != "" || args != nil {
		t.Fatalf("splitCommand(blank) = %q %q", cmd, args)
	}
}
