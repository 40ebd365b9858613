package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	assistantx "github.com/tanpawarit/sales-assistant/sales/assistant"
	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
	profilex "github.com/tanpawarit/sales-assistant/sales/profile"
	sessionx "github.com/tanpawarit/sales-assistant/sales/session"
)

var errQuit = errors.New("quit")

const helpText = `Commands:
  <text>                     set the input and generate suggestions
  /mode <name>               outreach | qualify | objection | closing | enhance
  /lang <name>               Syrian | Gulf | Formal
  /generate                  generate from the current input
  /use <n|id>                send suggestion n as the rep reply
  /dismiss                   clear the suggestion panel
  /company [field value]     show or edit the company profile
  /customer [field value]    show or edit the customer profile
  /show                      show mode, language, input and the conversation
  /export [path]             write a backup of both profiles
  /import <path>             restore profiles from a backup
  /reset                     restore default profiles
  /logout                    sign out
  /quit                      exit`

const authHelpText = `Sign in to continue:
  /login <email> <password>
  /signup <email> <password> [name]
  /oauth <google|github|facebook|apple>
  /forgot <email>
  /recover <userId> <secret> <new-password>
  /quit`

type console struct {
	assistant *assistantx.Assistant
	gate      sessionx.Gate
	lines     <-chan string
	done      chan struct{}
	readerOut chan struct{}
	stopOnce  sync.Once
	out       io.Writer
	now       func() time.Time

	authenticated atomic.Bool
}

func newConsole(a *assistantx.Assistant, gate sessionx.Gate, in io.Reader, out io.Writer) *console {
	lines := make(chan string)
	done := make(chan struct{})
	readerOut := make(chan struct{})
	go func() {
		defer close(readerOut)
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	return &console{
		assistant: a,
		gate:      gate,
		lines:     lines,
		done:      done,
		readerOut: readerOut,
		out:       out,
		now:       time.Now,
	}
}

func (c *console) run(ctx context.Context) error {
	// The reader goroutine stops at its next line once run returns.
	defer c.stopOnce.Do(func() { close(c.done) })

	unsubscribe := c.gate.Subscribe(func(ch sessionx.Change) {
		c.authenticated.Store(ch.Event == sessionx.EventSignedIn)
	})
	defer unsubscribe()

	sess, err := c.gate.CurrentSession(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("session lookup failed, treating as signed out")
	}
	c.authenticated.Store(sess != nil)
	if sess != nil {
		c.printf("Signed in as %s\n", displayName(sess.User))
		c.printf("%s\n", helpText)
	} else {
		c.printf("%s\n", authHelpText)
	}

	for {
		c.prompt()

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-c.lines:
		}
		if !ok {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if c.authenticated.Load() {
			err = c.handle(ctx, line)
		} else {
			err = c.handleAuth(ctx, line)
		}
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			c.printf("error: %v\n", err)
		}
	}
}

func (c *console) prompt() {
	if !c.authenticated.Load() {
		c.printf("auth> ")
		return
	}
	c.printf("[%s | %s]> ", c.assistant.Mode(), c.assistant.Language())
}

func (c *console) handleAuth(ctx context.Context, line string) error {
	cmd, args := splitCommand(line)
	switch cmd {
	case "/quit", "/exit":
		return errQuit
	case "/login":
		if len(args) != 2 {
			return errors.New("usage: /login <email> <password>")
		}
		sess, err := c.gate.SignIn(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		c.authenticated.Store(true)
		c.printf("Signed in as %s\n%s\n", displayName(sess.User), helpText)
	case "/signup":
		if len(args) < 2 {
			return errors.New("usage: /signup <email> <password> [name]")
		}
		id, err := c.gate.SignUp(ctx, args[0], args[1], strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		c.printf("Account created for %s. Sign in with /login.\n", displayName(id))
	case "/oauth":
		if len(args) != 1 {
			return errors.New("usage: /oauth <provider>")
		}
		url, err := c.gate.SignInWithOAuth(ctx, args[0])
		if err != nil {
			return err
		}
		c.printf("Open this URL to continue:\n%s\n", url)
	case "/forgot":
		if len(args) != 1 {
			return errors.New("usage: /forgot <email>")
		}
		if err := c.gate.RequestPasswordReset(ctx, args[0]); err != nil {
			return err
		}
		c.printf("Recovery email sent.\n")
	case "/recover":
		if len(args) != 3 {
			return errors.New("usage: /recover <userId> <secret> <new-password>")
		}
		if err := c.gate.UpdatePassword(ctx, args[2], args[0], args[1]); err != nil {
			return err
		}
		c.printf("Password updated. Sign in with /login.\n")
	default:
		c.printf("%s\n", authHelpText)
	}
	return nil
}

func (c *console) handle(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		c.assistant.SetInput(line)
		return c.generate(ctx)
	}

	cmd, args := splitCommand(line)
	switch cmd {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		c.printf("%s\n", helpText)
	case "/mode":
		mode, err := contractx.ParseMode(strings.Join(args, " "))
		if err != nil {
			return err
		}
		if err := c.assistant.SetMode(mode); err != nil {
			return err
		}
		c.printf("Mode: %s\n", mode)
	case "/lang":
		lang, err := contractx.ParseLanguage(strings.Join(args, " "))
		if err != nil {
			return err
		}
		if err := c.assistant.SetLanguage(lang); err != nil {
			return err
		}
		c.printf("Language: %s\n", lang)
	case "/generate", "/g":
		return c.generate(ctx)
	case "/use":
		if len(args) != 1 {
			return errors.New("usage: /use <n|id>")
		}
		msg, err := c.assistant.UseSuggestion(c.resolveSuggestionID(args[0]))
		if err != nil {
			return err
		}
		c.printf("rep: %s\n", msg.Content)
	case "/dismiss":
		c.assistant.DismissSuggestions()
		c.printf("Suggestions cleared.\n")
	case "/company":
		if len(args) == 0 {
			c.printCompany(c.assistant.Company())
			return nil
		}
		if len(args) < 2 {
			return errors.New("usage: /company <field> <value>")
		}
		return c.assistant.SetCompanyField(args[0], strings.Join(args[1:], " "))
	case "/customer":
		if len(args) == 0 {
			c.printCustomer(c.assistant.Customer())
			return nil
		}
		if len(args) < 2 {
			return errors.New("usage: /customer <field> <value>")
		}
		return c.assistant.SetCustomerField(args[0], strings.Join(args[1:], " "))
	case "/show":
		c.printState()
	case "/export":
		return c.export(args)
	case "/import":
		if len(args) != 1 {
			return errors.New("usage: /import <path>")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := c.assistant.ImportProfiles(data); err != nil {
			return err
		}
		c.printf("Profiles imported.\n")
	case "/reset":
		if err := c.assistant.ResetProfiles(ctx); err != nil {
			return err
		}
		c.printf("Profiles reset to defaults.\n")
	case "/logout":
		if err := c.gate.SignOut(ctx); err != nil {
			return err
		}
		c.authenticated.Store(false)
		c.printf("Signed out.\n%s\n", authHelpText)
	default:
		c.printf("Unknown command %s\n%s\n", cmd, helpText)
	}
	return nil
}

func (c *console) generate(ctx context.Context) error {
	suggestions, err := c.assistant.Generate(ctx)
	if err != nil {
		if errors.Is(err, assistantx.ErrEmptyInput) {
			return fmt.Errorf("type a message first (%s needs input)", c.assistant.Mode())
		}
		return err
	}
	if len(suggestions) == 0 {
		c.printf("No suggestions this time. Try again.\n")
		return nil
	}
	for i, s := range suggestions {
		c.printf("%d) %s\n   why: %s\n", i+1, s.Text, s.Explanation)
	}
	return nil
}

// resolveSuggestionID accepts a 1-based position or a raw id.
func (c *console) resolveSuggestionID(arg string) string {
	if n, err := strconv.Atoi(arg); err == nil {
		suggestions := c.assistant.Suggestions()
		if n >= 1 && n <= len(suggestions) {
			return suggestions[n-1].ID
		}
	}
	return arg
}

func (c *console) export(args []string) error {
	data, err := c.assistant.ExportProfiles()
	if err != nil {
		return err
	}
	path := profilex.ExportFileName(c.now())
	if len(args) > 0 {
		path = args[0]
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, profilex.ExportFileName(c.now()))
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	c.printf("Profiles exported to %s\n", path)
	return nil
}

func (c *console) printState() {
	c.printf("Mode: %s\nLanguage: %s\nInput: %q\n", c.assistant.Mode(), c.assistant.Language(), c.assistant.Input())
	messages := c.assistant.Messages()
	if len(messages) == 0 {
		c.printf("Conversation is empty.\n")
		return
	}
	for _, m := range messages {
		c.printf("%s %-8s %s\n", m.Timestamp.Format("15:04"), m.Role+":", m.Content)
	}
}

func (c *console) printCompany(co contractx.CompanyContext) {
	c.printf("companyName:    %s\nmission:        %s\nservices:       %s\npricingPolicy:  %s\ntargetAudience: %s\nbuyingStage:    %s\n",
		co.CompanyName, co.Mission, co.Services, co.PricingPolicy, co.TargetAudience, co.BuyingStage)
}

func (c *console) printCustomer(cu contractx.CustomerContext) {
	c.printf("name:       %s\nindustry:   %s\npainPoints: %s\nbudget:     %s\nnotes:      %s\n",
		cu.Name, cu.Industry, cu.PainPoints, cu.Budget, cu.Notes)
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func splitCommand(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

func displayName(id sessionx.Identity) string {
	switch {
	case id.Name != "":
		return id.Name
	case id.Email != "":
		return id.Email
	default:
		return id.ID
	}
}
