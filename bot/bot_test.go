package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Comcast/banter/tmpl"
)

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.Fallback = "I do not understand."
	return New(cfg)
}

func addRule(t *testing.T, b *Bot, pattern, that, topic string, template tmpl.Node) {
	t.Helper()
	if err := b.AddRule(pattern, that, topic, template); err != nil {
		t.Fatalf("AddRule(%q,%q,%q): %v", pattern, that, topic, err)
	}
}

func TestRespondBasic(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	addRule(t, b, "HELLO", "", "", tmpl.Text("Hi there!"))

	sess := b.NewSession("s-1")
	if got := b.Respond(ctx, "hello", sess); got != "Hi there!" {
		t.Errorf("got %q", got)
	}
	// Punctuation and case are normalized away.
	if got := b.Respond(ctx, "  Hello!!  ", sess); got != "Hi there!" {
		t.Errorf("got %q", got)
	}
}

func TestRespondSetAndStar(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	addRule(t, b, "I AM *", "", "", tmpl.Seq{
		tmpl.Text("Nice to hear you are "),
		tmpl.Set{Name: "mood", Value: tmpl.Star{Kind: "input", Index: 1}},
		tmpl.Text("."),
	})
	addRule(t, b, "HOW AM I", "", "", tmpl.Seq{
		tmpl.Text("You said you were "),
		tmpl.Get{Name: "mood"},
		tmpl.Text("."),
	})

	sess := b.NewSession("s-1")
	got := b.Respond(ctx, "I am happy", sess)
	if got != "Nice to hear you are HAPPY." {
		t.Errorf("got %q", got)
	}
	if v, _ := sess.Get("mood"); v != "HAPPY" {
		t.Errorf("mood = %q", v)
	}
	if got := b.Respond(ctx, "how am I?", sess); got != "You said you were HAPPY." {
		t.Errorf("got %q", got)
	}
}

func TestRespondFallback(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	addRule(t, b, "HELLO", "", "", tmpl.Text("Hi there!"))

	sess := b.NewSession("s-1")
	sess.Set("mood", "happy")

	got, turn := b.RespondTurn(ctx, "xyzzy plugh", sess)
	if got != "I do not understand." {
		t.Errorf("got %q", got)
	}
	if turn.NoMatches != 1 {
		t.Errorf("NoMatches = %d", turn.NoMatches)
	}
	// Failed lookups leave the session's predicates alone.
	if v, _ := sess.Get("mood"); v != "happy" {
		t.Errorf("mood = %q", v)
	}
}

func TestRespondRematch(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	addRule(t, b, "WHAT IS YOUR NAME", "", "", tmpl.Seq{
		tmpl.Text("My name is "),
		tmpl.BotRef{Name: "name"},
		tmpl.Text("."),
	})
	addRule(t, b, "WHO ARE YOU", "", "",
		tmpl.Rematch{Child: tmpl.Text("WHAT IS YOUR NAME")})

	sess := b.NewSession("s-1")
	if got := b.Respond(ctx, "who are you?", sess); got != "My name is banter." {
		t.Errorf("got %q", got)
	}
}

func TestRespondRecursionLimit(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.RecursionLimit = 8
	cfg.Fallback = "Too deep."
	b := New(cfg)
	addRule(t, b, "LOOP", "", "", tmpl.Rematch{Child: tmpl.Text("LOOP")})

	sess := b.NewSession("s-1")
	got, turn := b.RespondTurn(ctx, "loop", sess)
	if got != "Too deep." {
		t.Errorf("got %q", got)
	}
	var deep *tmpl.RecursionLimitExceededError
	found := false
	for _, err := range turn.Errors {
		if errors.As(err, &deep) {
			found = true
		}
	}
	if !found {
		t.Errorf("errors: %v", turn.Errors)
	}
	if deep != nil && deep.Limit != 8 {
		t.Errorf("limit %d", deep.Limit)
	}
}

func TestRespondRandomReproducible(t *testing.T) {
	ctx := context.Background()
	template := tmpl.Random{
		tmpl.Text("one"), tmpl.Text("two"), tmpl.Text("three"),
	}

	run := func() []string {
		cfg := DefaultConfig()
		cfg.Seed = 99
		b := New(cfg)
		addRule(t, b, "PICK", "", "", template)
		sess := b.NewSession("s-1")
		var acc []string
		for i := 0; i < 20; i++ {
			acc = append(acc, b.Respond(ctx, "pick", sess))
		}
		return acc
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("run diverged at %d: %q != %q", i, first[i], second[i])
		}
	}

	distinct := map[string]bool{}
	for _, s := range first {
		distinct[s] = true
	}
	if len(distinct) < 2 {
		t.Errorf("20 draws all gave %v", first[0])
	}
}

func TestRespondThatContext(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	addRule(t, b, "DO YOU LIKE CHEESE", "", "", tmpl.Text("Do you like cheese?"))
	addRule(t, b, "YES", "DO YOU LIKE CHEESE", "", tmpl.Text("Me too!"))
	addRule(t, b, "YES", "", "", tmpl.Text("Good."))

	sess := b.NewSession("s-1")
	b.Respond(ctx, "do you like cheese", sess)
	if got := b.Respond(ctx, "yes", sess); got != "Me too!" {
		t.Errorf("got %q", got)
	}
	// The previous answer is now "Me too!", so the bare rule wins.
	if got := b.Respond(ctx, "yes", sess); got != "Good." {
		t.Errorf("got %q", got)
	}
}

func TestRespondTopicContext(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	addRule(t, b, "LET US TALK ABOUT *", "", "", tmpl.Seq{
		tmpl.Think{Child: tmpl.Set{Name: "topic", Value: tmpl.Star{Kind: "input", Index: 1}}},
		tmpl.Text("Sure."),
	})
	addRule(t, b, "TELL ME MORE", "", "CHEESE", tmpl.Text("Cheddar ages well."))
	addRule(t, b, "TELL ME MORE", "", "", tmpl.Text("About what?"))

	sess := b.NewSession("s-1")
	if got := b.Respond(ctx, "tell me more", sess); got != "About what?" {
		t.Errorf("got %q", got)
	}
	if got := b.Respond(ctx, "let us talk about cheese", sess); got != "Sure." {
		t.Errorf("got %q", got)
	}
	if sess.Topic() != "CHEESE" {
		t.Errorf("topic %q", sess.Topic())
	}
	if got := b.Respond(ctx, "tell me more", sess); got != "Cheddar ages well." {
		t.Errorf("got %q", got)
	}
}

func TestRespondSentences(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	addRule(t, b, "HELLO", "", "", tmpl.Text("Hi!"))
	addRule(t, b, "I AM *", "", "", tmpl.Seq{
		tmpl.Text("You are "),
		tmpl.Star{Kind: "input", Index: 1},
		tmpl.Text("."),
	})

	sess := b.NewSession("s-1")
	got := b.Respond(ctx, "Hello. I am happy.", sess)
	if got != "Hi!  You are HAPPY." {
		t.Errorf("got %q", got)
	}

	// Each sentence lands in the input history; the joined response
	// is recorded once.
	if v, _ := sess.Input(1); v != "I am happy" {
		t.Errorf("Input(1) = %q", v)
	}
	if v, _ := sess.Input(2); v != "Hello" {
		t.Errorf("Input(2) = %q", v)
	}
	if v, _ := sess.Output(1); v != got {
		t.Errorf("Output(1) = %q", v)
	}
}

func TestRespondNormalSubstitutions(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	// "I'm" expands to "I am" before tokenization, so this pattern
	// sees it.
	addRule(t, b, "I AM *", "", "", tmpl.Text("Noted."))

	sess := b.NewSession("s-1")
	if got := b.Respond(ctx, "I'm tired", sess); got != "Noted." {
		t.Errorf("got %q", got)
	}
}

func TestRespondHistoryTags(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	addRule(t, b, "*", "", "", tmpl.Text("Go on."))
	addRule(t, b, "WHAT DID I JUST SAY", "", "", tmpl.Seq{
		tmpl.Text("You said: "),
		tmpl.InputRef{Index: 2},
	})

	sess := b.NewSession("s-1")
	b.Respond(ctx, "the sky is green", sess)
	got := b.Respond(ctx, "what did I just say", sess)
	if got != "You said: the sky is green" {
		t.Errorf("got %q", got)
	}
}

func TestRespondOutOfRangeDegrades(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	addRule(t, b, "HELLO", "", "", tmpl.Seq{
		tmpl.Text("Hi "),
		tmpl.Star{Kind: "input", Index: 3},
		tmpl.Text(" there"),
	})

	sess := b.NewSession("s-1")
	got, turn := b.RespondTurn(ctx, "hello", sess)
	if got != "Hi there" {
		t.Errorf("got %q", got)
	}
	if len(turn.Errors) != 1 {
		t.Fatalf("errors: %v", turn.Errors)
	}
	var oor *tmpl.IndexOutOfRangeError
	if !errors.As(turn.Errors[0], &oor) {
		t.Errorf("got %v", turn.Errors[0])
	}
}

func TestRespondScripterless(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	addRule(t, b, "CALC", "", "", tmpl.Seq{
		tmpl.Text("Result:"),
		tmpl.Script{Child: tmpl.Text("1+1")},
	})

	sess := b.NewSession("s-1")
	// No scripter: the tag substitutes nothing.
	if got := b.Respond(ctx, "calc", sess); got != "Result:" {
		t.Errorf("got %q", got)
	}
}

type fakeScripter struct {
	calls []string
}

func (f *fakeScripter) Exec(ctx context.Context, code string) (string, error) {
	f.calls = append(f.calls, code)
	return "99", nil
}

func TestRespondScripter(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	fs := &fakeScripter{}
	b.SetScripter(fs)
	addRule(t, b, "CALC", "", "", tmpl.Script{Child: tmpl.Text("6*7")})

	sess := b.NewSession("s-1")
	if got := b.Respond(ctx, "calc", sess); got != "99" {
		t.Errorf("got %q", got)
	}
	if len(fs.calls) != 1 || fs.calls[0] != "6*7" {
		t.Errorf("calls %v", fs.calls)
	}
}

func TestRespondLearn(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	var learned []string
	b.OnLearn(func(ctx context.Context, name string) error {
		learned = append(learned, name)
		return nil
	})
	addRule(t, b, "STUDY", "", "", tmpl.Seq{
		tmpl.Text("Done."),
		tmpl.Learn{Child: tmpl.Text("extras.yaml")},
	})

	sess := b.NewSession("s-1")
	if got := b.Respond(ctx, "study", sess); got != "Done." {
		t.Errorf("got %q", got)
	}
	if len(learned) != 1 || learned[0] != "extras.yaml" {
		t.Errorf("learned %v", learned)
	}
}

func TestRespondPersonTag(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t)
	addRule(t, b, "SAY *", "", "", tmpl.Seq{
		tmpl.Text("You said "),
		tmpl.Person{},
		tmpl.Text("."),
	})

	sess := b.NewSession("s-1")
	got := b.Respond(ctx, "say I was first", sess)
	if !strings.Contains(got, "YOU WERE FIRST") {
		t.Errorf("got %q", got)
	}
}

func TestAddRuleRejectsMalformed(t *testing.T) {
	b := newTestBot(t)
	if err := b.AddRule("", "", "", tmpl.Text("x")); err == nil {
		t.Error("empty pattern accepted")
	}
	if err := b.AddRule("...", "", "", tmpl.Text("x")); err == nil {
		t.Error("all-punctuation pattern accepted")
	}
}
