package play

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/dialogue"
	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/game"
)

const helpText = `Commands:
  look               describe the scene and the spots you can search
  search <spot>      investigate a spot, e.g. "search Inspect the trees"
  evidence           list the evidence you have found
  talk <suspect>     start questioning a suspect: onitake, hana, spirit or woodcutter
  ask <question>     question the current suspect, plain text works too
  show <evidence>    present evidence to the current suspect by its id
  status             show how stressed each suspect is
  accuse             name the killer, the method and the motive
  reset              forget all progress
  quit               leave the grove
`

type repl struct {
	game     *game.Game
	caseFile *casefile.Case
	in       *bufio.Scanner
	out      io.Writer
	current  casefile.SuspectID
	done     bool
}

func newREPL(g *game.Game, c *casefile.Case, in io.Reader, out io.Writer) *repl {
	return &repl{
		game:     g,
		caseFile: c,
		in:       bufio.NewScanner(in),
		out:      out,
		current:  "",
		done:     false,
	}
}

func (r *repl) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Run reads commands until quit, end of input or ctx is done.
func (r *repl) Run(ctx context.Context) error {
	view := r.game.View()
	r.printf("%s\n\n%s\n\n", view.Title, view.Scene)
	if !view.HasSeenIntro {
		r.printf("%s", helpText)
		r.game.MarkIntroSeen(ctx)
	}
	for !r.done {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "interrupted")
		}
		r.prompt()
		line, ok := r.readLine()
		if !ok {
			break
		}
		r.handle(ctx, line)
	}
	if err := r.in.Err(); err != nil {
		return errors.Wrap(err, "read input")
	}
	return nil
}

func (r *repl) prompt() {
	if r.current != "" {
		r.printf("[%s] > ", r.current)
		return
	}
	r.printf("> ")
}

func (r *repl) readLine() (string, bool) {
	if !r.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.in.Text()), true
}

func (r *repl) handle(ctx context.Context, line string) {
	if line == "" {
		return
	}
	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(command) {
	case "help", "?":
		r.printf("%s", helpText)
	case "look":
		r.look()
	case "search":
		r.search(ctx, arg)
	case "evidence":
		r.evidence()
	case "talk":
		r.talk(ctx, arg)
	case "ask":
		r.ask(ctx, arg)
	case "show":
		r.show(ctx, arg)
	case "status":
		r.status()
	case "accuse":
		r.accuse(ctx)
	case "reset":
		if err := r.game.Reset(ctx); err != nil {
			r.printf("Could not forget everything: %v\n", err)
			return
		}
		r.current = ""
		r.printf("Everything is forgotten.\n")
	case "quit", "exit":
		r.done = true
	default:
		if r.current == "" {
			r.printf("Unknown command. Type \"help\" for the list of commands.\n")
			return
		}
		r.ask(ctx, line)
	}
}

func (r *repl) look() {
	view := r.game.View()
	investigated := make(map[string]bool, len(view.Investigated))
	for _, key := range view.Investigated {
		investigated[key] = true
	}
	r.printf("%s\n", view.Scene)
	for _, key := range view.Clues {
		mark := " "
		if investigated[key] {
			mark = "x"
		}
		r.printf("  [%s] %s\n", mark, key)
	}
}

func (r *repl) search(ctx context.Context, clueKey string) {
	if clueKey == "" {
		r.printf("Search where? Type \"look\" to see the spots.\n")
		return
	}
	record := r.game.InvestigateClue(ctx, clueKey)
	r.printf("%s\n", record.Result)
	if record.EvidenceName != "" && !record.IsRepeat {
		r.printf("Evidence found: %s\n", record.EvidenceName)
	}
}

func (r *repl) evidence() {
	items := r.game.View().Evidence
	if len(items) == 0 {
		r.printf("You have not found any evidence yet.\n")
		return
	}
	for _, e := range items {
		r.printf("  %s: %s. %s\n", e.ID, e.Name, e.Description)
	}
}

func (r *repl) talk(ctx context.Context, arg string) {
	id, ok := casefile.ParseSuspectID(strings.ToLower(arg))
	if !ok {
		r.printf("Nobody here by that name. Choose onitake, hana, spirit or woodcutter.\n")
		return
	}
	r.current = id
	suspect, _ := r.caseFile.Suspect(id)
	r.printf("You turn to %s.\n", suspect.Name)
	if statement, given := r.game.InitialStatement(ctx, id); given {
		r.printf("%s: %s\n", suspect.Name, statement)
	}
}

func (r *repl) ask(ctx context.Context, question string) {
	if r.current == "" {
		r.printf("Talk to somebody first.\n")
		return
	}
	resp, ok := r.game.Ask(ctx, r.current, question)
	if !ok {
		r.printf("Please enter a question.\n")
		return
	}
	r.reply(resp)
}

func (r *repl) show(ctx context.Context, evidenceID string) {
	if r.current == "" {
		r.printf("Talk to somebody first.\n")
		return
	}
	resp, ok := r.game.PresentEvidence(ctx, r.current, evidenceID)
	if !ok {
		r.printf("You have not found that evidence yet.\n")
		return
	}
	r.reply(resp)
}

func (r *repl) reply(resp dialogue.Response) {
	suspect, _ := r.caseFile.Suspect(r.current)
	r.printf("%s: %s\n", suspect.Name, resp.Text)
	if resp.Delta > 0 {
		r.printf("(%s looks %s.)\n", suspect.Name, resp.Emotion.Label())
	}
}

func (r *repl) status() {
	for _, s := range r.game.View().Suspects {
		r.printf("  %-10s %3d%% %s\n", s.ID, s.StressPercent, s.Emotion)
	}
}

func (r *repl) accuse(ctx context.Context) {
	answers := make([]string, 0, 3) //nolint:mnd // killer, method and motive
	for _, question := range []string{"Who is the killer?", "How was it done?", "Why?"} {
		r.printf("%s ", question)
		answer, ok := r.readLine()
		if !ok {
			r.done = true
			return
		}
		answers = append(answers, answer)
	}
	res, err := r.game.SubmitAccusation(ctx, strings.ToLower(answers[0]), answers[1], answers[2])
	if err != nil {
		r.printf("Please choose a suspect and describe both the method and the motive.\n")
		return
	}
	if res.Correct {
		r.printf("Correct! %s\n", res.Truth)
		return
	}
	r.printf("That is not what happened.\n")
	if res.Hint != nil {
		r.printf("%s\n", res.Hint.Summary)
	}
}
