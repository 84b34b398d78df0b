// Package responder produces the assistant's next message. It never returns
// an error to the caller: an oracle failure degrades to a fixed apology so
// the chat endpoint always has something to say.
package responder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cacconnect/registrar/internal/oracle"
	"github.com/cacconnect/registrar/internal/store"
)

// Fallback is returned when the oracle cannot be reached.
const Fallback = "I'm sorry, I'm having trouble connecting to my brain right now. Please try again in a moment."

type Responder struct {
	llm    *oracle.Client
	logger *slog.Logger
	now    func() time.Time
}

func New(llm *oracle.Client, logger *slog.Logger) *Responder {
	return &Responder{llm: llm, logger: logger, now: time.Now}
}

// Respond asks the oracle for the next message to show the user, given the
// conversation window and the ordered missing-item prompts.
func (r *Responder) Respond(ctx context.Context, window []store.Turn, missing []string) string {
	messages := make([]oracle.Message, 0, len(window))
	for _, t := range window {
		messages = append(messages, oracle.Message{Role: t.Sender, Content: t.Text})
	}

	reply, err := r.llm.Complete(ctx, buildInstruction(missing, r.now()), messages)
	if err != nil {
		r.logger.Error("responder oracle call failed", "error", err)
		return Fallback
	}
	return reply
}

func buildInstruction(missing []string, now time.Time) string {
	var b strings.Builder
	b.WriteString(persona)
	fmt.Fprintf(&b, "\nToday's date is %s.\n", now.Format("Monday, 2 January 2006"))

	if len(missing) == 0 {
		b.WriteString("\nAll required information and documents have been collected. Congratulate the applicant warmly, tell them their registration details are complete, and let them know the CAC filing will proceed.\n")
		return b.String()
	}

	b.WriteString("\nThe following items are still needed, in order:\n")
	for i, m := range missing {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m)
	}
	b.WriteString(`
Produce exactly one next message: ask for the first item on the list. If the applicant asked a question, answer it briefly first, then return to asking for that item. Ask for one thing at a time and never repeat the whole list back to them.
`)
	return b.String()
}

const persona = `You are 'CAC Connect', a friendly and professional AI assistant that helps applicants register a business with the Nigerian Corporate Affairs Commission (CAC). You collect the applicant's registration details one item at a time, explain anything they find unclear in simple language, and keep an encouraging tone.`
