// Package summary collects pending todos, generates a natural-language
// summary, and posts it to a chat webhook.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/Prajwal99452/todo-summary/internal/apperr"
	"github.com/Prajwal99452/todo-summary/internal/todo"
)

// promptTemplate is the fixed instructional prompt the rendered list is
// embedded in.
const promptTemplate = "Summarize the following todo list in a concise and meaningful way. " +
	"Provide insights about priorities, themes, and suggestions if possible:\n\n%s"

// PendingSource queries the persistent store for incomplete todos.
type PendingSource func(ctx context.Context) ([]*todo.Todo, error)

// Dispatcher runs the summarize-and-notify pipeline:
// fetch pending todos, render, generate, post to the webhook.
//
// The pipeline has no partial success: it either completes or fails with no
// side effect beyond whatever already happened externally. Generation cost
// is incurred even when the subsequent webhook post fails; that is an
// accepted, non-recoverable cost.
type Dispatcher struct {
	gen     Generator
	pending PendingSource
	client  *http.Client
	logger  *log.Logger
}

// Request is one summarize-and-notify invocation.
type Request struct {
	// WebhookURL receives the formatted summary message.
	WebhookURL string

	// Todos is the inline collection supplied when the local mirror store
	// is active, since the server cannot see client-local data otherwise.
	Todos []*todo.Todo

	// HasInline distinguishes an explicitly supplied (possibly empty)
	// collection from no collection at all.
	HasInline bool
}

// Result is the outcome of a dispatch.
type Result struct {
	// Summary is the generated text. Empty when NothingToDo.
	Summary string `json:"summary,omitempty"`

	// TodoCount is the number of pending todos summarized.
	TodoCount int `json:"todoCount"`

	// NothingToDo is set when there were zero pending todos; this is a
	// non-error outcome and no external call was made.
	NothingToDo bool `json:"-"`
}

// New creates a dispatcher. gen may be nil when no text-generation
// credential is configured; Dispatch then fails fast with a configuration
// error before any external call.
func New(gen Generator, pending PendingSource, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(os.Stderr, "[summary] ", log.LstdFlags)
	}
	return &Dispatcher{
		gen:     gen,
		pending: pending,
		client:  &http.Client{},
		logger:  logger,
	}
}

// RenderList renders the deterministic plain-text bullet list:
// "- {title}: {description}", with the description segment omitted when
// absent.
func RenderList(todos []*todo.Todo) string {
	lines := make([]string, len(todos))
	for i, t := range todos {
		if t.Description != "" {
			lines[i] = fmt.Sprintf("- %s: %s", t.Title, t.Description)
		} else {
			lines[i] = fmt.Sprintf("- %s", t.Title)
		}
	}
	return strings.Join(lines, "\n")
}

// Dispatch runs the full pipeline for one request.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if d.gen == nil {
		return nil, apperr.Configuration("text-generation API key is not configured")
	}
	if req.WebhookURL == "" {
		return nil, apperr.Validation("webhook URL is required")
	}

	var todos []*todo.Todo
	if req.HasInline {
		todos = todo.Pending(req.Todos)
	} else {
		if d.pending == nil {
			return nil, apperr.Configuration("no todo source is configured")
		}
		var err error
		todos, err = d.pending(ctx)
		if err != nil {
			return nil, err
		}
	}

	if len(todos) == 0 {
		return &Result{NothingToDo: true}, nil
	}

	list := RenderList(todos)

	summary, err := d.gen.Generate(ctx, fmt.Sprintf(promptTemplate, list))
	if err != nil {
		return nil, apperr.Dispatch(err, "failed to generate summary")
	}

	if err := d.postWebhook(ctx, req.WebhookURL, summary, list); err != nil {
		return nil, err
	}

	d.logger.Printf("Summary of %d todos sent to webhook", len(todos))
	return &Result{Summary: summary, TodoCount: len(todos)}, nil
}

// postWebhook sends the summary plus the original rendered list as a single
// formatted message.
func (d *Dispatcher) postWebhook(ctx context.Context, url, summary, list string) error {
	payload := map[string]string{
		"text": fmt.Sprintf("*Todo Summary*\n\n%s\n\n*Original Todo List:*\n%s", summary, list),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Dispatch(err, "failed to marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperr.Dispatch(err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return apperr.Dispatch(err, "failed to send message to webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperr.Dispatch(
			fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
			"failed to send message to webhook",
		)
	}
	return nil
}
