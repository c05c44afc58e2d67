// Package chat answers the dashboard's help widget from a canned catalogue,
// or from a completion API when one is configured.
package chat

import (
	"bytes"
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
)

// Reply sources.
const (
	SourceCompletion = "completion"
	SourceCanned     = "canned"
	SourceDefault    = "default"
)

type Reply struct {
	Text   string `json:"text"`
	HTML   string `json:"html"`
	Source string `json:"source"`
}

type Responder struct {
	catalogue *Catalogue
	completer Completer
	md        goldmark.Markdown
	logger    zerolog.Logger
	replies   *prometheus.CounterVec
}

// NewResponder answers from catalogue. completer may be nil.
func NewResponder(catalogue *Catalogue, completer Completer, logger zerolog.Logger) *Responder {
	return &Responder{
		catalogue: catalogue,
		completer: completer,
		md:        goldmark.New(),
		logger:    logger,
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practicehub",
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Chat replies, by source.",
		}, []string{"source"}),
	}
}

func (r *Responder) RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(r.replies)
}

// Reply answers prompt. A completion failure or empty completion falls back
// to the catalogue; the catalogue falls back to its default reply.
func (r *Responder) Reply(ctx context.Context, prompt string) Reply {
	if r.completer != nil {
		text, err := r.completer.Complete(ctx, prompt)
		switch {
		case err != nil:
			r.logger.Warn().Err(err).Msg("chat completion failed, using canned reply")
		case text != "":
			return r.render(text, SourceCompletion)
		}
	}
	if e, ok := r.catalogue.Match(prompt); ok {
		return r.render(e.Reply, SourceCanned)
	}
	return r.render(r.catalogue.Default, SourceDefault)
}

// Greeting is the first message the widget shows.
func (r *Responder) Greeting() Reply {
	return r.render(r.catalogue.Greeting, SourceCanned)
}

func (r *Responder) render(text, source string) Reply {
	text = strings.TrimSpace(text)
	r.replies.WithLabelValues(source).Inc()

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		r.logger.Error().Err(err).Msg("render chat reply")
		return Reply{Text: text, Source: source}
	}
	return Reply{Text: text, HTML: buf.String(), Source: source}
}
