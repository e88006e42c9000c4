// Package summary asks a text-generation service for a playful recap of
// the tab. It never fails: every error path resolves to a fixed sentence.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"lori/internal/core"
	"lori/internal/log"
)

const (
	// NothingConsumed is returned without calling the generator when no item has a count.
	NothingConsumed = "Parece que você ainda não começou a festa!"
	// EmptyResponse replaces a blank generator answer.
	EmptyResponse = "Uau, que noite incrível! Você realmente aproveitou!"
)

// Line is one active item of the recap.
type Line struct {
	Name  string
	Count int
}

// Request is the collaborator input: active items and the bill total.
type Request struct {
	Lines []Line
	Total float64
}

// FromItems keeps the items with a positive count and sums the total over them.
func FromItems(items []core.Item) Request {
	var req Request
	for _, it := range core.Active(items) {
		req.Lines = append(req.Lines, Line{Name: it.Name, Count: it.Count})
		req.Total += it.Subtotal()
	}
	return req
}

// Consumption renders the lines as "2x Chopp, 1x Pizza".
func (r Request) Consumption() string {
	parts := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		parts[i] = strconv.Itoa(l.Count) + "x " + l.Name
	}
	return strings.Join(parts, ", ")
}

// Summarizer produces the recap text.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) string
}

// Generator is a remote text-generation call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service implements Summarizer on top of a Generator. A nil generator
// means no remote service is configured and the local fallback is used.
type Service struct {
	gen    Generator
	logger *slog.Logger
}

func NewService(gen Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gen: gen, logger: logger}
}

func (s *Service) Summarize(ctx context.Context, req Request) string {
	if len(req.Lines) == 0 {
		return NothingConsumed
	}
	if s.gen == nil {
		return Fallback(req)
	}

	text, err := s.gen.Generate(ctx, Prompt(req))
	if err != nil {
		s.logger.ErrorContext(ctx, "Summary generation failed",
			log.FieldComponent, log.ComponentSummary,
			log.FieldError, err,
			log.FieldItems, len(req.Lines),
			"total", req.Total)
		return Fallback(req)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.WarnContext(ctx, "Summary generation returned empty text", log.FieldComponent, log.ComponentSummary)
		return EmptyResponse
	}
	s.logger.InfoContext(ctx, "Summary generated",
		log.FieldComponent, log.ComponentSummary,
		log.FieldItems, len(req.Lines),
		"chars", len(text))
	return text
}

// Fallback is the plain sentence shown when the generator fails.
func Fallback(req Request) string {
	return fmt.Sprintf("Você consumiu %s por um total de %s. Continue aproveitando com responsabilidade!",
		req.Consumption(), core.FormatReais(req.Total))
}

// Prompt builds the generator instruction.
func Prompt(req Request) string {
	var b strings.Builder
	b.WriteString("Gere um resumo curto e muito divertido (estilo brincalhão e encorajador) para o consumo de um usuário em um bar/restaurante.\n")
	fmt.Fprintf(&b, "O consumo foi: %s.\n", req.Consumption())
	fmt.Fprintf(&b, "O total da conta foi: %s.\n", core.FormatReais(req.Total))
	b.WriteString("Mantenha em português do Brasil. Seja criativo, como se fosse um garçom amigo dando um feedback engraçado.")
	return b.String()
}

// Static answers every request locally, for runs without an API key.
type Static struct{}

func (Static) Summarize(_ context.Context, req Request) string {
	if len(req.Lines) == 0 {
		return NothingConsumed
	}
	return Fallback(req)
}
