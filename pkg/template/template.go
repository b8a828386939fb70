// Package template renders node configuration strings (prompts, condition
// literals) against an execution's accumulated context.
package template

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
)

// RenderWithExecution renders input with the execution's context exposed as
// .context (and .ctx) plus execution metadata under .execution.
func RenderWithExecution(input string, execution *models.Execution) (string, error) {
	data := map[string]any{
		"context": execution.Context,
		"ctx":     execution.Context,
		"execution": map[string]any{
			"id":      execution.ID,
			"flow_id": execution.FlowID,
		},
	}

	return Render(input, data)
}

// Render executes input as a text/template against data.
func Render(input string, data any) (string, error) {
	tmpl, err := template.
		New("node").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"join": strings.Join,
		}).Parse(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %q: %w", input, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template %q: %w", input, err)
	}

	return buf.String(), nil
}

// Coerce parses a rendered string into a number or boolean when it looks
// like one, otherwise returns it unchanged.
func Coerce(rendered string) any {
	trimmed := strings.TrimSpace(rendered)

	if num, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return num
	}

	if b, err := strconv.ParseBool(trimmed); err == nil {
		return b
	}

	return rendered
}
