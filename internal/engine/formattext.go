package engine

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/errors"
)

// twipsPerPoint converts user-supplied point values to the document's
// paragraph spacing unit.
const twipsPerPoint = 20

// FormatTextInput contains parameters for the formatText command.
//
// Boolean properties use true to set and false to unset. String properties
// (color, highlight, link) use a non-empty value to set and the literal false
// to unset, so they decode as any. Numeric layout properties accept numbers
// or numeric strings; non-numeric input is silently skipped per field.
type FormatTextInput struct {
	FontFamily    any   `json:"fontFamily,omitempty"`
	FontSize      any   `json:"fontSize,omitempty"`
	Color         any   `json:"color,omitempty"`
	Highlight     any   `json:"highlight,omitempty"`
	Bold          *bool `json:"bold,omitempty"`
	Italic        *bool `json:"italic,omitempty"`
	Underline     *bool `json:"underline,omitempty"`
	Strikethrough *bool `json:"strikethrough,omitempty"`
	Link          any   `json:"link,omitempty"`
	LineHeight    any   `json:"lineHeight,omitempty"`
	Indent        any   `json:"indent,omitempty"`
	SpacingBefore any   `json:"spacingBefore,omitempty"`
	SpacingAfter  any   `json:"spacingAfter,omitempty"`

	// Scope selects the target: "document", an explicit {from,to} object, or
	// absent for the current selection (whole document when none).
	Scope any `json:"scope,omitempty"`
}

// FormatTextOutput lists the applied effects as human-readable strings.
type FormatTextOutput struct {
	Applied []string `json:"applied"`
	From    int      `json:"from"`
	To      int      `json:"to"`
}

// FormatText applies style attributes to the scoped range. Formatting always
// executes in editing mode: tracking every style toggle is prohibitively
// noisy, so formatting changes are never recorded as proposals. The prior
// mode is restored on exit.
func (e *Engine) FormatText(in FormatTextInput) (*FormatTextOutput, error) {
	if !in.hasOptions() {
		return nil, errors.NewValidation("at least one format option is required")
	}
	if e.doc.Empty() {
		return nil, errors.NewValidation("document has no content to format")
	}

	from, to, err := e.resolveScope(in.Scope)
	if err != nil {
		return nil, err
	}

	out := &FormatTextOutput{Applied: []string{}, From: from, To: to}

	err = e.inMode(docmodel.ModeEditing, nil, func(id docmodel.Identity) error {
		tx := docmodel.NewTransaction(id)
		patch := docmodel.AttrsPatch{}

		applyBool := func(v *bool, t docmodel.MarkType, name string) {
			if v == nil {
				return
			}
			if *v {
				tx.AddMark(from, to, docmodel.Mark{Type: t})
				out.Applied = append(out.Applied, name)
			} else {
				tx.RemoveMark(from, to, t)
				out.Applied = append(out.Applied, "removed "+name)
			}
		}
		applyBool(in.Bold, docmodel.MarkBold, "bold")
		applyBool(in.Italic, docmodel.MarkItalic, "italic")
		applyBool(in.Underline, docmodel.MarkUnderline, "underline")
		applyBool(in.Strikethrough, docmodel.MarkStrikethrough, "strikethrough")

		applyString := func(v any, t docmodel.MarkType, name string) {
			s, unset, ok := stringOrFalse(v)
			if !ok {
				return
			}
			if unset {
				tx.RemoveMark(from, to, t)
				out.Applied = append(out.Applied, "removed "+name)
			} else {
				tx.AddMark(from, to, docmodel.Mark{Type: t, Value: s})
				out.Applied = append(out.Applied, fmt.Sprintf("%s: %s", name, s))
			}
		}
		applyString(in.Color, docmodel.MarkColor, "color")
		applyString(in.Highlight, docmodel.MarkHighlight, "highlight")
		applyString(in.Link, docmodel.MarkLink, "link")

		if s, _, ok := stringOrFalse(in.FontFamily); ok && s != "" {
			tx.AddMark(from, to, docmodel.Mark{Type: docmodel.MarkFontFamily, Value: s})
			out.Applied = append(out.Applied, "font family: "+s)
		}
		if v, ok := numeric(in.FontSize); ok && v > 0 {
			tx.AddMark(from, to, docmodel.Mark{Type: docmodel.MarkFontSize, Value: strconv.FormatFloat(v, 'f', -1, 64)})
			out.Applied = append(out.Applied, fmt.Sprintf("font size: %gpt", v))
		}

		if v, ok := numeric(in.LineHeight); ok {
			// exactly 0 means unset rather than "set to zero"
			patch.LineHeight = &v
			if v == 0 {
				out.Applied = append(out.Applied, "removed line height")
			} else {
				out.Applied = append(out.Applied, fmt.Sprintf("line height: %g", v))
			}
		}
		if v, ok := numeric(in.Indent); ok {
			patch.Indent = &v
			if v == 0 {
				out.Applied = append(out.Applied, "removed indent")
			} else {
				out.Applied = append(out.Applied, fmt.Sprintf("indent: %gpt", v))
			}
		}
		if v, ok := numeric(in.SpacingBefore); ok {
			tw := int(v * twipsPerPoint)
			patch.SpacingBefore = &tw
			out.Applied = append(out.Applied, fmt.Sprintf("spacing before: %gpt", v))
		}
		if v, ok := numeric(in.SpacingAfter); ok {
			tw := int(v * twipsPerPoint)
			patch.SpacingAfter = &tw
			out.Applied = append(out.Applied, fmt.Sprintf("spacing after: %gpt", v))
		}

		if patch.LineHeight != nil || patch.Indent != nil || patch.SpacingBefore != nil || patch.SpacingAfter != nil {
			tx.SetParagraphAttrs(from, to, patch)
		}

		if tx.Empty() {
			// Everything supplied was silently skipped (non-numeric input);
			// not an error.
			return nil
		}
		if err := e.doc.Apply(tx); err != nil {
			return errors.NewOperationFailed("formatText", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (in *FormatTextInput) hasOptions() bool {
	return in.FontFamily != nil || in.FontSize != nil || in.Color != nil ||
		in.Highlight != nil || in.Bold != nil || in.Italic != nil ||
		in.Underline != nil || in.Strikethrough != nil || in.Link != nil ||
		in.LineHeight != nil || in.Indent != nil ||
		in.SpacingBefore != nil || in.SpacingAfter != nil
}

// resolveScope returns the target range: explicit {from,to}, the whole
// document for "document", or the current selection (whole document when no
// selection exists).
func (e *Engine) resolveScope(scope any) (int, int, error) {
	switch s := scope.(type) {
	case nil:
		if sel := e.doc.Selection; sel != nil {
			return sel.From, sel.To, nil
		}
		return 0, e.doc.Size(), nil
	case string:
		if s == "document" {
			return 0, e.doc.Size(), nil
		}
		return 0, 0, errors.NewValidation(fmt.Sprintf("invalid scope %q: must be \"document\" or a {from,to} range", s))
	case map[string]any:
		from, fok := numeric(s["from"])
		to, tok := numeric(s["to"])
		if !fok || !tok {
			return 0, 0, errors.NewValidation("scope range requires numeric from and to")
		}
		f, t := int(from), int(to)
		if !e.doc.InBounds(f, t) {
			return 0, 0, errors.NewValidation(fmt.Sprintf("scope range [%d, %d) is out of bounds", f, t))
		}
		return f, t, nil
	}
	return 0, 0, errors.NewValidation("invalid scope: must be \"document\" or a {from,to} range")
}

// stringOrFalse interprets a set-or-unset string property: a non-empty string
// sets, the literal false unsets, anything else is skipped.
func stringOrFalse(v any) (value string, unset, ok bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false, false
		}
		return t, false, true
	case bool:
		if !t {
			return "", true, true
		}
	}
	return "", false, false
}

// numeric parses a number or numeric string. Non-numeric input reports
// ok=false and is skipped by the caller, not rejected.
func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}
