package app

import (
	"chronicle/suggest/internal/doc"
	"chronicle/suggest/internal/edit"
)

// StepInput is the wire form of one atomic step. ReplaceRange inserts
// block content first, then text, so callers can express plain typing
// with Text alone and structural edits with Nodes.
type StepInput struct {
	Kind  string      `json:"kind"`
	From  int         `json:"from"`
	To    int         `json:"to"`
	Text  string      `json:"text,omitempty"`
	Marks []doc.Mark  `json:"marks,omitempty"`
	Nodes []*doc.Node `json:"nodes,omitempty"`
	Mark  doc.Mark    `json:"mark,omitempty"`
}

func decodeSteps(inputs []StepInput) ([]edit.Step, error) {
	steps := make([]edit.Step, 0, len(inputs))
	for _, in := range inputs {
		switch in.Kind {
		case "replaceRange":
			var tokens []doc.Token
			for _, n := range in.Nodes {
				tokens = append(tokens, doc.NodeTokens(n)...)
			}
			if in.Text != "" {
				tokens = append(tokens, doc.TextTokens(in.Text, in.Marks)...)
			}
			steps = append(steps, edit.ReplaceRangeStep{From: in.From, To: in.To, Insert: tokens})
		case "addMark":
			steps = append(steps, edit.AddMarkStep{From: in.From, To: in.To, Mark: in.Mark})
		case "removeMark":
			steps = append(steps, edit.RemoveMarkStep{From: in.From, To: in.To, Mark: in.Mark})
		default:
			return nil, badRequest("unknown step kind: " + in.Kind)
		}
	}
	return steps, nil
}
