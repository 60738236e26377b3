package reconcile

import (
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/specchio/pkg/chat"
)

// MessageView is the reconciled projection of one message, ready for
// rendering. Hidden rows are narrative detail of a collapsed phase and stay
// out of the primary transcript; their text remains reachable through the
// terminal marker's PhaseDetail.
type MessageView struct {
	Message   *chat.Message
	Text      string
	ToolCalls []*ToolCall
	SubAgents []SubAgent
	Hidden    bool

	// Phase is set when the message carries a parsable phase marker; such
	// messages always render through the phase projection, never as chat
	// text. IsMarker additionally covers unparsable marker tokens.
	Phase       *PhaseEvent
	IsMarker    bool
	PhaseDetail string
}

// View is the derived model for a whole message list, computed in a single
// full pass in stream order. A new list means a new view; there is no
// incremental patching.
type View struct {
	Messages  []MessageView
	ToolCalls *ToolCallIndex
}

// Visible returns the primary transcript rows in order.
func (v *View) Visible() []MessageView {
	var out []MessageView
	for _, mv := range v.Messages {
		if !mv.Hidden {
			out = append(out, mv)
		}
	}
	return out
}

// Options tunes one reconciliation pass.
type Options struct {
	// Interrupted marks an open approval interrupt; newly derived tool
	// calls start as interrupted instead of pending.
	Interrupted bool
}

// Reconcile turns a raw message list into the renderable view model:
// correlated tool calls, phase skip-set, per-phase detail, and sub-agent
// projections. The pass is pure; recomputing over the same list yields an
// identical view.
func Reconcile(msgs chat.Conversation, opts Options) *View {
	calls := CorrelateToolCalls(msgs, opts.Interrupted)
	pass := scanPhases(msgs)
	skip := buildSkipSet(msgs, pass.ranges, calls)

	detailByIndex := map[int]string{}
	for _, r := range pass.ranges {
		detailByIndex[r.EndIndex] = phaseDetail(msgs, r, skip)
	}

	view := &View{
		Messages:  make([]MessageView, 0, len(msgs)),
		ToolCalls: calls,
	}
	for i, m := range msgs {
		if m == nil {
			continue
		}
		mv := MessageView{
			Message:   m,
			Text:      m.PlainText(),
			ToolCalls: calls.ForMessage(m.ID),
			Hidden:    skip[i],
		}
		mv.SubAgents = DeriveSubAgents(mv.ToolCalls)
		if ev, ok := pass.events[i]; ok {
			ev := ev
			mv.Phase = &ev
			mv.IsMarker = true
			mv.PhaseDetail = detailByIndex[i]
		} else if m.Role == chat.RoleAgent && HasPhaseMarker(mv.Text) {
			mv.IsMarker = true
		}
		view.Messages = append(view.Messages, mv)
	}

	log.Trace().
		Int("messages", len(msgs)).
		Int("tool_calls", len(calls.All())).
		Int("hidden", len(skip)).
		Int("phase_ranges", len(pass.ranges)).
		Msg("reconciled conversation")

	return view
}
